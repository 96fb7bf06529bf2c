package game

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Control is the run-time control surface. It is safe for use from any
// goroutine; the step driver reads it only between steps.
type Control struct {
	paused     atomic.Bool
	terminated atomic.Bool

	nodeCount    atomic.Uint32
	maxNodeCount atomic.Uint32
	cycleCount   atomic.Int64
	targetFPS    atomic.Int32
}

// NewControl returns a running control with the given frame cap (0 = none).
func NewControl(targetFPS int, startPaused bool) *Control {
	c := &Control{}
	c.targetFPS.Store(int32(targetFPS))
	c.paused.Store(startPaused)
	return c
}

// Pause stops stepping at the next step boundary.
func (c *Control) Pause() {
	if !c.paused.Swap(true) {
		slog.Info("simulation paused", "cycle", c.cycleCount.Load())
	}
}

// Resume continues stepping.
func (c *Control) Resume() {
	if c.paused.Swap(false) {
		slog.Info("simulation resumed", "cycle", c.cycleCount.Load())
	}
}

// Terminate ends Run at the next step boundary. It cannot be undone.
func (c *Control) Terminate() {
	if !c.terminated.Swap(true) {
		slog.Info("simulation terminating", "cycle", c.cycleCount.Load())
	}
}

func (c *Control) Paused() bool     { return c.paused.Load() }
func (c *Control) Terminated() bool { return c.terminated.Load() }

// NodeCount is the live node count after the last completed step.
func (c *Control) NodeCount() uint32 { return c.nodeCount.Load() }

// MaxNodeCount is the node arena capacity.
func (c *Control) MaxNodeCount() uint32 { return c.maxNodeCount.Load() }

// CycleCount is the number of completed steps.
func (c *Control) CycleCount() int64 { return c.cycleCount.Load() }

func (c *Control) TargetFPS() int { return int(c.targetFPS.Load()) }

// SetTargetFPS caps steps per second. 0 removes the cap.
func (c *Control) SetTargetFPS(fps int) {
	if fps < 0 {
		fps = 0
	}
	c.targetFPS.Store(int32(fps))
}

// frameInterval returns the minimum wall time per step, or 0 if uncapped.
func (c *Control) frameInterval() time.Duration {
	fps := c.targetFPS.Load()
	if fps <= 0 {
		return 0
	}
	return time.Second / time.Duration(fps)
}

func (c *Control) recordStep(nodes uint32, cycle int64) {
	c.nodeCount.Store(nodes)
	c.cycleCount.Store(cycle)
}
