// Package game drives the double-buffered plant simulation.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pthm-cable/sprout/components"
	"github.com/pthm-cable/sprout/config"
	"github.com/pthm-cable/sprout/storage"
	"github.com/pthm-cable/sprout/systems"
	"github.com/pthm-cable/sprout/telemetry"
)

// pausePoll is how often a paused Run rechecks its control flags.
const pausePoll = 10 * time.Millisecond

// Options configures a Simulation.
type Options struct {
	Config        *config.Config // nil = config.Cfg()
	Seed          int64
	RunID         string // empty = random
	LogStats      bool
	OutputDir     string
	SnapshotDir   string
	Store         storage.Store       // initialized by the caller; may be nil
	Resume        *telemetry.Snapshot // start from this generation instead of seeding
	StatsCallback func(telemetry.WindowStats)
}

// Simulation owns two generations and swaps them after every step.
type Simulation struct {
	cfg       *config.Config
	rules     *systems.GrowthRules
	projector *systems.MeshProjector
	control   *Control
	env       Env

	// mu guards the generation swap and tunables against readers on other
	// goroutines. Step itself must be called from one goroutine.
	mu       sync.RWMutex
	cur      *State
	next     *State
	tunables systems.Tunables
	tick     int64

	seed  int64
	runID string

	// Telemetry
	collector     *telemetry.Collector
	perfCollector *telemetry.PerfCollector
	outputManager *telemetry.OutputManager
	store         storage.Store
	snapshotDir   string
	logStats      bool
	statsCallback func(telemetry.WindowStats)
}

// NewSimulation builds a seeded world, or restores opts.Resume.
func NewSimulation(opts Options) (*Simulation, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}

	s := &Simulation{
		cfg:           cfg,
		rules:         systems.NewGrowthRules(&cfg.Growth),
		tunables:      systems.TunablesFromConfig(cfg.Tunables),
		seed:          opts.Seed,
		runID:         opts.RunID,
		collector:     telemetry.NewCollector(cfg.Telemetry.StatsWindow),
		perfCollector: telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		store:         opts.Store,
		snapshotDir:   opts.SnapshotDir,
		logStats:      opts.LogStats,
		statsCallback: opts.StatsCallback,
	}
	s.projector = systems.NewMeshProjector(s.rules.Table())

	if opts.Resume != nil {
		state, err := StateFromSnapshot(opts.Resume)
		if err != nil {
			return nil, fmt.Errorf("resuming snapshot: %w", err)
		}
		s.cur = state
		s.tick = opts.Resume.Tick
		s.seed = opts.Resume.RNGSeed
		s.tunables = tunablesFromState(opts.Resume.Tunables)
		if s.runID == "" {
			s.runID = opts.Resume.RunID
		}
	} else {
		state, err := NewState(cfg.Grid.X, cfg.Grid.Y, cfg.Grid.Z, cfg.Derived.NodeCapacity32, cfg.Derived.PlantCapacity)
		if err != nil {
			return nil, err
		}
		if err := seedWorld(state, cfg, s.seed); err != nil {
			return nil, err
		}
		s.cur = state
	}
	s.cur.Nodes.RefreshPositions()
	s.next = s.cur.Clone()

	if s.runID == "" {
		s.runID = uuid.NewString()
	}

	s.control = NewControl(cfg.Control.TargetFPS, cfg.Control.StartPaused)
	s.control.maxNodeCount.Store(s.cur.Nodes.Size())
	s.control.recordStep(s.cur.Nodes.CurrentSize(), s.tick)

	s.env = Env{
		Rules:        s.rules,
		Temperature:  float32(cfg.Environment.Temperature),
		DensityScale: float32(cfg.Environment.DensityScale),
		Seed:         uint64(s.seed),
		pool:         newWorkerPool(cfg.Parallel.Workers, cfg.Parallel.Threshold),
		perf:         s.perfCollector,
		buffer:       &cycleBuffers{},
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	s.outputManager = om
	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	return s, nil
}

// Step advances one cycle and swaps generations. On error the current
// generation is untouched and the control is paused.
func (s *Simulation) Step() error {
	s.mu.RLock()
	env := s.env
	env.Tunables = s.tunables
	env.Step = uint64(s.tick)
	s.mu.RUnlock()

	s.perfCollector.StartTick()
	events, err := advance(s.cur, s.next, &env)
	if err != nil {
		s.perfCollector.EndTick()
		s.collector.RecordStepError()
		s.control.Pause()
		slog.Error("step failed", "tick", s.tick, "error", err)
		return err
	}

	s.perfCollector.StartPhase(telemetry.PhaseSwap)
	s.mu.Lock()
	s.cur, s.next = s.next, s.cur
	s.tick++
	s.mu.Unlock()

	s.collector.RecordGrowth(events.Activations, events.Leaves, events.Unknown)
	s.control.recordStep(s.cur.Nodes.CurrentSize(), s.tick)

	s.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	s.flushTelemetry()
	s.maybeSnapshot()
	s.perfCollector.EndTick()
	return nil
}

// Run steps until ctx is done, the control terminates, maxTicks is reached
// (0 = unlimited) or a step fails. Flags are checked between steps.
func (s *Simulation) Run(ctx context.Context, maxTicks int64) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.control.Terminated() {
			return nil
		}
		if maxTicks > 0 && s.Tick() >= maxTicks {
			slog.Info("max ticks reached", "tick", s.Tick())
			return nil
		}
		if s.control.Paused() {
			if err := sleepCtx(ctx, pausePoll); err != nil {
				return err
			}
			continue
		}

		start := time.Now()
		s.perfCollector.RecordFrame()
		if err := s.Step(); err != nil {
			return err
		}
		if iv := s.control.frameInterval(); iv > 0 {
			if err := sleepCtx(ctx, iv-time.Since(start)); err != nil {
				return err
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Tick returns the number of completed steps.
func (s *Simulation) Tick() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tick
}

// Control returns the control surface.
func (s *Simulation) Control() *Control { return s.control }

// RunID identifies this run in output and storage.
func (s *Simulation) RunID() string { return s.runID }

// Seed returns the rng seed.
func (s *Simulation) Seed() int64 { return s.seed }

// Current returns the stable generation. It must not be mutated and is only
// valid until the next Step.
func (s *Simulation) Current() *State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Tunables returns the scalars the next step will read.
func (s *Simulation) Tunables() systems.Tunables {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tunables
}

// SetTunables replaces the scalars from the next step on. Values are
// clamped to [0, config.MaxTunable].
func (s *Simulation) SetTunables(t systems.Tunables) {
	t = t.Clamped()
	s.mu.Lock()
	s.tunables = t
	s.mu.Unlock()
	slog.Debug("tunables updated", "sunlight", t.Sunlight, "gravity", t.Gravity, "moisture", t.Moisture)
}

// Vertices projects the stable generation into a triangle list: plant
// morphology followed by soil cubes.
func (s *Simulation) Vertices() []components.Vertex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.projector.Project(s.cur.Nodes)
	return append(out, s.cur.Grid.GenVertex()...)
}

// Unload stops workers, writes a final snapshot when persistence is
// configured and closes output files.
func (s *Simulation) Unload() {
	s.env.pool.stopWorkers()

	if s.snapshotDir != "" || s.store != nil {
		s.saveSnapshot()
	}

	if err := s.outputManager.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
}
