package telemetry

import (
	"log/slog"
	"time"
)

// Phase identifies a timed section of a simulation step.
type Phase uint8

// Step phases in execution order.
const (
	PhaseGridPass Phase = iota
	PhaseNodePlan
	PhaseNodeApply
	PhasePositions
	PhaseSwap
	PhaseTelemetry

	NumPhases
)

var phaseNames = [NumPhases]string{"grid_pass", "node_plan", "node_apply", "positions", "swap", "telemetry"}

// String returns the phase name used in logs and CSV headers.
func (p Phase) String() string {
	if p < NumPhases {
		return phaseNames[p]
	}
	return "unknown"
}

// PhaseTimes holds one duration per phase.
type PhaseTimes [NumPhases]time.Duration

// PerfCollector times steps and their phases over a ring of the last
// windowSize steps. It is used from the stepping goroutine only.
type PerfCollector struct {
	ticks  []time.Duration
	phases []PhaseTimes
	next   int
	filled int

	cur        PhaseTimes
	tickStart  time.Time
	phaseStart time.Time
	active     Phase
	inPhase    bool

	lastFrame time.Time
	frame     time.Duration
}

// NewPerfCollector creates a collector averaging over windowSize steps.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		ticks:  make([]time.Duration, windowSize),
		phases: make([]PhaseTimes, windowSize),
	}
}

// StartTick begins timing a step.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.cur = PhaseTimes{}
	p.inPhase = false
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.inPhase {
		p.cur[p.active] += now.Sub(p.phaseStart)
	}
}

// StartPhase ends the running phase, if any, and starts timing phase.
func (p *PerfCollector) StartPhase(phase Phase) {
	if phase >= NumPhases {
		return
	}
	now := time.Now()
	p.closePhase(now)
	p.phaseStart = now
	p.active = phase
	p.inPhase = true
}

// EndTick closes the running phase and stores the step in the ring.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	p.closePhase(now)
	p.inPhase = false

	p.ticks[p.next] = now.Sub(p.tickStart)
	p.phases[p.next] = p.cur
	p.next = (p.next + 1) % len(p.ticks)
	p.filled = min(p.filled+1, len(p.ticks))
}

// RecordFrame marks one iteration of the run loop.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrame.IsZero() {
		p.frame = now.Sub(p.lastFrame)
	}
	p.lastFrame = now
}

// PerfStats aggregates the collector window.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration
	TicksPerSecond  float64

	PhaseAvg PhaseTimes
	PhasePct [NumPhases]float64 // share of the average step

	FrameDuration time.Duration
	FPS           float64
}

// Stats summarizes the steps currently in the window.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{FrameDuration: p.frame}
	if p.frame > 0 {
		s.FPS = float64(time.Second) / float64(p.frame)
	}
	if p.filled == 0 {
		return s
	}

	var total time.Duration
	var phaseTotal PhaseTimes
	s.MinTickDuration = p.ticks[0]
	for i := 0; i < p.filled; i++ {
		d := p.ticks[i]
		total += d
		s.MinTickDuration = min(s.MinTickDuration, d)
		s.MaxTickDuration = max(s.MaxTickDuration, d)
		for ph, pd := range p.phases[i] {
			phaseTotal[ph] += pd
		}
	}

	n := time.Duration(p.filled)
	s.AvgTickDuration = total / n
	for ph := range phaseTotal {
		s.PhaseAvg[ph] = phaseTotal[ph] / n
		if s.AvgTickDuration > 0 {
			s.PhasePct[ph] = 100 * float64(s.PhaseAvg[ph]) / float64(s.AvgTickDuration)
		}
	}
	if s.AvgTickDuration > 0 {
		s.TicksPerSecond = float64(time.Second) / float64(s.AvgTickDuration)
	}
	return s
}

// LogStats emits a "perf" record at info level.
func (s PerfStats) LogStats() {
	slog.Info("perf", "perf", s)
}

// LogValue implements slog.LogValuer. Phases under 0.1% are omitted.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_tick_us", s.MinTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Int("ticks_per_sec", int(s.TicksPerSecond)),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Int("fps", int(s.FPS)))
	}
	for ph, pct := range s.PhasePct {
		if pct > 0.1 {
			attrs = append(attrs, slog.Float64(Phase(ph).String()+"_pct", float64(int(pct*10))/10))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one row of perf.csv.
type PerfStatsCSV struct {
	WindowEnd    int64   `csv:"window_end"`
	AvgTickUS    int64   `csv:"avg_tick_us"`
	MinTickUS    int64   `csv:"min_tick_us"`
	MaxTickUS    int64   `csv:"max_tick_us"`
	TicksPerSec  float64 `csv:"ticks_per_sec"`
	FPS          float64 `csv:"fps"`
	GridPassPct  float64 `csv:"grid_pass_pct"`
	NodePlanPct  float64 `csv:"node_plan_pct"`
	NodeApplyPct float64 `csv:"node_apply_pct"`
	PositionsPct float64 `csv:"positions_pct"`
	SwapPct      float64 `csv:"swap_pct"`
	TelemetryPct float64 `csv:"telemetry_pct"`
}

// ToCSV flattens s for the window ending at windowEnd.
func (s PerfStats) ToCSV(windowEnd int64) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:    windowEnd,
		AvgTickUS:    s.AvgTickDuration.Microseconds(),
		MinTickUS:    s.MinTickDuration.Microseconds(),
		MaxTickUS:    s.MaxTickDuration.Microseconds(),
		TicksPerSec:  s.TicksPerSecond,
		FPS:          s.FPS,
		GridPassPct:  s.PhasePct[PhaseGridPass],
		NodePlanPct:  s.PhasePct[PhaseNodePlan],
		NodeApplyPct: s.PhasePct[PhaseNodeApply],
		PositionsPct: s.PhasePct[PhasePositions],
		SwapPct:      s.PhasePct[PhaseSwap],
		TelemetryPct: s.PhasePct[PhaseTelemetry],
	}
}
