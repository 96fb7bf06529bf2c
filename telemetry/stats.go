package telemetry

import (
	"log/slog"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a window of steps.
type WindowStats struct {
	WindowStartTick int64 `csv:"-"`
	WindowEndTick   int64 `csv:"window_end"`

	// Occupancy at window end
	NodesLive    int     `csv:"nodes_live"`
	NodeCapacity int     `csv:"node_capacity"`
	NodeUtil     float64 `csv:"node_util"`
	PlantsAlive  int     `csv:"plants_alive"`

	// Archetype census at window end
	Stems  int `csv:"stems"`
	Leaves int `csv:"leaves"`
	Buds   int `csv:"buds"`
	Roots  int `csv:"roots"`

	// Events during window
	Activations   int `csv:"activations"`
	LeavesSpawned int `csv:"leaves_spawned"`
	UnknownArch   int `csv:"unknown_archetypes"`
	StepErrors    int `csv:"step_errors"`

	// Segment length distribution (sampled at window end)
	LengthMean float64 `csv:"length_mean"`
	LengthStd  float64 `csv:"length_std"`
	LengthP10  float64 `csv:"length_p10"`
	LengthP50  float64 `csv:"length_p50"`
	LengthP90  float64 `csv:"length_p90"`

	RadiusMean float64 `csv:"radius_mean"`
	RadiusP50  float64 `csv:"radius_p50"`

	// Environment coupling
	TotalDensity  float64 `csv:"total_density"`
	OccupiedCells int     `csv:"occupied_cells"`
}

// Percentile returns the p-th quantile of sorted, p in [0,1], interpolating
// linearly between neighbours. An empty slice gives 0.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return 0
	case n == 1 || p <= 0:
		return sorted[0]
	case p >= 1:
		return sorted[n-1]
	}
	whole, frac := math.Modf(p * float64(n-1))
	i := int(whole)
	return sorted[i] + (sorted[i+1]-sorted[i])*frac
}

// ComputeDistribution returns the population mean and std of values and its
// 10th, 50th and 90th percentiles. values is not modified.
func ComputeDistribution(values []float64) (mean, std, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0
	}
	mean, std = stat.PopMeanStdDev(values, nil)

	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return mean, std, Percentile(sorted, 0.1), Percentile(sorted, 0.5), Percentile(sorted, 0.9)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartTick),
		slog.Int64("window_end", s.WindowEndTick),
		slog.Int("nodes_live", s.NodesLive),
		slog.Int("node_capacity", s.NodeCapacity),
		slog.Float64("node_util", s.NodeUtil),
		slog.Int("plants_alive", s.PlantsAlive),
		slog.Int("stems", s.Stems),
		slog.Int("leaves", s.Leaves),
		slog.Int("buds", s.Buds),
		slog.Int("roots", s.Roots),
		slog.Int("activations", s.Activations),
		slog.Int("leaves_spawned", s.LeavesSpawned),
		slog.Int("unknown_archetypes", s.UnknownArch),
		slog.Int("step_errors", s.StepErrors),
		slog.Float64("length_mean", s.LengthMean),
		slog.Float64("length_std", s.LengthStd),
		slog.Float64("length_p50", s.LengthP50),
		slog.Float64("radius_mean", s.RadiusMean),
		slog.Float64("total_density", s.TotalDensity),
		slog.Int("occupied_cells", s.OccupiedCells),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"nodes_live", s.NodesLive,
		"node_util", s.NodeUtil,
		"plants_alive", s.PlantsAlive,
		"stems", s.Stems,
		"leaves", s.Leaves,
		"buds", s.Buds,
		"activations", s.Activations,
		"leaves_spawned", s.LeavesSpawned,
		"unknown_archetypes", s.UnknownArch,
		"step_errors", s.StepErrors,
		"length_mean", s.LengthMean,
		"length_p10", s.LengthP10,
		"length_p50", s.LengthP50,
		"length_p90", s.LengthP90,
		"radius_mean", s.RadiusMean,
		"total_density", s.TotalDensity,
	)
}
