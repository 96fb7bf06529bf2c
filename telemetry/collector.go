package telemetry

// Collector accumulates events within step windows and produces WindowStats.
type Collector struct {
	windowTicks     int64
	windowStartTick int64

	// Event counters for current window
	activations   int
	leavesSpawned int
	unknownArch   int
	stepErrors    int
}

// NewCollector creates a new stats collector flushing every windowTicks steps.
func NewCollector(windowTicks int) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowTicks: int64(windowTicks)}
}

// RecordGrowth adds the outcome counts of one step.
func (c *Collector) RecordGrowth(activations, leaves, unknown int) {
	c.activations += activations
	c.leavesSpawned += leaves
	c.unknownArch += unknown
}

// RecordStepError records an aborted step.
func (c *Collector) RecordStepError() {
	c.stepErrors++
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int64) bool {
	return currentTick-c.windowStartTick >= c.windowTicks
}

// Census is a point-in-time sample of the simulation taken at flush.
type Census struct {
	NodesLive     int
	NodeCapacity  int
	PlantsAlive   int
	Stems         int
	Leaves        int
	Buds          int
	Roots         int
	Lengths       []float64
	Radii         []float64
	TotalDensity  float64
	OccupiedCells int
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int64, census Census) WindowStats {
	lenMean, lenStd, lenP10, lenP50, lenP90 := ComputeDistribution(census.Lengths)
	radMean, _, _, radP50, _ := ComputeDistribution(census.Radii)

	var util float64
	if census.NodeCapacity > 0 {
		util = float64(census.NodesLive) / float64(census.NodeCapacity)
	}

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,

		NodesLive:    census.NodesLive,
		NodeCapacity: census.NodeCapacity,
		NodeUtil:     util,
		PlantsAlive:  census.PlantsAlive,

		Stems:  census.Stems,
		Leaves: census.Leaves,
		Buds:   census.Buds,
		Roots:  census.Roots,

		Activations:   c.activations,
		LeavesSpawned: c.leavesSpawned,
		UnknownArch:   c.unknownArch,
		StepErrors:    c.stepErrors,

		LengthMean: lenMean,
		LengthStd:  lenStd,
		LengthP10:  lenP10,
		LengthP50:  lenP50,
		LengthP90:  lenP90,

		RadiusMean: radMean,
		RadiusP50:  radP50,

		TotalDensity:  census.TotalDensity,
		OccupiedCells: census.OccupiedCells,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.activations = 0
	c.leavesSpawned = 0
	c.unknownArch = 0
	c.stepErrors = 0

	return stats
}

// WindowTicks returns the number of ticks per window.
func (c *Collector) WindowTicks() int64 {
	return c.windowTicks
}
