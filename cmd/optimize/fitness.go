package main

import (
	"context"
	"errors"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/sprout/config"
	"github.com/pthm-cable/sprout/game"
	"github.com/pthm-cable/sprout/telemetry"
)

// Target describes the morphology the optimizer steers toward.
type Target struct {
	NodeUtil  float64 // live nodes / capacity at the end of the run
	LeafRatio float64 // leaves / live nodes
}

// Score weights.
const (
	weightUtil      = 1.0
	weightLeaf      = 1.0
	weightSmooth    = 0.25
	failurePenalty  = 4.0 // run aborted by a step error (usually arena exhaustion)
	minScoreWindows = 2
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int64
	seeds      []int64
	baseConfig *config.Config
	target     Target

	mu          sync.Mutex
	bestFitness float64
	bestStats   []telemetry.WindowStats
	lastUtil    float64 // mean final utilization from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int64, seeds []int64, baseCfg *config.Config, target Target) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		target:      target,
		bestFitness: math.Inf(1),
	}
}

// BestStats returns the window stats of the best seed of the best evaluation.
func (fe *FitnessEvaluator) BestStats() []telemetry.WindowStats {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestStats
}

// LastUtil returns the mean final node utilization from the most recent evaluation.
func (fe *FitnessEvaluator) LastUtil() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastUtil
}

// runResult holds the results from a single simulation run.
type runResult struct {
	windows []telemetry.WindowStats // collected via StatsCallback each window
	failed  bool
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	type seedResult struct {
		fitness float64
		util    float64
		windows []telemetry.WindowStats
	}

	// Run all seeds in parallel
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			r := fe.runSimulation(x, s)
			res := seedResult{fitness: fe.score(r), windows: r.windows}
			if n := len(r.windows); n > 0 {
				res.util = r.windows[n-1].NodeUtil
			}
			results[idx] = res
		}(i, seed)
	}
	wg.Wait()

	var total, util float64
	best := math.Inf(1)
	var bestWindows []telemetry.WindowStats
	for _, r := range results {
		total += r.fitness
		util += r.util
		if r.fitness < best {
			best = r.fitness
			bestWindows = r.windows
		}
	}
	n := float64(len(fe.seeds))
	avg := total / n

	fe.mu.Lock()
	if avg < fe.bestFitness {
		fe.bestFitness = avg
		fe.bestStats = bestWindows
	}
	fe.lastUtil = util / n
	fe.mu.Unlock()

	return avg
}

// runSimulation executes a single headless run up to maxTicks.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) *runResult {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	result := &runResult{}
	sim, err := game.NewSimulation(game.Options{
		Config: cfg,
		Seed:   seed,
		StatsCallback: func(stats telemetry.WindowStats) {
			result.windows = append(result.windows, stats)
		},
	})
	if err != nil {
		result.failed = true
		return result
	}
	defer sim.Unload()

	if err := sim.Run(context.Background(), fe.maxTicks); err != nil && !errors.Is(err, context.Canceled) {
		result.failed = true
	}
	return result
}

// copyConfig returns an independent copy of the base config. Seeds run
// concurrently, so each simulation gets a single worker.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	cfg.Parallel.Workers = 1
	cfg.Recompute()
	return &cfg
}

// score is the squared distance of the final morphology from the target,
// plus a penalty for jittery growth and for aborted runs.
func (fe *FitnessEvaluator) score(r *runResult) float64 {
	if len(r.windows) < minScoreWindows {
		return failurePenalty + 1
	}
	last := r.windows[len(r.windows)-1]

	var leafRatio float64
	if last.NodesLive > 0 {
		leafRatio = float64(last.Leaves) / float64(last.NodesLive)
	}
	du := last.NodeUtil - fe.target.NodeUtil
	dl := leafRatio - fe.target.LeafRatio

	s := weightUtil*du*du + weightLeaf*dl*dl + weightSmooth*growthJitter(r.windows)
	if r.failed {
		s += failurePenalty
	}
	return s
}

// growthJitter is the coefficient of variation of per-window activations.
// Steady branching scores 0.
func growthJitter(windows []telemetry.WindowStats) float64 {
	acts := make([]float64, len(windows))
	for i, w := range windows {
		acts[i] = float64(w.Activations)
	}
	mean, std := stat.PopMeanStdDev(acts, nil)
	if mean == 0 {
		return 0
	}
	return std / mean
}
