package game

import (
	"fmt"

	"github.com/pthm-cable/sprout/components"
	"github.com/pthm-cable/sprout/systems"
	"github.com/pthm-cable/sprout/telemetry"
)

// Env holds everything a cycle reads besides the current generation.
// It is fixed for the duration of one Advance.
type Env struct {
	Rules        *systems.GrowthRules
	Tunables     systems.Tunables
	Temperature  float32
	DensityScale float32 // volume to density units
	Seed         uint64
	Step         uint64

	pool   *workerPool
	perf   *telemetry.PerfCollector
	buffer *cycleBuffers
}

// densityIntent is one node's contribution to the grid pass.
type densityIntent struct {
	cell   int
	amount float32
	ok     bool
}

// cycleBuffers are per-slot intent slices reused across cycles.
type cycleBuffers struct {
	live    []uint32
	density []densityIntent
	plans   []systems.Intent
}

func (b *cycleBuffers) size(n int) {
	if cap(b.density) < n {
		b.density = make([]densityIntent, n)
		b.plans = make([]systems.Intent, n)
	}
	b.density = b.density[:n]
	b.plans = b.plans[:n]
}

func (e *Env) startPhase(phase telemetry.Phase) {
	if e.perf != nil {
		e.perf.StartPhase(phase)
	}
}

// Advance runs one full cycle from cur into next. cur is only read; next is
// overwritten. On error next is left partially written and must not be used.
func Advance(cur, next *State, env Env) error {
	_, err := advance(cur, next, &env)
	return err
}

func advance(cur, next *State, env *Env) (systems.GrowthEvents, error) {
	if env.pool == nil {
		env.pool = newWorkerPool(1, 0)
	}
	if env.buffer == nil {
		env.buffer = &cycleBuffers{}
	}
	b := env.buffer
	b.live = cur.Nodes.LiveIndices(b.live)
	b.size(len(b.live))

	env.startPhase(telemetry.PhaseGridPass)
	if err := gridPass(cur, next, env); err != nil {
		return systems.GrowthEvents{}, err
	}

	events, err := nodePass(cur, next, env)
	if err != nil {
		return events, err
	}

	env.startPhase(telemetry.PhasePositions)
	next.Nodes.RefreshPositions()
	if err := next.Plants.CopyFrom(cur.Plants); err != nil {
		return events, fmt.Errorf("copying plants: %w", err)
	}
	plants := next.Plants.Records()
	for i := range plants {
		if plants[i].Status == components.StatusAlive {
			plants[i].Age++
		}
	}
	return events, nil
}

// gridPass writes ambient values into next.Grid and accumulates plant
// density from the live nodes of cur.
func gridPass(cur, next *State, env *Env) error {
	if err := next.Grid.CopyFrom(cur.Grid); err != nil {
		return err
	}
	cells := next.Grid.Cells()
	for i := range cells {
		cells[i].Temperature = env.Temperature
		cells[i].Sunlight = env.Tunables.Sunlight
		cells[i].Gravity = env.Tunables.Gravity
		cells[i].PlantDensity = 0
	}

	b := env.buffer
	env.pool.run(len(b.live), func(_ *workerScratch, start, end int) {
		for i := start; i < end; i++ {
			n := cur.Nodes.Ref(b.live[i])
			cell, ok := cur.Grid.CellAt(components.Vec3(n.Position))
			b.density[i] = densityIntent{
				cell:   cell,
				amount: float32(int(n.Volume * env.DensityScale)),
				ok:     ok,
			}
		}
	})

	for _, d := range b.density {
		if d.ok {
			cells[d.cell].PlantDensity += d.amount
		}
	}
	return nil
}

// nodePass plans every live node of cur in parallel, then applies the plans
// to next in index order.
func nodePass(cur, next *State, env *Env) (systems.GrowthEvents, error) {
	var events systems.GrowthEvents
	if err := next.Nodes.CopyFrom(cur.Nodes); err != nil {
		return events, err
	}

	b := env.buffer
	factor := env.Tunables.GrowthFactor()

	env.startPhase(telemetry.PhaseNodePlan)
	env.pool.run(len(b.live), func(scratch *workerScratch, start, end int) {
		for i := start; i < end; i++ {
			idx := b.live[i]
			rng := scratch.reseed(env.Seed, env.Step, idx)
			b.plans[i] = env.Rules.Plan(cur.Nodes.Ref(idx), rng, factor)
		}
	})

	env.startPhase(telemetry.PhaseNodeApply)
	for i, idx := range b.live {
		in := b.plans[i]
		events.Count(in)
		if err := env.Rules.Apply(next.Nodes, idx, in); err != nil {
			return events, fmt.Errorf("step %d: %w", env.Step, err)
		}
	}
	return events, nil
}
