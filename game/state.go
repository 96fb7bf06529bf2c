package game

import (
	"fmt"

	"github.com/pthm-cable/sprout/arena"
	"github.com/pthm-cable/sprout/components"
	"github.com/pthm-cable/sprout/systems"
	"github.com/pthm-cable/sprout/telemetry"
)

// State is one generation of the simulation.
type State struct {
	Nodes  *systems.NodeTree
	Grid   *systems.EnvironmentGrid
	Plants *arena.Arena[components.Plant]
}

// NewState allocates an empty generation: garbage nodes and plants and an
// all-Invalid grid.
func NewState(gx, gy, gz int, nodeCapacity, plantCapacity uint32) (*State, error) {
	nodes, err := systems.NewNodeTree(nodeCapacity)
	if err != nil {
		return nil, err
	}
	grid, err := systems.NewEnvironmentGrid(gx, gy, gz)
	if err != nil {
		return nil, err
	}
	plants, err := arena.New[components.Plant](plantCapacity)
	if err != nil {
		return nil, fmt.Errorf("creating plant arena: %w", err)
	}
	recs := plants.Records()
	for i := range recs {
		recs[i] = components.NewPlant()
	}
	return &State{Nodes: nodes, Grid: grid, Plants: plants}, nil
}

// Clone returns an independent copy of s.
func (s *State) Clone() *State {
	return &State{
		Nodes:  s.Nodes.Clone(),
		Grid:   s.Grid.Clone(),
		Plants: s.Plants.Clone(),
	}
}

// CopyFrom makes s an exact copy of src. Shapes must match.
func (s *State) CopyFrom(src *State) error {
	if err := s.Nodes.CopyFrom(src.Nodes); err != nil {
		return fmt.Errorf("copying nodes: %w", err)
	}
	if err := s.Grid.CopyFrom(src.Grid); err != nil {
		return fmt.Errorf("copying grid: %w", err)
	}
	if err := s.Plants.CopyFrom(src.Plants); err != nil {
		return fmt.Errorf("copying plants: %w", err)
	}
	return nil
}

// Snapshot exports s record for record.
func (s *State) Snapshot() (nodes arena.State[components.Node], plants arena.State[components.Plant], grid telemetry.GridState) {
	x, y, z := s.Grid.Dims()
	cells := make([]components.GridCell, s.Grid.Len())
	copy(cells, s.Grid.Cells())
	return s.Nodes.Arena().Export(), s.Plants.Export(), telemetry.GridState{X: x, Y: y, Z: z, Cells: cells}
}

// StateFromSnapshot rebuilds a generation from persisted records.
func StateFromSnapshot(snap *telemetry.Snapshot) (*State, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	nodes, err := arena.Restore(snap.Nodes)
	if err != nil {
		return nil, fmt.Errorf("restoring nodes: %w", err)
	}
	plants, err := arena.Restore(snap.Plants)
	if err != nil {
		return nil, fmt.Errorf("restoring plants: %w", err)
	}
	cells := make([]components.GridCell, len(snap.Grid.Cells))
	copy(cells, snap.Grid.Cells)
	grid, err := systems.GridFromCells(snap.Grid.X, snap.Grid.Y, snap.Grid.Z, cells)
	if err != nil {
		return nil, fmt.Errorf("restoring grid: %w", err)
	}
	tree := systems.NodeTreeFromArena(nodes)
	if err := tree.Validate(); err != nil {
		return nil, fmt.Errorf("restoring nodes: %w", err)
	}
	return &State{Nodes: tree, Grid: grid, Plants: plants}, nil
}

// tunablesState converts growth tunables to their persisted form.
func tunablesState(t systems.Tunables) telemetry.TunablesState {
	return telemetry.TunablesState{
		Sunlight:   t.Sunlight,
		Gravity:    t.Gravity,
		Moisture:   t.Moisture,
		Nitrogen:   t.Nitrogen,
		Potassium:  t.Potassium,
		Phosphorus: t.Phosphorus,
	}
}

// tunablesFromState is the inverse of tunablesState.
func tunablesFromState(t telemetry.TunablesState) systems.Tunables {
	return systems.Tunables{
		Sunlight:   t.Sunlight,
		Gravity:    t.Gravity,
		Moisture:   t.Moisture,
		Nitrogen:   t.Nitrogen,
		Potassium:  t.Potassium,
		Phosphorus: t.Phosphorus,
	}
}
