package systems

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/sprout/components"
	"github.com/pthm-cable/sprout/config"
)

// Draws supplies uniform random numbers in [0,1).
// *rand.Rand from math/rand/v2 satisfies it.
type Draws interface {
	Float32() float32
}

// Tunables are control-surface scalars read by growth rules. They are fixed
// for the duration of a step.
type Tunables struct {
	Sunlight   float32
	Gravity    float32
	Moisture   float32
	Nitrogen   float32
	Potassium  float32
	Phosphorus float32
}

// DefaultTunables leaves every growth rate at its configured value.
func DefaultTunables() Tunables {
	return Tunables{Sunlight: 1, Gravity: 1, Moisture: 1}
}

// TunablesFromConfig converts the config section.
func TunablesFromConfig(c config.TunablesConfig) Tunables {
	return Tunables{
		Sunlight:   float32(c.Sunlight),
		Gravity:    float32(c.Gravity),
		Moisture:   float32(c.Moisture),
		Nitrogen:   float32(c.Nitrogen),
		Potassium:  float32(c.Potassium),
		Phosphorus: float32(c.Phosphorus),
	}
}

// Clamped returns t with every scalar limited to [0, config.MaxTunable].
// NaN becomes 0.
func (t Tunables) Clamped() Tunables {
	c := func(v float32) float32 {
		if !(v > 0) {
			return 0
		}
		return min(v, float32(config.MaxTunable))
	}
	return Tunables{
		Sunlight:   c(t.Sunlight),
		Gravity:    c(t.Gravity),
		Moisture:   c(t.Moisture),
		Nitrogen:   c(t.Nitrogen),
		Potassium:  c(t.Potassium),
		Phosphorus: c(t.Phosphorus),
	}
}

// GrowthFactor scales every logistic rate.
func (t Tunables) GrowthFactor() float32 {
	return t.Sunlight * t.Moisture
}

// Intent is the planned outcome of one node's step, computed from a read-only
// view of the node.
type Intent struct {
	Length        float32
	Radius        float32
	Activate      bool // growing bud branches this step
	SpawnLeaf     bool
	LeafTransform components.Mat4
	Unknown       bool
}

// GrowthRules is the archetype state machine.
type GrowthRules struct {
	table *ArchetypeTable

	activation     float32
	maxAge         uint32
	leafThreshold  float32
	stemSeedLength float32
	leafSeedLength float32
	leafSeedRadius float32
	leafTilt       float32
	cloneAsStem    bool
}

// NewGrowthRules builds the rules and archetype table from cfg.
func NewGrowthRules(cfg *config.GrowthConfig) *GrowthRules {
	b := cfg.Bud
	return &GrowthRules{
		table:          NewArchetypeTable(cfg),
		activation:     float32(b.ActivationThreshold),
		maxAge:         uint32(b.MaxAge),
		leafThreshold:  float32(b.LeafThreshold),
		stemSeedLength: float32(b.StemSeedLength),
		leafSeedLength: float32(b.LeafSeedLength),
		leafSeedRadius: float32(b.LeafSeedRadius),
		leafTilt:       float32(b.LeafTilt),
		cloneAsStem:    b.CloneAsStem,
	}
}

// Table returns the archetype table the rules dispatch on.
func (g *GrowthRules) Table() *ArchetypeTable { return g.table }

// Plan computes the intent for n without mutating anything.
// Random draws happen only for growing buds, in a fixed order.
func (g *GrowthRules) Plan(n *components.Node, rng Draws, factor float32) Intent {
	in := Intent{Length: n.Length, Radius: n.Radius}
	info, ok := g.table.Lookup(n.Archetype)
	if !ok {
		in.Unknown = true
		return in
	}

	switch n.Archetype {
	case components.ArchetypeInvalid:
	case components.ArchetypeGrowingBud:
		if rng.Float32() > g.activation && n.Age < g.maxAge {
			in.Activate = true
			if rng.Float32() > g.leafThreshold {
				in.SpawnLeaf = true
				z := (rng.Float32() - 0.5) * 2 * g.leafTilt
				x := (rng.Float32() - 0.5) * 2 * g.leafTilt
				in.LeafTransform = components.RotZ(float64(z)).Mul(components.RotX(float64(x)))
			}
		}
	default:
		in.Length += info.Length.Delta(n.Length, factor)
		in.Radius += info.Radius.Delta(n.Radius, factor)
	}
	return in
}

// Apply writes a planned intent into t. Age always advances by one.
// A branching bud allocates its new nodes here; exhaustion is returned.
func (g *GrowthRules) Apply(t *NodeTree, index uint32, in Intent) error {
	n := t.Ref(index)
	n.Age++
	if in.Unknown {
		slog.Debug("unknown archetype", "node", index, "archetype", uint32(n.Archetype))
		return nil
	}
	n.Length = in.Length
	n.Radius = in.Radius
	if !in.Activate {
		return nil
	}

	tip, err := t.Alloc()
	if err != nil {
		return fmt.Errorf("branching bud %d: %w", index, err)
	}
	clone := *n
	clone.Transform = components.Identity()
	if g.cloneAsStem {
		clone.Archetype = components.ArchetypeStem
		clone.Length = g.stemSeedLength
	}
	t.Set(tip, clone)
	t.SetLeftChild(tip, clone.Left)
	t.SetRightChild(tip, clone.Right)

	n.Archetype = components.ArchetypeStem
	n.Length = g.stemSeedLength
	t.SetLeftChild(index, tip)
	t.SetRightChild(index, components.InvalidIndex)

	if !in.SpawnLeaf {
		return nil
	}
	leafIndex, err := t.Alloc()
	if err != nil {
		return fmt.Errorf("spawning leaf on %d: %w", index, err)
	}
	leaf := components.NewNode()
	leaf.Archetype = components.ArchetypeLeaf
	leaf.Status = components.StatusAlive
	leaf.Visible = true
	leaf.PlantID = n.PlantID
	leaf.Length = g.leafSeedLength
	leaf.Radius = g.leafSeedRadius
	leaf.Transform = in.LeafTransform
	t.Set(leafIndex, leaf)
	t.SetRightChild(index, leafIndex)
	return nil
}

// GrowthEvents counts notable outcomes of a step.
type GrowthEvents struct {
	Visited     int
	Activations int
	Leaves      int
	Unknown     int
}

// Count folds one intent into the counters.
func (e *GrowthEvents) Count(in Intent) {
	e.Visited++
	if in.Activate {
		e.Activations++
	}
	if in.SpawnLeaf {
		e.Leaves++
	}
	if in.Unknown {
		e.Unknown++
	}
}

// UpdateAll runs one sequential step over every node live at entry, in index
// order. Nodes born during the step are not visited until the next one.
func (g *GrowthRules) UpdateAll(t *NodeTree, rng Draws, tun Tunables) (GrowthEvents, error) {
	var events GrowthEvents
	factor := tun.GrowthFactor()
	for _, i := range t.LiveIndices(nil) {
		in := g.Plan(t.Ref(i), rng, factor)
		events.Count(in)
		if err := g.Apply(t, i, in); err != nil {
			return events, err
		}
	}
	return events, nil
}

// UpdateAll applies the growth state machine once to every live node.
func (t *NodeTree) UpdateAll(rules *GrowthRules, rng Draws, tun Tunables) error {
	_, err := rules.UpdateAll(t, rng, tun)
	return err
}

// LiveIndices appends the indices of all live nodes to dst in index order.
func (t *NodeTree) LiveIndices(dst []uint32) []uint32 {
	dst = dst[:0]
	for i, n := range t.nodes.Records() {
		if n.Live() {
			dst = append(dst, uint32(i))
		}
	}
	return dst
}
