package systems

import (
	"github.com/pthm-cable/sprout/components"
	"github.com/pthm-cable/sprout/config"
)

// Logistic bounds a discrete logistic growth update.
type Logistic struct {
	Max  float32
	Rate float32
}

// Delta returns the logistic increment v*(max-v)*rate, scaled by factor.
// The effective rate is capped at 1/max so that v never overshoots max.
func (l Logistic) Delta(v, factor float32) float32 {
	k := l.Rate * factor
	if l.Max > 0 && k*l.Max > 1 {
		k = 1 / l.Max
	}
	return v * (l.Max - v) * k
}

// ArchetypeInfo is the static row for one archetype.
type ArchetypeInfo struct {
	Name         string
	StartColor   [4]float32 // vertex color at the segment start
	EndColor     [4]float32 // vertex color at the segment end
	Phototropism float32
	Length       Logistic
	Radius       Logistic
	IsLeaf       bool // projects as a flat quad instead of a prism
}

// ArchetypeTable maps archetypes to their static rows. Read-only during simulation.
type ArchetypeTable struct {
	rows []ArchetypeInfo
}

func logisticFrom(c config.LogisticConfig) Logistic {
	return Logistic{Max: float32(c.Max), Rate: float32(c.Rate)}
}

// NewArchetypeTable builds the table with growth bounds taken from cfg.
func NewArchetypeTable(cfg *config.GrowthConfig) *ArchetypeTable {
	trunk := [2][4]float32{components.RGB(0, 0, 0), components.RGB(0, 1, 0)}
	leaf := [2][4]float32{components.RGB(0, 1, 0), components.RGB(1, 1, 0)}

	rows := make([]ArchetypeInfo, len(components.ArchetypeNames()))
	rows[components.ArchetypeInvalid] = ArchetypeInfo{Name: "invalid"}
	rows[components.ArchetypeRoot] = ArchetypeInfo{
		Name:         "root",
		StartColor:   trunk[0],
		EndColor:     trunk[1],
		Phototropism: -0.5,
		Length:       logisticFrom(cfg.Root.Length),
		Radius:       logisticFrom(cfg.Root.Radius),
	}
	rows[components.ArchetypeStem] = ArchetypeInfo{
		Name:         "stem",
		StartColor:   trunk[0],
		EndColor:     trunk[1],
		Phototropism: 0.3,
		Length:       logisticFrom(cfg.Stem.Length),
		Radius:       logisticFrom(cfg.Stem.Radius),
	}
	rows[components.ArchetypeLeaf] = ArchetypeInfo{
		Name:         "leaf",
		StartColor:   leaf[0],
		EndColor:     leaf[1],
		Phototropism: 0.8,
		Length:       logisticFrom(cfg.Leaf.Length),
		Radius:       logisticFrom(cfg.Leaf.Radius),
		IsLeaf:       true,
	}
	rows[components.ArchetypeGrowingBud] = ArchetypeInfo{
		Name:         "growing_bud",
		StartColor:   trunk[0],
		EndColor:     trunk[1],
		Phototropism: 1.0,
	}
	return &ArchetypeTable{rows: rows}
}

// DefaultArchetypeTable returns the table for the embedded default config.
func DefaultArchetypeTable() *ArchetypeTable {
	cfg, err := config.Load("")
	if err != nil {
		panic("systems: embedded defaults do not parse: " + err.Error())
	}
	return NewArchetypeTable(&cfg.Growth)
}

// Lookup returns the row for a. ok is false for unknown archetypes.
func (t *ArchetypeTable) Lookup(a components.Archetype) (ArchetypeInfo, bool) {
	if !a.Known() || int(a) >= len(t.rows) {
		return ArchetypeInfo{}, false
	}
	return t.rows[a], true
}
