package components

// Archetype selects the growth rule a node follows.
type Archetype uint32

const (
	ArchetypeInvalid Archetype = iota
	ArchetypeRoot
	ArchetypeStem
	ArchetypeLeaf
	ArchetypeGrowingBud

	numArchetypes
)

// String returns the display name for an Archetype.
func (a Archetype) String() string {
	names := ArchetypeNames()
	if int(a) < len(names) {
		return names[a]
	}
	return "unknown"
}

// Known reports whether a is one of the declared archetypes.
func (a Archetype) Known() bool {
	return a < numArchetypes
}

// ArchetypeNames returns the display names for all archetypes.
// The order matches the Archetype constants.
func ArchetypeNames() []string {
	return []string{"invalid", "root", "stem", "leaf", "growing_bud"}
}
