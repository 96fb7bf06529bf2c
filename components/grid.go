package components

// Material is the substance filling a grid cell.
type Material uint32

const (
	MaterialInvalid Material = iota
	MaterialAir
	MaterialWater
	MaterialStone
	MaterialSoil
)

// String returns the display name for a Material.
func (m Material) String() string {
	names := MaterialNames()
	if int(m) < len(names) {
		return names[m]
	}
	return "unknown"
}

// MaterialNames returns the display names for all materials.
// The order matches the Material constants.
func MaterialNames() []string {
	return []string{"invalid", "air", "water", "stone", "soil"}
}

// GridCell is one voxel of the environment.
type GridCell struct {
	Material     Material `json:"material"`
	Temperature  float32  `json:"temperature"`
	Moisture     float32  `json:"moisture"`
	Sunlight     float32  `json:"sunlight"`
	Gravity      float32  `json:"gravity"`
	PlantDensity float32  `json:"plant_density"`
}
