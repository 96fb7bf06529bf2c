package systems

import (
	"github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/sprout/components"
	"github.com/pthm-cable/sprout/config"
)

// Terrain generates a soil heightmap from fractal simplex noise.
type Terrain struct {
	noise      opensimplex.Noise
	scale      float64
	octaves    int
	lacunarity float64
	gain       float64
	fillRatio  float64
}

// NewTerrain creates a terrain generator for the given seed.
func NewTerrain(cfg config.TerrainConfig, seed int64) *Terrain {
	octaves := cfg.Octaves
	if octaves < 1 {
		octaves = 1
	}
	return &Terrain{
		noise:      opensimplex.NewNormalized(seed),
		scale:      cfg.Scale,
		octaves:    octaves,
		lacunarity: cfg.Lacunarity,
		gain:       cfg.Gain,
		fillRatio:  cfg.FillRatio,
	}
}

// fbm sums octaves of normalized noise, returning a value in [0,1].
func (t *Terrain) fbm(x, z float64) float64 {
	var sum, norm float64
	amp, freq := 1.0, t.scale
	for o := 0; o < t.octaves; o++ {
		sum += amp * t.noise.Eval2(x*freq, z*freq)
		norm += amp
		amp *= t.gain
		freq *= t.lacunarity
	}
	if norm == 0 {
		return 0
	}
	return sum / norm
}

// Height returns the top soil layer for column (x,z) in a grid ysize tall.
func (t *Terrain) Height(x, z, ysize int) int {
	h := int(t.fbm(float64(x), float64(z)) * t.fillRatio * float64(ysize))
	if h >= ysize {
		h = ysize - 1
	}
	if h < 0 {
		h = 0
	}
	return h
}

// Fill sets every cell to Soil at or below its column height and Air above.
// Scalar fields are reset.
func (t *Terrain) Fill(g *EnvironmentGrid) {
	xs, ys, zs := g.Dims()
	for x := 0; x < xs; x++ {
		for z := 0; z < zs; z++ {
			h := t.Height(x, z, ys)
			for y := 0; y < ys; y++ {
				m := components.MaterialAir
				if y <= h {
					m = components.MaterialSoil
				}
				g.Set(x, y, z, components.GridCell{Material: m})
			}
		}
	}
}

// SurfaceY returns the first air layer above the soil in column (x,z), or
// ysize if the column is solid.
func SurfaceY(g *EnvironmentGrid, x, z int) int {
	_, ys, _ := g.Dims()
	for y := ys - 1; y >= 0; y-- {
		if g.Get(x, y, z).Material == components.MaterialSoil {
			return y + 1
		}
	}
	return 0
}
