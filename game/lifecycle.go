package game

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/sprout/components"
	"github.com/pthm-cable/sprout/config"
	"github.com/pthm-cable/sprout/systems"
)

// seedWorld fills the grid with terrain and plants the initial population.
func seedWorld(s *State, cfg *config.Config, seed int64) error {
	if cfg.Terrain.Enabled {
		systems.NewTerrain(cfg.Terrain, seed).Fill(s.Grid)
	}

	for i := 0; i < cfg.Seed.Plants; i++ {
		loc := seedLocation(s.Grid, i, cfg.Seed.OnSurface)
		if _, err := spawnPlant(s, loc, cfg.Seed); err != nil {
			return fmt.Errorf("seeding plant %d: %w", i, err)
		}
	}

	slog.Info("world seeded",
		"plants", cfg.Seed.Plants,
		"soil_cells", s.Grid.CountMaterial(components.MaterialSoil),
		"terrain", cfg.Terrain.Enabled,
	)
	return nil
}

// seedLocation places plant i. Plants stand in a column along y unless
// onSurface spreads them along x on top of the soil.
func seedLocation(g *systems.EnvironmentGrid, i int, onSurface bool) [3]float32 {
	if !onSurface {
		return [3]float32{0, float32(i), 0}
	}
	xs, _, _ := g.Dims()
	x := i % xs
	y := systems.SurfaceY(g, x, 0)
	return [3]float32{float32(x) + 0.5, float32(y), 0.5}
}

// spawnPlant allocates a plant with a single growing bud as its root node.
func spawnPlant(s *State, loc [3]float32, sc config.SeedConfig) (uint32, error) {
	pindex, err := s.Plants.Alloc()
	if err != nil {
		return components.InvalidIndex, fmt.Errorf("allocating plant: %w", err)
	}
	nindex, err := s.Nodes.Alloc()
	if err != nil {
		err = fmt.Errorf("allocating root node: %w", err)
		if ferr := s.Plants.Free(pindex); ferr != nil {
			err = errors.Join(err, fmt.Errorf("releasing plant %d: %w", pindex, ferr))
		}
		return components.InvalidIndex, err
	}

	node := components.NewNode()
	node.Status = components.StatusAlive
	node.Archetype = components.ArchetypeGrowingBud
	node.Visible = true
	node.PlantID = pindex
	node.Length = float32(sc.RootLength)
	node.Radius = float32(sc.RootRadius)
	node.Volume = float32(sc.RootVolume)
	node.Position = loc
	s.Nodes.Set(nindex, node)

	s.Plants.Set(pindex, components.Plant{
		Status:   components.StatusAlive,
		Location: loc,
		Root:     nindex,
	})
	return pindex, nil
}
