package systems

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/sprout/components"
)

// ErrInvalidDimensions is returned for a grid with a non-positive extent.
var ErrInvalidDimensions = errors.New("systems: invalid grid dimensions")

// EnvironmentGrid is a fixed-size 3-D array of cells.
// Cell (x,y,z) lives at ysize*xsize*z + xsize*y + x.
type EnvironmentGrid struct {
	cells               []components.GridCell
	xsize, ysize, zsize int
}

// NewEnvironmentGrid creates a grid with every cell InvalidMaterial.
func NewEnvironmentGrid(x, y, z int) (*EnvironmentGrid, error) {
	if x <= 0 || y <= 0 || z <= 0 {
		return nil, fmt.Errorf("%w: %dx%dx%d", ErrInvalidDimensions, x, y, z)
	}
	return &EnvironmentGrid{
		cells: make([]components.GridCell, x*y*z),
		xsize: x,
		ysize: y,
		zsize: z,
	}, nil
}

// GridFromCells wraps restored cell data. len(cells) must equal x*y*z.
func GridFromCells(x, y, z int, cells []components.GridCell) (*EnvironmentGrid, error) {
	g, err := NewEnvironmentGrid(x, y, z)
	if err != nil {
		return nil, err
	}
	if len(cells) != len(g.cells) {
		return nil, fmt.Errorf("%w: %d cells for %dx%dx%d", ErrInvalidDimensions, len(cells), x, y, z)
	}
	copy(g.cells, cells)
	return g, nil
}

// Dims returns the grid extent.
func (g *EnvironmentGrid) Dims() (x, y, z int) {
	return g.xsize, g.ysize, g.zsize
}

// Len returns the number of cells.
func (g *EnvironmentGrid) Len() int { return len(g.cells) }

// Index returns the flat index of (x,y,z). It does not bounds-check.
func (g *EnvironmentGrid) Index(x, y, z int) int {
	return g.ysize*g.xsize*z + g.xsize*y + x
}

// InBounds reports whether (x,y,z) addresses a cell.
func (g *EnvironmentGrid) InBounds(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < g.xsize && y < g.ysize && z < g.zsize
}

// Get returns a copy of cell (x,y,z). Panics if out of bounds.
func (g *EnvironmentGrid) Get(x, y, z int) components.GridCell {
	return g.cells[g.mustIndex(x, y, z)]
}

// Set overwrites cell (x,y,z). Panics if out of bounds.
func (g *EnvironmentGrid) Set(x, y, z int, c components.GridCell) {
	g.cells[g.mustIndex(x, y, z)] = c
}

func (g *EnvironmentGrid) mustIndex(x, y, z int) int {
	if !g.InBounds(x, y, z) {
		panic(fmt.Sprintf("systems: grid cell (%d,%d,%d) outside %dx%dx%d", x, y, z, g.xsize, g.ysize, g.zsize))
	}
	return g.Index(x, y, z)
}

// CellAt returns the flat index of the cell containing pos, truncating each
// coordinate toward zero. ok is false outside the grid.
func (g *EnvironmentGrid) CellAt(pos r3.Vec) (int, bool) {
	if pos.X < 0 || pos.Y < 0 || pos.Z < 0 {
		return 0, false
	}
	x, y, z := int(pos.X), int(pos.Y), int(pos.Z)
	if !g.InBounds(x, y, z) {
		return 0, false
	}
	return g.Index(x, y, z), true
}

// Cells exposes the backing slice in flat index order.
func (g *EnvironmentGrid) Cells() []components.GridCell { return g.cells }

// CopyFrom makes g an exact copy of src. Both grids must have the same extent.
func (g *EnvironmentGrid) CopyFrom(src *EnvironmentGrid) error {
	if g.xsize != src.xsize || g.ysize != src.ysize || g.zsize != src.zsize {
		return fmt.Errorf("%w: copying %dx%dx%d into %dx%dx%d", ErrInvalidDimensions,
			src.xsize, src.ysize, src.zsize, g.xsize, g.ysize, g.zsize)
	}
	copy(g.cells, src.cells)
	return nil
}

// Clone returns an independent copy of the grid.
func (g *EnvironmentGrid) Clone() *EnvironmentGrid {
	c := &EnvironmentGrid{
		cells: make([]components.GridCell, len(g.cells)),
		xsize: g.xsize,
		ysize: g.ysize,
		zsize: g.zsize,
	}
	copy(c.cells, g.cells)
	return c
}

// CountMaterial returns how many cells hold m.
func (g *EnvironmentGrid) CountMaterial(m components.Material) int {
	n := 0
	for i := range g.cells {
		if g.cells[i].Material == m {
			n++
		}
	}
	return n
}

// soilCube colors per corner, matching the fixed corner order below.
var soilCornerColors = [8][4]float32{
	{0.5, 0.9, 0.5, 1}, {0.5, 0.5, 0.9, 1}, {0.9, 0.5, 0.5, 1}, {0.5, 0.9, 0.5, 1},
	{0.5, 0.5, 0.9, 1}, {0.9, 0.5, 0.5, 1}, {0.5, 0.5, 0.5, 1}, {0.5, 0.5, 0.5, 1},
}

// soilCubeOrder lists corner indices for the 12 triangles of a cube.
// Corners: 0 (x,y,z) 1 (x+1,y,z) 2 (x,y,z+1) 3 (x+1,y,z+1), 4..7 the same at y+1.
var soilCubeOrder = [36]int{
	0, 1, 2, 2, 3, 1,
	4, 5, 6, 6, 7, 5,
	2, 3, 6, 6, 7, 3,
	0, 1, 4, 4, 5, 1,
	0, 2, 4, 4, 6, 2,
	1, 3, 5, 5, 7, 3,
}

// GenVertex emits a unit cube of 36 vertices for every soil cell.
func (g *EnvironmentGrid) GenVertex() []components.Vertex {
	var out []components.Vertex
	for x := 0; x < g.xsize; x++ {
		for y := 0; y < g.ysize; y++ {
			for z := 0; z < g.zsize; z++ {
				if g.cells[g.Index(x, y, z)].Material != components.MaterialSoil {
					continue
				}
				out = appendCube(out, float32(x), float32(y), float32(z))
			}
		}
	}
	return out
}

func appendCube(dst []components.Vertex, x, y, z float32) []components.Vertex {
	var corners [8][3]float32
	for i := range corners {
		dx := float32(i & 1)
		dz := float32((i >> 1) & 1)
		dy := float32((i >> 2) & 1)
		corners[i] = [3]float32{x + dx, y + dy, z + dz}
	}
	for _, c := range soilCubeOrder {
		dst = append(dst, components.Vertex{Position: corners[c], Color: soilCornerColors[c]})
	}
	return dst
}
