package systems

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/sprout/components"
)

func TestNewEnvironmentGrid_InvalidDimensions(t *testing.T) {
	for _, d := range [][3]int{{0, 1, 1}, {1, -1, 1}, {1, 1, 0}} {
		if _, err := NewEnvironmentGrid(d[0], d[1], d[2]); !errors.Is(err, ErrInvalidDimensions) {
			t.Errorf("NewEnvironmentGrid(%v) error = %v, want ErrInvalidDimensions", d, err)
		}
	}
}

func TestEnvironmentGrid_SetGet(t *testing.T) {
	g, err := NewEnvironmentGrid(10, 10, 10)
	if err != nil {
		t.Fatal(err)
	}
	if g.Len() != 1000 {
		t.Fatalf("Len = %d, want 1000", g.Len())
	}
	if g.CountMaterial(components.MaterialInvalid) != 1000 {
		t.Error("fresh grid is not all invalid material")
	}

	g.Set(5, 5, 5, components.GridCell{Material: components.MaterialSoil, Moisture: 0.5})
	if got := g.Get(5, 5, 5); got.Material != components.MaterialSoil || got.Moisture != 0.5 {
		t.Errorf("Get(5,5,5) = %+v", got)
	}
	if got := g.CountMaterial(components.MaterialInvalid); got != 999 {
		t.Errorf("%d invalid cells after one Set, want 999", got)
	}
	if got := g.Index(1, 2, 3); got != 321 {
		t.Errorf("Index(1,2,3) = %d, want 321", got)
	}
	if got := g.GenVertex(); len(got) != 36 {
		t.Errorf("GenVertex emitted %d vertices, want 36", len(got))
	}
}

func TestEnvironmentGrid_GetOutOfBoundsPanics(t *testing.T) {
	g, _ := NewEnvironmentGrid(2, 2, 2)
	defer func() {
		if recover() == nil {
			t.Error("Get outside the grid did not panic")
		}
	}()
	g.Get(2, 0, 0)
}

func TestEnvironmentGrid_CellAt(t *testing.T) {
	g, _ := NewEnvironmentGrid(10, 10, 10)
	tests := []struct {
		pos  r3.Vec
		want int
		ok   bool
	}{
		{r3.Vec{X: 1.5, Y: 2.9, Z: 3.1}, 321, true},
		{r3.Vec{}, 0, true},
		{r3.Vec{X: -0.5}, 0, false},
		{r3.Vec{X: 10}, 0, false},
		{r3.Vec{Y: 9.99, Z: 9.99}, g.Index(0, 9, 9), true},
	}
	for _, tt := range tests {
		got, ok := g.CellAt(tt.pos)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("CellAt(%v) = %d,%v want %d,%v", tt.pos, got, ok, tt.want, tt.ok)
		}
	}
}

func TestEnvironmentGrid_CopyAndRestore(t *testing.T) {
	g, _ := NewEnvironmentGrid(3, 3, 3)
	g.Set(1, 1, 1, components.GridCell{Material: components.MaterialWater})

	c := g.Clone()
	g.Set(1, 1, 1, components.GridCell{Material: components.MaterialStone})
	if c.Get(1, 1, 1).Material != components.MaterialWater {
		t.Error("clone shares cells with the original")
	}

	other, _ := NewEnvironmentGrid(2, 3, 3)
	if err := other.CopyFrom(g); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("CopyFrom mismatched grid error = %v", err)
	}

	restored, err := GridFromCells(3, 3, 3, c.Cells())
	if err != nil {
		t.Fatalf("GridFromCells: %v", err)
	}
	if restored.Get(1, 1, 1).Material != components.MaterialWater {
		t.Error("restored grid lost cell data")
	}
	if _, err := GridFromCells(3, 3, 3, c.Cells()[:5]); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("GridFromCells short slice error = %v", err)
	}
}
