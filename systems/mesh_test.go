package systems

import (
	"math"
	"testing"

	"github.com/pthm-cable/sprout/components"
)

func TestProject_VertexCounts(t *testing.T) {
	tree, root := newRootTree(t, 8, 1.0)
	upper, err := tree.Divide(root, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	leaf := stemNode(0.2)
	leaf.Archetype = components.ArchetypeLeaf
	leafIdx, err := tree.Insert(leaf)
	if err != nil {
		t.Fatal(err)
	}
	tree.SetRightChild(root, leafIdx)

	got := NewMeshProjector(DefaultArchetypeTable()).Project(tree)
	want := 2*CylinderVertices + LeafVertices
	if len(got) != want {
		t.Errorf("Project emitted %d vertices, want %d", len(got), want)
	}

	tree.Ref(upper).Visible = false
	if got := tree.GenVertexTree(); len(got) != CylinderVertices+LeafVertices {
		t.Errorf("with hidden segment emitted %d vertices, want %d", len(got), CylinderVertices+LeafVertices)
	}
}

func TestProject_SkipsUnreachable(t *testing.T) {
	tree, root := newRootTree(t, 8, 1.0)
	idx, err := tree.Insert(stemNode(1.0))
	if err != nil {
		t.Fatal(err)
	}
	if err := tree.FreeUnlinked(idx); err != nil {
		t.Fatal(err)
	}
	tree.Ref(root).Visible = false

	if got := tree.GenVertexTree(); len(got) != 0 {
		t.Errorf("emitted %d vertices for a hidden root and a garbage slot", len(got))
	}
}

func TestProject_SegmentEndpoints(t *testing.T) {
	tree, root := newRootTree(t, 4, 2.0)
	tree.Ref(root).Position = [3]float32{1, 0, 1}
	tree.Ref(root).Radius = 0.5

	verts := tree.GenVertexTree()
	if len(verts) != CylinderVertices {
		t.Fatalf("emitted %d vertices", len(verts))
	}
	for i, v := range verts {
		y := float64(v.Position[1])
		if math.Abs(y) > 1e-5 && math.Abs(y-2) > 1e-5 {
			t.Errorf("vertex %d y = %v, want 0 or 2", i, y)
		}
	}
}
