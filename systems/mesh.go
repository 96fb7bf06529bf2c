package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/sprout/components"
)

// Vertex counts emitted per visible node.
const (
	CylinderVertices = 36
	LeafVertices     = 6
)

var unitX = r3.Vec{X: 1}

var (
	trunkColors = [2][4]float32{components.RGB(0, 0, 0), components.RGB(0, 1, 0)}
	leafColors  = [2][4]float32{components.RGB(0, 1, 0), components.RGB(1, 1, 0)}
)

// MeshProjector turns a NodeTree into a flat triangle list.
// Projection only reads the tree.
type MeshProjector struct {
	table *ArchetypeTable
	up    r3.Vec
}

// NewMeshProjector creates a projector coloring nodes from table.
// A nil table uses the built-in trunk and leaf colors.
func NewMeshProjector(table *ArchetypeTable) *MeshProjector {
	return &MeshProjector{table: table, up: unitY}
}

// GenVertexTree projects every visible node reachable from a root.
func (t *NodeTree) GenVertexTree() []components.Vertex {
	return NewMeshProjector(nil).Project(t)
}

// Project walks each root depth-first, left before right, and emits a hex
// prism per visible segment, or a quad for leaves.
func (m *MeshProjector) Project(t *NodeTree) []components.Vertex {
	var out []components.Vertex
	t.Walk(func(_ uint32, n *components.Node, start, end r3.Vec) {
		if !n.Visible {
			return
		}
		colors, leaf := m.style(n.Archetype)
		if leaf {
			out = appendLeaf(out, start, end, m.up, float64(n.Radius), colors)
		} else {
			out = appendCylinder(out, start, end, float64(n.Radius), colors)
		}
	})
	return out
}

func (m *MeshProjector) style(a components.Archetype) ([2][4]float32, bool) {
	if m.table != nil {
		if info, ok := m.table.Lookup(a); ok && a != components.ArchetypeInvalid {
			return [2][4]float32{info.StartColor, info.EndColor}, info.IsLeaf
		}
	}
	if a == components.ArchetypeLeaf {
		return leafColors, true
	}
	return trunkColors, false
}

// direction returns the unit vector of v, or unitY for a degenerate segment.
func direction(v r3.Vec) r3.Vec {
	if r3.Norm(v) < 1e-12 {
		return unitY
	}
	return r3.Unit(v)
}

// perpendicular returns a unit vector orthogonal to the unit vector v.
func perpendicular(v r3.Vec) r3.Vec {
	if math.Abs(r3.Dot(v, unitX)) > 0.999 {
		return r3.Unit(r3.Cross(v, unitY))
	}
	return r3.Unit(r3.Cross(v, unitX))
}

func vertex(p r3.Vec, c [4]float32) components.Vertex {
	return components.Vertex{Position: components.Array3(p), Color: c}
}

func appendCylinder(dst []components.Vertex, start, end r3.Vec, radius float64, colors [2][4]float32) []components.Vertex {
	axis := direction(r3.Sub(end, start))
	ring := r3.Scale(radius, perpendicular(axis))
	step := r3.NewRotation(math.Pi/3, axis)

	var bottom, top [6]r3.Vec
	for i := 0; i < 6; i++ {
		bottom[i] = r3.Add(ring, start)
		top[i] = r3.Add(ring, end)
		ring = step.Rotate(ring)
	}

	c1, c2 := colors[0], colors[1]
	for i := 0; i < 6; i++ {
		dst = append(dst,
			vertex(bottom[i], c1),
			vertex(bottom[(i+1)%6], c1),
			vertex(top[i], c2),
		)
	}
	for i := 0; i < 6; i++ {
		dst = append(dst,
			vertex(top[i], c2),
			vertex(top[(i+1)%6], c2),
			vertex(bottom[(i+1)%6], c1),
		)
	}
	return dst
}

func appendLeaf(dst []components.Vertex, start, end, up r3.Vec, width float64, colors [2][4]float32) []components.Vertex {
	side := r3.Cross(r3.Sub(end, start), up)
	if r3.Norm(side) < 1e-12 {
		side = perpendicular(direction(r3.Sub(end, start)))
	}
	perp := r3.Scale(width/2, r3.Unit(side))

	p1 := r3.Sub(start, perp)
	p2 := r3.Add(start, perp)
	p3 := r3.Sub(end, perp)
	p4 := r3.Add(end, perp)

	c1, c2 := colors[0], colors[1]
	return append(dst,
		vertex(p1, c1), vertex(p2, c1), vertex(p3, c2),
		vertex(p3, c2), vertex(p4, c2), vertex(p2, c1),
	)
}
