package systems

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/sprout/arena"
	"github.com/pthm-cable/sprout/components"
)

var (
	// ErrInvalidBreak is returned by Divide for a break fraction outside (0,1).
	ErrInvalidBreak = errors.New("systems: percent break must be in (0,1)")
	// ErrInvalidIndex is returned when an index names no live node.
	ErrInvalidIndex = errors.New("systems: invalid node index")
	// ErrBrokenTree is returned by Validate when links are inconsistent.
	ErrBrokenTree = errors.New("systems: tree invariant violated")
)

var unitY = r3.Vec{Y: 1}

// NodeTree is plant morphology: binary-linked nodes stored in an arena.
type NodeTree struct {
	nodes *arena.Arena[components.Node]
}

// NewNodeTree creates a tree with capacity garbage slots.
func NewNodeTree(capacity uint32) (*NodeTree, error) {
	a, err := arena.New[components.Node](capacity)
	if err != nil {
		return nil, fmt.Errorf("creating node arena: %w", err)
	}
	recs := a.Records()
	for i := range recs {
		recs[i] = components.NewNode()
	}
	return &NodeTree{nodes: a}, nil
}

// NodeTreeFromArena wraps restored arena state.
func NodeTreeFromArena(a *arena.Arena[components.Node]) *NodeTree {
	return &NodeTree{nodes: a}
}

// Arena exposes the backing arena for persistence.
func (t *NodeTree) Arena() *arena.Arena[components.Node] { return t.nodes }

// Alloc claims a slot. The record is stale until the caller sets it.
func (t *NodeTree) Alloc() (uint32, error) { return t.nodes.Alloc() }

// Get returns a copy of the node at index.
func (t *NodeTree) Get(index uint32) components.Node { return t.nodes.Get(index) }

// Set overwrites the node at index.
func (t *NodeTree) Set(index uint32, n components.Node) { t.nodes.Set(index, n) }

// Ref returns a pointer to the node at index.
func (t *NodeTree) Ref(index uint32) *components.Node { return t.nodes.Ref(index) }

// Size returns the capacity.
func (t *NodeTree) Size() uint32 { return t.nodes.Size() }

// CurrentSize returns the number of allocated nodes.
func (t *NodeTree) CurrentSize() uint32 { return t.nodes.CurrentSize() }

// Nodes exposes every slot, garbage included, in index order.
func (t *NodeTree) Nodes() []components.Node { return t.nodes.Records() }

func (t *NodeTree) live(index uint32) bool {
	return index < t.nodes.Size() && t.nodes.Ref(index).Live()
}

// Insert allocates a slot and stores n in it.
func (t *NodeTree) Insert(n components.Node) (uint32, error) {
	idx, err := t.nodes.Alloc()
	if err != nil {
		return arena.Invalid, err
	}
	t.nodes.Set(idx, n)
	return idx, nil
}

// FreeUnlinked marks index garbage and returns it to the free stack without
// touching parent or child links.
func (t *NodeTree) FreeUnlinked(index uint32) error {
	if index >= t.nodes.Size() {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	if err := t.nodes.Free(index); err != nil {
		return err
	}
	t.nodes.Ref(index).Status = components.StatusGarbage
	return nil
}

// Free detaches index from its parent and frees it together with its subtree.
func (t *NodeTree) Free(index uint32) error {
	if !t.live(index) {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	if p := t.nodes.Ref(index).Parent; p != components.InvalidIndex && p < t.nodes.Size() {
		parent := t.nodes.Ref(p)
		if parent.Left == index {
			parent.Left = components.InvalidIndex
		}
		if parent.Right == index {
			parent.Right = components.InvalidIndex
		}
	}

	stack := []uint32{index}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := t.nodes.Ref(i)
		if !n.Live() {
			continue
		}
		if n.Left != components.InvalidIndex {
			stack = append(stack, n.Left)
		}
		if n.Right != components.InvalidIndex {
			stack = append(stack, n.Right)
		}
		*n = components.NewNode()
		if err := t.nodes.Free(i); err != nil {
			return err
		}
	}
	return nil
}

// SetLeftChild links child as parent's left child and back-patches the
// child's parent when child is valid.
func (t *NodeTree) SetLeftChild(parent, child uint32) {
	t.nodes.Ref(parent).Left = child
	if child != components.InvalidIndex {
		t.nodes.Ref(child).Parent = parent
	}
}

// SetRightChild links child as parent's right child and back-patches the
// child's parent when child is valid.
func (t *NodeTree) SetRightChild(parent, child uint32) {
	t.nodes.Ref(parent).Right = child
	if child != components.InvalidIndex {
		t.nodes.Ref(child).Parent = parent
	}
}

// Divide splits a segment in two. The new node takes the upper (1-p) share of
// the length and the original's children; it becomes the original's only child.
// Returns the new node's index.
func (t *NodeTree) Divide(index uint32, percentBreak float32) (uint32, error) {
	if !(percentBreak > 0 && percentBreak < 1) {
		return arena.Invalid, fmt.Errorf("%w: %v", ErrInvalidBreak, percentBreak)
	}
	if !t.live(index) {
		return arena.Invalid, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	newIndex, err := t.nodes.Alloc()
	if err != nil {
		return arena.Invalid, fmt.Errorf("dividing node %d: %w", index, err)
	}

	orig := t.nodes.Ref(index)
	clone := *orig
	length := orig.Length
	orig.Length = percentBreak * length
	clone.Length = (1 - percentBreak) * length
	clone.Transform = components.Identity()
	t.nodes.Set(newIndex, clone)

	t.SetLeftChild(newIndex, clone.Left)
	t.SetRightChild(newIndex, clone.Right)
	t.SetLeftChild(index, newIndex)
	t.SetRightChild(index, components.InvalidIndex)
	return newIndex, nil
}

// Roots returns the live nodes without a parent, in index order.
func (t *NodeTree) Roots() []uint32 {
	var roots []uint32
	for i, n := range t.nodes.Records() {
		if n.IsRoot() {
			roots = append(roots, uint32(i))
		}
	}
	return roots
}

// SegmentVisitor receives each node reached from a root together with the
// segment's world-space start and end.
type SegmentVisitor func(index uint32, n *components.Node, start, end r3.Vec)

// walk visits the subtree at index depth-first, left before right.
func (t *NodeTree) walk(index uint32, start r3.Vec, parentRot components.Mat4, depth uint32, visit SegmentVisitor) {
	if depth > t.nodes.Size() || !t.live(index) {
		return
	}
	n := t.nodes.Ref(index)
	rot := parentRot.Mul(n.Transform)
	end := r3.Add(start, rot.MulVec(r3.Scale(float64(n.Length), unitY)))
	visit(index, n, start, end)
	if n.Left != components.InvalidIndex {
		t.walk(n.Left, end, rot, depth+1, visit)
	}
	if n.Right != components.InvalidIndex {
		t.walk(n.Right, end, rot, depth+1, visit)
	}
}

// Walk visits every node reachable from a root.
func (t *NodeTree) Walk(visit SegmentVisitor) {
	for _, r := range t.Roots() {
		root := t.nodes.Ref(r)
		t.walk(r, components.Vec3(root.Position), components.Identity(), 0, visit)
	}
}

// RefreshPositions rewrites the position cache of every non-root node to the
// end point of its parent segment.
func (t *NodeTree) RefreshPositions() {
	t.Walk(func(_ uint32, n *components.Node, start, _ r3.Vec) {
		n.Position = components.Array3(start)
	})
}

// Validate checks that live links are symmetric and that every live node is
// reached from exactly one root.
func (t *NodeTree) Validate() error {
	recs := t.nodes.Records()
	for i := range recs {
		n := &recs[i]
		if !n.Live() {
			continue
		}
		idx := uint32(i)
		for _, c := range [2]uint32{n.Left, n.Right} {
			if c == components.InvalidIndex {
				continue
			}
			if !t.live(c) {
				return fmt.Errorf("%w: node %d links to dead child %d", ErrBrokenTree, idx, c)
			}
			if recs[c].Parent != idx {
				return fmt.Errorf("%w: child %d of %d has parent %d", ErrBrokenTree, c, idx, recs[c].Parent)
			}
		}
		if p := n.Parent; p != components.InvalidIndex {
			if !t.live(p) || (recs[p].Left != idx && recs[p].Right != idx) {
				return fmt.Errorf("%w: node %d not linked from parent %d", ErrBrokenTree, idx, p)
			}
		}
	}

	seen := make([]bool, len(recs))
	for _, r := range t.Roots() {
		stack := []uint32{r}
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if seen[i] {
				return fmt.Errorf("%w: node %d reached twice", ErrBrokenTree, i)
			}
			seen[i] = true
			n := &recs[i]
			if n.Left != components.InvalidIndex {
				stack = append(stack, n.Left)
			}
			if n.Right != components.InvalidIndex {
				stack = append(stack, n.Right)
			}
		}
	}
	for i := range recs {
		if recs[i].Live() && !seen[i] {
			return fmt.Errorf("%w: node %d unreachable from any root", ErrBrokenTree, i)
		}
	}
	return nil
}

// CopyFrom makes t an exact copy of src.
func (t *NodeTree) CopyFrom(src *NodeTree) error {
	return t.nodes.CopyFrom(src.nodes)
}

// Clone returns an independent copy of the tree.
func (t *NodeTree) Clone() *NodeTree {
	return &NodeTree{nodes: t.nodes.Clone()}
}
