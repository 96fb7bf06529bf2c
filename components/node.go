package components

import "math"

// InvalidIndex is the sentinel for "no link" in arena index fields.
const InvalidIndex uint32 = math.MaxUint32

// Status is the lifecycle state of an arena record.
type Status uint32

const (
	StatusGarbage    Status = iota // slot is free; reachable only from the free stack
	StatusDead                     // was alive, can rot
	StatusAlive                    // alive and can die
	StatusNeverAlive               // inert structure that cannot die
)

// String returns the display name for a Status.
func (s Status) String() string {
	switch s {
	case StatusGarbage:
		return "garbage"
	case StatusDead:
		return "dead"
	case StatusAlive:
		return "alive"
	case StatusNeverAlive:
		return "never_alive"
	}
	return "unknown"
}

// Node is one segment of plant morphology.
// Links are arena indices; InvalidIndex means no link.
type Node struct {
	Left   uint32 `json:"left"`
	Right  uint32 `json:"right"`
	Parent uint32 `json:"parent"`

	Age       uint32    `json:"age"`
	Archetype Archetype `json:"archetype"`
	Status    Status    `json:"status"`
	Visible   bool      `json:"visible"`
	PlantID   uint32    `json:"plant_id"`

	Length float32 `json:"length"`
	Radius float32 `json:"radius"` // doubles as leaf width
	Volume float32 `json:"volume"`

	// Position caches the world-space origin of the segment.
	Position [3]float32 `json:"position"`

	// Transform is the rotation relative to the parent's end point.
	Transform Mat4 `json:"transform"`
}

// NewNode returns an unlinked garbage node with an identity transform.
func NewNode() Node {
	return Node{
		Left:      InvalidIndex,
		Right:     InvalidIndex,
		Parent:    InvalidIndex,
		PlantID:   InvalidIndex,
		Transform: Identity(),
	}
}

// IsRoot reports whether the node is live and has no parent.
func (n *Node) IsRoot() bool {
	return n.Status != StatusGarbage && n.Parent == InvalidIndex
}

// Live reports whether the node occupies its slot.
func (n *Node) Live() bool {
	return n.Status != StatusGarbage
}
