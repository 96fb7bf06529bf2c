package components

// Plant is the organism owning a root node.
type Plant struct {
	Status   Status     `json:"status"`
	Age      uint32     `json:"age"`
	Location [3]float32 `json:"location"`
	Root     uint32     `json:"root"`
}

// NewPlant returns a garbage plant with no root.
func NewPlant() Plant {
	return Plant{Root: InvalidIndex}
}
