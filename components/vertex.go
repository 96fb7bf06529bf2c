package components

// Vertex is one element of the flat triangle list handed to a renderer.
type Vertex struct {
	Position [3]float32
	Color    [4]float32
}

// RGB builds an opaque color.
func RGB(r, g, b float32) [4]float32 {
	return [4]float32{r, g, b, 1}
}
