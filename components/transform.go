package components

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Mat4 is a 4×4 matrix stored row-major.
type Mat4 [16]float32

// Identity returns the identity transform.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mul returns m × b.
func (m Mat4) Mul(b Mat4) Mat4 {
	var out Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[r*4+c] = m[r*4+0]*b[0*4+c] + m[r*4+1]*b[1*4+c] +
				m[r*4+2]*b[2*4+c] + m[r*4+3]*b[3*4+c]
		}
	}
	return out
}

// MulVec transforms a direction (w=0); translation is ignored.
func (m Mat4) MulVec(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: float64(m[0])*v.X + float64(m[1])*v.Y + float64(m[2])*v.Z,
		Y: float64(m[4])*v.X + float64(m[5])*v.Y + float64(m[6])*v.Z,
		Z: float64(m[8])*v.X + float64(m[9])*v.Y + float64(m[10])*v.Z,
	}
}

// IsIdentity checks if the matrix is approximately identity.
func (m Mat4) IsIdentity() bool {
	id := Identity()
	for i := range m {
		d := m[i] - id[i]
		if d > 1e-6 || d < -1e-6 {
			return false
		}
	}
	return true
}

// RotX returns a rotation of angle radians about the X axis.
func RotX(angle float64) Mat4 {
	s, c := math.Sincos(angle)
	return Mat4{
		1, 0, 0, 0,
		0, float32(c), float32(-s), 0,
		0, float32(s), float32(c), 0,
		0, 0, 0, 1,
	}
}

// RotY returns a rotation of angle radians about the Y axis.
func RotY(angle float64) Mat4 {
	s, c := math.Sincos(angle)
	return Mat4{
		float32(c), 0, float32(s), 0,
		0, 1, 0, 0,
		float32(-s), 0, float32(c), 0,
		0, 0, 0, 1,
	}
}

// RotZ returns a rotation of angle radians about the Z axis.
func RotZ(angle float64) Mat4 {
	s, c := math.Sincos(angle)
	return Mat4{
		float32(c), float32(-s), 0, 0,
		float32(s), float32(c), 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Vec3 converts a stored position to a gonum vector.
func Vec3(p [3]float32) r3.Vec {
	return r3.Vec{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])}
}

// Array3 converts a gonum vector to a stored position.
func Array3(v r3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}
