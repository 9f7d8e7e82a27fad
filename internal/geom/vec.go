package geom

import "math"

// Vec3 is a Cartesian 3-vector. Directions, momenta and vertex positions
// all share this representation.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns a + b.
func Add(a, b Vec3) Vec3 {
	return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z}
}

// Sub returns a - b.
func Sub(a, b Vec3) Vec3 {
	return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z}
}

// Scale returns f * a.
func Scale(a Vec3, f float64) Vec3 {
	return Vec3{a.X * f, a.Y * f, a.Z * f}
}

// Dot3 returns the sum of componentwise products of a and b.
func Dot3(a, b Vec3) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

// Norm2 returns the squared Euclidean norm of a.
func Norm2(a Vec3) float64 {
	return Dot3(a, a)
}

// Norm returns the Euclidean norm of a.
func Norm(a Vec3) float64 {
	return math.Sqrt(Norm2(a))
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Vec3) float64 {
	return Norm(Sub(a, b))
}

// Component returns the i-th coordinate (0=X, 1=Y, 2=Z).
// Out of range indices return 0.
func (v Vec3) Component(i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	case 2:
		return v.Z
	}
	return 0
}
