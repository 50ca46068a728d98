package common

import "github.com/chewxy/math32"

// Helpers for [3]float32 vectors. Positions, directions and colors all use the plain array so
// they marshal into GPU records without conversion.

func Add3(a, b [3]float32) [3]float32 {
	for i := range a {
		a[i] += b[i]
	}
	return a
}

func Sub3(a, b [3]float32) [3]float32 {
	for i := range a {
		a[i] -= b[i]
	}
	return a
}

func Scale3(v [3]float32, s float32) [3]float32 {
	for i := range v {
		v[i] *= s
	}
	return v
}

// Mul3 multiplies componentwise.
func Mul3(a, b [3]float32) [3]float32 {
	for i := range a {
		a[i] *= b[i]
	}
	return a
}

func Dot3(a, b [3]float32) float32 {
	var d float32
	for i := range a {
		d += a[i] * b[i]
	}
	return d
}

func Cross3(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func Length3(v [3]float32) float32 {
	return math32.Sqrt(Dot3(v, v))
}

// Normalize3 scales v to unit length. The zero vector is returned as is.
func Normalize3(v [3]float32) [3]float32 {
	if l := Length3(v); l > 0 {
		return Scale3(v, 1/l)
	}
	return v
}
