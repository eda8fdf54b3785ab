package minmotion

import "gonum.org/v1/gonum/spatial/r3"

// Vec is a 3-axis sensor reading (x, y, z).
type Vec = r3.Vec

// VecFromSlice builds a sensor vector from an ordered (x, y, z) sequence.
func VecFromSlice(s []float64) (Vec, error) {
	if len(s) != 3 {
		return Vec{}, &DimensionError{Want: 3, Got: len(s)}
	}
	return Vec{X: s[0], Y: s[1], Z: s[2]}, nil
}

// pure returns the pure quaternion (0, v).
func pure(v Vec) Quaternion {
	return Quaternion{X: v.X, Y: v.Y, Z: v.Z}
}

// unit returns v normalised, or false if v has zero or non-finite norm.
func unit(v Vec) (Vec, bool) {
	n := r3.Norm(v)
	if n == 0 || !isFinite(n) {
		return v, false
	}
	return r3.Scale(1/n, v), true
}

// finite reports whether every component of v is finite.
func finite(v Vec) bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}
