package simd

import "math"

// Dot calculates the dot product of two vectors. This is the kernel behind
// cosine similarity scoring once both operands are unit-normalized.
//
// SAFETY: assumes len(a) == len(b); callers must ensure lengths match.
func Dot(a, b []float32) float32 {
	var ret float32
	for i := range a {
		ret += a[i] * b[i]
	}
	return ret
}

// ScaleInPlace multiplies every element of a by scalar. Used by embedding
// normalization at finalize time.
func ScaleInPlace(a []float32, scalar float32) {
	for i := range a {
		a[i] *= scalar
	}
}

// Sqrt returns the square root of v as a float32, used to turn a squared
// L2 norm into the normalization divisor.
func Sqrt(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}
