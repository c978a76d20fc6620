package feature

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Correlation returns the cross-correlation of a and b for every lag
// (len(a)+len(b)-1 values), normalized by the norms of a and b.
// For non-negative signals the result is in [0, 1], where 1 means that
// one signal is a scaled copy of the other.
func Correlation(a, b []float64) []float64 {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	// Full convolution of the reversed a with b
	rev := slices.Clone(a)
	slices.Reverse(rev)
	corr := make([]float64, len(a)+len(b)-1)
	for i, x := range rev {
		for j, y := range b {
			corr[i+j] += x * y
		}
	}

	norm := math.Sqrt(floats.Dot(a, a) * floats.Dot(b, b))
	if norm == 0 {
		return corr
	}
	for i := range corr {
		corr[i] /= norm
	}
	return corr
}
