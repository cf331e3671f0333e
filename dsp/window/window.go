// Package window provides the analysis window used before spectral
// measurements.
package window

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Hann returns an n-point Hann window. Returns nil for n < 1; a single
// point degenerates to 1.
func Hann(n int) []float64 {
	if n < 1 {
		return nil
	}
	if n == 1 {
		return []float64{1}
	}

	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return out
}

// ApplyInPlace multiplies buf by the window coefficients element-wise.
// Both slices must have the same length.
func ApplyInPlace(buf, coeffs []float64) {
	vecmath.MulBlockInPlace(buf, coeffs)
}
