//go:build fastmath

package engine

import (
	"github.com/meko-christian/algo-approx"
)

// tanhShape computes tanh(x) using fast exp approximation.
// Uses the identity: tanh(x) = 1 - 2/(e^(2x) + 1)
func tanhShape(x float64) float64 {
	return 1 - 2/(approx.FastExp(2*x)+1)
}
