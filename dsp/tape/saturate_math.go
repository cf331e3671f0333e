//go:build !fastmath

package tape

import "math"

// tanhShape computes tanh(x) using standard library math.
func tanhShape(x float64) float64 {
	return math.Tanh(x)
}
