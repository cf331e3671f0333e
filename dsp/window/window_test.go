package window

import (
	"math"
	"testing"
)

func TestHannEndpointsAndSymmetry(t *testing.T) {
	w := Hann(64)
	if len(w) != 64 {
		t.Fatalf("length: got %d, want 64", len(w))
	}

	if w[0] != 0 || math.Abs(w[63]) > 1e-15 {
		t.Fatalf("endpoints: got %g and %g, want 0", w[0], w[63])
	}

	for i := range w {
		if diff := math.Abs(w[i] - w[63-i]); diff > 1e-12 {
			t.Fatalf("asymmetry at %d: %g", i, diff)
		}
	}
}

func TestHannDegenerateSizes(t *testing.T) {
	if got := Hann(0); got != nil {
		t.Fatalf("Hann(0): got %v, want nil", got)
	}
	if got := Hann(1); len(got) != 1 || got[0] != 1 {
		t.Fatalf("Hann(1): got %v, want [1]", got)
	}
}

func TestApplyInPlace(t *testing.T) {
	buf := []float64{1, 2, 3, 4}
	coeffs := []float64{0.5, 0.5, 0.5, 0.5}

	ApplyInPlace(buf, coeffs)

	want := []float64{0.5, 1, 1.5, 2}
	for i := range buf {
		if buf[i] != want[i] {
			t.Fatalf("index %d: got %f, want %f", i, buf[i], want[i])
		}
	}
}
