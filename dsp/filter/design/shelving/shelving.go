// Package shelving designs first-order-slope shelving equalizers as single
// biquad sections, following the Audio EQ Cookbook formulas.
package shelving

import (
	"errors"
	"math"

	"github.com/cwbudde/algo-tape/dsp/filter/biquad"
)

// ErrInvalidParams is returned when filter parameters are out of range.
var ErrInvalidParams = errors.New("shelving: invalid parameters")

// LowShelf designs a low-shelving biquad.
//
// freqHz is the shelf corner frequency in Hz. gainDB is the shelf gain in
// dB (positive for boost, negative for cut). q controls the transition
// steepness.
func LowShelf(sampleRate, freqHz, gainDB, q float64) (biquad.Coefficients, error) {
	if err := validateParams(sampleRate, freqHz, q); err != nil {
		return biquad.Coefficients{}, err
	}
	if gainDB == 0 {
		return biquad.Identity(), nil
	}

	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freqHz / sampleRate
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)
	beta := 2 * math.Sqrt(a) * alpha

	b0 := a * ((a + 1) - (a-1)*cosW0 + beta)
	b1 := 2 * a * ((a - 1) - (a+1)*cosW0)
	b2 := a * ((a + 1) - (a-1)*cosW0 - beta)
	a0 := (a + 1) + (a-1)*cosW0 + beta
	a1 := -2 * ((a - 1) + (a+1)*cosW0)
	a2 := (a + 1) + (a-1)*cosW0 - beta

	return normalize(b0, b1, b2, a0, a1, a2), nil
}

// HighShelf designs a high-shelving biquad.
//
// freqHz is the shelf corner frequency in Hz. gainDB is the shelf gain in
// dB (positive for boost, negative for cut). q controls the transition
// steepness.
func HighShelf(sampleRate, freqHz, gainDB, q float64) (biquad.Coefficients, error) {
	if err := validateParams(sampleRate, freqHz, q); err != nil {
		return biquad.Coefficients{}, err
	}
	if gainDB == 0 {
		return biquad.Identity(), nil
	}

	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freqHz / sampleRate
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)
	beta := 2 * math.Sqrt(a) * alpha

	b0 := a * ((a + 1) + (a-1)*cosW0 + beta)
	b1 := -2 * a * ((a - 1) + (a+1)*cosW0)
	b2 := a * ((a + 1) + (a-1)*cosW0 - beta)
	a0 := (a + 1) - (a-1)*cosW0 + beta
	a1 := 2 * ((a - 1) - (a+1)*cosW0)
	a2 := (a + 1) - (a-1)*cosW0 - beta

	return normalize(b0, b1, b2, a0, a1, a2), nil
}

func validateParams(sampleRate, freqHz, q float64) error {
	if sampleRate <= 0 || freqHz <= 0 || q <= 0 {
		return ErrInvalidParams
	}
	if freqHz >= sampleRate*0.5 {
		return ErrInvalidParams
	}
	return nil
}

func normalize(b0, b1, b2, a0, a1, a2 float64) biquad.Coefficients {
	return biquad.Coefficients{
		B0: b0 / a0,
		B1: b1 / a0,
		B2: b2 / a0,
		A1: a1 / a0,
		A2: a2 / a0,
	}
}
