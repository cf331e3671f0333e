package testutil

import (
	"testing"

	"github.com/cwbudde/algo-tape/dsp/spectrum"
)

// DominantFrequency returns the frequency in Hz of the strongest bin in
// the signal's spectrum, failing the test on analysis errors. The signal
// length must be a power of two.
func DominantFrequency(t *testing.T, signal []float64, sampleRate float64) float64 {
	t.Helper()

	freq, err := spectrum.DominantFrequency(signal, sampleRate)
	if err != nil {
		t.Fatalf("DominantFrequency: %v", err)
	}
	return freq
}

// BandPower returns the total spectral power of the signal between loHz
// and hiHz, failing the test on analysis errors. The signal length must
// be a power of two.
func BandPower(t *testing.T, signal []float64, sampleRate, loHz, hiHz float64) float64 {
	t.Helper()

	power, err := spectrum.BandPower(signal, sampleRate, loHz, hiHz)
	if err != nil {
		t.Fatalf("BandPower: %v", err)
	}
	return power
}
