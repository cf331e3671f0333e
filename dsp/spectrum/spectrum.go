// Package spectrum provides the spectral measurements used by the offline
// renderer and the package tests: dominant-frequency estimation, band
// power, and single-bin Goertzel tone detection.
package spectrum

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-tape/dsp/window"
	"github.com/cwbudde/algo-vecmath"
)

// Magnitude returns |X[k]| for each complex spectrum bin.
func Magnitude(in []complex128) []float64 {
	if len(in) == 0 {
		return nil
	}

	re := make([]float64, len(in))
	im := make([]float64, len(in))
	for i, c := range in {
		re[i] = real(c)
		im[i] = imag(c)
	}

	out := make([]float64, len(in))
	vecmath.Magnitude(out, re, im)
	return out
}

// Power returns |X[k]|^2 for each complex spectrum bin.
func Power(in []complex128) []float64 {
	if len(in) == 0 {
		return nil
	}

	re := make([]float64, len(in))
	im := make([]float64, len(in))
	for i, c := range in {
		re[i] = real(c)
		im[i] = imag(c)
	}

	out := make([]float64, len(in))
	vecmath.Power(out, re, im)
	return out
}

func transform(signal []float64, applyWindow bool) ([]complex128, error) {
	n := len(signal)
	if n < 2 || n&(n-1) != 0 {
		return nil, fmt.Errorf("spectrum length must be a power of two >= 2: %d", n)
	}

	buf := make([]complex128, n)
	if applyWindow {
		windowed := make([]float64, n)
		copy(windowed, signal)
		window.ApplyInPlace(windowed, window.Hann(n))
		signal = windowed
	}
	for i, v := range signal {
		buf[i] = complex(v, 0)
	}

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, err
	}

	out := make([]complex128, n)
	if err := plan.Forward(out, buf); err != nil {
		return nil, err
	}

	return out, nil
}

// DominantFrequency returns the frequency in Hz of the strongest spectral
// bin. The signal is Hann-windowed before the transform; its length must
// be a power of two.
func DominantFrequency(signal []float64, sampleRate float64) (float64, error) {
	if sampleRate <= 0 {
		return 0, fmt.Errorf("spectrum sample rate must be > 0: %f", sampleRate)
	}

	bins, err := transform(signal, true)
	if err != nil {
		return 0, err
	}

	mags := Magnitude(bins[:len(bins)/2])

	peakBin := 0
	peakMag := 0.0
	for i := 1; i < len(mags); i++ {
		if mags[i] > peakMag {
			peakMag = mags[i]
			peakBin = i
		}
	}

	return float64(peakBin) * sampleRate / float64(len(signal)), nil
}

// BandPower returns the total spectral power between loHz and hiHz. The
// signal length must be a power of two.
func BandPower(signal []float64, sampleRate, loHz, hiHz float64) (float64, error) {
	if sampleRate <= 0 {
		return 0, fmt.Errorf("spectrum sample rate must be > 0: %f", sampleRate)
	}
	if hiHz < loHz {
		loHz, hiHz = hiHz, loHz
	}

	bins, err := transform(signal, false)
	if err != nil {
		return 0, err
	}

	n := len(signal)
	powers := Power(bins[:n/2+1])

	loBin := int(loHz * float64(n) / sampleRate)
	hiBin := int(hiHz * float64(n) / sampleRate)
	if loBin < 0 {
		loBin = 0
	}
	if hiBin >= len(powers) {
		hiBin = len(powers) - 1
	}

	total := 0.0
	for i := loBin; i <= hiBin; i++ {
		total += powers[i]
	}
	return total, nil
}
