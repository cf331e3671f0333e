// Package noise provides the deterministic pseudo-random source and the
// band-limited tape hiss generator built on it.
package noise

import (
	"fmt"
	"math"
)

const (
	defaultSeed = 0xDEAD1337

	hissHighpassHz = 200.0
	hissLowpassHz  = 8000.0
	hissOutputGain = 0.04
	hissBypassEps  = 0.001
)

// Xorshift32 is a fast deterministic 32-bit PRNG. Each noise-consuming
// feature owns its own instance so the streams stay uncorrelated.
type Xorshift32 struct {
	state uint32
}

// NewXorshift32 creates a generator. A zero seed is replaced with the
// default seed, since xorshift has an all-zero fixed point.
func NewXorshift32(seed uint32) *Xorshift32 {
	if seed == 0 {
		seed = defaultSeed
	}
	return &Xorshift32{state: seed}
}

// Seed resets the generator state.
func (r *Xorshift32) Seed(seed uint32) {
	if seed == 0 {
		seed = defaultSeed
	}
	r.state = seed
}

// Next advances the generator and returns the raw 32-bit state.
func (r *Xorshift32) Next() uint32 {
	r.state ^= r.state << 13
	r.state ^= r.state >> 17
	r.state ^= r.state << 5
	return r.state
}

// Float returns a sample in [-1, 1).
func (r *Xorshift32) Float() float64 {
	return float64(int32(r.Next())) * 4.6566e-10
}

// Hiss generates band-limited tape hiss: white noise shaped into the
// 200 Hz – 8 kHz band by a one-pole lowpass/highpass pair.
type Hiss struct {
	sampleRate float64

	hpCoeff float64
	lpCoeff float64
	hpState float64
	lpState float64

	rng *Xorshift32
}

// NewHiss creates a hiss generator for the given sample rate.
func NewHiss(sampleRate float64) (*Hiss, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("hiss sample rate must be > 0: %f", sampleRate)
	}

	h := &Hiss{rng: NewXorshift32(defaultSeed)}
	h.configure(sampleRate)
	return h, nil
}

// SetSampleRate updates the sample rate and recomputes filter coefficients.
func (h *Hiss) SetSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("hiss sample rate must be > 0: %f", sampleRate)
	}
	h.configure(sampleRate)
	return nil
}

// SetSeed reseeds the internal noise stream and clears filter state.
func (h *Hiss) SetSeed(seed uint32) {
	h.rng.Seed(seed)
	h.Reset()
}

// SampleRate returns the sample rate in Hz.
func (h *Hiss) SampleRate() float64 { return h.sampleRate }

// Reset clears filter state. The PRNG stream continues where it was.
func (h *Hiss) Reset() {
	h.hpState = 0
	h.lpState = 0
}

// ProcessSample returns one hiss sample scaled by amount in [0,1].
// Below the bypass threshold the stage returns silence without advancing
// the noise stream.
func (h *Hiss) ProcessSample(amount float64) float64 {
	if amount < hissBypassEps {
		return 0
	}

	white := h.rng.Float()

	h.lpState = h.lpCoeff*h.lpState + (1-h.lpCoeff)*white
	band := h.lpState - h.hpState
	h.hpState = h.hpCoeff*h.hpState + (1-h.hpCoeff)*h.lpState

	return band * amount * hissOutputGain
}

func (h *Hiss) configure(sampleRate float64) {
	h.sampleRate = sampleRate
	h.hpCoeff = math.Exp(-2 * math.Pi * hissHighpassHz / sampleRate)
	h.lpCoeff = math.Exp(-2 * math.Pi * hissLowpassHz / sampleRate)
	h.Reset()
}
