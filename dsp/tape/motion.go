package tape

import (
	"math"

	"github.com/cwbudde/algo-tape/dsp/noise"
)

const (
	wowHz      = 0.4
	flutter1Hz = 8.0
	flutter2Hz = 13.7
	driftHz    = 0.05

	// Per-source peak depths as a fraction of the head delay, weighted so
	// wow dominates and the flutter pair adds texture.
	wowDepth      = 0.007 * 0.6
	flutter1Depth = 0.003 * 0.3
	flutter2Depth = 0.002 * 0.1
	driftDepth    = 0.005 * 0.2
	randomDepth   = 0.002

	// Corner of the lowpass shaping the random speed component.
	randomCornerHz = 5.0

	flutter2SeedPhase = 0.37
	randomSeed        = 0x5C7A1E99
)

// phaseOsc is a sine oscillator driven by a [0,1) phase accumulator.
type phaseOsc struct {
	phase float64
	inc   float64
	seed  float64
}

func (o *phaseOsc) init(freqHz, sampleRate, seedPhase float64) {
	o.inc = freqHz / sampleRate
	o.seed = seedPhase
	o.phase = seedPhase
}

func (o *phaseOsc) reset() {
	o.phase = o.seed
}

func (o *phaseOsc) next() float64 {
	v := math.Sin(o.phase * 2 * math.Pi)
	o.phase += o.inc
	if o.phase >= 1 {
		o.phase -= 1
	}
	return v
}

// motion combines the periodic wow/flutter/drift oscillators and a
// lowpass-filtered random component into one fractional modulation index.
type motion struct {
	wow      phaseOsc
	flutter1 phaseOsc
	flutter2 phaseOsc
	drift    phaseOsc

	rng       *noise.Xorshift32
	randState float64
	randCoeff float64
}

func (mo *motion) init(sampleRate, wowSeedPhase float64) {
	mo.wow.init(wowHz, sampleRate, wowSeedPhase)
	mo.flutter1.init(flutter1Hz, sampleRate, 0)
	mo.flutter2.init(flutter2Hz, sampleRate, flutter2SeedPhase)
	mo.drift.init(driftHz, sampleRate, 0)

	mo.rng = noise.NewXorshift32(randomSeed)
	mo.randCoeff = 1 - math.Exp(-2*math.Pi*randomCornerHz/sampleRate)
	mo.randState = 0
}

func (mo *motion) reset() {
	mo.wow.reset()
	mo.flutter1.reset()
	mo.flutter2.reset()
	mo.drift.reset()
	mo.rng.Seed(randomSeed)
	mo.randState = 0
}

// next returns the modulation index for one sample, scaled by amount.
// The result multiplies the head delay as (1 + mod).
func (mo *motion) next(amount float64) float64 {
	mo.randState += mo.randCoeff * (mo.rng.Float() - mo.randState)

	mod := mo.wow.next()*wowDepth +
		mo.flutter1.next()*flutter1Depth +
		mo.flutter2.next()*flutter2Depth +
		mo.drift.next()*driftDepth +
		mo.randState*randomDepth

	return mod * amount
}
