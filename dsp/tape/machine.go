// Package tape implements the three-head tape transport: one shared delay
// loop, a saturating record head, and three playback heads with head-gap
// loss, head bump, print-through, dropouts, and inter-head crosstalk.
package tape

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-tape/dsp/core"
	"github.com/cwbudde/algo-tape/dsp/delay"
)

// NumHeads is the number of playback heads on the loop.
const NumHeads = 3

// HeadRatios are the physical head spacing ratios relative to head 1,
// approximating the RE-201 transport.
var HeadRatios = [NumHeads]float64{1.0, 1.475, 2.625}

const (
	maxDelayMs      = 750.0
	delayMarginSamp = 4096

	// Head-gap loss tuning. The reference cutoff applies to head 1 at the
	// reference repeat time; farther heads and slower tape speeds darken.
	headGapRefHz      = 5800.0
	headGapRefDelayMs = 150.0
	headGapSpeedExp   = 0.5
	headGapHeadExp    = 0.6
	headGapMinHz      = 1200.0

	dcBlockHz = 30.0

	headBumpHz          = 150.0
	headBumpBandwidthHz = 75.0
	headBumpMix         = 0.30

	printThroughRatio  = 0.92
	printThroughGainDB = -35.0

	crosstalkGain = 0.015

	// Coefficients are refreshed when the base delay moves by more than
	// this many samples, keeping per-sample work branch-light.
	coeffRefreshSamples = 1.0
)

// Machine is one channel of the tape transport. Stereo processing uses two
// instances with different wow seed phases for natural spread.
type Machine struct {
	sampleRate float64
	line       *delay.Line
	frozen     bool

	motion motion

	printGain float64

	lpState [NumHeads]float64
	lpCoeff [NumHeads]float64
	hpState [NumHeads]float64
	hpCoeff float64

	bump [NumHeads]resonator

	dropouts [NumHeads]dropout

	cachedBaseDelay float64
}

// NewMachine creates a tape transport for the given sample rate.
// wowSeedPhase offsets the wow oscillator phase in [0,1); use different
// seeds per channel so the two transports drift apart.
func NewMachine(sampleRate, wowSeedPhase float64) (*Machine, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("tape sample rate must be > 0: %f", sampleRate)
	}
	if wowSeedPhase < 0 || wowSeedPhase >= 1 {
		return nil, fmt.Errorf("tape wow seed phase must be in [0,1): %f", wowSeedPhase)
	}

	size := int(maxDelayMs/1000.0*sampleRate) + delayMarginSamp
	line, err := delay.New(size)
	if err != nil {
		return nil, fmt.Errorf("tape delay line: %w", err)
	}

	m := &Machine{
		sampleRate: sampleRate,
		line:       line,
		printGain:  core.DBToLinear(printThroughGainDB),
	}
	m.motion.init(sampleRate, wowSeedPhase)
	m.hpCoeff = 1 - 2*math.Pi*dcBlockHz/sampleRate

	for h := 0; h < NumHeads; h++ {
		m.bump[h].init(sampleRate, headBumpHz, headBumpBandwidthHz)
		seed := uint32(0x7A9E0001) ^ uint32(h)*0x9E3779B9 ^ uint32(wowSeedPhase*1e6)
		m.dropouts[h].init(sampleRate, seed)
	}

	m.cachedBaseDelay = -1
	return m, nil
}

// SampleRate returns the sample rate in Hz.
func (m *Machine) SampleRate() float64 { return m.sampleRate }

// MaxDelaySamples returns the largest base delay Process honors exactly for
// head 1. Farther heads whose scaled delay exceeds the loop length saturate
// at the end of the loop instead of shifting head 1.
func (m *Machine) MaxDelaySamples() float64 {
	return m.line.MaxDelay()
}

// SetFrozen stops or resumes the record head. While frozen the write stage
// is skipped entirely and the loop content repeats.
func (m *Machine) SetFrozen(frozen bool) {
	m.frozen = frozen
	m.line.SetFrozen(frozen)
}

// Frozen reports whether the record head is stopped.
func (m *Machine) Frozen() bool { return m.frozen }

// Reset clears the loop and all filter, motion, and dropout state.
func (m *Machine) Reset() {
	m.line.Reset()
	m.motion.reset()
	for h := 0; h < NumHeads; h++ {
		m.lpState[h] = 0
		m.hpState[h] = 0
		m.bump[h].reset()
		m.dropouts[h].reset()
	}
	m.cachedBaseDelay = -1
}

// Process runs one sample through the transport and returns the three head
// outputs. baseDelaySamples is the head-1 delay; the other heads are scaled
// by HeadRatios. feedback is the caller-maintained previous echo sample.
// wowFlutterAmt and saturationAmt are in [0,1] and clamped.
func (m *Machine) Process(input, baseDelaySamples, feedback, wowFlutterAmt, saturationAmt float64) [NumHeads]float64 {
	wowFlutterAmt = core.Clamp(wowFlutterAmt, 0, 1)
	saturationAmt = core.Clamp(saturationAmt, 0, 1)
	baseDelaySamples = core.Clamp(baseDelaySamples, 1, m.MaxDelaySamples())

	mod := m.motion.next(wowFlutterAmt)

	if math.Abs(baseDelaySamples-m.cachedBaseDelay) > coeffRefreshSamples {
		m.refreshHeadGap(baseDelaySamples)
	}

	// Record head. Saturation is skipped entirely while frozen; the line
	// still advances its cursor so the loop keeps turning.
	if m.frozen {
		m.line.Write(0)
	} else {
		m.line.Write(saturate(input+feedback, saturationAmt))
	}

	var out [NumHeads]float64
	for h := 0; h < NumHeads; h++ {
		d := baseDelaySamples * HeadRatios[h] * (1 + mod)

		raw := m.line.ReadFractional(d)

		// Head-gap loss.
		m.lpState[h] = m.lpState[h]*m.lpCoeff[h] + raw*(1-m.lpCoeff[h])
		raw = m.lpState[h]

		// DC block.
		hp := raw - m.hpState[h]
		m.hpState[h] = core.FlushDenormals(m.hpState[h]*m.hpCoeff + raw*(1-m.hpCoeff))
		raw = hp

		// Head bump.
		raw += m.bump[h].process(raw) * headBumpMix

		// Print-through: faint read one tape layer closer to the record head.
		raw += m.line.ReadFractional(d*printThroughRatio) * m.printGain

		// Dropouts.
		raw *= m.dropouts[h].next()

		out[h] = raw
	}

	// Inter-head crosstalk between physically adjacent heads.
	bled := out
	bled[0] += out[1] * crosstalkGain
	bled[1] += (out[0] + out[2]) * crosstalkGain
	bled[2] += out[1] * crosstalkGain

	return bled
}

func (m *Machine) refreshHeadGap(baseDelaySamples float64) {
	m.cachedBaseDelay = baseDelaySamples

	refDelay := headGapRefDelayMs / 1000.0 * m.sampleRate
	speed := refDelay / baseDelaySamples

	for h := 0; h < NumHeads; h++ {
		cutoff := headGapRefHz * math.Pow(speed, headGapSpeedExp) / math.Pow(HeadRatios[h], headGapHeadExp)
		cutoff = core.Clamp(cutoff, headGapMinHz, 0.45*m.sampleRate)
		m.lpCoeff[h] = math.Exp(-2 * math.Pi * cutoff / m.sampleRate)
	}
}

// resonator is a two-pole bandpass used for the head-bump boost. Poles sit
// at r*e^{±jw0} with the input gain normalised for unity peak gain.
type resonator struct {
	a1, a2, b0 float64
	y1, y2     float64
}

func (r *resonator) init(sampleRate, freqHz, bandwidthHz float64) {
	pole := math.Exp(-math.Pi * bandwidthHz / sampleRate)
	w0 := 2 * math.Pi * freqHz / sampleRate

	r.a1 = 2 * pole * math.Cos(w0)
	r.a2 = -(pole * pole)
	r.b0 = 2 * (1 - pole) * math.Sin(w0)
	r.reset()
}

func (r *resonator) reset() {
	r.y1 = 0
	r.y2 = 0
}

func (r *resonator) process(x float64) float64 {
	y := r.a1*r.y1 + r.a2*r.y2 + x*r.b0
	r.y2 = r.y1
	r.y1 = core.FlushDenormals(y)
	return y
}
