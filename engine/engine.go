// Package engine wires the tape, reverb, noise and shimmer stages into
// the per-sample signal router of a stereo tape echo. The processing path
// is allocation-free; parameters arrive as a per-block snapshot and are
// ramped at audio rate to avoid zipper noise.
package engine

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-tape/dsp/core"
	"github.com/cwbudde/algo-tape/dsp/filter/biquad"
	"github.com/cwbudde/algo-tape/dsp/filter/design/shelving"
	"github.com/cwbudde/algo-tape/dsp/noise"
	"github.com/cwbudde/algo-tape/dsp/param"
	"github.com/cwbudde/algo-tape/dsp/reverb"
	"github.com/cwbudde/algo-tape/dsp/shimmer"
	"github.com/cwbudde/algo-tape/dsp/tape"
	"github.com/cwbudde/algo-vecmath"
)

// ScopeSize is the capacity of the oscilloscope ring buffer.
const ScopeSize = 512

const (
	minSampleRate = 1.0

	// Right channel decorrelation: wow oscillator phase offset and a
	// distinct hiss seed so the channels do not track each other.
	rightWowSeedPhase = 0.37
	rightHissSeed     = 0x51AB3C7D

	// Feedback path: a little echo bleeds into the reverb feed, and the
	// pitch-shifted reverb return is attenuated below unity to keep the
	// shimmer loop bounded.
	echoBleed           = 0.15
	shimmerFeedbackGain = 0.8

	// Tone stack on the echo feedback path.
	bassShelfHz   = 200.0
	trebleShelfHz = 3000.0
	shelfQ        = 0.7

	// Spring voicing, fixed for now.
	springSize    = 0.65
	springDamping = 0.35

	softClipDrive = 0.9

	// Self-test tone: a two-tone pulse retriggered every 1.5 s with a
	// 4-sample attack and an exponential decay.
	toneLowHz         = 440.0
	toneHighHz        = 554.0
	tonePulseSeconds  = 1.5
	toneAttackSamples = 4.0
	toneDecayRate     = 5.0
	toneLowWeight     = 0.6
	toneHighWeight    = 0.4
	toneLevel         = 0.4
)

// eqSentinelDB forces the first updateEQ call to rebuild coefficients.
const eqSentinelDB = 9999.0

type channel struct {
	tape    *tape.Machine
	spring  *reverb.Spring
	hiss    *noise.Hiss
	shifter *shimmer.Shifter
	bass    *biquad.Section
	treble  *biquad.Section

	hissSeed uint32

	feedback float64
	shimFeed float64
}

func (c *channel) reset() {
	c.tape.Reset()
	c.spring.Reset()
	c.hiss.SetSeed(c.hissSeed)
	c.shifter.Reset()
	c.bass.Reset()
	c.treble.Reset()
	c.feedback = 0
	c.shimFeed = 0
}

// Engine is the stereo signal router. One goroutine drives ProcessBlock;
// a control goroutine may set the test tone and read the meters and the
// oscilloscope concurrently.
type Engine struct {
	sampleRate float64

	left  channel
	right channel

	smInputGain   *param.Smoother
	smIntensity   *param.Smoother
	smEchoLevel   *param.Smoother
	smReverbLevel *param.Smoother
	smWowFlutter  *param.Smoother
	smSaturation  *param.Smoother
	smTapeNoise   *param.Smoother
	smShimmer     *param.Smoother

	cachedBassDB   float64
	cachedTrebleDB float64

	toneEnabled atomic.Bool
	toneTrigger float64
	tonePhase1  float64
	tonePhase2  float64

	// Scope samples are written by the audio goroutine only; readers
	// tolerate slightly stale values, so the index is the only atomic.
	scope    [ScopeSize]float64
	scopePos atomic.Int64

	inputLevel  param.Float
	outputLevel param.Float
	peakLevel   param.Float
}

// New creates an engine prepared for the given sample rate.
func New(sampleRate float64) (*Engine, error) {
	e := &Engine{}
	if err := e.configure(sampleRate); err != nil {
		return nil, err
	}

	return e, nil
}

// SampleRate returns the configured sample rate.
func (e *Engine) SampleRate() float64 { return e.sampleRate }

// SetSampleRate reconfigures every stage for a new sample rate. All
// buffers are reallocated and all state is cleared. Must not be called
// concurrently with ProcessBlock.
func (e *Engine) SetSampleRate(sampleRate float64) error {
	return e.configure(sampleRate)
}

func (e *Engine) configure(sampleRate float64) error {
	if sampleRate < minSampleRate {
		return fmt.Errorf("engine sample rate must be at least %f: %f", minSampleRate, sampleRate)
	}

	var err error
	if e.left, err = newChannel(sampleRate, 0, 0); err != nil {
		return err
	}
	if e.right, err = newChannel(sampleRate, rightWowSeedPhase, rightHissSeed); err != nil {
		return err
	}

	defaults := DefaultParams()
	smoothers := []struct {
		sm      **param.Smoother
		initial float64
	}{
		{&e.smInputGain, defaults.InputGain},
		{&e.smIntensity, defaults.Intensity},
		{&e.smEchoLevel, defaults.EchoLevel},
		{&e.smReverbLevel, defaults.ReverbLevel},
		{&e.smWowFlutter, defaults.WowFlutter},
		{&e.smSaturation, defaults.Saturation},
		{&e.smTapeNoise, defaults.TapeNoise},
		{&e.smShimmer, defaults.Shimmer},
	}
	for _, s := range smoothers {
		sm, err := param.NewSmoother(sampleRate)
		if err != nil {
			return err
		}
		sm.SnapTo(s.initial)
		*s.sm = sm
	}

	e.sampleRate = sampleRate
	e.cachedBassDB = eqSentinelDB
	e.cachedTrebleDB = eqSentinelDB
	e.updateEQ(0, 0)

	e.toneTrigger = 0
	e.tonePhase1 = 0
	e.tonePhase2 = 0
	e.scope = [ScopeSize]float64{}
	e.scopePos.Store(0)

	return nil
}

func newChannel(sampleRate, wowSeedPhase float64, hissSeed uint32) (channel, error) {
	var c channel
	var err error

	if c.tape, err = tape.NewMachine(sampleRate, wowSeedPhase); err != nil {
		return channel{}, err
	}
	if c.spring, err = reverb.NewSpring(sampleRate); err != nil {
		return channel{}, err
	}
	if c.hiss, err = noise.NewHiss(sampleRate); err != nil {
		return channel{}, err
	}
	c.hissSeed = hissSeed
	c.hiss.SetSeed(hissSeed)

	c.shifter = shimmer.NewShifter()
	c.bass = biquad.NewSection(biquad.Identity())
	c.treble = biquad.NewSection(biquad.Identity())

	c.spring.SetSize(springSize)
	c.spring.SetDamping(springDamping)

	return c, nil
}

// Reset clears all audio state while keeping the configuration.
func (e *Engine) Reset() {
	e.left.reset()
	e.right.reset()

	e.toneTrigger = 0
	e.tonePhase1 = 0
	e.tonePhase2 = 0
	e.scope = [ScopeSize]float64{}
	e.scopePos.Store(0)

	e.inputLevel.Store(0)
	e.outputLevel.Store(0)
	e.peakLevel.Store(0)
}

// updateEQ rebuilds the shelving coefficients only when the gains change.
func (e *Engine) updateEQ(bassDB, trebleDB float64) {
	if bassDB == e.cachedBassDB && trebleDB == e.cachedTrebleDB {
		return
	}

	e.cachedBassDB = bassDB
	e.cachedTrebleDB = trebleDB

	// At very low sample rates a shelf corner can sit above Nyquist and the
	// design fails; that band degrades to a flat response, never to silence.
	low, err := shelving.LowShelf(e.sampleRate, bassShelfHz, bassDB, shelfQ)
	if err != nil {
		low = biquad.Identity()
	}
	high, err := shelving.HighShelf(e.sampleRate, trebleShelfHz, trebleDB, shelfQ)
	if err != nil {
		high = biquad.Identity()
	}

	e.left.bass.SetCoefficients(low)
	e.right.bass.SetCoefficients(low)
	e.left.treble.SetCoefficients(high)
	e.right.treble.SetCoefficients(high)
}

// SetTestTone enables or disables the self-test reference tone. Safe to
// call from a control goroutine while audio is running.
func (e *Engine) SetTestTone(on bool) {
	e.toneEnabled.Store(on)
}

// TestTone reports whether the self-test tone is enabled.
func (e *Engine) TestTone() bool {
	return e.toneEnabled.Load()
}

// InputLevel returns the mean absolute input level of the last block.
func (e *Engine) InputLevel() float64 { return e.inputLevel.Load() }

// OutputLevel returns the mean absolute output level of the last block.
func (e *Engine) OutputLevel() float64 { return e.outputLevel.Load() }

// PeakLevel returns the peak absolute output level of the last block.
func (e *Engine) PeakLevel() float64 { return e.peakLevel.Load() }

// Scope copies the oscilloscope ring into dst and returns the current
// write index. dst should hold ScopeSize samples.
func (e *Engine) Scope(dst []float64) int {
	copy(dst, e.scope[:])
	return int(e.scopePos.Load())
}

// ProcessBlock runs the router over one block in place. right may be nil
// for mono input, in which case the left buffer receives the right
// channel's render, matching a mono bus. Both slices must have the same
// length when right is non-nil.
func (e *Engine) ProcessBlock(left, right []float64, p Params) {
	if len(left) == 0 {
		return
	}

	p = p.clamped()

	if right == nil {
		right = left
	}

	mc := modeTable[p.Mode]
	numHeads := mc.ActiveHeads()

	e.updateEQ(p.BassDB, p.TrebleDB)
	e.left.tape.SetFrozen(p.Freeze)
	e.right.tape.SetFrozen(p.Freeze)

	e.smInputGain.SetTarget(p.InputGain)
	e.smIntensity.SetTarget(p.Intensity)
	e.smEchoLevel.SetTarget(p.EchoLevel)
	e.smReverbLevel.SetTarget(p.ReverbLevel)
	e.smWowFlutter.SetTarget(p.WowFlutter)
	e.smSaturation.SetTarget(p.Saturation)
	e.smTapeNoise.SetTarget(p.TapeNoise)
	e.smShimmer.SetTarget(p.Shimmer)

	baseDelay := p.RepeatRateMs * 0.001 * e.sampleRate

	toneOn := e.toneEnabled.Load()
	pulseLen := tonePulseSeconds * e.sampleRate

	scopePos := int(e.scopePos.Load())

	var inAcc, outAcc float64

	for i := range left {
		gain := e.smInputGain.Next()
		intensity := e.smIntensity.Next()
		echoLevel := e.smEchoLevel.Next()
		reverbLevel := e.smReverbLevel.Next()
		wowFlutter := e.smWowFlutter.Next()
		saturation := e.smSaturation.Next()
		noiseAmt := e.smTapeNoise.Next()
		shimmerAmt := e.smShimmer.Next()

		inL := left[i] * gain
		inR := right[i] * gain

		if toneOn {
			tone := e.nextToneSample(pulseLen)
			inL += tone
			inR += tone
		}

		inL += e.left.hiss.ProcessSample(noiseAmt)
		inR += e.right.hiss.ProcessSample(noiseAmt)

		inAcc += math.Abs(inL)

		headsL := e.left.tape.Process(inL, baseDelay, e.left.feedback, wowFlutter, saturation)
		headsR := e.right.tape.Process(inR, baseDelay, e.right.feedback, wowFlutter, saturation)

		var echoL, echoR float64
		for h := 0; h < tape.NumHeads; h++ {
			if mc.Heads[h] {
				echoL += headsL[h]
				echoR += headsR[h]
			}
		}
		if numHeads > 0 {
			echoL /= float64(numHeads)
			echoR /= float64(numHeads)
		}

		echoL = e.left.treble.ProcessSample(e.left.bass.ProcessSample(echoL))
		echoR = e.right.treble.ProcessSample(e.right.bass.ProcessSample(echoR))

		if p.PingPong {
			e.left.feedback = core.FlushDenormals(echoR * intensity)
			e.right.feedback = core.FlushDenormals(echoL * intensity)
		} else {
			e.left.feedback = core.FlushDenormals(echoL * intensity)
			e.right.feedback = core.FlushDenormals(echoR * intensity)
		}

		var revL, revR float64
		if mc.Reverb {
			revL = e.left.spring.ProcessSample(inL + echoL*echoBleed + e.left.shimFeed)
			revR = e.right.spring.ProcessSample(inR + echoR*echoBleed + e.right.shimFeed)

			e.left.shimFeed = e.left.shifter.ProcessSample(revL, shimmerAmt) * shimmerFeedbackGain
			e.right.shimFeed = e.right.shifter.ProcessSample(revR, shimmerAmt) * shimmerFeedbackGain
		} else {
			e.left.shimFeed = 0
			e.right.shimFeed = 0
		}

		outL := softClip(inL + echoL*echoLevel + revL*reverbLevel)
		outR := softClip(inR + echoR*echoLevel + revR*reverbLevel)

		left[i] = outL
		right[i] = outR
		outAcc += math.Abs(outL)

		e.scope[scopePos] = outL
		scopePos = (scopePos + 1) % ScopeSize
	}

	e.scopePos.Store(int64(scopePos))

	inv := 1.0 / float64(len(left))
	e.inputLevel.Store(inAcc * inv)
	e.outputLevel.Store(outAcc * inv)
	e.peakLevel.Store(vecmath.MaxAbs(left))
}

// nextToneSample advances the two-tone calibration pulse by one sample.
func (e *Engine) nextToneSample(pulseLen float64) float64 {
	e.toneTrigger++
	if e.toneTrigger >= pulseLen {
		e.toneTrigger = 0
		e.tonePhase1 = 0
		e.tonePhase2 = 0
	}

	env := math.Exp(-toneDecayRate * e.toneTrigger / e.sampleRate)
	if e.toneTrigger < toneAttackSamples {
		env = e.toneTrigger / toneAttackSamples
	}

	s1 := math.Sin(e.tonePhase1 * 2 * math.Pi)
	s2 := math.Sin(e.tonePhase2 * 2 * math.Pi)

	e.tonePhase1 += toneLowHz / e.sampleRate
	if e.tonePhase1 >= 1 {
		e.tonePhase1--
	}
	e.tonePhase2 += toneHighHz / e.sampleRate
	if e.tonePhase2 >= 1 {
		e.tonePhase2--
	}

	return (s1*toneLowWeight + s2*toneHighWeight) * env * toneLevel
}

// softClip is a transparent limiter: near unity below full scale, with a
// hard ceiling of tanh(inf)/0.9 at extreme levels.
func softClip(x float64) float64 {
	return tanhShape(x*softClipDrive) / softClipDrive
}
