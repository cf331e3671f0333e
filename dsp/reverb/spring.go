// Package reverb implements the spring reverb network: pre-delay, parallel
// damped combs, series allpass diffusers, and the mechanical "boing"
// resonator.
package reverb

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-tape/dsp/core"
	"github.com/cwbudde/algo-tape/dsp/delay"
)

const (
	numCombs     = 8
	numAllpasses = 4

	preDelayMs = 8.0

	combOutputScale = 0.7
	allpassFeedback = 0.5

	// setSize maps 0..1 onto this regeneration range; setDamping maps 0..1
	// onto [0, dampRange].
	regenFloor = 0.70
	regenRange = 0.27
	dampRange  = 0.45

	boingFreqHz   = 1200.0
	boingDecaySec = 0.200
	boingMix      = 0.08

	defaultSize    = 0.5
	defaultDamping = 0.5
)

// Spring-tuned, mutually prime comb delays in milliseconds. Shorter than a
// room reverb for the metallic, high-density spring character.
var combTimesMs = [numCombs]float64{
	25.31, 26.94, 28.96, 30.75,
	32.25, 33.84, 35.28, 36.80,
}

var allpassTimesMs = [numAllpasses]float64{5.10, 7.73, 10.00, 12.61}

type springComb struct {
	line   *delay.Line
	length int
	state  float64
}

type springAllpass struct {
	line   *delay.Line
	length int
}

// Spring is a mono spring reverb. Stereo processing uses two instances.
type Spring struct {
	sampleRate float64

	size    float64
	damping float64
	regen   float64
	damp    float64

	preDelay *delay.Line
	preLen   int

	combs     [numCombs]springComb
	allpasses [numAllpasses]springAllpass

	boingA1 float64
	boingA2 float64
	boingB0 float64
	boingY1 float64
	boingY2 float64
}

// NewSpring creates a spring reverb configured for the given sample rate.
func NewSpring(sampleRate float64) (*Spring, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("spring sample rate must be > 0: %f", sampleRate)
	}

	s := &Spring{}
	if err := s.configure(sampleRate); err != nil {
		return nil, err
	}

	s.SetSize(defaultSize)
	s.SetDamping(defaultDamping)
	return s, nil
}

// SetSampleRate reallocates all delay buffers for a new sample rate.
func (s *Spring) SetSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("spring sample rate must be > 0: %f", sampleRate)
	}
	return s.configure(sampleRate)
}

// SetSize sets decay time. The 0..1 input is clamped and mapped to comb
// regeneration in [0.70, 0.97].
func (s *Spring) SetSize(size float64) {
	s.size = core.Clamp(size, 0, 1)
	s.regen = regenFloor + s.size*regenRange
}

// SetDamping sets high-frequency damping. The 0..1 input is clamped and
// mapped to a damping coefficient in [0, 0.45].
func (s *Spring) SetDamping(damping float64) {
	s.damping = core.Clamp(damping, 0, 1)
	s.damp = s.damping * dampRange
}

// SampleRate returns the sample rate in Hz.
func (s *Spring) SampleRate() float64 { return s.sampleRate }

// Size returns the decay control in [0,1].
func (s *Spring) Size() float64 { return s.size }

// Damping returns the damping control in [0,1].
func (s *Spring) Damping() float64 { return s.damping }

// Reset clears all delay and filter state.
func (s *Spring) Reset() {
	s.preDelay.Reset()
	for i := range s.combs {
		s.combs[i].line.Reset()
		s.combs[i].state = 0
	}
	for i := range s.allpasses {
		s.allpasses[i].line.Reset()
	}
	s.boingY1 = 0
	s.boingY2 = 0
}

// ProcessSample runs one sample through the network.
func (s *Spring) ProcessSample(input float64) float64 {
	delayed := s.preDelay.Read(s.preLen)
	s.preDelay.Write(input)

	var combSum float64
	for i := range s.combs {
		c := &s.combs[i]
		d := c.line.Read(c.length)
		c.state = core.FlushDenormals(d*(1-s.damp) + c.state*s.damp)
		c.line.Write(delayed + c.state*s.regen)
		combSum += d
	}
	out := combSum * (1.0 / numCombs) * combOutputScale

	for i := range s.allpasses {
		a := &s.allpasses[i]
		d := a.line.Read(a.length)
		a.line.Write(out + d*allpassFeedback)
		out = d - out*allpassFeedback
	}

	// The boing resonator rings off the pre-delayed input, not the diffused
	// tail, so every transient re-excites the spring.
	boing := s.boingA1*s.boingY1 + s.boingA2*s.boingY2 + delayed*s.boingB0
	s.boingY2 = s.boingY1
	s.boingY1 = core.FlushDenormals(boing)
	out += boing * boingMix

	return out
}

// ProcessInPlace applies the reverb to buf in place.
func (s *Spring) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = s.ProcessSample(buf[i])
	}
}

func (s *Spring) configure(sampleRate float64) error {
	s.sampleRate = sampleRate

	msToSamples := func(ms float64) int {
		return int(ms*0.001*sampleRate) + 1
	}
	newLine := func(length int) (*delay.Line, error) {
		// Integer reads only; the line just needs to cover the loop length.
		return delay.New(length + 8)
	}

	s.preLen = msToSamples(preDelayMs)
	line, err := newLine(s.preLen)
	if err != nil {
		return fmt.Errorf("spring pre-delay: %w", err)
	}
	s.preDelay = line

	for i := range s.combs {
		length := msToSamples(combTimesMs[i])
		line, err := newLine(length)
		if err != nil {
			return fmt.Errorf("spring comb %d: %w", i, err)
		}
		s.combs[i] = springComb{line: line, length: length}
	}

	for i := range s.allpasses {
		length := msToSamples(allpassTimesMs[i])
		line, err := newLine(length)
		if err != nil {
			return fmt.Errorf("spring allpass %d: %w", i, err)
		}
		s.allpasses[i] = springAllpass{line: line, length: length}
	}

	sr := sampleRate
	bandwidth := 1 / (math.Pi * boingDecaySec)
	pole := math.Exp(-math.Pi * bandwidth / sr)
	w0 := 2 * math.Pi * boingFreqHz / sr
	s.boingA1 = 2 * pole * math.Cos(w0)
	s.boingA2 = -(pole * pole)
	s.boingB0 = 2 * (1 - pole) * math.Sin(w0)
	s.boingY1 = 0
	s.boingY2 = 0

	return nil
}
