// Package param provides control-rate parameter handling: linear ramp
// smoothing for click-free automation and lock-free floats for sharing
// values with a UI or control thread.
package param

import "fmt"

const (
	defaultRampMs = 20.0
	minSampleRate = 1.0
)

// Smoother ramps a parameter linearly toward its target over a fixed time
// so abrupt control changes do not click.
type Smoother struct {
	current float64
	target  float64
	step    float64

	rampSamples float64
}

// NewSmoother creates a smoother with a 20 ms ramp time.
func NewSmoother(sampleRate float64) (*Smoother, error) {
	if sampleRate < minSampleRate {
		return nil, fmt.Errorf("param: sample rate must be at least %f: %f", minSampleRate, sampleRate)
	}

	s := &Smoother{rampSamples: defaultRampMs * 0.001 * sampleRate}
	if s.rampSamples < 1 {
		s.rampSamples = 1
	}

	return s, nil
}

// SetTarget sets the value the smoother ramps toward.
func (s *Smoother) SetTarget(v float64) {
	if v == s.target {
		return
	}
	s.target = v
	s.step = (v - s.current) / s.rampSamples
}

// SnapTo jumps to a value immediately, abandoning any ramp in progress.
func (s *Smoother) SnapTo(v float64) {
	s.current = v
	s.target = v
	s.step = 0
}

// Next advances the ramp by one sample and returns the current value.
func (s *Smoother) Next() float64 {
	if s.current == s.target {
		return s.current
	}

	s.current += s.step
	if (s.step > 0 && s.current >= s.target) || (s.step < 0 && s.current <= s.target) {
		s.current = s.target
		s.step = 0
	}

	return s.current
}

// Value returns the current value without advancing the ramp.
func (s *Smoother) Value() float64 {
	return s.current
}

// Target returns the value the smoother is ramping toward.
func (s *Smoother) Target() float64 {
	return s.target
}
