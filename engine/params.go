package engine

import "github.com/cwbudde/algo-tape/dsp/core"

// Parameter ranges. Values outside these bounds are clamped before use,
// never reported as errors, since the processing path must not fail.
const (
	minRepeatRateMs = 20.0
	maxRepeatRateMs = 500.0
	maxIntensity    = 0.95
	maxShelfDB      = 12.0
)

// Params is the per-block parameter snapshot consumed by ProcessBlock.
// The control side fills one in and hands it over by value; the engine
// clamps every field to its declared range.
type Params struct {
	InputGain    float64 // 0..1
	RepeatRateMs float64 // 20..500, base echo delay in milliseconds
	Intensity    float64 // 0..0.95, feedback amount
	BassDB       float64 // -12..+12, feedback path low shelf
	TrebleDB     float64 // -12..+12, feedback path high shelf
	EchoLevel    float64 // 0..1
	ReverbLevel  float64 // 0..1
	WowFlutter   float64 // 0..1
	Saturation   float64 // 0..1
	Mode         int     // 0..11, index into the mode table
	TapeNoise    float64 // 0..1
	Shimmer      float64 // 0..1
	Freeze       bool
	PingPong     bool
}

// DefaultParams returns the factory settings.
func DefaultParams() Params {
	return Params{
		InputGain:    0.70,
		RepeatRateMs: 150,
		Intensity:    0.40,
		EchoLevel:    0.70,
		ReverbLevel:  0.50,
		WowFlutter:   0.30,
		Saturation:   0.30,
		TapeNoise:    0.15,
	}
}

func (p Params) clamped() Params {
	p.InputGain = core.Clamp(p.InputGain, 0, 1)
	p.RepeatRateMs = core.Clamp(p.RepeatRateMs, minRepeatRateMs, maxRepeatRateMs)
	p.Intensity = core.Clamp(p.Intensity, 0, maxIntensity)
	p.BassDB = core.Clamp(p.BassDB, -maxShelfDB, maxShelfDB)
	p.TrebleDB = core.Clamp(p.TrebleDB, -maxShelfDB, maxShelfDB)
	p.EchoLevel = core.Clamp(p.EchoLevel, 0, 1)
	p.ReverbLevel = core.Clamp(p.ReverbLevel, 0, 1)
	p.WowFlutter = core.Clamp(p.WowFlutter, 0, 1)
	p.Saturation = core.Clamp(p.Saturation, 0, 1)
	p.TapeNoise = core.Clamp(p.TapeNoise, 0, 1)
	p.Shimmer = core.Clamp(p.Shimmer, 0, 1)

	if p.Mode < 0 {
		p.Mode = 0
	}
	if p.Mode >= NumModes {
		p.Mode = NumModes - 1
	}

	return p
}
