// Package shimmer implements the granular +1 octave pitch shifter that
// drives the rising shimmer feedback on the reverb tail.
package shimmer

import (
	"math"

	"github.com/cwbudde/algo-tape/dsp/interp"
)

const (
	// GrainLength is the grain size in samples (~93 ms at 44.1 kHz), long
	// enough for smooth crossfades.
	GrainLength = 4096

	// bufLength must be a power of two and at least 4x the grain length so
	// a full grain always lies behind the write cursor.
	bufLength = GrainLength * 4
	bufMask   = bufLength - 1

	// Read pointers advance at twice the write rate: one octave up.
	pitchRatio = 2.0

	bypassEps = 0.001
)

// Shifter is a two-grain granular pitch shifter. The grains read the ring
// at twice the write rate; their Hann windows are offset by half a grain so
// one fades in while the other fades out, leaving no silent gap.
type Shifter struct {
	buf   []float64
	write int

	read1 float64
	read2 float64
}

// NewShifter creates a shifter. The algorithm is tuned in samples and has
// no sample-rate dependent state.
func NewShifter() *Shifter {
	s := &Shifter{buf: make([]float64, bufLength)}
	s.Reset()
	return s
}

// Reset clears the ring and rewinds both grains. Grain 2 starts halfway
// through its cycle so the two windows complement each other.
func (s *Shifter) Reset() {
	for i := range s.buf {
		s.buf[i] = 0
	}
	s.write = 0
	s.read1 = -GrainLength
	s.read2 = -GrainLength / 2
}

// ProcessSample feeds one sample and returns the pitch-shifted output
// scaled by amount in [0,1]. Below the bypass threshold the stage returns
// silence without doing any work.
func (s *Shifter) ProcessSample(x, amount float64) float64 {
	if amount < bypassEps {
		return 0
	}

	s.buf[s.write&bufMask] = x

	w := float64(s.write)

	// Window phase runs 0..1 as the read pointer covers (write-GRAIN)..write.
	phase1 := (s.read1 - w + GrainLength) / GrainLength
	phase2 := (s.read2 - w + GrainLength) / GrainLength
	win1 := hann(phase1)
	win2 := hann(phase2)

	out := s.readLinear(s.read1)*win1 + s.readLinear(s.read2)*win2

	s.read1 += pitchRatio
	s.read2 += pitchRatio
	s.write++

	// Once a grain catches up with the write head it restarts a grain
	// length behind it.
	if s.read1 >= float64(s.write) {
		s.read1 = float64(s.write) - GrainLength
	}
	if s.read2 >= float64(s.write) {
		s.read2 = float64(s.write) - GrainLength
	}

	return out * amount
}

func (s *Shifter) readLinear(pos float64) float64 {
	for pos < 0 {
		pos += bufLength
	}

	i0 := int(pos) & bufMask
	i1 := (i0 + 1) & bufMask
	frac := pos - math.Floor(pos)

	return interp.Linear(frac, s.buf[i0], s.buf[i1])
}

func hann(phase float64) float64 {
	if phase < 0 {
		phase = 0
	}
	if phase > 1 {
		phase = 1
	}
	return 0.5 - 0.5*math.Cos(phase*2*math.Pi)
}
