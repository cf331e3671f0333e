// Package delay implements the circular delay line shared by the tape,
// reverb, and shimmer stages.
package delay

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-tape/dsp/interp"
)

// interpMargin keeps the four Hermite taps behind the write cursor.
const interpMargin = 4

// Line is a circular delay line with fractional-position reads.
//
// When frozen, Write advances the cursor without storing new samples, so the
// buffer content loops indefinitely while reads continue to sweep through it.
type Line struct {
	buffer   []float64
	writePos int
	frozen   bool
}

// New returns a delay line of fixed size. The size must leave room for the
// interpolation margin.
func New(size int) (*Line, error) {
	if size < 2*interpMargin {
		return nil, fmt.Errorf("delay size must be >= %d: %d", 2*interpMargin, size)
	}
	return &Line{buffer: make([]float64, size)}, nil
}

// Len returns internal buffer size.
func (d *Line) Len() int {
	return len(d.buffer)
}

// MaxDelay returns the largest delay ReadFractional accepts.
func (d *Line) MaxDelay() float64 {
	return float64(len(d.buffer) - interpMargin)
}

// SetFrozen stops or resumes the write head. While frozen the cursor still
// advances so existing content keeps looping under the read taps.
func (d *Line) SetFrozen(frozen bool) {
	d.frozen = frozen
}

// Frozen reports whether the write head is stopped.
func (d *Line) Frozen() bool {
	return d.frozen
}

// Write stores one sample at the cursor and advances it. While frozen the
// sample is discarded but the cursor still advances.
func (d *Line) Write(sample float64) {
	if !d.frozen {
		d.buffer[d.writePos] = sample
	}
	d.writePos++
	if d.writePos >= len(d.buffer) {
		d.writePos = 0
	}
}

// Read reads an integer delay in samples. Read(1) returns the most recently
// written sample.
func (d *Line) Read(delay int) float64 {
	size := len(d.buffer)
	readPos := d.writePos - delay
	for readPos < 0 {
		readPos += size
	}
	return d.buffer[readPos]
}

// ReadFractional reads with cubic Hermite interpolation. The delay is
// clamped to [1, size-4] so all four taps stay behind the write cursor.
func (d *Line) ReadFractional(delay float64) float64 {
	maxDelay := float64(len(d.buffer) - interpMargin)
	if delay < 1 {
		delay = 1
	}
	if delay > maxDelay {
		delay = maxDelay
	}

	p := int(math.Floor(delay))
	t := delay - float64(p)

	xm1 := d.Read(p - 1)
	x0 := d.Read(p)
	x1 := d.Read(p + 1)
	x2 := d.Read(p + 2)
	return interp.Hermite4(t, xm1, x0, x1, x2)
}

// Reset clears line state. The frozen flag is left as set.
func (d *Line) Reset() {
	for i := range d.buffer {
		d.buffer[i] = 0
	}
	d.writePos = 0
}
