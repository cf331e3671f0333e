package param

import (
	"math"
	"sync/atomic"
)

// Float is a float64 readable and writable from concurrent goroutines
// without locks. The zero value holds 0.
type Float struct {
	bits atomic.Uint64
}

// Store atomically sets the value.
func (f *Float) Store(v float64) {
	f.bits.Store(math.Float64bits(v))
}

// Load atomically reads the value.
func (f *Float) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}
