package tape

import (
	"math"

	"github.com/cwbudde/algo-tape/dsp/noise"
)

const (
	dropoutMinIntervalSec = 15.0
	dropoutMaxIntervalSec = 35.0
	dropoutMinHoldMs      = 30.0
	dropoutMaxHoldMs      = 75.0
	dropoutMinGain        = 0.25
	dropoutMaxGain        = 0.50
	dropoutSlewMs         = 8.0
)

// dropout models rare, brief gain dips from tape wear. Each head owns an
// independent PRNG stream so dips never line up across heads or channels.
type dropout struct {
	sampleRate float64
	seed       uint32
	rng        *noise.Xorshift32

	gain   float64
	target float64
	slew   float64

	wait int
	hold int
}

func (d *dropout) init(sampleRate float64, seed uint32) {
	d.sampleRate = sampleRate
	d.seed = seed
	d.rng = noise.NewXorshift32(seed)
	d.slew = 1 - math.Exp(-1/(dropoutSlewMs/1000.0*sampleRate))
	d.reset()
}

func (d *dropout) reset() {
	d.rng.Seed(d.seed)
	d.gain = 1
	d.target = 1
	d.hold = 0
	d.wait = d.randomRange(dropoutMinIntervalSec, dropoutMaxIntervalSec, d.sampleRate)
}

// next advances the state machine one sample and returns the smoothed gain.
func (d *dropout) next() float64 {
	switch {
	case d.hold > 0:
		d.hold--
		if d.hold == 0 {
			d.target = 1
			d.wait = d.randomRange(dropoutMinIntervalSec, dropoutMaxIntervalSec, d.sampleRate)
		}
	case d.wait > 0:
		d.wait--
		if d.wait == 0 {
			d.target = dropoutMinGain + d.rand01()*(dropoutMaxGain-dropoutMinGain)
			d.hold = d.randomRange(dropoutMinHoldMs/1000.0, dropoutMaxHoldMs/1000.0, d.sampleRate)
		}
	}

	d.gain += d.slew * (d.target - d.gain)
	return d.gain
}

func (d *dropout) rand01() float64 {
	return 0.5 * (d.rng.Float() + 1)
}

func (d *dropout) randomRange(minSec, maxSec, sampleRate float64) int {
	sec := minSec + d.rand01()*(maxSec-minSec)
	n := int(sec * sampleRate)
	// At extreme sample rates the duration can round to zero samples, which
	// would leave the state machine with no pending transition.
	if n < 1 {
		n = 1
	}
	return n
}
