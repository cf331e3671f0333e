package noise

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-tape/internal/testutil"
)

func TestXorshift32Deterministic(t *testing.T) {
	a := NewXorshift32(42)
	b := NewXorshift32(42)
	for i := 0; i < 1000; i++ {
		if a.Next() != b.Next() {
			t.Fatalf("streams diverged at step %d", i)
		}
	}
}

func TestXorshift32ZeroSeedReplaced(t *testing.T) {
	r := NewXorshift32(0)
	if r.Next() == 0 {
		t.Fatal("zero seed produced a stuck stream")
	}
}

func TestXorshift32FloatRange(t *testing.T) {
	r := NewXorshift32(7)
	for i := 0; i < 10000; i++ {
		v := r.Float()
		if v < -1 || v >= 1 {
			t.Fatalf("sample %d out of [-1,1): %v", i, v)
		}
	}
}

func TestIndependentStreamsDiffer(t *testing.T) {
	a := NewXorshift32(0xDEAD1337)
	b := NewXorshift32(0xBEEF2026)
	same := 0
	for i := 0; i < 1000; i++ {
		if a.Next() == b.Next() {
			same++
		}
	}
	if same > 0 {
		t.Fatalf("differently seeded streams collided %d times", same)
	}
}

func TestHissBypassBelowThreshold(t *testing.T) {
	h, err := NewHiss(44100)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 100; i++ {
		if got := h.ProcessSample(0.0005); got != 0 {
			t.Fatalf("sample %d: got %v, want 0 at bypass amount", i, got)
		}
	}
}

func TestHissAmplitudeScalesWithAmount(t *testing.T) {
	low, err := NewHiss(44100)
	if err != nil {
		t.Fatal(err)
	}
	high, err := NewHiss(44100)
	if err != nil {
		t.Fatal(err)
	}

	const n = 44100
	var lowAcc, highAcc float64
	for i := 0; i < n; i++ {
		lowAcc += math.Abs(low.ProcessSample(0.1))
		highAcc += math.Abs(high.ProcessSample(0.8))
	}
	if highAcc <= lowAcc*2 {
		t.Fatalf("amount scaling too weak: low=%v high=%v", lowAcc, highAcc)
	}
}

func TestHissIsBandLimited(t *testing.T) {
	const (
		sampleRate = 44100.0
		fftLen     = 16384
	)

	h, err := NewHiss(sampleRate)
	if err != nil {
		t.Fatal(err)
	}

	// Let filters settle, then capture a window.
	for i := 0; i < 4096; i++ {
		h.ProcessSample(1)
	}
	out := make([]float64, fftLen)
	for i := range out {
		out[i] = h.ProcessSample(1)
	}

	// Mean power per bin, so bands of different widths compare fairly.
	power := func(loHz, hiHz float64) float64 {
		bins := (hiHz - loHz) * fftLen / sampleRate
		return testutil.BandPower(t, out, sampleRate, loHz, hiHz) / bins
	}

	band := power(400, 6000)
	rumble := power(1, 40)
	crackle := power(16000, 21000)

	if band <= rumble*3 {
		t.Fatalf("low band not attenuated: band=%v rumble=%v", band, rumble)
	}
	if band <= crackle*3 {
		t.Fatalf("high band not attenuated: band=%v crackle=%v", band, crackle)
	}
}

func TestHissSeedReproducible(t *testing.T) {
	h, err := NewHiss(48000)
	if err != nil {
		t.Fatal(err)
	}

	h.SetSeed(99)
	first := make([]float64, 256)
	for i := range first {
		first[i] = h.ProcessSample(0.5)
	}

	h.SetSeed(99)
	for i := range first {
		if got := h.ProcessSample(0.5); got != first[i] {
			t.Fatalf("sample %d differs after reseed: got %v, want %v", i, got, first[i])
		}
	}
}

func TestHissRejectsBadSampleRate(t *testing.T) {
	if _, err := NewHiss(0); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
	if _, err := NewHiss(math.NaN()); err == nil {
		t.Fatal("expected error for NaN sample rate")
	}
}
