package engine

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-tape/dsp/spectrum"
	"github.com/cwbudde/algo-tape/internal/testutil"
)

const testSampleRate = 44100.0

func quietParams() Params {
	p := DefaultParams()
	p.TapeNoise = 0
	return p
}

func TestNewRejectsBadSampleRate(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("New(0): expected error")
	}
	if _, err := New(-44100); err == nil {
		t.Fatal("New(-44100): expected error")
	}
}

func TestZeroHeadModeEchoIsZero(t *testing.T) {
	e, err := New(testSampleRate)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p := quietParams()
	p.Mode = 11 // reverb only, no heads
	p.ReverbLevel = 0

	// Settle the reverb level ramp at zero before probing.
	warm := make([]float64, 2048)
	e.ProcessBlock(warm, nil, p)

	in := testutil.Sine(440, testSampleRate, 0.5, 1024)
	left := make([]float64, len(in))
	copy(left, in)

	e.ProcessBlock(left, nil, p)

	for i := range left {
		want := softClip(in[i] * p.InputGain)
		if math.Abs(left[i]-want) > 1e-12 {
			t.Fatalf("sample %d: got %g, want %g (dry path only)", i, left[i], want)
		}
	}
}

func TestDecaysToSilence(t *testing.T) {
	e, err := New(testSampleRate)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p := quietParams()
	p.Mode = 10 // all heads + reverb
	p.Shimmer = 0.5

	block := make([]float64, 512)
	block[0] = 1
	right := make([]float64, 512)
	right[0] = 1
	e.ProcessBlock(block, right, p)

	seconds := 20.0
	blocks := int(seconds * testSampleRate / 512)
	for b := 0; b < blocks; b++ {
		for i := range block {
			block[i] = 0
			right[i] = 0
		}
		e.ProcessBlock(block, right, p)
	}

	if level := testutil.MeanAbs(block); level > 1e-4 {
		t.Fatalf("output level after %.0f s of silence: got %g, want <= 1e-4", seconds, level)
	}
}

func TestSoftLimiterCeiling(t *testing.T) {
	e, err := New(testSampleRate)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p := quietParams()
	p.InputGain = 1
	p.Mode = 6

	ceiling := 1/0.9 + 1e-9
	left := make([]float64, 4096)
	right := make([]float64, 4096)
	for i := range left {
		left[i] = 100 * math.Sin(float64(i)*0.03)
		right[i] = left[i]
	}

	e.ProcessBlock(left, right, p)

	testutil.RequireFinite(t, left)
	testutil.RequireFinite(t, right)

	if peak := testutil.MaxAbs(left); peak > ceiling {
		t.Fatalf("limited output peak: got %f, want <= %f", peak, ceiling)
	}
}

func TestEchoAppearsAtHeadOffset(t *testing.T) {
	e, err := New(testSampleRate)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p := quietParams()
	p.Mode = 0 // head 1 only
	p.RepeatRateMs = 100
	p.Intensity = 0
	p.WowFlutter = 0
	p.Saturation = 0
	p.EchoLevel = 1
	p.ReverbLevel = 0

	// Let the parameter ramps settle before the probe.
	warm := make([]float64, 4096)
	e.ProcessBlock(warm, nil, p)

	out := make([]float64, 8192)
	out[0] = 1
	e.ProcessBlock(out, nil, p)

	wantOffset := int(p.RepeatRateMs * 0.001 * testSampleRate)

	peakPos := 0
	peakMag := 0.0
	for i := 100; i < len(out); i++ {
		if a := math.Abs(out[i]); a > peakMag {
			peakMag = a
			peakPos = i
		}
	}

	if peakMag < 1e-3 {
		t.Fatalf("no echo found (peak %g)", peakMag)
	}
	if diff := peakPos - wantOffset; diff < -10 || diff > 10 {
		t.Fatalf("echo offset: got %d, want %d +/- 10", peakPos, wantOffset)
	}
}

func TestEchoSurvivesLowSampleRate(t *testing.T) {
	// 4 kHz puts the 3 kHz treble shelf above Nyquist; the design fails and
	// the treble band must fall back to a flat response, not mute the echo.
	const rate = 4000.0
	e, err := New(rate)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p := quietParams()
	p.Mode = 0 // head 1 only
	p.RepeatRateMs = 100
	p.Intensity = 0
	p.WowFlutter = 0
	p.Saturation = 0
	p.EchoLevel = 1
	p.ReverbLevel = 0

	warm := make([]float64, 2048)
	e.ProcessBlock(warm, nil, p)

	out := make([]float64, 2048)
	out[0] = 1
	e.ProcessBlock(out, nil, p)

	wantOffset := int(p.RepeatRateMs * 0.001 * rate)

	peakPos := 0
	peakMag := 0.0
	for i := 50; i < len(out); i++ {
		if a := math.Abs(out[i]); a > peakMag {
			peakMag = a
			peakPos = i
		}
	}

	if peakMag < 1e-3 {
		t.Fatalf("echo path silent at %v Hz (peak %g)", rate, peakMag)
	}
	if diff := peakPos - wantOffset; diff < -10 || diff > 10 {
		t.Fatalf("echo offset: got %d, want %d +/- 10", peakPos, wantOffset)
	}
}

func TestPingPongCrossFeedsRight(t *testing.T) {
	p := quietParams()
	p.Mode = 0
	p.RepeatRateMs = 100
	p.Intensity = 0.5
	p.ReverbLevel = 0

	render := func(pingpong bool) []float64 {
		e, err := New(testSampleRate)
		if err != nil {
			t.Fatalf("New: %v", err)
		}

		p.PingPong = pingpong

		left := make([]float64, 22050)
		left[0] = 1
		right := make([]float64, 22050)
		e.ProcessBlock(left, right, p)
		return right
	}

	if peak := testutil.MaxAbs(render(false)); peak > 1e-9 {
		t.Fatalf("straight feedback: right channel peak %g, want silence", peak)
	}
	if peak := testutil.MaxAbs(render(true)); peak < 1e-4 {
		t.Fatalf("ping-pong: right channel peak %g, want audible cross-feed", peak)
	}
}

func TestScopeRingAdvances(t *testing.T) {
	e, err := New(testSampleRate)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	block := testutil.Sine(440, testSampleRate, 0.5, ScopeSize+37)
	e.ProcessBlock(block, nil, quietParams())

	dst := make([]float64, ScopeSize)
	pos := e.Scope(dst)

	if want := (ScopeSize + 37) % ScopeSize; pos != want {
		t.Fatalf("scope write index: got %d, want %d", pos, want)
	}
	testutil.RequireFinite(t, dst)

	if testutil.MaxAbs(dst) == 0 {
		t.Fatal("scope buffer is empty after processing a signal")
	}
}

func TestMetering(t *testing.T) {
	e, err := New(testSampleRate)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p := quietParams()
	block := make([]float64, 1024)
	for i := range block {
		block[i] = 0.5
	}

	e.ProcessBlock(block, nil, p)

	if got, want := e.InputLevel(), 0.5*p.InputGain; math.Abs(got-want) > 1e-9 {
		t.Fatalf("input level: got %f, want %f", got, want)
	}
	if e.OutputLevel() <= 0 {
		t.Fatalf("output level: got %f, want > 0", e.OutputLevel())
	}
	if peak := e.PeakLevel(); peak <= 0 || peak > 1/0.9+1e-9 {
		t.Fatalf("peak level out of range: %f", peak)
	}
}

func TestTestToneProducesOutput(t *testing.T) {
	e, err := New(testSampleRate)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	e.SetTestTone(true)
	if !e.TestTone() {
		t.Fatal("TestTone: got false after SetTestTone(true)")
	}

	block := make([]float64, 4096)
	e.ProcessBlock(block, nil, quietParams())

	if testutil.MaxAbs(block) < 1e-3 {
		t.Fatalf("test tone output peak %g, want audible tone", testutil.MaxAbs(block))
	}
}

func TestToneChordFrequencies(t *testing.T) {
	e, err := New(testSampleRate)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	e.SetTestTone(true)

	p := quietParams()
	p.EchoLevel = 0
	p.ReverbLevel = 0
	p.Intensity = 0

	// Settle the level ramps, then capture the bare tone.
	warm := make([]float64, 2048)
	e.ProcessBlock(warm, nil, p)

	block := make([]float64, 16384)
	e.ProcessBlock(block, nil, p)

	tonePower := func(freqHz float64) float64 {
		power, err := spectrum.AnalyzeBlock(block, freqHz, testSampleRate)
		if err != nil {
			t.Fatalf("AnalyzeBlock(%f): %v", freqHz, err)
		}
		return power
	}

	low := tonePower(440)
	high := tonePower(554)
	off := tonePower(1800)

	if low <= off*10 || high <= off*10 {
		t.Fatalf("chord not detected: 440 Hz %g, 554 Hz %g, off-tone %g", low, high, off)
	}
	if low <= high {
		t.Fatalf("tone weighting: 440 Hz power %g should exceed 554 Hz power %g", low, high)
	}
}

func TestResetRestoresDeterminism(t *testing.T) {
	e, err := New(testSampleRate)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p := DefaultParams()
	p.Mode = 10
	p.Shimmer = 0.3

	in := testutil.Sine(220, testSampleRate, 0.5, 8192)

	first := make([]float64, len(in))
	copy(first, in)
	e.ProcessBlock(first, nil, p)

	e.Reset()

	second := make([]float64, len(in))
	copy(second, in)
	e.ProcessBlock(second, nil, p)

	testutil.RequireSliceNearlyEqual(t, second, first, 0)
}

func TestParamsClampedNotErrored(t *testing.T) {
	e, err := New(testSampleRate)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p := Params{
		InputGain:    5,
		RepeatRateMs: -100,
		Intensity:    2,
		BassDB:       99,
		TrebleDB:     -99,
		EchoLevel:    3,
		ReverbLevel:  -1,
		WowFlutter:   7,
		Saturation:   -2,
		Mode:         42,
		TapeNoise:    -5,
		Shimmer:      9,
	}

	block := testutil.Sine(440, testSampleRate, 0.5, 2048)
	e.ProcessBlock(block, nil, p)

	testutil.RequireFinite(t, block)
	if peak := testutil.MaxAbs(block); peak > 1/0.9+1e-9 {
		t.Fatalf("output peak with wild parameters: got %f, want limited", peak)
	}
}
