package wavio

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineChannel(freqHz float64, sampleRate, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / float64(sampleRate)
	for i := range out {
		out[i] = 0.5 * math.Sin(step*float64(i))
	}
	return out
}

func TestRoundTripStereo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")

	orig := &File{
		SampleRate: 44100,
		BitDepth:   16,
		Channels: [][]float64{
			sineChannel(440, 44100, 4096),
			sineChannel(220, 44100, 4096),
		},
	}

	require.NoError(t, Write(path, orig))

	got, err := Read(path)
	require.NoError(t, err)

	assert.Equal(t, orig.SampleRate, got.SampleRate)
	assert.Equal(t, orig.BitDepth, got.BitDepth)
	require.Len(t, got.Channels, 2)
	require.Equal(t, orig.NumFrames(), got.NumFrames())

	// 16-bit quantization allows one LSB of error.
	eps := 1.0 / 32767
	for ch := range orig.Channels {
		for i := range orig.Channels[ch] {
			assert.InDelta(t, orig.Channels[ch][i], got.Channels[ch][i], eps,
				"channel %d sample %d", ch, i)
		}
	}
}

func TestRoundTripMono24Bit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono.wav")

	orig := &File{
		SampleRate: 48000,
		BitDepth:   24,
		Channels:   [][]float64{sineChannel(1000, 48000, 2048)},
	}

	require.NoError(t, Write(path, orig))

	got, err := Read(path)
	require.NoError(t, err)

	require.Len(t, got.Channels, 1)
	eps := 1.0 / 8388607
	for i := range orig.Channels[0] {
		assert.InDelta(t, orig.Channels[0][i], got.Channels[0][i], eps)
	}
}

func TestRoundTripMono8BitUnsigned(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono8.wav")

	sine := sineChannel(440, 44100, 2048)
	orig := &File{
		SampleRate: 44100,
		BitDepth:   8,
		Channels:   [][]float64{sine},
	}

	require.NoError(t, Write(path, orig))

	got, err := Read(path)
	require.NoError(t, err)

	require.Len(t, got.Channels, 1)
	eps := 1.0 / 127
	for i := range sine {
		assert.InDelta(t, sine[i], got.Channels[0][i], eps)
	}

	// 8-bit PCM is unsigned with silence at 128; decoded audio must carry
	// no DC bias.
	var mean float64
	for _, v := range got.Channels[0] {
		mean += v
	}
	mean /= float64(len(got.Channels[0]))
	assert.InDelta(t, 0.0, mean, eps)
}

func TestWriteClipsOutOfRangeSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hot.wav")

	orig := &File{
		SampleRate: 44100,
		BitDepth:   16,
		Channels:   [][]float64{{2.0, -3.0, 0.5}},
	}

	require.NoError(t, Write(path, orig))

	got, err := Read(path)
	require.NoError(t, err)

	require.Equal(t, 3, got.NumFrames())
	assert.InDelta(t, 1.0, got.Channels[0][0], 1e-4)
	assert.InDelta(t, -1.0, got.Channels[0][1], 1e-4)
	assert.InDelta(t, 0.5, got.Channels[0][2], 1e-4)
}

func TestWriteRejectsRaggedChannels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragged.wav")

	err := Write(path, &File{
		SampleRate: 44100,
		BitDepth:   16,
		Channels:   [][]float64{make([]float64, 10), make([]float64, 8)},
	})
	require.Error(t, err)
}

func TestReadRejectsNonWAV(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)
}
