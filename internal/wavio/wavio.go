// Package wavio reads and writes PCM WAV files as deinterleaved float64
// channels in [-1, 1], the representation the engine processes.
package wavio

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	readChunkFrames = 8192

	formatPCM = 1
)

// File is decoded WAV audio: one float64 slice per channel.
type File struct {
	SampleRate int
	BitDepth   int
	Channels   [][]float64
}

// NumFrames returns the per-channel sample count.
func (f *File) NumFrames() int {
	if len(f.Channels) == 0 {
		return 0
	}
	return len(f.Channels[0])
}

// Read decodes a WAV file into deinterleaved float64 channels.
func Read(path string) (*File, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer in.Close()

	decoder := wav.NewDecoder(in)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}

	format := decoder.Format()
	channels := format.NumChannels
	bitDepth := int(decoder.BitDepth)
	if channels < 1 {
		return nil, fmt.Errorf("invalid channel count: %d", channels)
	}

	scale := 1.0 / maxSampleValue(bitDepth)
	offset := sampleOffset(bitDepth)

	out := &File{
		SampleRate: format.SampleRate,
		BitDepth:   bitDepth,
		Channels:   make([][]float64, channels),
	}

	buf := &audio.IntBuffer{
		Data:   make([]int, readChunkFrames*channels),
		Format: format,
	}

	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return nil, fmt.Errorf("failed to read PCM data: %w", err)
		}
		if n == 0 {
			break
		}

		frames := n / channels
		for ch := 0; ch < channels; ch++ {
			for i := 0; i < frames; i++ {
				out.Channels[ch] = append(out.Channels[ch], (float64(buf.Data[i*channels+ch])-offset)*scale)
			}
		}
	}

	return out, nil
}

// Write encodes the file as PCM WAV at its stated bit depth. Samples
// outside [-1, 1] are clipped.
func Write(path string, f *File) error {
	if len(f.Channels) == 0 {
		return fmt.Errorf("no channels to write")
	}

	frames := f.NumFrames()
	for ch, data := range f.Channels {
		if len(data) != frames {
			return fmt.Errorf("channel %d length %d does not match channel 0 length %d", ch, len(data), frames)
		}
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	channels := len(f.Channels)
	scale := maxSampleValue(f.BitDepth)
	offset := sampleOffset(f.BitDepth)

	encoder := wav.NewEncoder(out, f.SampleRate, f.BitDepth, channels, formatPCM)

	buf := &audio.IntBuffer{
		Data: make([]int, frames*channels),
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  f.SampleRate,
		},
		SourceBitDepth: f.BitDepth,
	}

	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			v := f.Channels[ch][i]
			if v > 1 {
				v = 1
			}
			if v < -1 {
				v = -1
			}
			buf.Data[i*channels+ch] = int(v*scale + offset)
		}
	}

	if err := encoder.Write(buf); err != nil {
		return fmt.Errorf("failed to write PCM data: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}

	return nil
}

// sampleOffset returns the PCM midpoint bias. 8-bit WAV is unsigned with
// silence at 128; the wider depths are signed twos-complement.
func sampleOffset(bitDepth int) float64 {
	if bitDepth == 8 {
		return 128
	}
	return 0
}

// maxSampleValue returns the maximum sample value for the given bit depth.
func maxSampleValue(bitDepth int) float64 {
	switch bitDepth {
	case 8:
		return 127
	case 16:
		return 32767
	case 24:
		return 8388607
	case 32:
		return 2147483647
	default:
		return 32767
	}
}
