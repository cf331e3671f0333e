// Command tapeecho renders a WAV file through the tape echo engine.
//
// Usage:
//
//	tapeecho -repeat 150 -intensity 0.5 input.wav output.wav
//	tapeecho -mode 10 -shimmer 0.4 -tail 4 input.wav output.wav
//	tapeecho -normalize -analyze input.wav output.wav
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/cwbudde/algo-tape/dsp/spectrum"
	"github.com/cwbudde/algo-tape/engine"
	"github.com/cwbudde/algo-tape/internal/wavio"
	"github.com/cwbudde/algo-vecmath"
)

const (
	blockSize       = 512
	minRequiredArgs = 2
	normalizeTarget = 0.98
	maxChannels     = 2
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	defaults := engine.DefaultParams()

	gain := flag.Float64("gain", defaults.InputGain, "Input gain (0..1)")
	repeat := flag.Float64("repeat", defaults.RepeatRateMs, "Repeat rate in ms (20..500)")
	intensity := flag.Float64("intensity", defaults.Intensity, "Feedback intensity (0..0.95)")
	bass := flag.Float64("bass", 0, "Bass shelf on the feedback path in dB (-12..12)")
	treble := flag.Float64("treble", 0, "Treble shelf on the feedback path in dB (-12..12)")
	echoLevel := flag.Float64("echo", defaults.EchoLevel, "Echo level (0..1)")
	reverbLevel := flag.Float64("reverb", defaults.ReverbLevel, "Reverb level (0..1)")
	wowFlutter := flag.Float64("wow", defaults.WowFlutter, "Wow/flutter amount (0..1)")
	saturation := flag.Float64("sat", defaults.Saturation, "Tape saturation amount (0..1)")
	mode := flag.Int("mode", 0, "Routing mode (0..11)")
	tapeNoise := flag.Float64("noise", defaults.TapeNoise, "Tape hiss amount (0..1)")
	shimmer := flag.Float64("shimmer", 0, "Shimmer amount (0..1)")
	pingpong := flag.Bool("pingpong", false, "Cross-feed echo between channels")
	tailSeconds := flag.Float64("tail", 2, "Seconds of silence appended so the echo tail can ring out")
	normalize := flag.Bool("normalize", false, "Normalize the output peak to -0.2 dBFS")
	analyze := flag.Bool("analyze", false, "Print the dominant output frequency")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	args := flag.Args()
	if len(args) < minRequiredArgs {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] input.wav output.wav\n\nOptions:\n", os.Args[0])
		flag.PrintDefaults()
		return fmt.Errorf("insufficient arguments")
	}

	in, err := wavio.Read(args[0])
	if err != nil {
		return err
	}
	if len(in.Channels) > maxChannels {
		return fmt.Errorf("unsupported channel count: %d (mono or stereo only)", len(in.Channels))
	}

	if *verbose {
		log.Printf("Input: %d Hz, %d channels, %d-bit, %d frames",
			in.SampleRate, len(in.Channels), in.BitDepth, in.NumFrames())
	}

	e, err := engine.New(float64(in.SampleRate))
	if err != nil {
		return err
	}

	p := engine.Params{
		InputGain:    *gain,
		RepeatRateMs: *repeat,
		Intensity:    *intensity,
		BassDB:       *bass,
		TrebleDB:     *treble,
		EchoLevel:    *echoLevel,
		ReverbLevel:  *reverbLevel,
		WowFlutter:   *wowFlutter,
		Saturation:   *saturation,
		Mode:         *mode,
		TapeNoise:    *tapeNoise,
		Shimmer:      *shimmer,
		PingPong:     *pingpong,
	}

	tail := int(*tailSeconds * float64(in.SampleRate))
	left := append(in.Channels[0], make([]float64, tail)...)

	var right []float64
	if len(in.Channels) > 1 {
		right = append(in.Channels[1], make([]float64, tail)...)
	}

	for pos := 0; pos < len(left); pos += blockSize {
		end := pos + blockSize
		if end > len(left) {
			end = len(left)
		}
		if right != nil {
			e.ProcessBlock(left[pos:end], right[pos:end], p)
		} else {
			e.ProcessBlock(left[pos:end], nil, p)
		}
	}

	if *normalize {
		peak := vecmath.MaxAbs(left)
		if right != nil {
			if rp := vecmath.MaxAbs(right); rp > peak {
				peak = rp
			}
		}
		if peak > 0 {
			g := normalizeTarget / peak
			vecmath.ScaleBlockInPlace(left, g)
			if right != nil {
				vecmath.ScaleBlockInPlace(right, g)
			}
			if *verbose {
				log.Printf("Normalized by %.3f (peak %.3f)", g, peak)
			}
		}
	}

	if *analyze {
		freq, err := dominantFrequency(left, float64(in.SampleRate))
		if err != nil {
			return err
		}
		log.Printf("Dominant output frequency: %.1f Hz", freq)
	}

	out := &wavio.File{
		SampleRate: in.SampleRate,
		BitDepth:   in.BitDepth,
		Channels:   [][]float64{left},
	}
	if right != nil {
		out.Channels = append(out.Channels, right)
	}

	if err := wavio.Write(args[1], out); err != nil {
		return err
	}

	if *verbose {
		log.Printf("Wrote %s (%d frames)", args[1], out.NumFrames())
	}

	return nil
}

// dominantFrequency reports the strongest spectral peak of the signal,
// using the largest power-of-two prefix for the transform.
func dominantFrequency(signal []float64, sampleRate float64) (float64, error) {
	n := 1
	for n*2 <= len(signal) {
		n *= 2
	}
	if n < 2 {
		return 0, fmt.Errorf("signal too short to analyze: %d samples", len(signal))
	}

	return spectrum.DominantFrequency(signal[:n], sampleRate)
}
