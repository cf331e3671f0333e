// Command tapeplay plays audio through the tape echo engine in real time.
//
// Usage:
//
//	tapeplay -mode 10 -shimmer 0.4 input.wav
//	tapeplay -testtone -duration 10
//
// Without an input file the built-in calibration tone is played.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"time"

	"github.com/cwbudde/algo-tape/engine"
	"github.com/cwbudde/algo-tape/internal/wavio"
	"github.com/ebitengine/oto/v3"
)

const (
	defaultSampleRate = 44100
	blockSize         = 512
	bytesPerFrame     = 8 // 2 channels x float32
	tailSeconds       = 3.0
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	repeat := flag.Float64("repeat", 150, "Repeat rate in ms (20..500)")
	intensity := flag.Float64("intensity", 0.4, "Feedback intensity (0..0.95)")
	mode := flag.Int("mode", 0, "Routing mode (0..11)")
	shimmer := flag.Float64("shimmer", 0, "Shimmer amount (0..1)")
	wowFlutter := flag.Float64("wow", 0.3, "Wow/flutter amount (0..1)")
	saturation := flag.Float64("sat", 0.3, "Tape saturation amount (0..1)")
	tapeNoise := flag.Float64("noise", 0.15, "Tape hiss amount (0..1)")
	pingpong := flag.Bool("pingpong", false, "Cross-feed echo between channels")
	testTone := flag.Bool("testtone", false, "Play the calibration tone instead of a file")
	duration := flag.Float64("duration", 8, "Playback duration in seconds for the test tone")
	flag.Parse()

	var src *wavio.File
	sampleRate := defaultSampleRate

	if !*testTone {
		args := flag.Args()
		if len(args) < 1 {
			fmt.Fprintf(os.Stderr, "Usage: %s [options] input.wav\n\nOptions:\n", os.Args[0])
			flag.PrintDefaults()
			return fmt.Errorf("no input file (use -testtone to play without one)")
		}

		var err error
		if src, err = wavio.Read(args[0]); err != nil {
			return err
		}
		if len(src.Channels) > 2 {
			return fmt.Errorf("unsupported channel count: %d (mono or stereo only)", len(src.Channels))
		}
		sampleRate = src.SampleRate
	}

	e, err := engine.New(float64(sampleRate))
	if err != nil {
		return err
	}
	e.SetTestTone(*testTone)

	p := engine.DefaultParams()
	p.RepeatRateMs = *repeat
	p.Intensity = *intensity
	p.Mode = *mode
	p.Shimmer = *shimmer
	p.WowFlutter = *wowFlutter
	p.Saturation = *saturation
	p.TapeNoise = *tapeNoise
	p.PingPong = *pingpong

	totalFrames := int(*duration * float64(sampleRate))
	if src != nil {
		totalFrames = src.NumFrames() + int(tailSeconds*float64(sampleRate))
	}

	s := &streamer{
		engine: e,
		params: p,
		src:    src,
		frames: totalFrames,
		left:   make([]float64, blockSize),
		right:  make([]float64, blockSize),
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return err
	}
	<-ready

	player := ctx.NewPlayer(s)
	player.Play()

	for player.IsPlaying() {
		time.Sleep(50 * time.Millisecond)
	}

	return player.Close()
}

// streamer pulls blocks from the engine on demand and encodes them as
// interleaved stereo float32 for the audio backend.
type streamer struct {
	engine *engine.Engine
	params engine.Params
	src    *wavio.File

	pos    int
	frames int

	left  []float64
	right []float64
}

func (s *streamer) Read(buf []byte) (int, error) {
	if s.pos >= s.frames {
		return 0, io.EOF
	}

	frames := len(buf) / bytesPerFrame
	if frames > blockSize {
		frames = blockSize
	}
	if remaining := s.frames - s.pos; frames > remaining {
		frames = remaining
	}
	if frames == 0 {
		return 0, nil
	}

	left := s.left[:frames]
	right := s.right[:frames]
	s.fillInput(left, right, frames)

	s.engine.ProcessBlock(left, right, s.params)
	s.pos += frames

	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint32(buf[i*bytesPerFrame:], math.Float32bits(float32(left[i])))
		binary.LittleEndian.PutUint32(buf[i*bytesPerFrame+4:], math.Float32bits(float32(right[i])))
	}

	return frames * bytesPerFrame, nil
}

func (s *streamer) fillInput(left, right []float64, frames int) {
	for i := 0; i < frames; i++ {
		var l, r float64
		if s.src != nil && s.pos+i < s.src.NumFrames() {
			l = s.src.Channels[0][s.pos+i]
			r = l
			if len(s.src.Channels) > 1 {
				r = s.src.Channels[1][s.pos+i]
			}
		}
		left[i] = l
		right[i] = r
	}
}
