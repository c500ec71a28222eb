// ABOUTME: Conversion pipeline orchestration
// ABOUTME: Coordinates decode, stretch, resample and WAV encode stages
package convert

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Tempo-Audio/tempo-go/pkg/audio"
	"github.com/Tempo-Audio/tempo-go/pkg/audio/decode"
	"github.com/Tempo-Audio/tempo-go/pkg/audio/resample"
	"github.com/Tempo-Audio/tempo-go/pkg/audio/stretch"
	"github.com/Tempo-Audio/tempo-go/pkg/audio/wav"
)

// Stage identifies a pipeline stage for progress reporting
type Stage string

const (
	StageDecode   Stage = "decoding"
	StageStretch  Stage = "stretching"
	StageResample Stage = "resampling"
	StageEncode   Stage = "encoding"
)

// ProgressFunc receives stage transitions. done == total marks the stage
// as finished.
type ProgressFunc func(stage Stage, done, total int)

// Config holds pipeline configuration
type Config struct {
	FrameSize int
	Window    stretch.Window
	MinRate   float64
	MaxRate   float64
	Progress  ProgressFunc
}

// Request describes a single conversion
type Request struct {
	Input      string  // file path or URL
	Output     string  // output WAV path, empty keeps the stream in memory
	Rate       float64 // playback rate, >1 shortens
	OutputRate int     // output sample rate, 0 keeps the source rate

	// Raw input format, required when Input is headerless PCM
	RawRate     int
	RawChannels int
}

// Result reports a finished conversion
type Result struct {
	JobID        string
	InputFrames  int
	OutputFrames int
	SampleRate   int
	Channels     int
	Stream       []byte
	Elapsed      time.Duration
}

// Pipeline runs conversions through a shared stretcher
type Pipeline struct {
	config    Config
	stretcher *stretch.Stretcher
}

// New creates a conversion pipeline
func New(config Config) (*Pipeline, error) {
	stretcher, err := stretch.New(stretch.Config{
		FrameSize: config.FrameSize,
		Window:    config.Window,
		MinRate:   config.MinRate,
		MaxRate:   config.MaxRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create stretcher: %w", err)
	}

	return &Pipeline{
		config:    config,
		stretcher: stretcher,
	}, nil
}

// Run decodes the request's input, processes it and optionally writes the
// WAV stream to the output path.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	src, err := p.openSource(req)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	title, _, _ := src.Metadata()
	log.Printf("Decoding %s (%d Hz, %d channels)", title, src.SampleRate(), src.Channels())

	buf, err := decode.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}
	p.report(StageDecode, buf.FrameCount(), buf.FrameCount())

	result, err := p.Process(ctx, buf, req.Rate, req.OutputRate)
	if err != nil {
		return nil, err
	}

	if req.Output != "" {
		if err := os.WriteFile(req.Output, result.Stream, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write output: %w", err)
		}
		log.Printf("Wrote %d bytes to %s", len(result.Stream), req.Output)
	}

	result.Elapsed = time.Since(start)
	return result, nil
}

// Process stretches a decoded buffer, resamples it if an output rate was
// requested, and encodes the WAV stream.
func (p *Pipeline) Process(ctx context.Context, buf *audio.Buffer, rate float64, outputRate int) (*Result, error) {
	start := time.Now()
	jobID := uuid.New().String()
	inputFrames := buf.FrameCount()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("conversion canceled: %w", err)
	}

	p.report(StageStretch, 0, inputFrames)
	stretched, err := p.stretcher.Stretch(buf, rate)
	if err != nil {
		return nil, fmt.Errorf("stretch failed: %w", err)
	}
	p.report(StageStretch, inputFrames, inputFrames)
	log.Printf("Stretched %d frames to %d at rate %.3f", inputFrames, stretched.FrameCount(), rate)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("conversion canceled: %w", err)
	}

	if outputRate > 0 && outputRate != stretched.SampleRate {
		resampler, err := resample.New(stretched.SampleRate, outputRate)
		if err != nil {
			return nil, fmt.Errorf("resample setup failed: %w", err)
		}

		p.report(StageResample, 0, stretched.FrameCount())
		resampled, err := resampler.Resample(stretched)
		if err != nil {
			return nil, fmt.Errorf("resample failed: %w", err)
		}
		p.report(StageResample, stretched.FrameCount(), stretched.FrameCount())
		log.Printf("Resampled %d Hz to %d Hz", stretched.SampleRate, outputRate)
		stretched = resampled
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("conversion canceled: %w", err)
	}

	p.report(StageEncode, 0, stretched.FrameCount())
	stream, err := wav.Encode(stretched)
	if err != nil {
		return nil, fmt.Errorf("encode failed: %w", err)
	}
	p.report(StageEncode, stretched.FrameCount(), stretched.FrameCount())

	return &Result{
		JobID:        jobID,
		InputFrames:  inputFrames,
		OutputFrames: stretched.FrameCount(),
		SampleRate:   stretched.SampleRate,
		Channels:     stretched.ChannelCount(),
		Stream:       stream,
		Elapsed:      time.Since(start),
	}, nil
}

// OutputFrames predicts the stretch stage's frame count for an input size
func (p *Pipeline) OutputFrames(inputFrames int, rate float64) int {
	return stretch.OutputFrames(inputFrames, rate)
}

// ValidateRate reports whether the pipeline's stretcher would accept rate
func (p *Pipeline) ValidateRate(rate float64) error {
	return p.stretcher.ValidateRate(rate)
}

// openSource picks a decoder for the request
func (p *Pipeline) openSource(req Request) (decode.Source, error) {
	ext := strings.ToLower(filepath.Ext(req.Input))
	if ext == ".raw" || ext == ".pcm" {
		if req.RawRate <= 0 || req.RawChannels <= 0 {
			return nil, fmt.Errorf("raw input %s needs a sample rate and channel count", req.Input)
		}
		return decode.NewRawSource(req.Input, req.RawRate, req.RawChannels)
	}
	return decode.Open(req.Input)
}

func (p *Pipeline) report(stage Stage, done, total int) {
	if p.config.Progress != nil {
		p.config.Progress(stage, done, total)
	}
}
