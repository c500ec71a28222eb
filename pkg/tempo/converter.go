// ABOUTME: High-level Converter API for local time-scale conversion
// ABOUTME: Wraps the conversion pipeline with defaults and progress callbacks
package tempo

import (
	"context"
	"time"

	"github.com/Tempo-Audio/tempo-go/internal/convert"
	"github.com/Tempo-Audio/tempo-go/pkg/audio"
	"github.com/Tempo-Audio/tempo-go/pkg/audio/decode"
	"github.com/Tempo-Audio/tempo-go/pkg/audio/stretch"
	"github.com/Tempo-Audio/tempo-go/pkg/audio/wav"
)

// Progress describes how far a conversion has advanced through a stage.
type Progress struct {
	Stage   string
	Done    int
	Total   int
	Percent float64
}

// Result summarizes a finished conversion. WAV holds the complete encoded
// stream even when the conversion also wrote a file.
type Result struct {
	JobID        string
	InputFrames  int
	OutputFrames int
	SampleRate   int
	Channels     int
	OutputBytes  int
	Elapsed      time.Duration
	WAV          []byte
}

// ConverterConfig configures a Converter
type ConverterConfig struct {
	// FrameSize is the analysis frame length in samples (default: 2048)
	FrameSize int

	// Window selects the synthesis overlap: "none" or "hann" (default: "none")
	Window string

	// OutputRate resamples the result to this rate (default: keep source rate)
	OutputRate int

	// OnProgress is called as pipeline stages advance (optional)
	OnProgress func(Progress)
}

// Converter performs time-scale conversion in process
type Converter struct {
	config    ConverterConfig
	pipeline  *convert.Pipeline
	stretcher *stretch.Stretcher
}

// NewConverter creates a new local converter
func NewConverter(config ConverterConfig) (*Converter, error) {
	// Apply defaults
	if config.FrameSize == 0 {
		config.FrameSize = stretch.DefaultFrameSize
	}
	if config.Window == "" {
		config.Window = "none"
	}

	window, err := stretch.ParseWindow(config.Window)
	if err != nil {
		return nil, err
	}

	c := &Converter{config: config}

	c.pipeline, err = convert.New(convert.Config{
		FrameSize: config.FrameSize,
		Window:    window,
		Progress:  c.report,
	})
	if err != nil {
		return nil, err
	}

	c.stretcher, err = stretch.New(stretch.Config{
		FrameSize: config.FrameSize,
		Window:    window,
	})
	if err != nil {
		return nil, err
	}

	return c, nil
}

// ConvertFile decodes inputPath, converts it at rate, and writes the WAV
// stream to outputPath. An empty outputPath keeps the stream in memory only.
func (c *Converter) ConvertFile(ctx context.Context, inputPath, outputPath string, rate float64) (*Result, error) {
	res, err := c.pipeline.Run(ctx, convert.Request{
		Input:      inputPath,
		Output:     outputPath,
		Rate:       rate,
		OutputRate: c.config.OutputRate,
	})
	if err != nil {
		return nil, err
	}
	return newResult(res), nil
}

// Convert converts an in-memory buffer at rate and returns the encoded result
func (c *Converter) Convert(ctx context.Context, buf *audio.Buffer, rate float64) (*Result, error) {
	res, err := c.pipeline.Process(ctx, buf, rate, c.config.OutputRate)
	if err != nil {
		return nil, err
	}
	return newResult(res), nil
}

// ConvertSource drains a decode source and converts it at rate. The source
// is not closed; that stays with the caller.
func (c *Converter) ConvertSource(ctx context.Context, src decode.Source, rate float64) (*Result, error) {
	buf, err := decode.ReadAll(src)
	if err != nil {
		return nil, err
	}
	return c.Convert(ctx, buf, rate)
}

// Stretch changes the playback rate of a buffer without encoding it.
// The result keeps the input's channel count and sample rate.
func (c *Converter) Stretch(buf *audio.Buffer, rate float64) (*audio.Buffer, error) {
	return c.stretcher.Stretch(buf, rate)
}

// OutputFrames predicts the stretched frame count for an input length
func (c *Converter) OutputFrames(inputFrames int, rate float64) int {
	return stretch.OutputFrames(inputFrames, rate)
}

// ValidateRate reports whether rate is accepted without converting anything
func (c *Converter) ValidateRate(rate float64) error {
	return c.pipeline.ValidateRate(rate)
}

func (c *Converter) report(stage convert.Stage, done, total int) {
	if c.config.OnProgress == nil {
		return
	}
	c.config.OnProgress(Progress{
		Stage:   string(stage),
		Done:    done,
		Total:   total,
		Percent: percentOf(done, total),
	})
}

func percentOf(done, total int) float64 {
	if total <= 0 {
		return 100
	}
	return float64(done) / float64(total) * 100
}

func newResult(res *convert.Result) *Result {
	return &Result{
		JobID:        res.JobID,
		InputFrames:  res.InputFrames,
		OutputFrames: res.OutputFrames,
		SampleRate:   res.SampleRate,
		Channels:     res.Channels,
		OutputBytes:  len(res.Stream),
		Elapsed:      res.Elapsed,
		WAV:          res.Stream,
	}
}

// EncodeWAV encodes a buffer as a PCM16 WAV stream
func EncodeWAV(buf *audio.Buffer) ([]byte, error) {
	return wav.Encode(buf)
}

// DecodeWAV parses a PCM16 WAV stream back into a buffer
func DecodeWAV(stream []byte) (*audio.Buffer, error) {
	return wav.Decode(stream)
}
