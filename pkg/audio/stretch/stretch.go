// ABOUTME: Time-stretch engine implementing phase-tracked resynthesis
// ABOUTME: Produces rate-scaled output buffers while keeping pitch stable
package stretch

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"gonum.org/v1/gonum/dsp/window"

	"github.com/Tempo-Audio/tempo-go/pkg/audio"
)

// Engine defaults. The frame size is a processing constant of the engine,
// not exposed through the conversion surface.
const (
	DefaultFrameSize = 2048
	DefaultMinRate   = 0.5
	DefaultMaxRate   = 2.0
)

// maxOutputFrames caps a single channel's output allocation
// (about 54 hours of audio at 44.1 kHz).
const maxOutputFrames = 1 << 33

var (
	// ErrInvalidRate reports a non-positive, non-finite or out-of-range rate.
	ErrInvalidRate = errors.New("invalid stretch rate")

	// ErrAllocation reports an output buffer too large to allocate.
	ErrAllocation = errors.New("output buffer too large")
)

// Window selects how synthesis frames are deposited into the output.
type Window int

const (
	// WindowNone deposits frames contiguously, each overwriting its slot.
	WindowNone Window = iota
	// WindowHann deposits Hann-weighted frames additively at half-frame hop.
	WindowHann
)

func (w Window) String() string {
	if w == WindowHann {
		return "hann"
	}
	return "none"
}

// ParseWindow maps a configuration name to a Window policy.
func ParseWindow(name string) (Window, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return WindowNone, nil
	case "hann":
		return WindowHann, nil
	}
	return WindowNone, fmt.Errorf("unknown window %q", name)
}

// Config controls the engine. Zero values select the package defaults.
type Config struct {
	FrameSize int
	MinRate   float64
	MaxRate   float64
	Window    Window
}

// Stretcher runs phase-tracked time-scale modification over PCM buffers.
// It keeps no state between calls and is safe for concurrent use.
type Stretcher struct {
	cfg  Config
	hann []float64 // per-sample weights, nil unless Window is WindowHann
}

// New creates a stretcher, applying defaults for zero-valued config fields.
func New(cfg Config) (*Stretcher, error) {
	if cfg.FrameSize == 0 {
		cfg.FrameSize = DefaultFrameSize
	}
	if cfg.MinRate == 0 {
		cfg.MinRate = DefaultMinRate
	}
	if cfg.MaxRate == 0 {
		cfg.MaxRate = DefaultMaxRate
	}
	if cfg.FrameSize < 2 {
		return nil, fmt.Errorf("frame size must be at least 2, got %d", cfg.FrameSize)
	}
	if math.IsNaN(cfg.MinRate) || math.IsNaN(cfg.MaxRate) || cfg.MinRate <= 0 || cfg.MaxRate < cfg.MinRate {
		return nil, fmt.Errorf("invalid rate range [%g, %g]", cfg.MinRate, cfg.MaxRate)
	}

	s := &Stretcher{cfg: cfg}
	if cfg.Window == WindowHann {
		s.hann = window.NewValues(window.Hann, cfg.FrameSize)
	}
	return s, nil
}

// Stretch applies the default configuration. See Stretcher.Stretch.
func Stretch(buf *audio.Buffer, rate float64) (*audio.Buffer, error) {
	s, err := New(Config{})
	if err != nil {
		return nil, err
	}
	return s.Stretch(buf, rate)
}

// OutputFrames returns ceil(inputFrames / rate), the per-channel output
// length of a conversion. Rate must be positive; rate 1.0 maps inputFrames
// to itself exactly.
func OutputFrames(inputFrames int, rate float64) int {
	if inputFrames <= 0 {
		return 0
	}
	return int(math.Ceil(float64(inputFrames) / rate))
}

// Stretch produces a new buffer whose duration is the input's divided by
// rate, with pitch content held stable. The input is never modified; each
// channel is processed independently with its own phase state.
func (s *Stretcher) Stretch(buf *audio.Buffer, rate float64) (*audio.Buffer, error) {
	if err := s.checkRate(rate); err != nil {
		return nil, err
	}
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	inFrames := buf.FrameCount()
	if need := math.Ceil(float64(inFrames) / rate); need > maxOutputFrames {
		return nil, fmt.Errorf("%w: %.0f frames per channel", ErrAllocation, need)
	}
	out := audio.NewBuffer(buf.ChannelCount(), buf.SampleRate, OutputFrames(inFrames, rate))

	var wg sync.WaitGroup
	for ch := range buf.Channels {
		wg.Add(1)
		go func(in, acc []float32) {
			defer wg.Done()
			s.stretchChannel(in, acc, rate, buf.SampleRate)
		}(buf.Channels[ch], out.Channels[ch])
	}
	wg.Wait()

	return out, nil
}

// ValidateRate reports whether rate would be accepted by Stretch, without
// processing anything. Lets callers reject bad requests up front.
func (s *Stretcher) ValidateRate(rate float64) error {
	return s.checkRate(rate)
}

func (s *Stretcher) checkRate(rate float64) error {
	switch {
	case math.IsNaN(rate) || math.IsInf(rate, 0):
		return fmt.Errorf("%w: not finite", ErrInvalidRate)
	case rate <= 0:
		return fmt.Errorf("%w: %g", ErrInvalidRate, rate)
	case rate < s.cfg.MinRate || rate > s.cfg.MaxRate:
		return fmt.Errorf("%w: %g outside [%g, %g]", ErrInvalidRate, rate, s.cfg.MinRate, s.cfg.MaxRate)
	}
	return nil
}

// stretchChannel runs the per-channel frame loop. The accumulator's length
// is fixed before processing; the analysis cursor advances by the output hop
// scaled by rate, which realizes the time-axis scaling.
func (s *Stretcher) stretchChannel(in, acc []float32, rate float64, sampleRate int) {
	frameSize := s.cfg.FrameSize
	analysis := make([]float64, frameSize)
	synthesis := make([]float64, frameSize)

	hop := frameSize
	if s.hann != nil {
		hop = frameSize / 2
	}

	omega := twoPi * float64(frameSize) / float64(sampleRate)
	step := float64(hop) * rate

	var st phaseState
	cursor := 0.0
	for writeIndex := 0; writeIndex < len(acc); writeIndex += hop {
		nextFrame(in, int(cursor), analysis)
		for i, x := range analysis {
			synthesis[i] = st.step(x, rate, omega)
		}
		if s.hann != nil {
			depositFrameAdd(acc, writeIndex, synthesis, s.hann)
		} else {
			depositFrame(acc, writeIndex, synthesis)
		}
		cursor += step
	}
}
