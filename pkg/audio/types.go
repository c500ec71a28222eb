// ABOUTME: Audio type definitions
// ABOUTME: Defines PCM buffers, stream formats and sample conversion helpers
package audio

import (
	"errors"
	"fmt"
	"time"
)

const (
	// 16-bit PCM range constants
	MaxInt16 = 32767
	MinInt16 = -32768
)

// ErrInvalidBuffer reports a buffer that violates the PCM buffer contract:
// zero channels, channels of unequal length, or a non-positive sample rate.
var ErrInvalidBuffer = errors.New("invalid audio buffer")

// Format describes a decoded audio stream
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// Buffer represents decoded PCM audio as de-interleaved float32 channels.
// All channels must have the same length. Samples are nominally in [-1, 1];
// values outside that range are clamped when converting to integer PCM.
type Buffer struct {
	Channels   [][]float32
	SampleRate int
}

// NewBuffer allocates a buffer with the given shape, all samples zero.
func NewBuffer(channels, sampleRate, frames int) *Buffer {
	chs := make([][]float32, channels)
	for i := range chs {
		chs[i] = make([]float32, frames)
	}
	return &Buffer{Channels: chs, SampleRate: sampleRate}
}

// FrameCount returns the per-channel sample count.
func (b *Buffer) FrameCount() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// ChannelCount returns the number of channels.
func (b *Buffer) ChannelCount() int {
	return len(b.Channels)
}

// Duration returns the playback duration at the buffer's sample rate.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(b.FrameCount()) / float64(b.SampleRate) * float64(time.Second))
}

// Validate checks the buffer contract. Operations that consume a buffer call
// this before touching sample data.
func (b *Buffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrInvalidBuffer)
	}
	if len(b.Channels) == 0 {
		return fmt.Errorf("%w: no channels", ErrInvalidBuffer)
	}
	if b.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidBuffer, b.SampleRate)
	}
	frames := len(b.Channels[0])
	for i, ch := range b.Channels {
		if len(ch) != frames {
			return fmt.Errorf("%w: channel %d has %d samples, channel 0 has %d",
				ErrInvalidBuffer, i, len(ch), frames)
		}
	}
	return nil
}

// FromInterleaved builds a buffer from frame-major interleaved samples.
// Trailing samples that do not fill a whole frame are dropped.
func FromInterleaved(samples []float32, channels, sampleRate int) *Buffer {
	frames := 0
	if channels > 0 {
		frames = len(samples) / channels
	}
	buf := NewBuffer(channels, sampleRate, frames)
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			buf.Channels[c][f] = samples[f*channels+c]
		}
	}
	return buf
}

// Interleaved returns the buffer's samples in frame-major channel order.
func (b *Buffer) Interleaved() []float32 {
	frames := b.FrameCount()
	channels := len(b.Channels)
	out := make([]float32, frames*channels)
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			out[f*channels+c] = b.Channels[c][f]
		}
	}
	return out
}

// SampleToInt16 converts a float sample to 16-bit PCM. The input is clamped
// to [-1, 1]; negative values scale by 32768 and non-negative values by
// 32767, with the result truncated toward zero.
func SampleToInt16(sample float32) int16 {
	if sample < -1 {
		sample = -1
	} else if sample > 1 {
		sample = 1
	}
	if sample < 0 {
		return int16(sample * 32768)
	}
	return int16(sample * 32767)
}

// SampleFromInt16 converts a 16-bit PCM sample to a float in [-1, 1],
// mirroring the asymmetric scaling of SampleToInt16 so that both full-scale
// values map to exactly -1 and +1.
func SampleFromInt16(sample int16) float32 {
	if sample < 0 {
		return float32(sample) / 32768
	}
	return float32(sample) / 32767
}
