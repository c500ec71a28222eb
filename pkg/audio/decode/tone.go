// ABOUTME: Synthetic sine tone source for tests and development
// ABOUTME: Generates a fixed-duration tone at half amplitude
package decode

import (
	"fmt"
	"io"
	"math"
	"time"
)

const toneAmplitude = 0.5

// ToneSource generates a pure sine tone of a fixed duration. Useful for
// exercising the processing pipeline without any audio files on hand.
type ToneSource struct {
	frequency   float64
	sampleRate  int
	channels    int
	totalFrames int
	position    int
}

// NewToneSource creates a tone source
func NewToneSource(frequency float64, sampleRate, channels int, duration time.Duration) (*ToneSource, error) {
	if frequency <= 0 {
		return nil, fmt.Errorf("invalid frequency %f", frequency)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	if duration < 0 {
		return nil, fmt.Errorf("invalid duration %v", duration)
	}

	return &ToneSource{
		frequency:   frequency,
		sampleRate:  sampleRate,
		channels:    channels,
		totalFrames: int(duration.Seconds() * float64(sampleRate)),
	}, nil
}

// Read fills samples with interleaved tone data
func (s *ToneSource) Read(samples []float32) (int, error) {
	remaining := s.totalFrames - s.position
	if remaining <= 0 {
		return 0, io.EOF
	}

	frames := len(samples) / s.channels
	if frames > remaining {
		frames = remaining
	}

	written := 0
	for i := 0; i < frames; i++ {
		t := float64(s.position+i) / float64(s.sampleRate)
		v := float32(toneAmplitude * math.Sin(2*math.Pi*s.frequency*t))
		for ch := 0; ch < s.channels; ch++ {
			samples[written] = v
			written++
		}
	}
	s.position += frames
	return written, nil
}

// SampleRate returns the configured sample rate
func (s *ToneSource) SampleRate() int {
	return s.sampleRate
}

// Channels returns the configured channel count
func (s *ToneSource) Channels() int {
	return s.channels
}

// Metadata describes the tone
func (s *ToneSource) Metadata() (string, string, string) {
	return fmt.Sprintf("Test Tone %.0f Hz", s.frequency), "Tempo", "Diagnostics"
}

// Close is a no-op, tones hold no resources
func (s *ToneSource) Close() error {
	return nil
}
