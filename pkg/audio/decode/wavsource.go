// ABOUTME: WAV file source built on the beep wav decoder
// ABOUTME: Streams RIFF/WAVE files as interleaved float32 samples
package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
)

// WAVSource reads PCM audio from a RIFF/WAVE file.
type WAVSource struct {
	streamer beep.StreamSeekCloser
	format   beep.Format
	title    string
}

// NewWAVSource creates a new WAV audio source
func NewWAVSource(filePath string) (*WAVSource, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	streamer, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode WAV: %w", err)
	}

	return &WAVSource{
		streamer: streamer,
		format:   format,
		title:    baseTitle(filePath),
	}, nil
}

// Read fills samples with interleaved audio data
func (s *WAVSource) Read(samples []float32) (int, error) {
	channels := s.Channels()
	frames := len(samples) / channels
	if frames == 0 {
		return 0, nil
	}

	chunk := make([][2]float64, frames)
	n, ok := s.streamer.Stream(chunk)
	if n == 0 && !ok {
		if err := s.streamer.Err(); err != nil {
			return 0, fmt.Errorf("wav stream error: %w", err)
		}
		return 0, io.EOF
	}

	written := 0
	for i := 0; i < n; i++ {
		samples[written] = float32(chunk[i][0])
		written++
		if channels == 2 {
			samples[written] = float32(chunk[i][1])
			written++
		}
	}
	return written, nil
}

// SampleRate returns the sample rate of the WAV file
func (s *WAVSource) SampleRate() int {
	return int(s.format.SampleRate)
}

// Channels returns the channel count, capped at stereo
func (s *WAVSource) Channels() int {
	if s.format.NumChannels < 2 {
		return 1
	}
	return 2
}

// Metadata returns basic metadata derived from the filename
func (s *WAVSource) Metadata() (string, string, string) {
	return s.title, "Unknown Artist", "Unknown Album"
}

// Close closes the decoder and the underlying file
func (s *WAVSource) Close() error {
	return s.streamer.Close()
}
