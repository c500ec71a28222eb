// ABOUTME: Headerless PCM file source for signed 16-bit little-endian data
// ABOUTME: Requires the caller to supply the sample rate and channel count
package decode

import (
	"bufio"
	"fmt"
	"os"
)

// RawSource reads headerless signed 16-bit little-endian PCM from a file.
// The format cannot be inferred, so the caller states it up front.
type RawSource struct {
	file       *os.File
	reader     *bufio.Reader
	sampleRate int
	channels   int
	title      string
}

// NewRawSource creates a raw PCM source with the given format
func NewRawSource(filePath string, sampleRate, channels int) (*RawSource, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open raw PCM file: %w", err)
	}

	return &RawSource{
		file:       f,
		reader:     bufio.NewReader(f),
		sampleRate: sampleRate,
		channels:   channels,
		title:      baseTitle(filePath),
	}, nil
}

// Read fills samples with interleaved audio data
func (s *RawSource) Read(samples []float32) (int, error) {
	return readInt16LE(s.reader, samples)
}

// SampleRate returns the configured sample rate
func (s *RawSource) SampleRate() int {
	return s.sampleRate
}

// Channels returns the configured channel count
func (s *RawSource) Channels() int {
	return s.channels
}

// Metadata returns basic metadata derived from the filename
func (s *RawSource) Metadata() (string, string, string) {
	return s.title, "Unknown Artist", "Unknown Album"
}

// Close closes the raw PCM file
func (s *RawSource) Close() error {
	return s.file.Close()
}
