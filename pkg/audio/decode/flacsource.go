// ABOUTME: FLAC file source built on the mewkiz/flac frame parser
// ABOUTME: Buffers partial frames so no decoded samples are dropped
package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"
)

// FLACSource reads PCM audio from a FLAC file.
type FLACSource struct {
	file       *os.File
	stream     *flac.Stream
	sampleRate int
	channels   int
	bitDepth   int
	title      string

	// pending holds interleaved samples decoded beyond the caller's last
	// read, delivered first on the next call.
	pending []float32
}

// NewFLACSource creates a new FLAC audio source
func NewFLACSource(filePath string) (*FLACSource, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to parse FLAC stream: %w", err)
	}

	info := stream.Info
	if info.NChannels == 0 || info.BitsPerSample == 0 {
		f.Close()
		return nil, fmt.Errorf("FLAC stream has no usable format info")
	}

	return &FLACSource{
		file:       f,
		stream:     stream,
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		bitDepth:   int(info.BitsPerSample),
		title:      baseTitle(filePath),
	}, nil
}

// Read fills samples with interleaved audio data
func (s *FLACSource) Read(samples []float32) (int, error) {
	written := copy(samples, s.pending)
	s.pending = s.pending[written:]
	if written == len(samples) {
		return written, nil
	}

	scale := float32(int64(1) << (s.bitDepth - 1))
	for written < len(samples) {
		frame, err := s.stream.ParseNext()
		if err == io.EOF {
			if written == 0 {
				return 0, io.EOF
			}
			return written, nil
		}
		if err != nil {
			return written, fmt.Errorf("flac decode error: %w", err)
		}

		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < s.channels; ch++ {
				v := float32(frame.Subframes[ch].Samples[i]) / scale
				if written < len(samples) {
					samples[written] = v
					written++
				} else {
					s.pending = append(s.pending, v)
				}
			}
		}
	}
	return written, nil
}

// SampleRate returns the sample rate of the FLAC file
func (s *FLACSource) SampleRate() int {
	return s.sampleRate
}

// Channels returns the number of channels
func (s *FLACSource) Channels() int {
	return s.channels
}

// Metadata returns basic metadata derived from the filename
func (s *FLACSource) Metadata() (string, string, string) {
	return s.title, "Unknown Artist", "Unknown Album"
}

// Close closes the FLAC file
func (s *FLACSource) Close() error {
	return s.file.Close()
}
