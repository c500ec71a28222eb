// ABOUTME: Audio source abstraction for reading PCM from files or URLs
// ABOUTME: Dispatches on file type and drains sources into whole buffers
package decode

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Tempo-Audio/tempo-go/pkg/audio"
)

// Source provides decoded PCM audio as interleaved float32 samples in the
// nominal [-1, 1] range.
type Source interface {
	// Read fills samples with interleaved frames. Returns the number of
	// samples written, and io.EOF once the source is exhausted.
	Read(samples []float32) (int, error)
	// SampleRate returns the sample rate of the audio
	SampleRate() int
	// Channels returns the number of channels
	Channels() int
	// Metadata returns title, artist, album
	Metadata() (title, artist, album string)
	// Close closes the audio source
	Close() error
}

// Open creates a source from a file path or HTTP(S) URL, dispatching on the
// extension. Unrecognized local formats fall back to ffmpeg decoding.
func Open(pathOrURL string) (Source, error) {
	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		if strings.Contains(pathOrURL, ".m3u8") {
			return NewFFmpegSource(pathOrURL)
		}
		return NewHTTPMP3Source(pathOrURL)
	}

	if _, err := os.Stat(pathOrURL); err != nil {
		return nil, fmt.Errorf("audio file not found: %s", pathOrURL)
	}

	switch strings.ToLower(filepath.Ext(pathOrURL)) {
	case ".wav":
		return NewWAVSource(pathOrURL)
	case ".mp3":
		return NewMP3Source(pathOrURL)
	case ".flac":
		return NewFLACSource(pathOrURL)
	case ".raw", ".pcm":
		return nil, fmt.Errorf("raw PCM input requires an explicit format, use NewRawSource")
	default:
		return NewFFmpegSource(pathOrURL)
	}
}

// ReadAll drains a source into a de-interleaved buffer.
func ReadAll(src Source) (*audio.Buffer, error) {
	channels := src.Channels()
	if channels <= 0 {
		return nil, fmt.Errorf("%w: source reports %d channels", audio.ErrInvalidBuffer, channels)
	}

	var samples []float32
	chunk := make([]float32, 4096*channels)
	for {
		n, err := src.Read(chunk)
		if n > 0 {
			samples = append(samples, chunk[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading source: %w", err)
		}
		if n == 0 {
			break
		}
	}

	buf := audio.FromInterleaved(samples, channels, src.SampleRate())
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	return buf, nil
}

// baseTitle derives a display title from a file path.
func baseTitle(filePath string) string {
	filename := filepath.Base(filePath)
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}
