// ABOUTME: MP3 sources for local files and HTTP streams
// ABOUTME: Decodes through go-mp3 which always yields 16-bit stereo output
package decode

import (
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"os"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/Tempo-Audio/tempo-go/pkg/audio"
)

// MP3Source reads PCM audio from an MP3 file.
type MP3Source struct {
	file    *os.File
	decoder *gomp3.Decoder
	title   string
}

// NewMP3Source creates a new MP3 audio source
func NewMP3Source(filePath string) (*MP3Source, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := gomp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create MP3 decoder: %w", err)
	}

	return &MP3Source{
		file:    f,
		decoder: decoder,
		title:   baseTitle(filePath),
	}, nil
}

// Read fills samples with interleaved audio data
func (s *MP3Source) Read(samples []float32) (int, error) {
	return readInt16LE(s.decoder, samples)
}

// SampleRate returns the sample rate of the MP3 file
func (s *MP3Source) SampleRate() int {
	return s.decoder.SampleRate()
}

// Channels returns 2, go-mp3 always outputs stereo
func (s *MP3Source) Channels() int {
	return 2
}

// Metadata returns basic metadata derived from the filename
func (s *MP3Source) Metadata() (string, string, string) {
	return s.title, "Unknown Artist", "Unknown Album"
}

// Close closes the MP3 file
func (s *MP3Source) Close() error {
	return s.file.Close()
}

// HTTPMP3Source reads PCM audio from an MP3 stream over HTTP.
type HTTPMP3Source struct {
	resp    *http.Response
	decoder *gomp3.Decoder
	url     string
}

// NewHTTPMP3Source creates a source streaming MP3 from a URL
func NewHTTPMP3Source(url string) (*HTTPMP3Source, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	decoder, err := gomp3.NewDecoder(resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to create MP3 decoder: %w", err)
	}

	return &HTTPMP3Source{
		resp:    resp,
		decoder: decoder,
		url:     url,
	}, nil
}

// Read fills samples with interleaved audio data
func (s *HTTPMP3Source) Read(samples []float32) (int, error) {
	return readInt16LE(s.decoder, samples)
}

// SampleRate returns the sample rate of the stream
func (s *HTTPMP3Source) SampleRate() int {
	return s.decoder.SampleRate()
}

// Channels returns 2, go-mp3 always outputs stereo
func (s *HTTPMP3Source) Channels() int {
	return 2
}

// Metadata returns basic metadata derived from the URL
func (s *HTTPMP3Source) Metadata() (string, string, string) {
	return s.url, "HTTP Stream", ""
}

// Close closes the HTTP response body
func (s *HTTPMP3Source) Close() error {
	return s.resp.Body.Close()
}

// readInt16LE reads signed 16-bit little-endian PCM from r and converts it
// to float32 samples. A short read delivers what arrived, and io.EOF is
// only returned once no samples remain.
func readInt16LE(r io.Reader, samples []float32) (int, error) {
	buf := make([]byte, len(samples)*2)
	n, err := io.ReadFull(r, buf)
	if err == io.ErrUnexpectedEOF {
		err = nil
	}
	if err == io.EOF {
		return 0, io.EOF
	}
	if err != nil {
		return 0, fmt.Errorf("pcm read error: %w", err)
	}

	numSamples := n / 2
	for i := 0; i < numSamples; i++ {
		sample16 := int16(binary.LittleEndian.Uint16(buf[i*2:]))
		samples[i] = audio.SampleFromInt16(sample16)
	}
	return numSamples, nil
}
