// ABOUTME: Fallback source that shells out to ffmpeg for any other format
// ABOUTME: Pipes decoded s16le PCM from ffmpeg stdout at a fixed format
package decode

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strconv"
)

const (
	ffmpegSampleRate = 48000
	ffmpegChannels   = 2
)

// FFmpegSource decodes arbitrary formats by piping through ffmpeg. Output
// is always 48 kHz stereo s16le regardless of the input format.
type FFmpegSource struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	reader *bufio.Reader
	title  string
}

// NewFFmpegSource creates a source decoding pathOrURL via ffmpeg
func NewFFmpegSource(pathOrURL string) (*FFmpegSource, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH, install it to decode this format: %w", err)
	}

	cmd := exec.Command("ffmpeg",
		"-loglevel", "error",
		"-i", pathOrURL,
		"-f", "s16le",
		"-ar", strconv.Itoa(ffmpegSampleRate),
		"-ac", strconv.Itoa(ffmpegChannels),
		"-")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	return &FFmpegSource{
		cmd:    cmd,
		stdout: stdout,
		reader: bufio.NewReaderSize(stdout, 64*1024),
		title:  baseTitle(pathOrURL),
	}, nil
}

// Read fills samples with interleaved audio data
func (s *FFmpegSource) Read(samples []float32) (int, error) {
	return readInt16LE(s.reader, samples)
}

// SampleRate returns the fixed ffmpeg output rate
func (s *FFmpegSource) SampleRate() int {
	return ffmpegSampleRate
}

// Channels returns the fixed ffmpeg output channel count
func (s *FFmpegSource) Channels() int {
	return ffmpegChannels
}

// Metadata returns basic metadata derived from the input name
func (s *FFmpegSource) Metadata() (string, string, string) {
	return s.title, "Unknown Artist", "Unknown Album"
}

// Close stops the ffmpeg process and releases the pipe
func (s *FFmpegSource) Close() error {
	s.stdout.Close()
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.cmd.Wait()
	return nil
}
