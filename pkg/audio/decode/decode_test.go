// ABOUTME: Tests for audio sources and the extension dispatcher
// ABOUTME: Uses generated tones and temp files, no network or ffmpeg needed
package decode

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Tempo-Audio/tempo-go/pkg/audio"
	"github.com/Tempo-Audio/tempo-go/pkg/audio/wav"
)

var (
	_ Source = (*WAVSource)(nil)
	_ Source = (*MP3Source)(nil)
	_ Source = (*HTTPMP3Source)(nil)
	_ Source = (*FLACSource)(nil)
	_ Source = (*RawSource)(nil)
	_ Source = (*FFmpegSource)(nil)
	_ Source = (*ToneSource)(nil)
)

func TestToneSourceGeneratesSine(t *testing.T) {
	src, err := NewToneSource(440, 8000, 1, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("NewToneSource failed: %v", err)
	}
	defer src.Close()

	buf, err := ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}

	if buf.FrameCount() != 800 {
		t.Errorf("expected 800 frames, got %d", buf.FrameCount())
	}
	if buf.SampleRate != 8000 {
		t.Errorf("expected sample rate 8000, got %d", buf.SampleRate)
	}

	if buf.Channels[0][0] != 0 {
		t.Errorf("expected first sample 0, got %f", buf.Channels[0][0])
	}

	expected := float32(0.5 * math.Sin(2*math.Pi*440.0/8000.0))
	if diff := math.Abs(float64(buf.Channels[0][1] - expected)); diff > 1e-6 {
		t.Errorf("expected second sample %f, got %f", expected, buf.Channels[0][1])
	}

	for i, v := range buf.Channels[0] {
		if v > 0.5 || v < -0.5 {
			t.Fatalf("sample %d out of range: %f", i, v)
		}
	}
}

func TestToneSourceStereoDuplicates(t *testing.T) {
	src, err := NewToneSource(1000, 44100, 2, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewToneSource failed: %v", err)
	}
	defer src.Close()

	samples := make([]float32, 128)
	n, err := src.Read(samples)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if n == 0 || n%2 != 0 {
		t.Fatalf("expected even positive sample count, got %d", n)
	}

	for i := 0; i < n; i += 2 {
		if samples[i] != samples[i+1] {
			t.Errorf("frame %d channels differ: %f vs %f", i/2, samples[i], samples[i+1])
		}
	}
}

func TestToneSourceEOF(t *testing.T) {
	src, err := NewToneSource(440, 8000, 1, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewToneSource failed: %v", err)
	}
	defer src.Close()

	total := 0
	chunk := make([]float32, 64)
	for {
		n, err := src.Read(chunk)
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
	}

	if total != 80 {
		t.Errorf("expected 80 samples total, got %d", total)
	}

	n, err := src.Read(chunk)
	if n != 0 || err != io.EOF {
		t.Errorf("expected (0, io.EOF) after exhaustion, got (%d, %v)", n, err)
	}
}

func TestToneSourceInvalidConfig(t *testing.T) {
	tests := []struct {
		name       string
		frequency  float64
		sampleRate int
		channels   int
		duration   time.Duration
	}{
		{"zero frequency", 0, 44100, 2, time.Second},
		{"negative frequency", -440, 44100, 2, time.Second},
		{"zero sample rate", 440, 0, 2, time.Second},
		{"zero channels", 440, 44100, 0, time.Second},
		{"negative duration", 440, 44100, 2, -time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewToneSource(tt.frequency, tt.sampleRate, tt.channels, tt.duration)
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestRawSourceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.raw")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	values := []int16{0, 1000, -1000, 32767, -32768, 42}
	if err := binary.Write(f, binary.LittleEndian, values); err != nil {
		t.Fatalf("failed to write samples: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("failed to close temp file: %v", err)
	}

	src, err := NewRawSource(path, 8000, 1)
	if err != nil {
		t.Fatalf("NewRawSource failed: %v", err)
	}
	defer src.Close()

	if src.SampleRate() != 8000 {
		t.Errorf("expected sample rate 8000, got %d", src.SampleRate())
	}
	if src.Channels() != 1 {
		t.Errorf("expected 1 channel, got %d", src.Channels())
	}

	buf, err := ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if buf.FrameCount() != len(values) {
		t.Fatalf("expected %d frames, got %d", len(values), buf.FrameCount())
	}

	for i, v := range values {
		expected := audio.SampleFromInt16(v)
		if buf.Channels[0][i] != expected {
			t.Errorf("sample %d: expected %f, got %f", i, expected, buf.Channels[0][i])
		}
	}
}

func TestRawSourceInvalidConfig(t *testing.T) {
	if _, err := NewRawSource("ignored.raw", 0, 2); err == nil {
		t.Error("expected error for zero sample rate")
	}
	if _, err := NewRawSource("ignored.raw", 44100, 0); err == nil {
		t.Error("expected error for zero channels")
	}
	if _, err := NewRawSource(filepath.Join(t.TempDir(), "missing.raw"), 44100, 2); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWAVSourceDecodesEncodedFile(t *testing.T) {
	buf := audio.NewBuffer(2, 44100, 64)
	for i := 0; i < 64; i++ {
		buf.Channels[0][i] = float32(i) / 128.0
		buf.Channels[1][i] = -float32(i) / 128.0
	}

	stream, err := wav.Encode(buf)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "ramp.wav")
	if err := os.WriteFile(path, stream, 0o644); err != nil {
		t.Fatalf("failed to write wav file: %v", err)
	}

	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	if src.SampleRate() != 44100 {
		t.Errorf("expected sample rate 44100, got %d", src.SampleRate())
	}
	if src.Channels() != 2 {
		t.Errorf("expected 2 channels, got %d", src.Channels())
	}

	decoded, err := ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if decoded.FrameCount() != 64 {
		t.Fatalf("expected 64 frames, got %d", decoded.FrameCount())
	}

	// Quantization plus decoder scaling differences stay well under 1e-3.
	for ch := 0; ch < 2; ch++ {
		for i := 0; i < 64; i++ {
			diff := math.Abs(float64(decoded.Channels[ch][i] - buf.Channels[ch][i]))
			if diff > 1e-3 {
				t.Fatalf("channel %d sample %d drifted: expected %f, got %f",
					ch, i, buf.Channels[ch][i], decoded.Channels[ch][i])
			}
		}
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.mp3")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestOpenRawRequiresExplicitFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.raw")
	if err := os.WriteFile(path, []byte{0, 0, 0, 0}, 0o644); err != nil {
		t.Fatalf("failed to write raw file: %v", err)
	}

	if _, err := Open(path); err == nil {
		t.Error("expected error for raw file without format")
	}
}

func TestReadAllEmptySource(t *testing.T) {
	src, err := NewToneSource(440, 8000, 1, 0)
	if err != nil {
		t.Fatalf("NewToneSource failed: %v", err)
	}
	defer src.Close()

	buf, err := ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if buf.FrameCount() != 0 {
		t.Errorf("expected 0 frames, got %d", buf.FrameCount())
	}
}
