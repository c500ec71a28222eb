// ABOUTME: Tests for the local Converter API
// ABOUTME: Covers defaults, conversion, stretching, progress, and WAV helpers
package tempo

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Tempo-Audio/tempo-go/pkg/audio"
	"github.com/Tempo-Audio/tempo-go/pkg/audio/decode"
	"github.com/Tempo-Audio/tempo-go/pkg/audio/stretch"
	"github.com/Tempo-Audio/tempo-go/pkg/audio/wav"
)

func sineBuffer(channels, sampleRate, frames int) *audio.Buffer {
	buf := audio.NewBuffer(channels, sampleRate, frames)
	for ch := 0; ch < channels; ch++ {
		for i := 0; i < frames; i++ {
			buf.Channels[ch][i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
		}
	}
	return buf
}

func TestNewConverter(t *testing.T) {
	converter, err := NewConverter(ConverterConfig{})
	if err != nil {
		t.Fatalf("Failed to create converter: %v", err)
	}

	// Check defaults were applied
	if converter.config.FrameSize != stretch.DefaultFrameSize {
		t.Errorf("Expected FrameSize=%d, got %d", stretch.DefaultFrameSize, converter.config.FrameSize)
	}
	if converter.config.Window != "none" {
		t.Errorf("Expected Window=none, got %q", converter.config.Window)
	}
}

func TestNewConverterBadWindow(t *testing.T) {
	_, err := NewConverter(ConverterConfig{Window: "blackman"})
	if err == nil {
		t.Fatal("Expected error for unknown window")
	}
}

func TestNewConverterBadFrameSize(t *testing.T) {
	_, err := NewConverter(ConverterConfig{FrameSize: 1})
	if err == nil {
		t.Fatal("Expected error for frame size below 2")
	}
}

func TestConverterConvert(t *testing.T) {
	converter, err := NewConverter(ConverterConfig{})
	if err != nil {
		t.Fatalf("Failed to create converter: %v", err)
	}

	buf := sineBuffer(1, 8000, 2000)
	res, err := converter.Convert(context.Background(), buf, 2.0)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if res.InputFrames != 2000 {
		t.Errorf("Expected InputFrames=2000, got %d", res.InputFrames)
	}
	if res.OutputFrames != 1000 {
		t.Errorf("Expected OutputFrames=1000, got %d", res.OutputFrames)
	}
	if res.SampleRate != 8000 {
		t.Errorf("Expected SampleRate=8000, got %d", res.SampleRate)
	}
	if res.Channels != 1 {
		t.Errorf("Expected Channels=1, got %d", res.Channels)
	}
	if res.OutputBytes != len(res.WAV) {
		t.Errorf("OutputBytes=%d does not match stream length %d", res.OutputBytes, len(res.WAV))
	}
	if res.JobID == "" {
		t.Error("Expected a job ID")
	}

	decoded, err := DecodeWAV(res.WAV)
	if err != nil {
		t.Fatalf("Failed to decode result stream: %v", err)
	}
	if decoded.FrameCount() != 1000 {
		t.Errorf("Expected 1000 decoded frames, got %d", decoded.FrameCount())
	}
}

func TestConverterConvertInvalidRate(t *testing.T) {
	converter, err := NewConverter(ConverterConfig{})
	if err != nil {
		t.Fatalf("Failed to create converter: %v", err)
	}

	buf := sineBuffer(1, 8000, 100)
	for _, rate := range []float64{0, -1, 3.0, math.NaN()} {
		_, err := converter.Convert(context.Background(), buf, rate)
		if !errors.Is(err, stretch.ErrInvalidRate) {
			t.Errorf("rate %v: expected ErrInvalidRate, got %v", rate, err)
		}
	}
}

func TestConverterConvertFile(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "in.wav")
	outputPath := filepath.Join(dir, "out.wav")

	stream, err := EncodeWAV(sineBuffer(2, 8000, 1600))
	if err != nil {
		t.Fatalf("Failed to encode input: %v", err)
	}
	if err := os.WriteFile(inputPath, stream, 0o644); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}

	converter, err := NewConverter(ConverterConfig{})
	if err != nil {
		t.Fatalf("Failed to create converter: %v", err)
	}

	res, err := converter.ConvertFile(context.Background(), inputPath, outputPath, 2.0)
	if err != nil {
		t.Fatalf("ConvertFile failed: %v", err)
	}
	if res.OutputFrames != 800 {
		t.Errorf("Expected OutputFrames=800, got %d", res.OutputFrames)
	}

	written, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}

	header, err := wav.ParseHeader(written)
	if err != nil {
		t.Fatalf("Output is not a valid stream: %v", err)
	}
	if header.FrameCount() != 800 {
		t.Errorf("Expected 800 frames in output, got %d", header.FrameCount())
	}
	if header.NumChannels != 2 {
		t.Errorf("Expected 2 channels, got %d", header.NumChannels)
	}
}

func TestConverterConvertSource(t *testing.T) {
	converter, err := NewConverter(ConverterConfig{})
	if err != nil {
		t.Fatalf("Failed to create converter: %v", err)
	}

	source, err := decode.NewToneSource(440, 8000, 1, 250*time.Millisecond)
	if err != nil {
		t.Fatalf("Failed to create tone: %v", err)
	}
	defer source.Close()

	res, err := converter.ConvertSource(context.Background(), source, 2.0)
	if err != nil {
		t.Fatalf("ConvertSource failed: %v", err)
	}
	if res.InputFrames != 2000 {
		t.Errorf("Expected InputFrames=2000, got %d", res.InputFrames)
	}
	if res.OutputFrames != 1000 {
		t.Errorf("Expected OutputFrames=1000, got %d", res.OutputFrames)
	}
}

func TestConverterStretch(t *testing.T) {
	converter, err := NewConverter(ConverterConfig{})
	if err != nil {
		t.Fatalf("Failed to create converter: %v", err)
	}

	buf := sineBuffer(2, 44100, 2000)
	out, err := converter.Stretch(buf, 1.5)
	if err != nil {
		t.Fatalf("Stretch failed: %v", err)
	}

	want := converter.OutputFrames(2000, 1.5)
	if out.FrameCount() != want {
		t.Errorf("Expected %d frames, got %d", want, out.FrameCount())
	}
	if out.SampleRate != 44100 {
		t.Errorf("Expected SampleRate=44100, got %d", out.SampleRate)
	}
	if out.ChannelCount() != 2 {
		t.Errorf("Expected 2 channels, got %d", out.ChannelCount())
	}
}

func TestConverterProgress(t *testing.T) {
	var stages []string
	converter, err := NewConverter(ConverterConfig{
		OnProgress: func(p Progress) {
			stages = append(stages, p.Stage)
			if p.Percent < 0 || p.Percent > 100 {
				t.Errorf("Percent out of range: %f", p.Percent)
			}
		},
	})
	if err != nil {
		t.Fatalf("Failed to create converter: %v", err)
	}

	_, err = converter.Convert(context.Background(), sineBuffer(1, 8000, 1000), 1.0)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	seen := make(map[string]bool)
	for _, stage := range stages {
		seen[stage] = true
	}
	if !seen["stretching"] {
		t.Error("Expected progress for the stretching stage")
	}
	if !seen["encoding"] {
		t.Error("Expected progress for the encoding stage")
	}
}

func TestConverterResamples(t *testing.T) {
	converter, err := NewConverter(ConverterConfig{OutputRate: 4000})
	if err != nil {
		t.Fatalf("Failed to create converter: %v", err)
	}

	res, err := converter.Convert(context.Background(), sineBuffer(1, 8000, 800), 1.0)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if res.SampleRate != 4000 {
		t.Errorf("Expected SampleRate=4000, got %d", res.SampleRate)
	}
	if res.OutputFrames != 400 {
		t.Errorf("Expected OutputFrames=400, got %d", res.OutputFrames)
	}
}

func TestConverterValidateRate(t *testing.T) {
	converter, err := NewConverter(ConverterConfig{})
	if err != nil {
		t.Fatalf("Failed to create converter: %v", err)
	}

	if err := converter.ValidateRate(1.0); err != nil {
		t.Errorf("Expected rate 1.0 to be valid, got %v", err)
	}
	if err := converter.ValidateRate(3.0); !errors.Is(err, stretch.ErrInvalidRate) {
		t.Errorf("Expected ErrInvalidRate for 3.0, got %v", err)
	}
}

func TestConverterOutputFrames(t *testing.T) {
	converter, err := NewConverter(ConverterConfig{})
	if err != nil {
		t.Fatalf("Failed to create converter: %v", err)
	}

	tests := []struct {
		frames int
		rate   float64
		want   int
	}{
		{8000, 2.0, 4000},
		{100, 0.75, 134},
		{1, 2.0, 1},
		{0, 1.0, 0},
	}

	for _, tt := range tests {
		got := converter.OutputFrames(tt.frames, tt.rate)
		if got != tt.want {
			t.Errorf("OutputFrames(%d, %v) = %d, want %d", tt.frames, tt.rate, got, tt.want)
		}
	}
}

func TestEncodeWAVEmpty(t *testing.T) {
	stream, err := EncodeWAV(audio.NewBuffer(1, 8000, 0))
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	if len(stream) != wav.HeaderSize {
		t.Errorf("Expected %d header bytes for empty input, got %d", wav.HeaderSize, len(stream))
	}
}

func TestWAVHelperRoundTrip(t *testing.T) {
	buf := sineBuffer(2, 22050, 300)

	stream, err := EncodeWAV(buf)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	decoded, err := DecodeWAV(stream)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if decoded.FrameCount() != 300 {
		t.Errorf("Expected 300 frames, got %d", decoded.FrameCount())
	}
	if decoded.SampleRate != 22050 {
		t.Errorf("Expected SampleRate=22050, got %d", decoded.SampleRate)
	}
}
