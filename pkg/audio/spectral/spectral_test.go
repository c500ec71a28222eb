// ABOUTME: Tests for spectral analysis
// ABOUTME: Verifies dominant frequency detection on known signals
package spectral

import (
	"math"
	"testing"

	"github.com/Tempo-Audio/tempo-go/pkg/audio"
)

func makeSine(frames, sampleRate int, freq float64) []float32 {
	out := make([]float32, frames)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate)))
	}
	return out
}

func TestAnalyzeSine(t *testing.T) {
	// 1000 Hz lands exactly on bin 512 of a 4096-point spectrum at 8 kHz.
	samples := makeSine(4096, 8000, 1000)
	a, err := Analyze(samples, 8000)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	if math.Abs(a.DominantFrequency-1000) > 2 {
		t.Errorf("expected dominant frequency ~1000 Hz, got %f", a.DominantFrequency)
	}
	if a.SNR < 20 {
		t.Errorf("expected high SNR for a pure tone, got %f dB", a.SNR)
	}
	if math.Abs(a.PeakAmplitude-1.0) > 1e-3 {
		t.Errorf("expected peak amplitude ~1.0, got %f", a.PeakAmplitude)
	}
	if a.TotalEnergy <= 0 {
		t.Errorf("expected positive energy, got %f", a.TotalEnergy)
	}
}

func TestAnalyzeFrequencies(t *testing.T) {
	tests := []struct {
		name string
		freq float64
	}{
		{"500 Hz", 500},
		{"1000 Hz", 1000},
		{"2000 Hz", 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples := makeSine(4096, 8000, tt.freq)
			a, err := Analyze(samples, 8000)
			if err != nil {
				t.Fatalf("analyze failed: %v", err)
			}
			if math.Abs(a.DominantFrequency-tt.freq) > 2 {
				t.Errorf("expected ~%f Hz, got %f", tt.freq, a.DominantFrequency)
			}
		})
	}
}

func TestAnalyzeSilence(t *testing.T) {
	a, err := Analyze(make([]float32, 1024), 8000)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if a.DominantFrequency != 0 {
		t.Errorf("expected 0 Hz for silence, got %f", a.DominantFrequency)
	}
	if a.TotalEnergy != 0 {
		t.Errorf("expected zero energy, got %f", a.TotalEnergy)
	}
	if a.PeakAmplitude != 0 {
		t.Errorf("expected zero peak, got %f", a.PeakAmplitude)
	}
}

func TestAnalyzeDCOffset(t *testing.T) {
	samples := make([]float32, 1024)
	for i := range samples {
		samples[i] = 0.5
	}
	a, err := Analyze(samples, 8000)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if a.DominantFrequency != 0 {
		t.Errorf("expected DC dominant at 0 Hz, got %f", a.DominantFrequency)
	}
}

func TestAnalyzeRejectsInvalidInput(t *testing.T) {
	if _, err := Analyze(nil, 8000); err == nil {
		t.Error("expected error for empty channel")
	}
	if _, err := Analyze(make([]float32, 16), 0); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestAnalyzeBuffer(t *testing.T) {
	buf := audio.NewBuffer(2, 8000, 4096)
	copy(buf.Channels[0], makeSine(4096, 8000, 1000))

	a, err := AnalyzeBuffer(buf)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if math.Abs(a.DominantFrequency-1000) > 2 {
		t.Errorf("expected ~1000 Hz, got %f", a.DominantFrequency)
	}

	if _, err := AnalyzeBuffer(&audio.Buffer{SampleRate: 8000}); err == nil {
		t.Error("expected error for invalid buffer")
	}
	if _, err := AnalyzeBuffer(audio.NewBuffer(1, 8000, 0)); err == nil {
		t.Error("expected error for empty buffer")
	}
}
