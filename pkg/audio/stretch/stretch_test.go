// ABOUTME: Tests for the time-stretch engine
// ABOUTME: Covers rate validation, output length, purity and window policies
package stretch

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/Tempo-Audio/tempo-go/pkg/audio"
)

func makeSine(channels, frames, sampleRate int, freq float64) *audio.Buffer {
	buf := audio.NewBuffer(channels, sampleRate, frames)
	for c := range buf.Channels {
		for i := range buf.Channels[c] {
			buf.Channels[c][i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate)))
		}
	}
	return buf
}

func TestStretchRateValidation(t *testing.T) {
	tests := []struct {
		name    string
		rate    float64
		wantErr bool
	}{
		{"zero", 0, true},
		{"negative", -1, true},
		{"nan", math.NaN(), true},
		{"positive infinity", math.Inf(1), true},
		{"negative infinity", math.Inf(-1), true},
		{"below minimum", 0.49, true},
		{"above maximum", 2.01, true},
		{"minimum", 0.5, false},
		{"maximum", 2.0, false},
		{"unity", 1.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := audio.NewBuffer(1, 8000, 100)
			out, err := Stretch(buf, tt.rate)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrInvalidRate) {
					t.Errorf("expected ErrInvalidRate, got %v", err)
				}
				if out != nil {
					t.Error("expected nil output on invalid rate")
				}
			} else if err != nil {
				t.Errorf("expected nil error, got %v", err)
			}
		})
	}
}

func TestStretchRejectsInvalidBuffer(t *testing.T) {
	tests := []struct {
		name string
		buf  *audio.Buffer
	}{
		{"no channels", &audio.Buffer{SampleRate: 44100}},
		{"zero sample rate", &audio.Buffer{Channels: [][]float32{make([]float32, 10)}}},
		{"mismatched channel lengths", &audio.Buffer{
			Channels:   [][]float32{make([]float32, 100), make([]float32, 99)},
			SampleRate: 44100,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Stretch(tt.buf, 1.0)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, audio.ErrInvalidBuffer) {
				t.Errorf("expected ErrInvalidBuffer, got %v", err)
			}
			if out != nil {
				t.Error("expected nil output on invalid buffer")
			}
		})
	}
}

func TestStretchOutputLength(t *testing.T) {
	tests := []struct {
		name     string
		inFrames int
		rate     float64
		expected int
	}{
		{"double speed halves", 8000, 2.0, 4000},
		{"half speed doubles", 8000, 0.5, 16000},
		{"unity", 1000, 1.0, 1000},
		{"odd length rounds up", 999, 2.0, 500},
		{"odd length rounds up again", 1001, 2.0, 501},
		{"tiny input", 5, 2.0, 3},
		{"fractional rate", 100, 0.75, 134},
		{"single frame", 1, 2.0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OutputFrames(tt.inFrames, tt.rate); got != tt.expected {
				t.Errorf("OutputFrames: expected %d, got %d", tt.expected, got)
			}

			buf := makeSine(1, tt.inFrames, 8000, 440)
			out, err := Stretch(buf, tt.rate)
			if err != nil {
				t.Fatalf("stretch failed: %v", err)
			}
			if got := out.FrameCount(); got != tt.expected {
				t.Errorf("expected %d output frames, got %d", tt.expected, got)
			}
		})
	}
}

func TestStretchStereoChannelLengths(t *testing.T) {
	buf := makeSine(2, 4410, 44100, 440)
	out, err := Stretch(buf, 2.0)
	if err != nil {
		t.Fatalf("stretch failed: %v", err)
	}
	if out.ChannelCount() != 2 {
		t.Fatalf("expected 2 channels, got %d", out.ChannelCount())
	}
	for c, ch := range out.Channels {
		if len(ch) != 2205 {
			t.Errorf("channel %d: expected 2205 frames, got %d", c, len(ch))
		}
	}
	if out.SampleRate != 44100 {
		t.Errorf("expected sample rate 44100, got %d", out.SampleRate)
	}
}

func TestStretchRateOneExactLength(t *testing.T) {
	buf := makeSine(1, 4097, 44100, 440)
	out, err := Stretch(buf, 1.0)
	if err != nil {
		t.Fatalf("stretch failed: %v", err)
	}
	if out.FrameCount() != 4097 {
		t.Errorf("expected exactly 4097 frames, got %d", out.FrameCount())
	}
}

func TestStretchEmptyInput(t *testing.T) {
	for _, rate := range []float64{0.5, 1.0, 2.0} {
		buf := audio.NewBuffer(2, 44100, 0)
		out, err := Stretch(buf, rate)
		if err != nil {
			t.Fatalf("rate %g: stretch failed: %v", rate, err)
		}
		if out.FrameCount() != 0 {
			t.Errorf("rate %g: expected empty output, got %d frames", rate, out.FrameCount())
		}
		if out.ChannelCount() != 2 {
			t.Errorf("rate %g: expected 2 channels, got %d", rate, out.ChannelCount())
		}
		if out.SampleRate != 44100 {
			t.Errorf("rate %g: expected sample rate 44100, got %d", rate, out.SampleRate)
		}
	}
}

func TestStretchDoesNotMutateInput(t *testing.T) {
	buf := makeSine(1, 4096, 8000, 200)
	original := make([]float32, len(buf.Channels[0]))
	copy(original, buf.Channels[0])

	if _, err := Stretch(buf, 1.5); err != nil {
		t.Fatalf("stretch failed: %v", err)
	}

	for i := range original {
		if buf.Channels[0][i] != original[i] {
			t.Fatalf("input sample %d changed: %f -> %f", i, original[i], buf.Channels[0][i])
		}
	}
}

func TestStretchOutputBounded(t *testing.T) {
	buf := makeSine(1, 8000, 8000, 440)
	out, err := Stretch(buf, 2.0)
	if err != nil {
		t.Fatalf("stretch failed: %v", err)
	}
	for i, s := range out.Channels[0] {
		if s < -1.0 || s > 1.0 {
			t.Fatalf("sample %d out of range: %f", i, s)
		}
		if math.IsNaN(float64(s)) {
			t.Fatalf("sample %d is NaN", i)
		}
	}
}

func TestStretchChannelsIndependent(t *testing.T) {
	// Both channels carry identical signals, so identical per-channel state
	// must produce identical outputs.
	buf := makeSine(2, 8000, 8000, 440)
	out, err := Stretch(buf, 0.5)
	if err != nil {
		t.Fatalf("stretch failed: %v", err)
	}
	for i := range out.Channels[0] {
		if out.Channels[0][i] != out.Channels[1][i] {
			t.Fatalf("channels diverged at frame %d: %f vs %f",
				i, out.Channels[0][i], out.Channels[1][i])
		}
	}
}

func TestStretchDeterministic(t *testing.T) {
	buf := makeSine(1, 6000, 8000, 330)
	first, err := Stretch(buf, 1.25)
	if err != nil {
		t.Fatalf("first stretch failed: %v", err)
	}
	second, err := Stretch(buf, 1.25)
	if err != nil {
		t.Fatalf("second stretch failed: %v", err)
	}
	for i := range first.Channels[0] {
		if first.Channels[0][i] != second.Channels[0][i] {
			t.Fatalf("runs diverged at frame %d", i)
		}
	}
}

func TestStretchConcurrentCalls(t *testing.T) {
	buf := makeSine(1, 4000, 8000, 440)
	want, err := Stretch(buf, 2.0)
	if err != nil {
		t.Fatalf("stretch failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			own := makeSine(1, 4000, 8000, 440)
			out, err := Stretch(own, 2.0)
			if err != nil {
				t.Errorf("concurrent stretch failed: %v", err)
				return
			}
			for j := range want.Channels[0] {
				if out.Channels[0][j] != want.Channels[0][j] {
					t.Errorf("concurrent result diverged at frame %d", j)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestStretchShortInput(t *testing.T) {
	// Input shorter than one frame is still processed as a single
	// zero-padded frame.
	buf := makeSine(1, 100, 8000, 440)
	out, err := Stretch(buf, 1.0)
	if err != nil {
		t.Fatalf("stretch failed: %v", err)
	}
	if out.FrameCount() != 100 {
		t.Errorf("expected 100 frames, got %d", out.FrameCount())
	}
}

func TestStretchHannWindow(t *testing.T) {
	s, err := New(Config{Window: WindowHann})
	if err != nil {
		t.Fatalf("new stretcher failed: %v", err)
	}
	buf := makeSine(1, 8000, 8000, 440)
	out, err := s.Stretch(buf, 2.0)
	if err != nil {
		t.Fatalf("stretch failed: %v", err)
	}
	if out.FrameCount() != 4000 {
		t.Errorf("expected 4000 frames, got %d", out.FrameCount())
	}
	// Hann weights at half-frame hop sum to ~1, so overlapped deposits stay
	// near the nominal range.
	for i, v := range out.Channels[0] {
		if v < -1.01 || v > 1.01 {
			t.Fatalf("sample %d out of range: %f", i, v)
		}
	}
}

func TestNewConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"explicit", Config{FrameSize: 1024, MinRate: 0.25, MaxRate: 4.0}, false},
		{"frame size too small", Config{FrameSize: 1}, true},
		{"negative frame size", Config{FrameSize: -5}, true},
		{"inverted rate range", Config{MinRate: 2.0, MaxRate: 0.5}, true},
		{"negative min rate", Config{MinRate: -0.5, MaxRate: 2.0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected nil error, got %v", err)
			}
		})
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	s, err := New(Config{})
	if err != nil {
		t.Fatalf("new stretcher failed: %v", err)
	}
	if s.cfg.FrameSize != DefaultFrameSize {
		t.Errorf("expected frame size %d, got %d", DefaultFrameSize, s.cfg.FrameSize)
	}
	if s.cfg.MinRate != DefaultMinRate || s.cfg.MaxRate != DefaultMaxRate {
		t.Errorf("expected rate range [%g, %g], got [%g, %g]",
			DefaultMinRate, DefaultMaxRate, s.cfg.MinRate, s.cfg.MaxRate)
	}
}

func TestValidateRate(t *testing.T) {
	s, err := New(Config{})
	if err != nil {
		t.Fatalf("new stretcher failed: %v", err)
	}

	if err := s.ValidateRate(1.0); err != nil {
		t.Errorf("expected rate 1.0 to validate, got %v", err)
	}
	if err := s.ValidateRate(3.0); !errors.Is(err, ErrInvalidRate) {
		t.Errorf("expected ErrInvalidRate for 3.0, got %v", err)
	}
}

func TestParseWindow(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Window
		wantErr  bool
	}{
		{"empty defaults to none", "", WindowNone, false},
		{"none", "none", WindowNone, false},
		{"hann", "hann", WindowHann, false},
		{"uppercase", "HANN", WindowHann, false},
		{"unknown", "blackman", WindowNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ParseWindow(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
			if w != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, w)
			}
		})
	}
}
