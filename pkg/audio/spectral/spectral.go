// ABOUTME: Spectral analysis helpers built on FFT power spectra
// ABOUTME: Reports dominant frequency, energy and SNR for PCM channels
package spectral

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"

	"github.com/Tempo-Audio/tempo-go/pkg/audio"
)

// Analysis summarizes one channel's spectral content.
type Analysis struct {
	DominantFrequency float64 // Hz
	TotalEnergy       float64 // time-domain sum of squares
	PeakAmplitude     float64
	SNR               float64 // dB, dominant bin against the remaining spectrum
}

// Analyze computes a power spectrum over one channel and derives summary
// measurements from it.
func Analyze(samples []float32, sampleRate int) (Analysis, error) {
	var a Analysis
	if len(samples) == 0 {
		return a, fmt.Errorf("empty channel")
	}
	if sampleRate <= 0 {
		return a, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	wave := make([]float64, len(samples))
	for i, s := range samples {
		wave[i] = float64(s)
	}
	a.PeakAmplitude = math.Max(math.Abs(floats.Max(wave)), math.Abs(floats.Min(wave)))

	spectrum := fft.FFTReal(wave)

	// Real input makes the upper half redundant.
	half := len(spectrum) / 2
	totalPower := 0.0
	maxPower := 0.0
	dominantIndex := 0
	for i := 0; i < half; i++ {
		power := cmplx.Abs(spectrum[i]) * cmplx.Abs(spectrum[i])
		totalPower += power
		if power > maxPower {
			maxPower = power
			dominantIndex = i
		}
	}
	a.DominantFrequency = float64(dominantIndex) * float64(sampleRate) / float64(len(wave))

	for _, v := range wave {
		a.TotalEnergy += v * v
	}

	noisePower := totalPower - maxPower
	if noisePower > 0 {
		a.SNR = 10 * math.Log10(maxPower/noisePower)
	} else {
		a.SNR = math.Inf(1)
	}
	return a, nil
}

// AnalyzeBuffer analyzes the first channel of a buffer.
func AnalyzeBuffer(buf *audio.Buffer) (Analysis, error) {
	if err := buf.Validate(); err != nil {
		return Analysis{}, err
	}
	if buf.FrameCount() == 0 {
		return Analysis{}, fmt.Errorf("empty buffer")
	}
	return Analyze(buf.Channels[0], buf.SampleRate)
}
