// ABOUTME: Spectral analysis package documentation
// ABOUTME: Describes FFT-based measurement of PCM channels
// Package spectral measures frequency content of PCM audio.
//
// Analysis runs an FFT over a channel, builds the power spectrum and
// reports the dominant frequency, time-domain energy, peak amplitude and
// a signal-to-noise estimate. It backs the probe tool and conversion
// diagnostics.
//
// Example:
//
//	a, err := spectral.AnalyzeBuffer(buf)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("dominant: %.1f Hz\n", a.DominantFrequency)
package spectral
