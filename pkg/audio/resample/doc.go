// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts PCM buffers between different sample rates
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation for converting between sample rates.
// Handles both upsampling and downsampling of whole buffers.
//
// Example:
//
//	r, err := resample.New(44100, 48000)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := r.Resample(buf)
package resample
