// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Buffer, Format types and sample conversion functions
// Package audio provides fundamental audio types and utilities for PCM processing.
//
// This package defines core types used throughout the tempo library:
//   - Buffer: Decoded PCM audio as de-interleaved float32 channels
//   - Format: Describes a decoded stream (codec, sample rate, channels, bit depth)
//
// It also provides utilities for converting between float and 16-bit integer
// samples, and for interleaving and de-interleaving channel data.
//
// Example:
//
//	buf := audio.NewBuffer(2, 48000, 1024)
//	// ... fill buf.Channels ...
//
//	// Convert a float sample to 16-bit PCM
//	pcm := audio.SampleToInt16(buf.Channels[0][0])
package audio
