// ABOUTME: Conversion pipeline package
// ABOUTME: Wires decoding, stretching, resampling and encoding together
// Package convert orchestrates the audio conversion pipeline.
//
// A Pipeline owns a configured stretcher and runs requests through up to
// four stages: decode, stretch, resample (optional) and WAV encode.
// Callers holding a decoded buffer can enter at Process; Run handles
// files and URLs end to end.
package convert
