// ABOUTME: WAV package documentation
// ABOUTME: Describes RIFF/WAVE encoding and decoding of PCM buffers
// Package wav serializes PCM buffers into RIFF/WAVE byte streams.
//
// The output is the canonical uncompressed layout: a fixed 44-byte header
// (RIFF chunk, "fmt " subchunk describing 16-bit linear PCM, "data"
// subchunk) followed by frame-major interleaved little-endian samples.
// Float samples are clamped to [-1, 1] and scaled asymmetrically so that
// both full-scale values are representable.
//
// Example:
//
//	stream, err := wav.Encode(buf)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("out.wav", stream, 0644)
package wav
