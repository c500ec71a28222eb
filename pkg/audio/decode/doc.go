// ABOUTME: Audio source package for reading files, URLs and generators
// ABOUTME: Provides the Source interface and per-format implementations
// Package decode reads audio from files, HTTP streams and generators as
// interleaved float32 PCM.
//
// Supports: WAV, MP3, FLAC, raw s16le PCM, and anything ffmpeg can decode.
//
// All sources implement the Source interface. Open dispatches on the file
// extension or URL; ReadAll drains a source into an audio.Buffer for
// whole-file processing.
//
// Example:
//
//	src, err := decode.Open("song.flac")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer src.Close()
//	buf, err := decode.ReadAll(src)
package decode
