// ABOUTME: Time-stretch package providing pitch-preserving speed conversion
// ABOUTME: Implements frame-based phase-tracked analysis and resynthesis
// Package stretch changes the playback speed of PCM audio while preserving
// perceived pitch.
//
// The engine processes each channel independently: the input is read in
// fixed-size analysis frames whose positions advance at a stride scaled by
// the conversion rate, a per-sample phase tracker estimates instantaneous
// frequency, and the output is resynthesized from the accumulated synthesis
// phase. The output length is always ceil(input length / rate), so rate 2.0
// halves the duration and rate 0.5 doubles it.
//
// Example:
//
//	s, err := stretch.New(stretch.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := s.Stretch(buf, 1.5) // 1.5x faster, same pitch
package stretch
