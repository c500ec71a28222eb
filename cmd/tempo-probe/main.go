// ABOUTME: Diagnostic tool for inspecting audio and exercising the engine
// ABOUTME: Decodes a file or generates a tone, reports spectra, optionally stretches
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/Tempo-Audio/tempo-go/pkg/audio"
	"github.com/Tempo-Audio/tempo-go/pkg/audio/decode"
	"github.com/Tempo-Audio/tempo-go/pkg/audio/spectral"
	"github.com/Tempo-Audio/tempo-go/pkg/audio/stretch"
)

var (
	input        = flag.String("input", "", "Audio file to inspect (default: generated tone)")
	toneFreq     = flag.Float64("tone-freq", 440, "Tone frequency in Hz when generating")
	toneRate     = flag.Int("tone-rate", 48000, "Tone sample rate when generating")
	toneChannels = flag.Int("tone-channels", 2, "Tone channel count when generating")
	toneDuration = flag.Duration("tone-duration", 2*time.Second, "Tone length when generating")
	rate         = flag.Float64("rate", 0, "Also run a stretch at this rate and report it")
	frameSize    = flag.Int("frame-size", 0, "Analysis frame size for the stretch (default: 2048)")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ltime | log.Lmicroseconds)

	src, err := openSource()
	if err != nil {
		log.Fatalf("Failed to open source: %v", err)
	}
	defer src.Close()

	buf, err := decode.ReadAll(src)
	if err != nil {
		log.Fatalf("Failed to decode: %v", err)
	}

	title, artist, album := src.Metadata()
	fmt.Println("=== Tempo Probe ===")
	fmt.Printf("Source:    %s", title)
	if artist != "" {
		fmt.Printf(" - %s", artist)
	}
	if album != "" {
		fmt.Printf(" (%s)", album)
	}
	fmt.Println()
	fmt.Printf("Format:    %d Hz, %d channels\n", buf.SampleRate, buf.ChannelCount())
	fmt.Printf("Length:    %d frames (%.2fs)\n", buf.FrameCount(), buf.Duration().Seconds())
	fmt.Println()

	for ch := range buf.Channels {
		analysis, err := spectral.Analyze(buf.Channels[ch], buf.SampleRate)
		if err != nil {
			log.Fatalf("Analysis of channel %d failed: %v", ch, err)
		}
		fmt.Printf("Channel %d: dominant %.1f Hz, peak %.3f, SNR %.1f dB\n",
			ch, analysis.DominantFrequency, analysis.PeakAmplitude, analysis.SNR)
	}

	if *rate > 0 {
		runStretch(buf)
	}
}

func openSource() (decode.Source, error) {
	if *input != "" {
		return decode.Open(*input)
	}
	return decode.NewToneSource(*toneFreq, *toneRate, *toneChannels, *toneDuration)
}

// runStretch exercises the engine end to end and compares the predicted
// frame count against what actually came out.
func runStretch(buf *audio.Buffer) {
	stretcher, err := stretch.New(stretch.Config{FrameSize: *frameSize})
	if err != nil {
		log.Fatalf("Failed to create stretcher: %v", err)
	}

	predicted := stretch.OutputFrames(buf.FrameCount(), *rate)

	started := time.Now()
	out, err := stretcher.Stretch(buf, *rate)
	if err != nil {
		log.Fatalf("Stretch failed: %v", err)
	}
	elapsed := time.Since(started)

	fmt.Println()
	fmt.Printf("Stretch at rate %.2f:\n", *rate)
	fmt.Printf("  Predicted: %d frames\n", predicted)
	fmt.Printf("  Produced:  %d frames (%.2fs)\n", out.FrameCount(), out.Duration().Seconds())
	fmt.Printf("  Elapsed:   %v (%.1fx realtime)\n",
		elapsed, buf.Duration().Seconds()/elapsed.Seconds())

	if out.FrameCount() != predicted {
		fmt.Printf("  WARNING: produced frame count does not match prediction\n")
	}
}
