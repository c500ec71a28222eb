// ABOUTME: Entry point for the Tempo converter CLI
// ABOUTME: Parses flags, decodes the input, and converts locally or on a server
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Tempo-Audio/tempo-go/pkg/audio"
	"github.com/Tempo-Audio/tempo-go/pkg/audio/decode"
	"github.com/Tempo-Audio/tempo-go/pkg/tempo"
)

var (
	input       = flag.String("input", "", "Input audio file (WAV, MP3, FLAC, raw PCM, or anything ffmpeg reads)")
	output      = flag.String("output", "", "Output WAV path (default: <input>-<rate>x.wav)")
	rate        = flag.Float64("rate", 1.0, "Playback rate, 0.5-2.0 (>1 shortens)")
	outputRate  = flag.Int("sample-rate", 0, "Resample the output to this rate (default: keep source rate)")
	frameSize   = flag.Int("frame-size", 0, "Analysis frame size in samples (default: 2048)")
	window      = flag.String("window", "none", "Synthesis window: none or hann")
	serverAddr  = flag.String("server", "", "Convert on a remote server at host:port")
	discover    = flag.Bool("discover", false, "Discover a conversion server via mDNS")
	rawRate     = flag.Int("raw-rate", 0, "Sample rate for headerless raw PCM input")
	rawChannels = flag.Int("raw-channels", 0, "Channel count for headerless raw PCM input")
	logFile     = flag.String("log-file", "", "Also write logs to this file")
	debug       = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: tempo -input <file> -rate <0.5-2.0> [options]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	// Set up logging
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatalf("error opening log file: %v", err)
		}
		defer f.Close()
		log.SetOutput(io.MultiWriter(os.Stderr, f))
	}
	if *debug {
		log.Printf("[DEBUG] Debug logging enabled")
	}

	// Cancel the conversion on Ctrl-C
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received %v signal, canceling...", sig)
		cancel()
	}()

	buf, err := loadInput()
	if err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}
	log.Printf("Loaded %s: %d frames, %d channels, %d Hz (%.1fs)",
		*input, buf.FrameCount(), buf.ChannelCount(), buf.SampleRate, buf.Duration().Seconds())

	var res *tempo.Result
	if *serverAddr != "" || *discover {
		res, err = convertRemote(ctx, buf)
	} else {
		res, err = convertLocal(ctx, buf)
	}
	if err != nil {
		log.Fatalf("Conversion failed: %v", err)
	}

	outputPath := *output
	if outputPath == "" {
		outputPath = defaultOutputPath(*input, *rate)
	}
	if err := os.WriteFile(outputPath, res.WAV, 0o644); err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}

	log.Printf("Converted %d frames to %d frames at rate %.2f in %v",
		res.InputFrames, res.OutputFrames, *rate, res.Elapsed)
	log.Printf("Wrote %s (%d bytes, %d Hz, %d channels)",
		outputPath, res.OutputBytes, res.SampleRate, res.Channels)
}

// loadInput decodes the input file into memory. Raw PCM needs the format
// flags because the file carries no header to read it from.
func loadInput() (*audio.Buffer, error) {
	var src decode.Source
	var err error

	if *rawRate > 0 || *rawChannels > 0 {
		src, err = decode.NewRawSource(*input, *rawRate, *rawChannels)
	} else {
		src, err = decode.Open(*input)
	}
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return decode.ReadAll(src)
}

func convertLocal(ctx context.Context, buf *audio.Buffer) (*tempo.Result, error) {
	converter, err := tempo.NewConverter(tempo.ConverterConfig{
		FrameSize:  *frameSize,
		Window:     *window,
		OutputRate: *outputRate,
		OnProgress: logProgress,
	})
	if err != nil {
		return nil, err
	}

	return converter.Convert(ctx, buf, *rate)
}

func convertRemote(ctx context.Context, buf *audio.Buffer) (*tempo.Result, error) {
	if *frameSize != 0 || *window != "none" {
		log.Printf("Note: -frame-size and -window are server-side settings, ignoring")
	}

	remote, err := tempo.NewRemote(tempo.RemoteConfig{
		ServerAddr: *serverAddr,
		OutputRate: *outputRate,
		OnProgress: logProgress,
	})
	if err != nil {
		return nil, err
	}
	defer remote.Close()

	if *serverAddr == "" {
		log.Printf("Discovering conversion servers...")
	}
	if err := remote.Connect(); err != nil {
		return nil, err
	}
	log.Printf("Connected to %s", remote.ServerInfo().Name)

	return remote.Convert(ctx, buf, *rate)
}

// logProgress prints each stage as it starts and finishes
func logProgress(p tempo.Progress) {
	if p.Done == 0 || p.Done == p.Total || *debug {
		log.Printf("%s: %d/%d frames (%.0f%%)", p.Stage, p.Done, p.Total, p.Percent)
	}
}

func defaultOutputPath(inputPath string, rate float64) string {
	base := inputPath
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	return fmt.Sprintf("%s-%.2fx.wav", base, rate)
}
