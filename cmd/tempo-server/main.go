// ABOUTME: Entry point for the Tempo conversion server
// ABOUTME: Parses CLI flags and starts the server application
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tempo-Audio/tempo-go/pkg/tempo"
)

var (
	port      = flag.Int("port", tempo.DefaultPort, "WebSocket/HTTP server port")
	name      = flag.String("name", "", "Server friendly name (default: hostname-tempo-server)")
	logFile   = flag.String("log-file", "tempo-server.log", "Log file path")
	debug     = flag.Bool("debug", false, "Enable debug logging")
	noMDNS    = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	frameSize = flag.Int("frame-size", 0, "Analysis frame size in samples (default: 2048)")
	window    = flag.String("window", "none", "Synthesis window: none or hann")
	maxFrames = flag.Int("max-upload-frames", 0, "Largest accepted job in frames (default: one hour at 48kHz)")
)

func main() {
	flag.Parse()

	// Set up logging (both file and console)
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	multiWriter := io.MultiWriter(os.Stdout, f)
	log.SetOutput(multiWriter)

	// Determine server name
	serverName := *name
	if serverName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		serverName = fmt.Sprintf("%s-tempo-server", hostname)
	}

	log.Printf("Starting Tempo Server: %s on port %d", serverName, *port)
	if *debug {
		log.Printf("Debug logging enabled")
	}
	log.Printf("Logging to: %s", *logFile)
	log.Printf("Press Ctrl-C to stop")

	srv, err := tempo.NewServer(tempo.ServerConfig{
		Port:            *port,
		Name:            serverName,
		EnableMDNS:      !*noMDNS,
		Debug:           *debug,
		FrameSize:       *frameSize,
		Window:          *window,
		MaxUploadFrames: *maxFrames,
	})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("\nReceived %v signal, shutting down gracefully...", sig)
		srv.Stop()
	}()

	// Start server
	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Printf("Server stopped")
}
