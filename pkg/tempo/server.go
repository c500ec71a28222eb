// ABOUTME: High-level Server API for hosting a conversion service
// ABOUTME: Wraps the WebSocket/HTTP server with defaults and lifecycle control
package tempo

import (
	"github.com/Tempo-Audio/tempo-go/internal/server"
	"github.com/Tempo-Audio/tempo-go/pkg/audio/stretch"
)

// DefaultPort is the port conversion servers listen on
const DefaultPort = 8938

// ServerConfig configures a conversion server
type ServerConfig struct {
	// Port to listen on (default: 8938)
	Port int

	// Name of the server for identification (default: "Tempo Server")
	Name string

	// EnableMDNS advertises the service over mDNS
	EnableMDNS bool

	// Debug enables debug logging
	Debug bool

	// FrameSize is the analysis frame length in samples (default: 2048)
	FrameSize int

	// Window selects the synthesis overlap: "none" or "hann" (default: "none")
	Window string

	// MaxUploadFrames caps job size in frames (default: one hour at 48kHz)
	MaxUploadFrames int
}

// Server hosts a conversion service
type Server struct {
	config ServerConfig
	inner  *server.Server
}

// NewServer creates a new conversion server
func NewServer(config ServerConfig) (*Server, error) {
	// Apply defaults
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	if config.Name == "" {
		config.Name = "Tempo Server"
	}

	window, err := stretch.ParseWindow(config.Window)
	if err != nil {
		return nil, err
	}

	inner := server.New(server.Config{
		Port:            config.Port,
		Name:            config.Name,
		EnableMDNS:      config.EnableMDNS,
		Debug:           config.Debug,
		FrameSize:       config.FrameSize,
		Window:          window,
		MaxUploadFrames: config.MaxUploadFrames,
	})

	return &Server{config: config, inner: inner}, nil
}

// Start runs the server until Stop is called or the listener fails
func (s *Server) Start() error {
	return s.inner.Start()
}

// Stop shuts the server down gracefully
func (s *Server) Stop() {
	s.inner.Stop()
}

// Sessions returns the number of connected clients
func (s *Server) Sessions() int {
	return s.inner.SessionCount()
}
