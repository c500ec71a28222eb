// ABOUTME: Conversion server implementation for the Tempo protocol
// ABOUTME: Manages WebSocket sessions, job lifecycle and HTTP endpoints
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Tempo-Audio/tempo-go/internal/convert"
	"github.com/Tempo-Audio/tempo-go/internal/discovery"
	"github.com/Tempo-Audio/tempo-go/pkg/audio/stretch"
	"github.com/Tempo-Audio/tempo-go/pkg/protocol"
)

// DefaultMaxUploadFrames bounds how much PCM a single job may announce.
// At 16-bit stereo 48 kHz this is about an hour of audio.
const DefaultMaxUploadFrames = 48000 * 3600

// Config holds server configuration
type Config struct {
	Port            int
	Name            string
	EnableMDNS      bool
	Debug           bool
	FrameSize       int
	Window          stretch.Window
	MaxUploadFrames int
}

// Server accepts conversion sessions over WebSocket and one-shot
// conversions over HTTP.
type Server struct {
	config   Config
	serverID string

	upgrader websocket.Upgrader

	httpServer *http.Server
	mux        *http.ServeMux

	// Session management
	sessions   map[string]*Session
	sessionsMu sync.RWMutex

	// Conversion pipeline shared by HTTP requests; WebSocket jobs build
	// per-session pipelines so progress callbacks stay isolated
	pipeline *convert.Pipeline

	mdnsManager *discovery.Manager

	startTime time.Time

	// Control
	ctx        context.Context
	cancel     context.CancelFunc
	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// Session represents a connected conversion client
type Session struct {
	ID   string
	Name string
	Conn *websocket.Conn

	// Active job, nil when idle
	job   *job
	jobMu sync.Mutex
	jobWG sync.WaitGroup

	// Output channel for messages; done unblocks senders when the
	// connection goes away
	sendChan chan interface{}
	done     chan struct{}
}

// New creates a new server instance
func New(config Config) *Server {
	if config.MaxUploadFrames <= 0 {
		config.MaxUploadFrames = DefaultMaxUploadFrames
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		config:   config,
		serverID: uuid.New().String(),
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Designed for trusted local networks; browser clients
				// from any origin are accepted.
				return true
			},
		},
		sessions:  make(map[string]*Session),
		startTime: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		stopChan:  make(chan struct{}),
	}
}

// setup builds the pipeline and registers HTTP routes
func (s *Server) setup() error {
	pipeline, err := convert.New(convert.Config{
		FrameSize: s.config.FrameSize,
		Window:    s.config.Window,
	})
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	s.pipeline = pipeline

	s.mux.HandleFunc(protocol.EndpointPath, s.handleWebSocket)
	s.mux.HandleFunc("/api/convert", s.handleHTTPConvert)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	return nil
}

// Start runs the server until Stop is called or the listener fails
func (s *Server) Start() error {
	log.Printf("Server starting: %s (ID: %s)", s.config.Name, s.serverID)

	if err := s.setup(); err != nil {
		return err
	}

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			ServerMode:  true,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("Listening on %s", addr)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case <-s.stopChan:
		log.Printf("Server shutting down...")
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		serverErr = err
	}

	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	s.cancel()

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	s.wg.Wait()
	log.Printf("Server stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// handleWebSocket upgrades connections to conversion sessions
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New WebSocket connection from %s", r.RemoteAddr)

	s.handleConnection(conn)
}

// handleConnection manages a session from handshake to disconnect
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		log.Printf("Rejecting connection during shutdown")
		return
	}
	s.shutdownMu.RUnlock()

	if s.config.Debug {
		log.Printf("[DEBUG] New connection, waiting for handshake")
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		log.Printf("Error reading hello: %v", err)
		return
	}

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return
	}

	if msg.Type != "client/hello" {
		log.Printf("Expected client/hello, got %s", msg.Type)
		return
	}

	var hello protocol.ClientHello
	if err := msg.DecodePayload(&hello); err != nil {
		log.Printf("Error parsing client hello: %v", err)
		return
	}

	if hello.ClientID == "" {
		log.Printf("Client hello missing ClientID")
		return
	}
	if hello.Name == "" {
		log.Printf("Client hello missing Name")
		return
	}

	log.Printf("Client hello: %s (ID: %s)", hello.Name, hello.ClientID)

	session := &Session{
		ID:       hello.ClientID,
		Name:     hello.Name,
		Conn:     conn,
		sendChan: make(chan interface{}, 100),
		done:     make(chan struct{}),
	}

	s.sessionsMu.Lock()
	if existing, exists := s.sessions[hello.ClientID]; exists {
		s.sessionsMu.Unlock()
		log.Printf("Client ID %s already connected (name: %s), rejecting duplicate", hello.ClientID, existing.Name)

		errorMsg := protocol.Message{
			Type: "server/error",
			Payload: protocol.ServerError{
				Code:    "duplicate_client_id",
				Message: "Client ID already connected",
			},
		}
		if data, err := json.Marshal(errorMsg); err == nil {
			conn.WriteMessage(websocket.TextMessage, data)
		}
		return
	}
	s.sessions[session.ID] = session
	s.sessionsMu.Unlock()

	defer func() {
		close(session.done)
		session.jobWG.Wait()

		s.sessionsMu.Lock()
		delete(s.sessions, session.ID)
		s.sessionsMu.Unlock()
		close(session.sendChan)
		log.Printf("Session closed: %s", session.Name)
	}()

	serverHello := protocol.ServerHello{
		ServerID: s.serverID,
		Name:     s.config.Name,
		Version:  protocol.Version,
	}

	if err := s.sendMessage(session, "server/hello", serverHello); err != nil {
		log.Printf("Error sending server hello: %v", err)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sessionWriter(session)
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		if messageType == websocket.BinaryMessage {
			s.handlePCMFrame(session, data)
		} else {
			s.handleSessionMessage(session, data)
		}
	}
}

// sessionWriter is the single writer goroutine for a session
func (s *Server) sessionWriter(session *Session) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	const writeDeadline = 10 * time.Second

	for {
		select {
		case msg, ok := <-session.sendChan:
			if !ok {
				return
			}

			switch v := msg.(type) {
			case []byte:
				session.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := session.Conn.WriteMessage(websocket.BinaryMessage, v); err != nil {
					log.Printf("Error writing binary message: %v", err)
					return
				}
			default:
				data, err := json.Marshal(v)
				if err != nil {
					log.Printf("Error marshaling message: %v", err)
					continue
				}
				session.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := session.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
					log.Printf("Error writing text message: %v", err)
					return
				}
			}

		case <-ticker.C:
			if err := session.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}
}

// handleSessionMessage routes JSON control messages from a session
func (s *Server) handleSessionMessage(session *Session, data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return
	}

	switch msg.Type {
	case "convert/start":
		s.handleConvertStart(session, msg)
	case "client/goodbye":
		var goodbye protocol.ClientGoodbye
		if err := msg.DecodePayload(&goodbye); err == nil {
			log.Printf("Client %s leaving: %s", session.Name, goodbye.Reason)
		}
	default:
		log.Printf("Unknown message type: %s", msg.Type)
	}
}

// sendMessage queues a JSON message, dropping it if the session is backed up
func (s *Server) sendMessage(session *Session, msgType string, payload interface{}) error {
	msg := protocol.Message{
		Type:    msgType,
		Payload: payload,
	}

	select {
	case session.sendChan <- msg:
		return nil
	default:
		return fmt.Errorf("session send buffer full")
	}
}

// sendBinary queues a binary frame, blocking until there is room. Senders
// are released when the session or server goes away.
func (s *Server) sendBinary(session *Session, data []byte) error {
	select {
	case session.sendChan <- data:
		return nil
	case <-session.done:
		return fmt.Errorf("session closed")
	case <-s.ctx.Done():
		return fmt.Errorf("server shutting down")
	}
}

// SessionCount returns the number of connected sessions
func (s *Server) SessionCount() int {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	return len(s.sessions)
}
