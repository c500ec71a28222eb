// ABOUTME: WebSocket client for the Tempo conversion protocol
// ABOUTME: Handles connection, handshake, uploads and message routing
package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// EndpointPath is the WebSocket path conversion sessions connect to
const EndpointPath = "/tempo"

// Config holds client configuration
type Config struct {
	ServerAddr string
	ClientID   string
	Name       string
	Version    int
	DeviceInfo DeviceInfo
}

// WAVChunk is a slice of the encoded output stream at a byte offset
type WAVChunk struct {
	Offset int64
	Data   []byte
}

// Client represents a WebSocket conversion client
type Client struct {
	config Config
	conn   *websocket.Conn
	mu     sync.RWMutex
	wmu    sync.Mutex

	// Message channels
	Accepts   chan ConvertAccept
	Progress  chan ConvertProgress
	Completes chan ConvertComplete
	Errors    chan ServerError
	WAVChunks chan WAVChunk

	// State
	serverHello ServerHello
	connected   bool
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewClient creates a new WebSocket client
func NewClient(config Config) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:    config,
		Accepts:   make(chan ConvertAccept, 10),
		Progress:  make(chan ConvertProgress, 100),
		Completes: make(chan ConvertComplete, 10),
		Errors:    make(chan ServerError, 10),
		WAVChunks: make(chan WAVChunk, 100),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Connect establishes the WebSocket connection and performs the handshake
func (c *Client) Connect() error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: EndpointPath}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()

	return nil
}

// handshake exchanges client/hello and server/hello
func (c *Client) handshake() error {
	hello := ClientHello{
		ClientID:   c.config.ClientID,
		Name:       c.config.Name,
		Version:    c.config.Version,
		DeviceInfo: &c.config.DeviceInfo,
	}

	if err := c.sendJSON(Message{Type: "client/hello", Payload: hello}); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var serverMsg Message
	if err := c.conn.ReadJSON(&serverMsg); err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	if serverMsg.Type != "server/hello" {
		return fmt.Errorf("expected server/hello, got %s", serverMsg.Type)
	}

	var hi ServerHello
	if err := serverMsg.DecodePayload(&hi); err != nil {
		return err
	}
	if hi.Version != Version {
		return fmt.Errorf("server speaks protocol v%d, want v%d", hi.Version, Version)
	}

	c.mu.Lock()
	c.serverHello = hi
	c.mu.Unlock()

	log.Printf("Handshake complete with server %s", hi.Name)
	return nil
}

// ServerInfo returns the hello received during the handshake
func (c *Client) ServerInfo() ServerHello {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverHello
}

// sendJSON sends a JSON control message
func (c *Client) sendJSON(msg Message) error {
	c.mu.RLock()
	if !c.connected {
		c.mu.RUnlock()
		return fmt.Errorf("not connected")
	}
	conn := c.conn
	c.mu.RUnlock()

	c.wmu.Lock()
	defer c.wmu.Unlock()
	return conn.WriteJSON(msg)
}

// SendConvertStart announces a job and its upload size
func (c *Client) SendConvertStart(start ConvertStart) error {
	return c.sendJSON(Message{Type: "convert/start", Payload: start})
}

// SendPCMChunk uploads interleaved s16le PCM at a sample offset
func (c *Client) SendPCMChunk(offset int64, data []byte) error {
	c.mu.RLock()
	if !c.connected {
		c.mu.RUnlock()
		return fmt.Errorf("not connected")
	}
	conn := c.conn
	c.mu.RUnlock()

	frame := EncodeBinaryFrame(PCMChunkFrameType, offset, data)

	c.wmu.Lock()
	defer c.wmu.Unlock()
	return conn.WriteMessage(websocket.BinaryMessage, frame)
}

// SendGoodbye sends a client/goodbye message before disconnecting
func (c *Client) SendGoodbye(reason string) error {
	return c.sendJSON(Message{Type: "client/goodbye", Payload: ClientGoodbye{Reason: reason}})
}

// readMessages reads and routes incoming messages
func (c *Client) readMessages() {
	defer c.Close()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			log.Printf("Read error: %v", err)
			return
		}

		if messageType == websocket.BinaryMessage {
			c.handleBinaryFrame(data)
		} else if messageType == websocket.TextMessage {
			c.handleJSONMessage(data)
		} else {
			log.Printf("Unknown WebSocket message type: %d", messageType)
		}
	}
}

// handleBinaryFrame handles WAV chunks from the server
func (c *Client) handleBinaryFrame(data []byte) {
	frameType, offset, payload, err := DecodeBinaryFrame(data)
	if err != nil {
		log.Printf("Invalid binary frame: %v", err)
		return
	}
	if frameType != WAVChunkFrameType {
		log.Printf("Unknown binary frame type: %d", frameType)
		return
	}

	chunk := WAVChunk{Offset: offset, Data: payload}
	select {
	case c.WAVChunks <- chunk:
	case <-c.ctx.Done():
	}
}

// handleJSONMessage routes JSON control messages
func (c *Client) handleJSONMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Failed to parse JSON message: %v", err)
		return
	}

	switch msg.Type {
	case "convert/accept":
		var accept ConvertAccept
		if err := msg.DecodePayload(&accept); err != nil {
			log.Printf("%v", err)
			return
		}
		select {
		case c.Accepts <- accept:
		case <-c.ctx.Done():
		}

	case "convert/progress":
		var progress ConvertProgress
		if err := msg.DecodePayload(&progress); err != nil {
			log.Printf("%v", err)
			return
		}
		select {
		case c.Progress <- progress:
		case <-time.After(100 * time.Millisecond):
			log.Printf("Progress channel full, dropping message")
		}

	case "convert/complete":
		var complete ConvertComplete
		if err := msg.DecodePayload(&complete); err != nil {
			log.Printf("%v", err)
			return
		}
		select {
		case c.Completes <- complete:
		case <-c.ctx.Done():
		}

	case "server/error":
		var serverErr ServerError
		if err := msg.DecodePayload(&serverErr); err != nil {
			log.Printf("%v", err)
			return
		}
		log.Printf("Server error [%s]: %s", serverErr.Code, serverErr.Message)
		select {
		case c.Errors <- serverErr:
		case <-c.ctx.Done():
		}

	default:
		log.Printf("Unknown message type: %s", msg.Type)
	}
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		log.Printf("Connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
