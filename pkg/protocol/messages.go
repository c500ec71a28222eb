// ABOUTME: Tempo protocol message type definitions
// ABOUTME: Defines JSON control messages and binary frame layout
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

const (
	// Version is the protocol version spoken by this package
	Version = 1

	// BinaryFrameHeaderSize is the size of a binary frame header
	// (1 byte frame type + 8 byte sample offset)
	BinaryFrameHeaderSize = 1 + 8

	// PCMChunkFrameType carries interleaved s16le PCM from client to server
	PCMChunkFrameType = 4
	// WAVChunkFrameType carries encoded WAV bytes from server to client
	WAVChunkFrameType = 5
)

// Message is the top-level wrapper for all JSON control messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// DecodePayload re-marshals the generic payload into a typed struct.
func (m Message) DecodePayload(v interface{}) error {
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", m.Type, err)
	}
	return nil
}

// AudioFormat describes a PCM stream
type AudioFormat struct {
	Codec      string `json:"codec"`
	Channels   int    `json:"channels"`
	SampleRate int    `json:"sample_rate"`
	BitDepth   int    `json:"bit_depth"`
}

// ClientHello is sent by clients to initiate the handshake
type ClientHello struct {
	ClientID   string      `json:"client_id"`
	Name       string      `json:"name"`
	Version    int         `json:"version"`
	DeviceInfo *DeviceInfo `json:"device_info,omitempty"`
}

// DeviceInfo contains device identification
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// ServerHello is the server's response to client/hello
type ServerHello struct {
	ServerID string `json:"server_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// ConvertStart requests a time-stretch job. TotalFrames announces how much
// PCM the client will upload; the server treats the upload as complete once
// that many frames have arrived.
type ConvertStart struct {
	JobID       string      `json:"job_id"`
	Rate        float64     `json:"rate"`
	FrameSize   int         `json:"frame_size,omitempty"`
	Window      string      `json:"window,omitempty"`
	OutputRate  int         `json:"output_rate,omitempty"`
	TotalFrames int         `json:"total_frames"`
	Format      AudioFormat `json:"format"`
}

// ConvertAccept acknowledges a convert/start and reports the frame count
// the stretch will produce before resampling.
type ConvertAccept struct {
	JobID        string `json:"job_id"`
	OutputFrames int    `json:"output_frames"`
}

// ConvertProgress reports pipeline progress for a running job
type ConvertProgress struct {
	JobID       string  `json:"job_id"`
	Stage       string  `json:"stage"` // "receiving", "stretching", "resampling", "encoding"
	FramesDone  int     `json:"frames_done"`
	FramesTotal int     `json:"frames_total"`
	Percent     float64 `json:"percent"`
}

// ConvertComplete reports a finished job. The WAV bytes arrive separately
// as binary frames before this message.
type ConvertComplete struct {
	JobID        string `json:"job_id"`
	OutputFrames int    `json:"output_frames"`
	OutputBytes  int    `json:"output_bytes"`
	ElapsedMs    int64  `json:"elapsed_ms"`
}

// ServerError reports a failed job or protocol violation
type ServerError struct {
	JobID   string `json:"job_id,omitempty"`
	Code    string `json:"code"` // "invalid_parameter", "invalid_input", "allocation_failure", "busy", "internal"
	Message string `json:"message"`
}

// ClientGoodbye is sent before graceful disconnect
type ClientGoodbye struct {
	Reason string `json:"reason"` // "done", "shutdown", "user_request"
}

// EncodeBinaryFrame builds a binary frame: type byte, big-endian sample
// offset, then the payload.
func EncodeBinaryFrame(frameType byte, offset int64, payload []byte) []byte {
	frame := make([]byte, BinaryFrameHeaderSize+len(payload))
	frame[0] = frameType
	binary.BigEndian.PutUint64(frame[1:BinaryFrameHeaderSize], uint64(offset))
	copy(frame[BinaryFrameHeaderSize:], payload)
	return frame
}

// DecodeBinaryFrame splits a binary frame into its parts. The payload
// aliases the input slice.
func DecodeBinaryFrame(data []byte) (frameType byte, offset int64, payload []byte, err error) {
	if len(data) < BinaryFrameHeaderSize {
		return 0, 0, nil, fmt.Errorf("binary frame too short: %d bytes", len(data))
	}
	frameType = data[0]
	offset = int64(binary.BigEndian.Uint64(data[1:BinaryFrameHeaderSize]))
	payload = data[BinaryFrameHeaderSize:]
	return frameType, offset, payload, nil
}
