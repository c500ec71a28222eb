// ABOUTME: Remote converter that uploads PCM to a conversion server
// ABOUTME: Wraps the protocol client with discovery, chunked upload, and result assembly
package tempo

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Tempo-Audio/tempo-go/internal/discovery"
	"github.com/Tempo-Audio/tempo-go/internal/version"
	"github.com/Tempo-Audio/tempo-go/pkg/audio"
	"github.com/Tempo-Audio/tempo-go/pkg/audio/decode"
	"github.com/Tempo-Audio/tempo-go/pkg/audio/stretch"
	"github.com/Tempo-Audio/tempo-go/pkg/audio/wav"
	"github.com/Tempo-Audio/tempo-go/pkg/protocol"
)

const (
	// DefaultChunkFrames is the upload chunk size in frames
	DefaultChunkFrames = 8192

	// DefaultDiscoverTimeout bounds mDNS discovery when no address is given
	DefaultDiscoverTimeout = 5 * time.Second

	acceptTimeout = 10 * time.Second
)

// RemoteConfig configures a Remote converter
type RemoteConfig struct {
	// ServerAddr is the host:port of the server. Empty triggers mDNS discovery.
	ServerAddr string

	// ClientName identifies this client to the server (default: "Tempo Client")
	ClientName string

	// OutputRate asks the server to resample the result (default: keep source rate)
	OutputRate int

	// ChunkFrames sets the upload chunk size in frames (default: 8192)
	ChunkFrames int

	// DiscoverTimeout bounds discovery when ServerAddr is empty (default: 5s)
	DiscoverTimeout time.Duration

	// OnProgress is called as the server reports progress (optional)
	OnProgress func(Progress)
}

// Remote converts audio on a conversion server over WebSocket
type Remote struct {
	config RemoteConfig

	mu     sync.Mutex
	client *protocol.Client
}

// NewRemote creates a new remote converter
func NewRemote(config RemoteConfig) (*Remote, error) {
	// Apply defaults
	if config.ClientName == "" {
		config.ClientName = "Tempo Client"
	}
	if config.ChunkFrames == 0 {
		config.ChunkFrames = DefaultChunkFrames
	}
	if config.DiscoverTimeout == 0 {
		config.DiscoverTimeout = DefaultDiscoverTimeout
	}

	if config.ChunkFrames < 0 {
		return nil, fmt.Errorf("chunk frames must be positive, got %d", config.ChunkFrames)
	}
	if config.OutputRate < 0 {
		return nil, fmt.Errorf("output rate must be positive, got %d", config.OutputRate)
	}

	return &Remote{config: config}, nil
}

// Connect establishes the server connection, discovering one via mDNS when
// no address was configured.
func (r *Remote) Connect() error {
	addr := r.config.ServerAddr
	if addr == "" {
		info, err := discoverServer(r.config.DiscoverTimeout)
		if err != nil {
			return err
		}
		addr = info.Addr()
	}

	client := protocol.NewClient(protocol.Config{
		ServerAddr: addr,
		ClientID:   uuid.New().String(),
		Name:       r.config.ClientName,
		Version:    protocol.Version,
		DeviceInfo: protocol.DeviceInfo{
			ProductName:     version.Product,
			Manufacturer:    version.Manufacturer,
			SoftwareVersion: version.Version,
		},
	})

	if err := client.Connect(); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	r.mu.Lock()
	r.client = client
	r.mu.Unlock()

	return nil
}

func discoverServer(timeout time.Duration) (*discovery.ServerInfo, error) {
	manager := discovery.NewManager(discovery.Config{})
	defer manager.Stop()

	if err := manager.Browse(); err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}

	select {
	case info := <-manager.Servers():
		return info, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("no conversion server found within %v", timeout)
	}
}

// ServerInfo returns the server's hello payload after a successful connect
func (r *Remote) ServerInfo() protocol.ServerHello {
	r.mu.Lock()
	client := r.client
	r.mu.Unlock()

	if client == nil {
		return protocol.ServerHello{}
	}
	return client.ServerInfo()
}

// IsConnected reports whether the server connection is up
func (r *Remote) IsConnected() bool {
	r.mu.Lock()
	client := r.client
	r.mu.Unlock()

	return client != nil && client.IsConnected()
}

// Convert uploads a buffer, waits for the server to process it, and returns
// the assembled result. Only one conversion may run per Remote at a time.
func (r *Remote) Convert(ctx context.Context, buf *audio.Buffer, rate float64) (*Result, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	client := r.client
	r.mu.Unlock()

	if client == nil || !client.IsConnected() {
		return nil, fmt.Errorf("not connected")
	}

	jobID := uuid.New().String()
	err := client.SendConvertStart(protocol.ConvertStart{
		JobID:       jobID,
		Rate:        rate,
		OutputRate:  r.config.OutputRate,
		TotalFrames: buf.FrameCount(),
		Format: protocol.AudioFormat{
			Codec:      "pcm",
			Channels:   buf.ChannelCount(),
			SampleRate: buf.SampleRate,
			BitDepth:   16,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start job: %w", err)
	}

	if err := awaitAccept(ctx, client, jobID); err != nil {
		return nil, err
	}

	if err := r.upload(ctx, client, buf); err != nil {
		return nil, err
	}

	return r.collect(ctx, client, jobID, buf.FrameCount())
}

// ConvertFile decodes inputPath locally, converts it on the server, and
// writes the WAV stream to outputPath. An empty outputPath keeps the stream
// in memory only.
func (r *Remote) ConvertFile(ctx context.Context, inputPath, outputPath string, rate float64) (*Result, error) {
	src, err := decode.Open(inputPath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	buf, err := decode.ReadAll(src)
	if err != nil {
		return nil, err
	}

	res, err := r.Convert(ctx, buf, rate)
	if err != nil {
		return nil, err
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, res.WAV, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write output: %w", err)
		}
	}

	return res, nil
}

func awaitAccept(ctx context.Context, client *protocol.Client, jobID string) error {
	select {
	case accept := <-client.Accepts:
		if accept.JobID != jobID {
			return fmt.Errorf("server accepted unknown job %s", accept.JobID)
		}
		return nil
	case serr := <-client.Errors:
		return remoteError(serr)
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(acceptTimeout):
		return fmt.Errorf("timed out waiting for server accept")
	}
}

// upload sends the interleaved samples as 16-bit little-endian chunks.
// Offsets count samples, matching what the server has already received.
func (r *Remote) upload(ctx context.Context, client *protocol.Client, buf *audio.Buffer) error {
	samples := buf.Interleaved()
	chunkSamples := r.config.ChunkFrames * buf.ChannelCount()

	for offset := 0; offset < len(samples); offset += chunkSamples {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		end := offset + chunkSamples
		if end > len(samples) {
			end = len(samples)
		}

		payload := make([]byte, (end-offset)*2)
		for i, sample := range samples[offset:end] {
			binary.LittleEndian.PutUint16(payload[i*2:], uint16(audio.SampleToInt16(sample)))
		}

		if err := client.SendPCMChunk(int64(offset), payload); err != nil {
			return fmt.Errorf("upload failed at sample %d: %w", offset, err)
		}
	}

	return nil
}

// collect assembles WAV chunks until the server reports completion. The
// server sends every chunk before convert/complete, so any chunk still
// missing after complete is already queued on the channel.
func (r *Remote) collect(ctx context.Context, client *protocol.Client, jobID string, inputFrames int) (*Result, error) {
	var stream []byte

	appendChunk := func(chunk protocol.WAVChunk) error {
		if chunk.Offset != int64(len(stream)) {
			return fmt.Errorf("out-of-order stream chunk: got offset %d, want %d", chunk.Offset, len(stream))
		}
		stream = append(stream, chunk.Data...)
		return nil
	}

	forward := func(prog protocol.ConvertProgress) {
		if prog.JobID == jobID && r.config.OnProgress != nil {
			r.config.OnProgress(Progress{
				Stage:   prog.Stage,
				Done:    prog.FramesDone,
				Total:   prog.FramesTotal,
				Percent: prog.Percent,
			})
		}
	}

	for {
		select {
		case chunk := <-client.WAVChunks:
			if err := appendChunk(chunk); err != nil {
				return nil, err
			}

		case prog := <-client.Progress:
			forward(prog)

		case complete := <-client.Completes:
			if complete.JobID != jobID {
				continue
			}

			// Progress events the server sent before complete are already
			// queued. Deliver them before returning.
			for drained := false; !drained; {
				select {
				case prog := <-client.Progress:
					forward(prog)
				default:
					drained = true
				}
			}

			for len(stream) < complete.OutputBytes {
				select {
				case chunk := <-client.WAVChunks:
					if err := appendChunk(chunk); err != nil {
						return nil, err
					}
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(5 * time.Second):
					return nil, fmt.Errorf("incomplete stream: have %d of %d bytes", len(stream), complete.OutputBytes)
				}
			}

			header, err := wav.ParseHeader(stream)
			if err != nil {
				return nil, fmt.Errorf("server returned invalid stream: %w", err)
			}

			return &Result{
				JobID:        jobID,
				InputFrames:  inputFrames,
				OutputFrames: complete.OutputFrames,
				SampleRate:   int(header.SampleRate),
				Channels:     int(header.NumChannels),
				OutputBytes:  complete.OutputBytes,
				Elapsed:      time.Duration(complete.ElapsedMs) * time.Millisecond,
				WAV:          stream,
			}, nil

		case serr := <-client.Errors:
			if serr.JobID != "" && serr.JobID != jobID {
				continue
			}
			return nil, remoteError(serr)

		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// remoteError maps server error codes onto the local sentinel errors so
// callers can handle local and remote failures the same way.
func remoteError(serr protocol.ServerError) error {
	switch serr.Code {
	case "invalid_parameter":
		return fmt.Errorf("%s: %w", serr.Message, stretch.ErrInvalidRate)
	case "invalid_input":
		return fmt.Errorf("%s: %w", serr.Message, audio.ErrInvalidBuffer)
	case "allocation_failure":
		return fmt.Errorf("%s: %w", serr.Message, stretch.ErrAllocation)
	}
	return fmt.Errorf("server error (%s): %s", serr.Code, serr.Message)
}

// Close tells the server we are done and closes the connection
func (r *Remote) Close() error {
	r.mu.Lock()
	client := r.client
	r.client = nil
	r.mu.Unlock()

	if client != nil {
		if client.IsConnected() {
			client.SendGoodbye("done")
		}
		client.Close()
	}

	return nil
}
