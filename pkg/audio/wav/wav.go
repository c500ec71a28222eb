// ABOUTME: WAV container encoder producing canonical RIFF/WAVE byte streams
// ABOUTME: Writes a fixed 44-byte header plus interleaved 16-bit PCM samples
package wav

import (
	"encoding/binary"
	"fmt"

	"github.com/Tempo-Audio/tempo-go/pkg/audio"
)

// HeaderSize is the fixed RIFF/WAVE header length for 16-bit linear PCM.
const HeaderSize = 44

const bytesPerSample = 2

// Header holds the descriptive fields of a RIFF/WAVE PCM header.
type Header struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataSize      uint32
}

// FrameCount returns the number of sample frames described by the header.
func (h Header) FrameCount() int {
	if h.NumChannels == 0 {
		return 0
	}
	return int(h.DataSize) / (int(h.NumChannels) * bytesPerSample)
}

// Encode serializes the buffer as a RIFF/WAVE byte stream: a 44-byte header
// followed by frame-major interleaved 16-bit little-endian samples. The
// buffer is never modified. An empty buffer encodes to the bare header with
// a zero data size.
func Encode(buf *audio.Buffer) ([]byte, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	channels := buf.ChannelCount()
	frames := buf.FrameCount()
	dataSize := frames * channels * bytesPerSample

	out := make([]byte, HeaderSize+dataSize)
	writeHeader(out, channels, buf.SampleRate, dataSize)

	offset := HeaderSize
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			s := audio.SampleToInt16(buf.Channels[c][f])
			binary.LittleEndian.PutUint16(out[offset:], uint16(s))
			offset += bytesPerSample
		}
	}
	return out, nil
}

func writeHeader(out []byte, channels, sampleRate, dataSize int) {
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], uint32(36+dataSize))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 1) // linear PCM
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(sampleRate*channels*bytesPerSample))
	binary.LittleEndian.PutUint16(out[32:], uint16(channels*bytesPerSample))
	binary.LittleEndian.PutUint16(out[34:], 16)

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
}

// ParseHeader reads a 44-byte header back into its descriptive fields,
// verifying the RIFF/WAVE markers and the linear PCM format tag.
func ParseHeader(stream []byte) (Header, error) {
	var h Header
	if len(stream) < HeaderSize {
		return h, fmt.Errorf("stream too short for header: %d bytes", len(stream))
	}
	if string(stream[0:4]) != "RIFF" || string(stream[8:12]) != "WAVE" {
		return h, fmt.Errorf("not a RIFF/WAVE stream")
	}
	if string(stream[12:16]) != "fmt " {
		return h, fmt.Errorf("missing fmt chunk")
	}
	if string(stream[36:40]) != "data" {
		return h, fmt.Errorf("missing data chunk")
	}

	h.AudioFormat = binary.LittleEndian.Uint16(stream[20:])
	if h.AudioFormat != 1 {
		return h, fmt.Errorf("unsupported audio format %d", h.AudioFormat)
	}
	h.NumChannels = binary.LittleEndian.Uint16(stream[22:])
	h.SampleRate = binary.LittleEndian.Uint32(stream[24:])
	h.ByteRate = binary.LittleEndian.Uint32(stream[28:])
	h.BlockAlign = binary.LittleEndian.Uint16(stream[32:])
	h.BitsPerSample = binary.LittleEndian.Uint16(stream[34:])
	h.DataSize = binary.LittleEndian.Uint32(stream[40:])
	return h, nil
}

// Decode parses a byte stream produced by Encode back into a buffer. Only
// 16-bit linear PCM streams with the canonical 44-byte header are supported.
func Decode(stream []byte) (*audio.Buffer, error) {
	h, err := ParseHeader(stream)
	if err != nil {
		return nil, err
	}
	if h.BitsPerSample != 16 {
		return nil, fmt.Errorf("unsupported bit depth %d", h.BitsPerSample)
	}
	if h.NumChannels == 0 {
		return nil, fmt.Errorf("%w: no channels", audio.ErrInvalidBuffer)
	}
	if h.SampleRate == 0 {
		return nil, fmt.Errorf("%w: zero sample rate", audio.ErrInvalidBuffer)
	}
	if int(h.DataSize) > len(stream)-HeaderSize {
		return nil, fmt.Errorf("data size %d exceeds stream length %d", h.DataSize, len(stream))
	}

	channels := int(h.NumChannels)
	frames := h.FrameCount()
	buf := audio.NewBuffer(channels, int(h.SampleRate), frames)

	offset := HeaderSize
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			v := int16(binary.LittleEndian.Uint16(stream[offset:]))
			buf.Channels[c][f] = audio.SampleFromInt16(v)
			offset += bytesPerSample
		}
	}
	return buf, nil
}
