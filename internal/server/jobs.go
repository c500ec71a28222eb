// ABOUTME: Conversion job lifecycle for WebSocket sessions
// ABOUTME: Accumulates uploaded PCM, runs the pipeline, streams WAV back
package server

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Tempo-Audio/tempo-go/internal/convert"
	"github.com/Tempo-Audio/tempo-go/pkg/audio"
	"github.com/Tempo-Audio/tempo-go/pkg/audio/stretch"
	"github.com/Tempo-Audio/tempo-go/pkg/protocol"
)

// wavChunkSize is the payload size of outgoing binary WAV frames
const wavChunkSize = 32 * 1024

// job accumulates uploaded PCM until the announced frame count arrives
type job struct {
	id          string
	rate        float64
	outputRate  int
	format      protocol.AudioFormat
	totalFrames int
	samples     []float32
	startedAt   time.Time
}

func (j *job) receivedFrames() int {
	return len(j.samples) / j.format.Channels
}

// handleConvertStart validates a convert/start request and opens a job
func (s *Server) handleConvertStart(session *Session, msg protocol.Message) {
	var start protocol.ConvertStart
	if err := msg.DecodePayload(&start); err != nil {
		log.Printf("Error parsing convert/start: %v", err)
		s.sendError(session, "", "invalid_input", "malformed convert/start payload")
		return
	}

	if start.JobID == "" {
		start.JobID = uuid.New().String()
	}

	session.jobMu.Lock()
	if session.job != nil {
		active := session.job.id
		session.jobMu.Unlock()
		s.sendError(session, start.JobID, "busy", fmt.Sprintf("job %s still running", active))
		return
	}
	session.jobMu.Unlock()

	format := start.Format
	if format.Codec == "" {
		format.Codec = "pcm"
	}
	if format.BitDepth == 0 {
		format.BitDepth = 16
	}

	switch {
	case format.Codec != "pcm":
		s.sendError(session, start.JobID, "invalid_input", fmt.Sprintf("unsupported codec %q", format.Codec))
		return
	case format.BitDepth != 16:
		s.sendError(session, start.JobID, "invalid_input", fmt.Sprintf("unsupported bit depth %d", format.BitDepth))
		return
	case format.Channels <= 0:
		s.sendError(session, start.JobID, "invalid_input", "buffer must have at least one channel")
		return
	case format.SampleRate <= 0:
		s.sendError(session, start.JobID, "invalid_input", fmt.Sprintf("invalid sample rate %d", format.SampleRate))
		return
	case start.TotalFrames < 0:
		s.sendError(session, start.JobID, "invalid_input", fmt.Sprintf("invalid total frames %d", start.TotalFrames))
		return
	case start.TotalFrames > s.config.MaxUploadFrames:
		s.sendError(session, start.JobID, "invalid_input",
			fmt.Sprintf("upload of %d frames exceeds limit %d", start.TotalFrames, s.config.MaxUploadFrames))
		return
	}

	if err := s.pipeline.ValidateRate(start.Rate); err != nil {
		s.sendError(session, start.JobID, "invalid_parameter", err.Error())
		return
	}

	j := &job{
		id:          start.JobID,
		rate:        start.Rate,
		outputRate:  start.OutputRate,
		format:      format,
		totalFrames: start.TotalFrames,
		samples:     make([]float32, 0, start.TotalFrames*format.Channels),
		startedAt:   time.Now(),
	}

	session.jobMu.Lock()
	session.job = j
	session.jobMu.Unlock()

	log.Printf("Job %s: rate %.3f, %d frames at %d Hz, %d channels",
		j.id, j.rate, j.totalFrames, format.SampleRate, format.Channels)

	accept := protocol.ConvertAccept{
		JobID:        j.id,
		OutputFrames: s.pipeline.OutputFrames(j.totalFrames, j.rate),
	}
	if err := s.sendMessage(session, "convert/accept", accept); err != nil {
		log.Printf("Error sending convert/accept: %v", err)
	}

	// Zero-frame jobs have nothing to upload
	if j.totalFrames == 0 {
		s.launchJob(session, j)
	}
}

// handlePCMFrame appends an uploaded chunk to the active job
func (s *Server) handlePCMFrame(session *Session, data []byte) {
	frameType, offset, payload, err := protocol.DecodeBinaryFrame(data)
	if err != nil {
		s.sendError(session, "", "invalid_input", err.Error())
		return
	}
	if frameType != protocol.PCMChunkFrameType {
		log.Printf("Unknown binary frame type: %d", frameType)
		return
	}

	session.jobMu.Lock()
	j := session.job
	session.jobMu.Unlock()
	if j == nil {
		s.sendError(session, "", "invalid_input", "no active job for PCM upload")
		return
	}

	if len(payload)%2 != 0 {
		s.resetJob(session)
		s.sendError(session, j.id, "invalid_input", "PCM chunk has a partial sample")
		return
	}
	if offset != int64(len(j.samples)) {
		s.resetJob(session)
		s.sendError(session, j.id, "invalid_input",
			fmt.Sprintf("chunk offset %d does not match received %d samples", offset, len(j.samples)))
		return
	}

	numSamples := len(payload) / 2
	if len(j.samples)+numSamples > j.totalFrames*j.format.Channels {
		s.resetJob(session)
		s.sendError(session, j.id, "invalid_input", "upload exceeds announced total frames")
		return
	}

	for i := 0; i < numSamples; i++ {
		sample16 := int16(uint16(payload[i*2]) | uint16(payload[i*2+1])<<8)
		j.samples = append(j.samples, audio.SampleFromInt16(sample16))
	}

	received := j.receivedFrames()
	progress := protocol.ConvertProgress{
		JobID:       j.id,
		Stage:       "receiving",
		FramesDone:  received,
		FramesTotal: j.totalFrames,
		Percent:     percent(received, j.totalFrames),
	}
	if err := s.sendMessage(session, "convert/progress", progress); err != nil && s.config.Debug {
		log.Printf("[DEBUG] Dropped progress update: %v", err)
	}

	if received == j.totalFrames && len(j.samples) == j.totalFrames*j.format.Channels {
		s.launchJob(session, j)
	}
}

// launchJob runs the pipeline for a fully uploaded job
func (s *Server) launchJob(session *Session, j *job) {
	session.jobWG.Add(1)
	go func() {
		defer session.jobWG.Done()
		defer s.resetJob(session)
		s.runJob(session, j)
	}()
}

// runJob processes the job and streams the WAV result back
func (s *Server) runJob(session *Session, j *job) {
	pipeline, err := convert.New(convert.Config{
		FrameSize: s.config.FrameSize,
		Window:    s.config.Window,
		Progress: func(stage convert.Stage, done, total int) {
			s.sendMessage(session, "convert/progress", protocol.ConvertProgress{
				JobID:       j.id,
				Stage:       string(stage),
				FramesDone:  done,
				FramesTotal: total,
				Percent:     percent(done, total),
			})
		},
	})
	if err != nil {
		s.sendError(session, j.id, "internal", err.Error())
		return
	}

	buf := audio.FromInterleaved(j.samples, j.format.Channels, j.format.SampleRate)
	result, err := pipeline.Process(s.ctx, buf, j.rate, j.outputRate)
	if err != nil {
		log.Printf("Job %s failed: %v", j.id, err)
		s.sendError(session, j.id, errorCode(err), err.Error())
		return
	}

	stream := result.Stream
	for offset := 0; offset < len(stream); offset += wavChunkSize {
		end := offset + wavChunkSize
		if end > len(stream) {
			end = len(stream)
		}
		frame := protocol.EncodeBinaryFrame(protocol.WAVChunkFrameType, int64(offset), stream[offset:end])
		if err := s.sendBinary(session, frame); err != nil {
			log.Printf("Job %s: aborting result delivery: %v", j.id, err)
			return
		}
	}

	complete := protocol.ConvertComplete{
		JobID:        j.id,
		OutputFrames: result.OutputFrames,
		OutputBytes:  len(stream),
		ElapsedMs:    time.Since(j.startedAt).Milliseconds(),
	}
	if err := s.sendMessage(session, "convert/complete", complete); err != nil {
		log.Printf("Error sending convert/complete: %v", err)
	}

	log.Printf("Job %s complete: %d frames, %d bytes in %d ms",
		j.id, result.OutputFrames, len(stream), complete.ElapsedMs)
}

// resetJob clears the session's active job
func (s *Server) resetJob(session *Session) {
	session.jobMu.Lock()
	session.job = nil
	session.jobMu.Unlock()
}

// sendError queues a server/error message
func (s *Server) sendError(session *Session, jobID, code, message string) {
	serverErr := protocol.ServerError{
		JobID:   jobID,
		Code:    code,
		Message: message,
	}
	if err := s.sendMessage(session, "server/error", serverErr); err != nil {
		log.Printf("Error sending server/error: %v", err)
	}
}

// errorCode maps pipeline failures to protocol error codes
func errorCode(err error) string {
	switch {
	case errors.Is(err, stretch.ErrInvalidRate):
		return "invalid_parameter"
	case errors.Is(err, audio.ErrInvalidBuffer):
		return "invalid_input"
	case errors.Is(err, stretch.ErrAllocation):
		return "allocation_failure"
	}
	return "internal"
}

func percent(done, total int) float64 {
	if total <= 0 {
		return 100
	}
	return float64(done) / float64(total) * 100
}
