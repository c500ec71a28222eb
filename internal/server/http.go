// ABOUTME: HTTP endpoints for one-shot conversion and health checks
// ABOUTME: POST /api/convert takes a WAV body, /healthz reports status
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/Tempo-Audio/tempo-go/internal/version"
	"github.com/Tempo-Audio/tempo-go/pkg/audio/wav"
	"github.com/Tempo-Audio/tempo-go/pkg/protocol"
)

// handleHTTPConvert converts an uploaded WAV in one request. The stretch
// rate comes from the "rate" query parameter, an optional "output_rate"
// resamples the result.
func (s *Server) handleHTTPConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSONError(w, http.StatusMethodNotAllowed, "invalid_input", "use POST with a WAV body")
		return
	}

	rate, err := strconv.ParseFloat(r.URL.Query().Get("rate"), 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "rate query parameter is required")
		return
	}

	outputRate := 0
	if raw := r.URL.Query().Get("output_rate"); raw != "" {
		outputRate, err = strconv.Atoi(raw)
		if err != nil || outputRate <= 0 {
			writeJSONError(w, http.StatusBadRequest, "invalid_parameter", fmt.Sprintf("invalid output_rate %q", raw))
			return
		}
	}

	if err := s.pipeline.ValidateRate(rate); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	maxBody := int64(s.config.MaxUploadFrames)*8 + wav.HeaderSize
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "invalid_input", "request body too large")
		return
	}

	buf, err := wav.Decode(body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_input", fmt.Sprintf("body is not 16-bit PCM WAV: %v", err))
		return
	}

	result, err := s.pipeline.Process(r.Context(), buf, rate, outputRate)
	if err != nil {
		code := errorCode(err)
		status := http.StatusInternalServerError
		if code == "invalid_parameter" || code == "invalid_input" {
			status = http.StatusBadRequest
		}
		writeJSONError(w, status, code, err.Error())
		return
	}

	log.Printf("HTTP convert: %d frames to %d at rate %.3f for %s",
		result.InputFrames, result.OutputFrames, rate, r.RemoteAddr)

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Stream)))
	w.Header().Set("X-Job-ID", result.JobID)
	w.WriteHeader(http.StatusOK)
	w.Write(result.Stream)
}

// handleHealthz reports server status
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":           "ok",
		"server_id":        s.serverID,
		"name":             s.config.Name,
		"version":          version.Version,
		"protocol_version": protocol.Version,
		"uptime_seconds":   int(time.Since(s.startTime).Seconds()),
		"sessions":         s.SessionCount(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// writeJSONError sends a protocol-shaped error as JSON
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(protocol.ServerError{
		Code:    code,
		Message: message,
	})
}
