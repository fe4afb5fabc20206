// Package codec writes JSON replies and server-sent event streams.
package codec

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/n0madic/go-ocigenai/internal/types"
)

// ErrorDetail is the body of an error reply.
type ErrorDetail struct {
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// ErrorResponse wraps ErrorDetail as {"error": {...}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("response write failed", "error", err)
	}
}

// WriteError writes an error response.
func WriteError(w http.ResponseWriter, status int, kind, message string) {
	if strings.TrimSpace(message) == "" {
		message = http.StatusText(status)
	}
	slog.Error("request failed", "status", status, "kind", kind, "error", message)
	WriteJSON(w, status, ErrorResponse{Error: ErrorDetail{Kind: kind, Message: message}})
}

// StreamWriter writes canonical stream events as SSE, one per data line.
type StreamWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	err     error
}

// NewStreamWriter sends the event-stream headers and returns the writer.
func NewStreamWriter(w http.ResponseWriter) *StreamWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	return &StreamWriter{w: w, flusher: flusher}
}

// WriteEvent writes one event. After the first write error every call is a
// no-op returning that error.
func (s *StreamWriter) WriteEvent(ev types.StreamEvent) error {
	if s.err != nil {
		return s.err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.write("data: " + string(data) + "\n\n")
}

// Done writes the [DONE] terminator.
func (s *StreamWriter) Done() error {
	if s.err != nil {
		return s.err
	}
	return s.write("data: [DONE]\n\n")
}

func (s *StreamWriter) write(frame string) error {
	if _, err := fmt.Fprint(s.w, frame); err != nil {
		s.err = err
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
