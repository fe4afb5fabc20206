package types

import (
	"fmt"
)

// ErrorKind classifies failures surfaced by the engine.
type ErrorKind string

const (
	// ErrorKindTransport covers connection, timeout and HTTP failures from the backend.
	ErrorKindTransport ErrorKind = "transport"
	// ErrorKindValidation covers canonical input that cannot be encoded at all.
	ErrorKindValidation ErrorKind = "validation"
	// ErrorKindParse covers a backend reply that is not decodable.
	ErrorKindParse ErrorKind = "parse"
	// ErrorKindCancelled covers caller-initiated cancellation.
	ErrorKindCancelled ErrorKind = "cancelled"
)

// Error is the translated error returned by Generate and carried by stream error events.
type Error struct {
	Kind       ErrorKind `json:"kind"`
	StatusCode int       `json:"status_code,omitempty"`
	Message    string    `json:"message"`
	Err        error     `json:"-"`
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsCancelled reports whether e is a cancellation.
func (e *Error) IsCancelled() bool {
	return e != nil && e.Kind == ErrorKindCancelled
}
