package engine

import (
	"errors"
	"net/http"

	"github.com/n0madic/go-ocigenai/internal/types"
	"github.com/n0madic/go-ocigenai/internal/upstream"
)

// ErrorDescriber rewrites the message of a transport error for humans.
type ErrorDescriber interface {
	Describe(err *types.Error) string
}

// HintDescriber appends a short hint chosen by HTTP status code.
type HintDescriber struct{}

var statusHints = map[int]string{
	http.StatusUnauthorized:    "check the access token",
	http.StatusForbidden:       "the token is not authorized for this compartment or model",
	http.StatusNotFound:        "the model or endpoint does not exist in this region",
	http.StatusTooManyRequests: "the service is rate limiting requests",
}

// Describe returns the upstream message with a hint, or the message unchanged.
func (HintDescriber) Describe(err *types.Error) string {
	msg := err.Message
	var ue *upstream.UpstreamError
	if errors.As(err.Err, &ue) {
		msg = ue.Error()
	}
	hint, ok := statusHints[err.StatusCode]
	if !ok && err.StatusCode >= 500 {
		hint, ok = "the service is unavailable, try again later", true
	}
	if !ok {
		return msg
	}
	return msg + " (hint: " + hint + ")"
}
