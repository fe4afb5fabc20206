package upstream

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// UpstreamError represents a failed backend call with its error details.
type UpstreamError struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

func (e *UpstreamError) Error() string {
	status := fmt.Sprintf("%d", e.StatusCode)
	if text := http.StatusText(e.StatusCode); text != "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, text)
	}
	var msg string
	switch {
	case e.Message() != "":
		msg = fmt.Sprintf("Upstream returned HTTP %s: %s", status, e.Message())
	case compactBodyPreview(e.Body, 280) != "":
		msg = fmt.Sprintf("Upstream returned HTTP %s with unparsed body: %s", status, compactBodyPreview(e.Body, 280))
	default:
		msg = fmt.Sprintf("Upstream returned HTTP %s with empty error body", status)
	}
	if id := e.RequestID(); id != "" {
		msg = fmt.Sprintf("%s (request_id: %s)", msg, id)
	}
	return msg
}

// Message extracts the human-readable message from the error body.
func (e *UpstreamError) Message() string {
	trimmed := strings.TrimSpace(string(e.Body))
	if trimmed == "" || !gjson.Valid(trimmed) {
		return ""
	}
	return extractErrorMessage(gjson.Parse(trimmed))
}

// Code returns the service error code, such as "InvalidParameter".
func (e *UpstreamError) Code() string {
	c := gjson.GetBytes(e.Body, "code")
	if c.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(c.String())
}

// RequestID returns the request id echoed by the backend.
func (e *UpstreamError) RequestID() string {
	return upstreamRequestID(e.Headers)
}

func extractErrorMessage(v gjson.Result) string {
	if !v.IsObject() {
		return ""
	}
	for _, key := range []string{"message", "detail", "error_description", "title", "reason"} {
		if s := v.Get(key); s.Type == gjson.String && strings.TrimSpace(s.String()) != "" {
			return strings.TrimSpace(s.String())
		}
	}
	nested := v.Get("error")
	if msg := extractErrorMessage(nested); msg != "" {
		return msg
	}
	if nested.Type == gjson.String && strings.TrimSpace(nested.String()) != "" {
		return strings.TrimSpace(nested.String())
	}
	var msg string
	v.Get("errors").ForEach(func(_, item gjson.Result) bool {
		if item.Type == gjson.String {
			msg = strings.TrimSpace(item.String())
		} else {
			msg = extractErrorMessage(item)
		}
		return msg == ""
	})
	return msg
}

func compactBodyPreview(rawBody []byte, maxLen int) string {
	trimmed := strings.TrimSpace(string(rawBody))
	if trimmed == "" {
		return ""
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	if len(clean) <= maxLen {
		return clean
	}
	return clean[:maxLen] + "..."
}
