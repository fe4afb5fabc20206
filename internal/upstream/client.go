package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/n0madic/go-ocigenai/internal/types"
)

// upstreamHTTPTimeout is the maximum time allowed for one chat call, body
// included. SSE streams can be long-lived, so we use a generous timeout.
const upstreamHTTPTimeout = 5 * time.Minute

// ChatPath is the chat action path relative to the service endpoint.
const ChatPath = "/20231130/actions/chat"

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 64 * 1024

// Response wraps a successful backend response. The caller must close Body.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
	// Streaming is true when the backend answered with an event stream.
	Streaming bool
}

// Client makes chat calls to the inference backend.
type Client struct {
	BaseURL string
	Verbose bool
	Debug   bool

	http   *http.Client
	dumpMu sync.Mutex
	dumpTo io.Writer
}

// EndpointForRegion returns the public inference endpoint of a region.
func EndpointForRegion(region string) string {
	return "https://inference.generativeai." + strings.TrimSpace(region) + ".oci.oraclecloud.com"
}

// NewClient creates a client that authenticates every call with a bearer
// token from ts. A nil ts sends no Authorization header.
func NewClient(baseURL string, ts oauth2.TokenSource, verbose, debug bool) *Client {
	base := &http.Client{Timeout: upstreamHTTPTimeout}
	hc := base
	if ts != nil {
		hc = oauth2.NewClient(context.WithValue(context.Background(), oauth2.HTTPClient, base), ts)
		hc.Timeout = upstreamHTTPTimeout
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Verbose: verbose,
		Debug:   debug,
		http:    hc,
	}
}

// Chat posts one chat action. With stream set the request asks for an event
// stream. Status codes of 400 and above are returned as *UpstreamError.
func (c *Client) Chat(ctx context.Context, details *types.ChatDetails, stream bool) (*Response, error) {
	details.ChatRequest.SetStream(stream)
	body, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+ChatPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	requestID := strings.ReplaceAll(uuid.NewString(), "-", "")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("opc-request-id", requestID)
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	} else {
		httpReq.Header.Set("Accept", "application/json")
	}

	if c.Verbose {
		slog.Info("upstream.request",
			"api_format", details.ChatRequest.APIFormat(),
			"serving_mode", details.ServingMode.ServingType,
			"model", firstNonEmpty(details.ServingMode.ModelID, details.ServingMode.EndpointID),
			"stream", stream,
			"body_bytes", len(body),
			"request_id", requestID,
		)
	}
	c.dumpUpstreamRequest(httpReq, body)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upstream chat request failed: %w", err)
	}
	if c.Verbose {
		attrs := []any{"status", resp.StatusCode}
		if id := upstreamRequestID(resp.Header); id != "" {
			attrs = append(attrs, "request_id", id)
		}
		slog.Info("upstream.response", attrs...)
	}
	c.dumpUpstreamResponse(resp)

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: errBody, Headers: resp.Header}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
		Streaming:  isEventStream(resp.Header),
	}, nil
}

func isEventStream(h http.Header) bool {
	return strings.Contains(strings.ToLower(h.Get("Content-Type")), "text/event-stream")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

func upstreamRequestID(headers http.Header) string {
	if headers == nil {
		return ""
	}
	return firstNonEmpty(
		headers.Get("opc-request-id"),
		headers.Get("x-request-id"),
		headers.Get("request-id"),
	)
}
