// Package engine is the translation facade: it builds the backend request for
// a model, performs the call and returns canonical results or stream events.
package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/n0madic/go-ocigenai/internal/models"
	"github.com/n0madic/go-ocigenai/internal/normalize"
	"github.com/n0madic/go-ocigenai/internal/stream"
	"github.com/n0madic/go-ocigenai/internal/transform"
	"github.com/n0madic/go-ocigenai/internal/types"
	"github.com/n0madic/go-ocigenai/internal/upstream"
)

// Transport performs one chat call against the backend.
type Transport interface {
	Chat(ctx context.Context, details *types.ChatDetails, stream bool) (*upstream.Response, error)
}

// Config holds the engine collaborators. Zero fields get defaults.
type Config struct {
	Registry      *models.Registry
	CompartmentID string
	Describer     ErrorDescriber
	Verbose       bool
}

// Options addresses one invocation.
type Options struct {
	Model string
	// EndpointID selects DEDICATED serving; Model still picks the capabilities.
	EndpointID    string
	CompartmentID string
	Generation    types.GenerationOptions
}

// Engine is safe for concurrent use; every call is independent.
type Engine struct {
	transport     Transport
	registry      *models.Registry
	compartmentID string
	describer     ErrorDescriber
	verbose       bool
}

// New creates an engine on top of a transport.
func New(t Transport, cfg Config) *Engine {
	e := &Engine{
		transport:     t,
		registry:      cfg.Registry,
		compartmentID: cfg.CompartmentID,
		describer:     cfg.Describer,
		verbose:       cfg.Verbose,
	}
	if e.registry == nil {
		e.registry = models.NewRegistry()
	}
	if e.describer == nil {
		e.describer = HintDescriber{}
	}
	return e
}

// Registry returns the capability registry used by the engine.
func (e *Engine) Registry() *models.Registry {
	return e.registry
}

type invocation struct {
	details  *types.ChatDetails
	caps     models.Capabilities
	warnings []types.Warning
}

func (e *Engine) prepare(prompt types.Prompt, tools []types.ToolDeclaration, opts Options) (*invocation, error) {
	caps := e.registry.Lookup(opts.Model)
	if caps.ModelID == "" && opts.EndpointID == "" {
		return nil, &types.Error{Kind: types.ErrorKindValidation, Message: "model is required"}
	}
	req, warnings, err := transform.For(caps.APIFormat).Build(prompt, tools, opts.Generation, caps)
	if err != nil {
		return nil, &types.Error{Kind: types.ErrorKindValidation, Message: err.Error(), Err: err}
	}

	serving := types.OnDemand(caps.ModelID)
	if id := strings.TrimSpace(opts.EndpointID); id != "" {
		serving = types.Dedicated(id)
	}
	compartment := opts.CompartmentID
	if compartment == "" {
		compartment = e.compartmentID
	}
	if e.verbose {
		slog.Info("engine.invocation",
			"model", caps.ModelID,
			"api_format", caps.APIFormat,
			"serving_mode", serving.ServingType,
			"messages", len(prompt),
			"tools", len(tools),
			"warnings", len(warnings),
		)
	}
	return &invocation{
		details: &types.ChatDetails{
			CompartmentID: compartment,
			ServingMode:   serving,
			ChatRequest:   req,
		},
		caps:     caps,
		warnings: warnings,
	}, nil
}

// Generate performs a non-streaming call and returns the normalized result.
func (e *Engine) Generate(ctx context.Context, prompt types.Prompt, tools []types.ToolDeclaration, opts Options) (*types.Result, error) {
	inv, err := e.prepare(prompt, tools, opts)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, e.classify(ctx, ctx.Err())
	}

	resp, err := e.transport.Chat(ctx, inv.details, false)
	if err != nil {
		return nil, e.classify(ctx, err)
	}
	defer resp.Body.Close()

	var res *types.Result
	if resp.Streaming {
		res, err = collect(ctx, inv.caps, resp.Body)
	} else {
		var body []byte
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, e.classify(ctx, err)
		}
		res, err = normalize.Response(body, inv.caps)
	}
	if err != nil {
		return nil, e.classify(ctx, err)
	}
	res.Warnings = append(inv.warnings, res.Warnings...)
	return res, nil
}

// Stream performs a streaming call. The returned channel delivers
// stream-start, the content events and one terminal finish or error event,
// then closes. Sends block until received or until ctx is done; after
// cancelling, a caller may stop reading and the call is still released.
func (e *Engine) Stream(ctx context.Context, prompt types.Prompt, tools []types.ToolDeclaration, opts Options) <-chan types.StreamEvent {
	out := make(chan types.StreamEvent, 1)
	go func() {
		defer close(out)
		send := func(ev types.StreamEvent) {
			select {
			case out <- ev:
				return
			default:
			}
			select {
			case out <- ev:
			case <-ctx.Done():
			}
		}
		// Parser errors have not been described yet.
		emit := func(ev types.StreamEvent) {
			if ev.Type == types.EventError && ev.Error != nil && ev.Error.Kind == types.ErrorKindTransport {
				ev.Error.Message = e.describer.Describe(ev.Error)
			}
			send(ev)
		}
		fail := func(err error) {
			send(types.StreamEvent{Type: types.EventError, Error: e.classify(ctx, err)})
		}

		inv, err := e.prepare(prompt, tools, opts)
		if err != nil {
			fail(err)
			return
		}
		if ctx.Err() != nil {
			fail(ctx.Err())
			return
		}
		resp, err := e.transport.Chat(ctx, inv.details, true)
		if err != nil {
			fail(err)
			return
		}
		defer resp.Body.Close()

		emit(types.StreamEvent{Type: types.EventStreamStart, Warnings: inv.warnings})
		parser := stream.NewParser(inv.caps, emit)
		if resp.Streaming {
			parser.Run(ctx, resp.Body)
			return
		}

		slog.Debug("backend replied without a stream, simulating", "model", inv.caps.ModelID)
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			fail(err)
			return
		}
		res, err := normalize.Response(body, inv.caps)
		if err != nil {
			fail(err)
			return
		}
		parser.Simulate(res)
	}()
	return out
}

// classify translates any failure into a *types.Error. Cancellation wins over
// every other kind once the context is done.
func (e *Engine) classify(ctx context.Context, err error) *types.Error {
	if ctxErr := ctx.Err(); ctxErr != nil || errors.Is(err, context.Canceled) {
		wrapped := err
		if ctxErr != nil && !errors.Is(err, ctxErr) {
			wrapped = errors.Join(ctxErr, err)
		}
		return &types.Error{Kind: types.ErrorKindCancelled, Message: "request cancelled", Err: wrapped}
	}

	var te *types.Error
	if errors.As(err, &te) {
		if te.Kind == types.ErrorKindTransport {
			te.Message = e.describer.Describe(te)
		}
		return te
	}

	out := &types.Error{Kind: types.ErrorKindTransport, Message: err.Error(), Err: err}
	var ue *upstream.UpstreamError
	if errors.As(err, &ue) {
		out.StatusCode = ue.StatusCode
	}
	out.Message = e.describer.Describe(out)
	return out
}
