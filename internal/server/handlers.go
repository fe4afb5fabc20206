package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/openai/openai-go/v3/packages/param"

	"github.com/n0madic/go-ocigenai/internal/codec"
	"github.com/n0madic/go-ocigenai/internal/engine"
	"github.com/n0madic/go-ocigenai/internal/models"
	"github.com/n0madic/go-ocigenai/internal/reasoning"
	"github.com/n0madic/go-ocigenai/internal/types"
)

// statusClientClosedRequest is reported when the caller went away.
const statusClientClosedRequest = 499

// generateRequest is the body of /v1/generate and /v1/stream.
type generateRequest struct {
	Model         string                  `json:"model"`
	EndpointID    string                  `json:"endpoint_id,omitempty"`
	CompartmentID string                  `json:"compartment_id,omitempty"`
	Messages      types.Prompt            `json:"messages"`
	Tools         []types.ToolDeclaration `json:"tools,omitempty"`
	Options       generationPayload       `json:"options"`
}

type generationPayload struct {
	MaxTokens        *int64   `json:"max_tokens,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	TopK             *int64   `json:"top_k,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	Seed             *int64   `json:"seed,omitempty"`
	StopSequences    []string `json:"stop_sequences,omitempty"`
	ReasoningEffort  string   `json:"reasoning_effort,omitempty"`
	ThinkingBudget   *int64   `json:"thinking_budget,omitempty"`
}

func opt[T comparable](v *T) param.Opt[T] {
	if v == nil {
		return param.Opt[T]{}
	}
	return param.NewOpt(*v)
}

func (g generationPayload) options() types.GenerationOptions {
	return types.GenerationOptions{
		MaxTokens:        opt(g.MaxTokens),
		Temperature:      opt(g.Temperature),
		TopP:             opt(g.TopP),
		TopK:             opt(g.TopK),
		FrequencyPenalty: opt(g.FrequencyPenalty),
		PresencePenalty:  opt(g.PresencePenalty),
		Seed:             opt(g.Seed),
		StopSequences:    g.StopSequences,
		ReasoningEffort:  g.ReasoningEffort,
		ThinkingBudget:   opt(g.ThinkingBudget),
	}
}

func (s *Server) decodeGenerate(w http.ResponseWriter, r *http.Request) (*generateRequest, engine.Options, bool) {
	body, ok := readBody(w, r)
	if !ok {
		return nil, engine.Options{}, false
	}
	var req generateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		codec.WriteError(w, http.StatusBadRequest, string(types.ErrorKindValidation), "Invalid JSON body")
		return nil, engine.Options{}, false
	}
	opts := engine.Options{
		Model:         req.Model,
		EndpointID:    req.EndpointID,
		CompartmentID: req.CompartmentID,
		Generation:    req.Options.options(),
	}
	if opts.Model == "" {
		opts.Model = s.Config.Model
		if opts.EndpointID == "" {
			opts.EndpointID = s.Config.EndpointID
		}
	}
	return &req, opts, true
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, opts, ok := s.decodeGenerate(w, r)
	if !ok {
		return
	}
	res, err := s.Engine.Generate(r.Context(), req.Messages, req.Tools, opts)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	codec.WriteJSON(w, http.StatusOK, res)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	req, opts, ok := s.decodeGenerate(w, r)
	if !ok {
		return
	}
	sw := codec.NewStreamWriter(w)
	// The channel is drained even after the client goes away; the request
	// context cancellation ends the stream.
	for ev := range s.Engine.Stream(r.Context(), req.Messages, req.Tools, opts) {
		sw.WriteEvent(ev) //nolint:errcheck
	}
	sw.Done() //nolint:errcheck
}

func writeEngineError(w http.ResponseWriter, err error) {
	var te *types.Error
	if !errors.As(err, &te) {
		codec.WriteError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	status := http.StatusBadGateway
	switch te.Kind {
	case types.ErrorKindValidation:
		status = http.StatusBadRequest
	case types.ErrorKindCancelled:
		status = statusClientClosedRequest
	case types.ErrorKindTransport:
		if te.StatusCode >= 400 {
			status = te.StatusCode
		}
	}
	codec.WriteError(w, status, string(te.Kind), te.Message)
}

// modelView is the JSON form of a capability descriptor.
type modelView struct {
	ID                     string  `json:"id"`
	Object                 string  `json:"object"`
	Vendor                 string  `json:"vendor"`
	APIFormat              string  `json:"api_format"`
	DefaultTemperature     float64 `json:"default_temperature"`
	DefaultTopP            float64 `json:"default_top_p"`
	SupportsTools          bool    `json:"supports_tools"`
	SupportsPenalties      bool    `json:"supports_penalties"`
	SupportsStopSequences  bool    `json:"supports_stop_sequences"`
	SupportsReasoning      bool    `json:"supports_reasoning"`
	SupportsImages         bool    `json:"supports_images"`
	DefaultReasoningEffort string  `json:"default_reasoning_effort,omitempty"`
	// ReasoningVariant is set for models whose id fixes reasoning on or off.
	ReasoningVariant *bool `json:"reasoning_variant,omitempty"`
}

// newModelView converts a descriptor for JSON output.
func newModelView(c models.Capabilities) modelView {
	v := modelView{
		ID:                     c.ModelID,
		Object:                 "model",
		Vendor:                 string(c.Vendor),
		APIFormat:              string(c.APIFormat),
		DefaultTemperature:     c.DefaultTemperature,
		DefaultTopP:            c.DefaultTopP,
		SupportsTools:          c.SupportsTools,
		SupportsPenalties:      c.SupportsPenalties,
		SupportsStopSequences:  c.SupportsStopSequences,
		SupportsReasoning:      c.SupportsReasoning,
		SupportsImages:         c.SupportsImages,
		DefaultReasoningEffort: string(c.DefaultReasoningEffort),
	}
	if c.ReasoningByModelName {
		if on, known := reasoning.VariantEnabled(c.ModelID); known {
			v.ReasoningVariant = &on
		}
	}
	return v
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	catalog := s.Engine.Registry().Catalog()
	data := make([]modelView, 0, len(catalog))
	for _, c := range catalog {
		data = append(data, newModelView(c))
	}
	codec.WriteJSON(w, http.StatusOK, map[string]any{"object": "list", "data": data})
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	caps := s.Engine.Registry().Lookup(r.PathValue("id"))
	codec.WriteJSON(w, http.StatusOK, newModelView(caps))
}
