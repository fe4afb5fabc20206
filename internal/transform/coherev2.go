package transform

import (
	"github.com/n0madic/go-ocigenai/internal/models"
	"github.com/n0madic/go-ocigenai/internal/types"
)

// cohereV2Builder targets COHEREV2. The format rejects tool-call content and
// the TOOL role in multi-turn history, so tool traffic is always sent as text.
type cohereV2Builder struct{}

func (cohereV2Builder) Build(prompt types.Prompt, tools []types.ToolDeclaration, opts types.GenerationOptions, caps models.Capabilities) (types.ChatRequest, []types.Warning, error) {
	if len(prompt) == 0 {
		return nil, nil, ErrEmptyPrompt
	}
	s, warnings := applySampling(opts, caps)
	req := &types.CohereV2ChatRequest{
		Format:           string(models.APIFormatCohereV2),
		MaxTokens:        s.MaxTokens,
		Temperature:      s.Temperature,
		TopP:             s.TopP,
		TopK:             s.TopK,
		FrequencyPenalty: s.FrequencyPenalty,
		PresencePenalty:  s.PresencePenalty,
		StopSequences:    s.Stop,
		Seed:             s.Seed,
	}

	prepared, w := prepareTools(tools, caps)
	warnings = append(warnings, w...)
	for _, t := range prepared {
		req.Tools = append(req.Tools, types.CohereV2Tool{
			Type: types.WireToolFunction,
			Function: types.CohereV2Function{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	r, w := resolveReasoning(opts, caps)
	warnings = append(warnings, w...)
	if r != nil {
		req.Thinking = &types.CohereThinking{Type: "ENABLED", TokenBudget: r.TokenBudget}
	}

	turns, w := buildTranscript(prompt, caps, false)
	warnings = append(warnings, w...)
	req.Messages = make([]types.CohereV2Message, 0, len(turns))
	for _, t := range turns {
		msg := types.CohereV2Message{Role: t.Role}
		if t.Text != "" {
			msg.Content = append(msg.Content, types.CohereV2Content{Type: types.WireContentText, Text: t.Text})
		}
		for _, u := range t.Images {
			msg.Content = append(msg.Content, types.CohereV2Content{Type: types.CohereV2ContentImage, ImageURL: &types.ImageURL{URL: u}})
		}
		req.Messages = append(req.Messages, msg)
	}
	return req, warnings, nil
}
