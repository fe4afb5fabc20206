package transform

import (
	"github.com/n0madic/go-ocigenai/internal/models"
	"github.com/n0madic/go-ocigenai/internal/types"
)

// genericBuilder targets the GENERIC messages format used by Meta, xAI,
// Google and unrecognized vendors.
type genericBuilder struct{}

func (genericBuilder) Build(prompt types.Prompt, tools []types.ToolDeclaration, opts types.GenerationOptions, caps models.Capabilities) (types.ChatRequest, []types.Warning, error) {
	if len(prompt) == 0 {
		return nil, nil, ErrEmptyPrompt
	}
	s, warnings := applySampling(opts, caps)
	req := &types.GenericChatRequest{
		Format:           string(models.APIFormatGeneric),
		MaxTokens:        s.MaxTokens,
		Temperature:      s.Temperature,
		TopP:             s.TopP,
		TopK:             s.TopK,
		FrequencyPenalty: s.FrequencyPenalty,
		PresencePenalty:  s.PresencePenalty,
		Stop:             s.Stop,
		Seed:             s.Seed,
	}

	prepared, w := prepareTools(tools, caps)
	warnings = append(warnings, w...)
	for _, t := range prepared {
		req.Tools = append(req.Tools, types.GenericTool{
			Type:        types.WireToolFunction,
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}

	r, w := resolveReasoning(opts, caps)
	warnings = append(warnings, w...)
	if r != nil {
		req.ReasoningEffort = r.WireEffort()
	}

	turns, w := buildTranscript(prompt, caps, caps.NativeToolMessages)
	warnings = append(warnings, w...)
	req.Messages = make([]types.GenericMessage, 0, len(turns))
	for _, t := range turns {
		msg := types.GenericMessage{Role: t.Role, ToolCalls: t.ToolCalls, ToolCallID: t.ToolCallID}
		if t.Text != "" || t.Role == types.WireRoleTool {
			msg.Content = append(msg.Content, types.GenericContent{Type: types.WireContentText, Text: t.Text})
		}
		for _, u := range t.Images {
			msg.Content = append(msg.Content, types.GenericContent{Type: types.WireContentImage, ImageURL: &types.ImageURL{URL: u}})
		}
		req.Messages = append(req.Messages, msg)
	}
	return req, warnings, nil
}
