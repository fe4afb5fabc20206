package transform

import (
	"log/slog"

	"github.com/n0madic/go-ocigenai/internal/models"
	"github.com/n0madic/go-ocigenai/internal/types"
)

// cohereBuilder targets the legacy COHERE format: the newest user text is sent
// as message, earlier turns as chatHistory, and results of the pending tool
// calls as toolResults.
type cohereBuilder struct{}

func (cohereBuilder) Build(prompt types.Prompt, tools []types.ToolDeclaration, opts types.GenerationOptions, caps models.Capabilities) (types.ChatRequest, []types.Warning, error) {
	if len(prompt) == 0 {
		return nil, nil, ErrEmptyPrompt
	}
	s, warnings := applySampling(opts, caps)
	req := &types.CohereChatRequest{
		Format:           string(models.APIFormatCohere),
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
		req.Tools = append(req.Tools, types.CohereTool{
			Name:                 t.Name,
			Description:          t.Description,
			ParameterDefinitions: parameterDefinitions(t.Parameters),
		})
	}

	r, w := resolveReasoning(opts, caps)
	warnings = append(warnings, w...)
	if r != nil {
		warnings = append(warnings, unsupported("reasoningEffort", caps))
	}

	c := &cohereConversation{names: callNames(prompt), caps: caps}
	c.build(prompt, req)
	warnings = append(warnings, c.warnings...)

	req.IsForceSingleStep = prompt.HasToolResults()
	return req, warnings, nil
}

type cohereConversation struct {
	names    map[string]string
	caps     models.Capabilities
	open     []types.CohereToolCall
	preamble []string
	warnings []types.Warning
}

func (c *cohereConversation) build(prompt types.Prompt, req *types.CohereChatRequest) {
	lastUser := -1
	for i, m := range prompt {
		if m.Role == types.RoleUser && partsText(m.Parts) != "" {
			lastUser = i
		}
	}

	for i, m := range prompt {
		if m.Role == types.RoleSystem {
			text := m.Content
			if text == "" {
				text = partsText(m.Parts)
			}
			if text != "" {
				c.preamble = append(c.preamble, text)
			}
			continue
		}
		switch {
		case i < lastUser:
			req.ChatHistory = append(req.ChatHistory, c.history(m)...)
		case i == lastUser:
			req.Message = partsText(m.Parts)
			c.dropFiles(m.Parts)
			req.ToolResults = append(req.ToolResults, c.results(m.Parts)...)
		default:
			req.ToolResults = append(req.ToolResults, c.tail(m)...)
		}
	}
	req.PreambleOverride = joinText(c.preamble...)
}

// history converts a turn that precedes the current user message.
func (c *cohereConversation) history(m types.Message) []types.CohereHistoryMessage {
	c.dropFiles(m.Parts)
	switch m.Role {
	case types.RoleAssistant:
		calls := c.calls(m.Parts)
		text := partsText(m.Parts)
		var out []types.CohereHistoryMessage
		if text != "" || len(calls) > 0 {
			out = append(out, types.CohereHistoryMessage{Role: types.CohereRoleChatbot, Message: text, ToolCalls: calls})
		}
		if res := c.results(m.Parts); len(res) > 0 {
			out = append(out, types.CohereHistoryMessage{Role: types.CohereRoleTool, ToolResults: res})
		}
		return out
	default:
		var out []types.CohereHistoryMessage
		if res := c.results(m.Parts); len(res) > 0 {
			out = append(out, types.CohereHistoryMessage{Role: types.CohereRoleTool, ToolResults: res})
		}
		if text := partsText(m.Parts); text != "" {
			out = append(out, types.CohereHistoryMessage{Role: types.CohereRoleUser, Message: text})
		}
		return out
	}
}

// tail handles turns after the current user message: assistant calls open
// the queue and tool results are matched against it.
func (c *cohereConversation) tail(m types.Message) []types.CohereToolResult {
	c.dropFiles(m.Parts)
	if m.Role == types.RoleAssistant {
		c.calls(m.Parts)
		if text := partsText(m.Parts); text != "" {
			slog.Debug("assistant text after the last user message is not sent", "model", c.caps.ModelID)
		}
	}
	return c.results(m.Parts)
}

func (c *cohereConversation) calls(parts []types.Part) []types.CohereToolCall {
	var out []types.CohereToolCall
	for _, p := range parts {
		if p.Type != types.PartToolCall {
			continue
		}
		call := types.CohereToolCall{Name: p.ToolName, Parameters: toolInputObject(p.Input)}
		out = append(out, call)
		c.open = append(c.open, call)
	}
	return out
}

func (c *cohereConversation) results(parts []types.Part) []types.CohereToolResult {
	var out []types.CohereToolResult
	for _, p := range parts {
		if p.Type != types.PartToolResult {
			continue
		}
		out = append(out, types.CohereToolResult{Call: c.match(p), Outputs: cohereOutputs(p.Output)})
	}
	return out
}

// match pairs a result with the first open call. The legacy format carries no
// call ids, so order is the only link; an unmatched result is attributed to
// a call built from its own tool name.
func (c *cohereConversation) match(p types.Part) types.CohereToolCall {
	if len(c.open) > 0 {
		call := c.open[0]
		c.open = c.open[1:]
		return call
	}
	slog.Debug("tool result has no open call", "tool", resultName(p, c.names), "id", p.ToolCallID)
	return types.CohereToolCall{Name: resultName(p, c.names), Parameters: map[string]any{}}
}

func (c *cohereConversation) dropFiles(parts []types.Part) {
	for _, p := range parts {
		if p.Type == types.PartFile {
			c.warnings = append(c.warnings, droppedFile(p, c.caps))
		}
	}
}

func cohereOutputs(out *types.ToolOutput) []map[string]any {
	if out != nil {
		switch out.Type {
		case types.ToolOutputJSON:
			switch v := out.Value.(type) {
			case map[string]any:
				return []map[string]any{v}
			case []any:
				var objs []map[string]any
				for _, el := range v {
					if m, ok := el.(map[string]any); ok {
						objs = append(objs, m)
					}
				}
				if len(objs) == len(v) && len(objs) > 0 {
					return objs
				}
			}
		case types.ToolOutputErrorText:
			return []map[string]any{{"error": toolOutputText(out)}}
		}
	}
	return []map[string]any{{"result": toolOutputText(out)}}
}

// parameterDefinitions flattens the top-level properties of a schema into the
// legacy parameter definition map.
func parameterDefinitions(params map[string]any) map[string]types.CohereParameterDefinition {
	props, _ := params["properties"].(map[string]any)
	if len(props) == 0 {
		return nil
	}
	required := map[string]bool{}
	if list, ok := params["required"].([]any); ok {
		for _, r := range list {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}
	out := make(map[string]types.CohereParameterDefinition, len(props))
	for name, raw := range props {
		def, _ := raw.(map[string]any)
		desc, _ := def["description"].(string)
		out[name] = types.CohereParameterDefinition{
			Type:        cohereType(def["type"]),
			Description: desc,
			IsRequired:  required[name],
		}
	}
	return out
}

func cohereType(t any) string {
	if list, ok := t.([]any); ok {
		for _, el := range list {
			if s, ok := el.(string); ok && s != "null" {
				t = s
				break
			}
		}
	}
	switch t {
	case "integer":
		return "int"
	case "number":
		return "float"
	case "boolean":
		return "bool"
	case "array":
		return "List"
	case "object":
		return "Dict"
	default:
		return "str"
	}
}
