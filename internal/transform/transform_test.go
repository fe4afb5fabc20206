package transform

import (
	"encoding/json"
	"testing"

	"github.com/openai/openai-go/v3/packages/param"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/n0madic/go-ocigenai/internal/models"
	"github.com/n0madic/go-ocigenai/internal/types"
)

var registry = models.NewRegistry()

func build(t *testing.T, modelID string, prompt types.Prompt, tools []types.ToolDeclaration, opts types.GenerationOptions) (types.ChatRequest, []types.Warning, gjson.Result) {
	t.Helper()
	caps := registry.Lookup(modelID)
	req, warnings, err := For(caps.APIFormat).Build(prompt, tools, opts, caps)
	require.NoError(t, err)
	raw, err := json.Marshal(req)
	require.NoError(t, err)
	return req, warnings, gjson.ParseBytes(raw)
}

func warningSettings(ws []types.Warning) []string {
	var out []string
	for _, w := range ws {
		out = append(out, w.Setting)
	}
	return out
}

func TestForSelectsBuilder(t *testing.T) {
	assert.IsType(t, cohereBuilder{}, For(models.APIFormatCohere))
	assert.IsType(t, cohereV2Builder{}, For(models.APIFormatCohereV2))
	assert.IsType(t, genericBuilder{}, For(models.APIFormatGeneric))
	assert.IsType(t, genericBuilder{}, For("SOMETHING"))
}

func TestEmptyPrompt(t *testing.T) {
	for _, f := range []models.APIFormat{models.APIFormatCohere, models.APIFormatCohereV2, models.APIFormatGeneric} {
		_, _, err := For(f).Build(nil, nil, types.GenerationOptions{}, models.Capabilities{})
		assert.ErrorIs(t, err, ErrEmptyPrompt)
	}
}

func TestPenaltiesOmittedWhenUnsupported(t *testing.T) {
	opts := types.GenerationOptions{
		FrequencyPenalty: param.NewOpt(0.5),
		PresencePenalty:  param.NewOpt(0.2),
		StopSequences:    []string{"END"},
	}
	_, warnings, body := build(t, "xai.grok-4", types.Prompt{types.UserText("hi")}, nil, opts)
	assert.False(t, body.Get("frequencyPenalty").Exists())
	assert.False(t, body.Get("presencePenalty").Exists())
	assert.False(t, body.Get("stop").Exists())
	assert.ElementsMatch(t, []string{"frequencyPenalty", "presencePenalty", "stopSequences"}, warningSettings(warnings))
}

func TestDefaultsFromCapabilities(t *testing.T) {
	_, warnings, body := build(t, "meta.llama-3.3-70b-instruct", types.Prompt{types.UserText("hi")}, nil, types.GenerationOptions{})
	assert.Empty(t, warnings)
	assert.Equal(t, "GENERIC", body.Get("apiFormat").String())
	assert.Equal(t, 0.7, body.Get("temperature").Float())
	assert.Equal(t, 0.9, body.Get("topP").Float())
	assert.True(t, body.Get("frequencyPenalty").Exists())
	assert.False(t, body.Get("maxTokens").Exists())
	assert.False(t, body.Get("stop").Exists())

	opts := types.GenerationOptions{
		Temperature:   param.NewOpt(0.1),
		MaxTokens:     param.NewOpt[int64](256),
		Seed:          param.NewOpt[int64](7),
		StopSequences: []string{"###"},
	}
	_, _, body = build(t, "meta.llama-3.3-70b-instruct", types.Prompt{types.UserText("hi")}, nil, opts)
	assert.Equal(t, 0.1, body.Get("temperature").Float())
	assert.Equal(t, int64(256), body.Get("maxTokens").Int())
	assert.Equal(t, int64(7), body.Get("seed").Int())
	assert.Equal(t, "###", body.Get("stop.0").String())

	_, _, body = build(t, "cohere.command-r-08-2024", types.Prompt{types.UserText("hi")}, nil, opts)
	assert.Equal(t, "###", body.Get("stopSequences.0").String())
	assert.Equal(t, 0.75, body.Get("topP").Float())
}

func weatherPrompt() types.Prompt {
	return types.Prompt{
		types.SystemMessage("be brief"),
		types.UserText("weather in Paris?"),
		{Role: types.RoleAssistant, Parts: []types.Part{
			types.ToolCallPart("call_1", "get_weather", `{"city":"Paris"}`),
		}},
		{Role: types.RoleTool, Parts: []types.Part{
			types.ToolResultPart("call_1", "get_weather", types.ToolOutput{Type: types.ToolOutputText, Value: "sunny"}),
		}},
	}
}

func TestCohereToolResultsForceSingleStep(t *testing.T) {
	req, _, body := build(t, "cohere.command-r-08-2024", weatherPrompt(), nil, types.GenerationOptions{})
	cr := req.(*types.CohereChatRequest)

	assert.Equal(t, "weather in Paris?", cr.Message)
	assert.Equal(t, "be brief", cr.PreambleOverride)
	assert.Empty(t, cr.ChatHistory)
	require.Len(t, cr.ToolResults, 1)
	assert.Equal(t, "get_weather", cr.ToolResults[0].Call.Name)
	assert.Equal(t, map[string]any{"city": "Paris"}, cr.ToolResults[0].Call.Parameters)
	assert.Equal(t, []map[string]any{{"result": "sunny"}}, cr.ToolResults[0].Outputs)
	assert.True(t, body.Get("isForceSingleStep").Bool())
	assert.True(t, body.Get("toolResults").Exists())

	_, _, plain := build(t, "cohere.command-r-08-2024", weatherPrompt()[:2], nil, types.GenerationOptions{})
	assert.False(t, plain.Get("isForceSingleStep").Exists())
	assert.False(t, plain.Get("toolResults").Exists())
}

func TestCohereMatchesResultsInTurnOrder(t *testing.T) {
	prompt := types.Prompt{
		types.UserText("compare"),
		{Role: types.RoleAssistant, Parts: []types.Part{
			types.ToolCallPart("a", "lookup_a", map[string]any{"q": 1}),
			types.ToolCallPart("b", "lookup_b", map[string]any{"q": 2}),
		}},
		{Role: types.RoleTool, Parts: []types.Part{
			types.ToolResultPart("a", "lookup_a", types.ToolOutput{Type: types.ToolOutputJSON, Value: map[string]any{"v": "A"}}),
			types.ToolResultPart("b", "lookup_b", types.ToolOutput{Type: types.ToolOutputErrorText, Value: "boom"}),
			types.ToolResultPart("c", "orphan", types.ToolOutput{Type: types.ToolOutputText, Value: "late"}),
		}},
	}
	req, _, _ := build(t, "cohere.command-r-plus-08-2024", prompt, nil, types.GenerationOptions{})
	cr := req.(*types.CohereChatRequest)
	require.Len(t, cr.ToolResults, 3)
	assert.Equal(t, "lookup_a", cr.ToolResults[0].Call.Name)
	assert.Equal(t, []map[string]any{{"v": "A"}}, cr.ToolResults[0].Outputs)
	assert.Equal(t, "lookup_b", cr.ToolResults[1].Call.Name)
	assert.Equal(t, []map[string]any{{"error": "boom"}}, cr.ToolResults[1].Outputs)
	assert.Equal(t, "orphan", cr.ToolResults[2].Call.Name)
	assert.Empty(t, cr.ToolResults[2].Call.Parameters)
	assert.True(t, cr.IsForceSingleStep)
}

func TestCohereHistory(t *testing.T) {
	prompt := types.Prompt{
		types.SystemMessage("sys"),
		types.UserText("first"),
		{Role: types.RoleAssistant, Parts: []types.Part{
			types.TextPart("checking"),
			types.ToolCallPart("x", "search", `{"q":"go"}`),
		}},
		{Role: types.RoleTool, Parts: []types.Part{
			types.ToolResultPart("x", "", types.ToolOutput{Type: types.ToolOutputText, Value: "found"}),
		}},
		types.AssistantText("done"),
		types.UserText("second"),
	}
	req, _, _ := build(t, "cohere.command-r-08-2024", prompt, nil, types.GenerationOptions{})
	cr := req.(*types.CohereChatRequest)
	assert.Equal(t, "second", cr.Message)
	assert.Empty(t, cr.ToolResults)
	assert.True(t, cr.IsForceSingleStep)
	require.Len(t, cr.ChatHistory, 4)
	assert.Equal(t, types.CohereHistoryMessage{Role: types.CohereRoleUser, Message: "first"}, cr.ChatHistory[0])
	assert.Equal(t, types.CohereRoleChatbot, cr.ChatHistory[1].Role)
	assert.Equal(t, "checking", cr.ChatHistory[1].Message)
	require.Len(t, cr.ChatHistory[1].ToolCalls, 1)
	assert.Equal(t, types.CohereRoleTool, cr.ChatHistory[2].Role)
	assert.Equal(t, "search", cr.ChatHistory[2].ToolResults[0].Call.Name)
	assert.Equal(t, types.CohereHistoryMessage{Role: types.CohereRoleChatbot, Message: "done"}, cr.ChatHistory[3])
}

func TestCohereParameterDefinitions(t *testing.T) {
	tools := []types.ToolDeclaration{{
		Name:        "search",
		Description: "search files",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"pattern": map[string]any{"type": "string", "description": "glob"},
				"limit":   map[string]any{"type": []any{"integer", "null"}},
				"ratio":   map[string]any{"type": "number"},
				"deep":    map[string]any{"type": "boolean"},
				"paths":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"opts":    map[string]any{"type": "object"},
			},
			"required": []any{"pattern"},
		},
	}}
	req, _, _ := build(t, "cohere.command-r-08-2024", types.Prompt{types.UserText("go")}, tools, types.GenerationOptions{})
	defs := req.(*types.CohereChatRequest).Tools[0].ParameterDefinitions
	assert.Equal(t, types.CohereParameterDefinition{Type: "str", Description: "glob", IsRequired: true}, defs["pattern"])
	assert.Equal(t, "int", defs["limit"].Type)
	assert.Equal(t, "float", defs["ratio"].Type)
	assert.Equal(t, "bool", defs["deep"].Type)
	assert.Equal(t, "List", defs["paths"].Type)
	assert.Equal(t, "Dict", defs["opts"].Type)
	assert.False(t, defs["limit"].IsRequired)
}

func TestGenericSingleToolCallIsNative(t *testing.T) {
	req, _, _ := build(t, "meta.llama-3.3-70b-instruct", weatherPrompt(), nil, types.GenerationOptions{})
	msgs := req.(*types.GenericChatRequest).Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, types.WireRoleSystem, msgs[0].Role)
	assert.Equal(t, types.WireRoleUser, msgs[1].Role)
	assert.Equal(t, types.WireRoleAssistant, msgs[2].Role)
	require.Len(t, msgs[2].ToolCalls, 1)
	assert.Equal(t, types.GenericToolCall{ID: "call_1", Type: "FUNCTION", Name: "get_weather", Arguments: `{"city":"Paris"}`}, msgs[2].ToolCalls[0])
	assert.Empty(t, msgs[2].Content)
	assert.Equal(t, types.WireRoleTool, msgs[3].Role)
	assert.Equal(t, "call_1", msgs[3].ToolCallID)
	assert.Equal(t, "sunny", msgs[3].Content[0].Text)
}

func TestGenericParallelToolCallsFallBackToText(t *testing.T) {
	prompt := types.Prompt{
		types.UserText("both"),
		{Role: types.RoleAssistant, Parts: []types.Part{
			types.TextPart("on it"),
			types.ToolCallPart("a", "one", map[string]any{"x": 1}),
			types.ToolCallPart("b", "two", `{"y":2}`),
		}},
		{Role: types.RoleTool, Parts: []types.Part{
			types.ToolResultPart("a", "one", types.ToolOutput{Type: types.ToolOutputText, Value: "r1"}),
			types.ToolResultPart("b", "", types.ToolOutput{Type: types.ToolOutputJSON, Value: map[string]any{"ok": true}}),
		}},
	}
	req, _, _ := build(t, "meta.llama-3.3-70b-instruct", prompt, nil, types.GenerationOptions{})
	msgs := req.(*types.GenericChatRequest).Messages
	require.Len(t, msgs, 3)

	assert.Empty(t, msgs[1].ToolCalls)
	assert.Equal(t, "on it\n\n[Called tool \"one\" with: {\"x\":1}]\n\n[Called tool \"two\" with: {\"y\":2}]", msgs[1].Content[0].Text)

	assert.Equal(t, types.WireRoleUser, msgs[2].Role)
	assert.Empty(t, msgs[2].ToolCallID)
	assert.Equal(t, "[Tool result from \"one\": r1]\n\n[Tool result from \"two\": {\"ok\":true}]", msgs[2].Content[0].Text)
	for _, m := range msgs {
		assert.NotEqual(t, types.WireRoleTool, m.Role)
	}
}

func TestGoogleAlwaysUsesTextFallback(t *testing.T) {
	req, _, _ := build(t, "google.gemini-2.5-flash", weatherPrompt(), nil, types.GenerationOptions{})
	msgs := req.(*types.GenericChatRequest).Messages
	require.Len(t, msgs, 4)
	assert.Empty(t, msgs[2].ToolCalls)
	assert.Equal(t, `[Called tool "get_weather" with: {"city":"Paris"}]`, msgs[2].Content[0].Text)
	assert.Equal(t, types.WireRoleUser, msgs[3].Role)
	assert.Equal(t, `[Tool result from "get_weather": sunny]`, msgs[3].Content[0].Text)
}

func TestCohereV2TextFallbackAlternates(t *testing.T) {
	prompt := append(weatherPrompt(), types.UserText("and tomorrow?"))
	req, _, body := build(t, "cohere.command-a-03-2025", prompt, nil, types.GenerationOptions{})
	msgs := req.(*types.CohereV2ChatRequest).Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, []string{"SYSTEM", "USER", "ASSISTANT", "USER"}, []string{msgs[0].Role, msgs[1].Role, msgs[2].Role, msgs[3].Role})
	assert.Equal(t, `[Called tool "get_weather" with: {"city":"Paris"}]`, msgs[2].Content[0].Text)
	assert.Equal(t, "[Tool result from \"get_weather\": sunny]\n\nand tomorrow?", msgs[3].Content[0].Text)
	assert.Equal(t, "COHEREV2", body.Get("apiFormat").String())
	assert.False(t, body.Get("thinking").Exists())
}

func TestReasoningParameters(t *testing.T) {
	prompt := types.Prompt{types.UserText("think")}

	_, _, body := build(t, "google.gemini-2.5-pro", prompt, nil, types.GenerationOptions{})
	assert.Equal(t, "MEDIUM", body.Get("reasoningEffort").String())

	_, _, body = build(t, "google.gemini-2.5-pro", prompt, nil, types.GenerationOptions{ReasoningEffort: "none"})
	assert.False(t, body.Get("reasoningEffort").Exists())

	_, warnings, body := build(t, "xai.grok-4-fast-reasoning", prompt, nil, types.GenerationOptions{ReasoningEffort: "high"})
	assert.False(t, body.Get("reasoningEffort").Exists())
	assert.Equal(t, []string{"reasoningEffort"}, warningSettings(warnings))
	assert.Contains(t, warnings[0].Details, "fixed on")

	_, warnings, _ = build(t, "xai.grok-4-fast-non-reasoning", prompt, nil, types.GenerationOptions{ReasoningEffort: "high"})
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Details, "fixed off")

	_, _, body = build(t, "xai.grok-4", prompt, nil, types.GenerationOptions{})
	assert.False(t, body.Get("reasoningEffort").Exists())

	_, _, body = build(t, "cohere.command-a-reasoning-08-2025", prompt, nil, types.GenerationOptions{ReasoningEffort: "high"})
	assert.Equal(t, "ENABLED", body.Get("thinking.type").String())
	assert.Equal(t, int64(16384), body.Get("thinking.tokenBudget").Int())

	_, _, body = build(t, "cohere.command-a-reasoning-08-2025", prompt, nil, types.GenerationOptions{ThinkingBudget: param.NewOpt[int64](500)})
	assert.Equal(t, int64(500), body.Get("thinking.tokenBudget").Int())

	_, warnings, _ = build(t, "meta.llama-3.3-70b-instruct", prompt, nil, types.GenerationOptions{ReasoningEffort: "low"})
	assert.Equal(t, []string{"reasoningEffort"}, warningSettings(warnings))
}

func TestToolSchemasAreSanitized(t *testing.T) {
	tools := []types.ToolDeclaration{{
		Name: "grep",
		InputSchema: map[string]any{
			"$schema":              "http://json-schema.org/draft-07/schema#",
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"pattern": map[string]any{"type": "string", "pattern": "^.+$"},
			},
		},
	}, {Name: "noargs"}}
	_, _, body := build(t, "meta.llama-3.3-70b-instruct", types.Prompt{types.UserText("go")}, tools, types.GenerationOptions{})
	assert.JSONEq(t, `{"type":"object","properties":{"pattern":{"type":"string"}}}`, body.Get("tools.0.parameters").Raw)
	assert.Equal(t, "FUNCTION", body.Get("tools.0.type").String())
	assert.JSONEq(t, `{"type":"object","properties":{}}`, body.Get("tools.1.parameters").Raw)

	_, _, v2 := build(t, "cohere.command-a-03-2025", types.Prompt{types.UserText("go")}, tools, types.GenerationOptions{})
	assert.Equal(t, "grep", v2.Get("tools.0.function.name").String())
	assert.JSONEq(t, `{"type":"object","properties":{"pattern":{"type":"string"}}}`, v2.Get("tools.0.function.parameters").Raw)
}

func TestToolsOmittedWhenUnsupported(t *testing.T) {
	tools := []types.ToolDeclaration{{Name: "x"}}
	_, warnings, body := build(t, "cohere.command-a-vision-07-2025", types.Prompt{types.UserText("go")}, tools, types.GenerationOptions{})
	assert.False(t, body.Get("tools").Exists())
	assert.Equal(t, []string{"tools"}, warningSettings(warnings))
}

func TestFileParts(t *testing.T) {
	prompt := types.Prompt{{Role: types.RoleUser, Parts: []types.Part{
		types.TextPart("what is this?"),
		types.FilePart([]byte{0x89, 0x50}, "image/png"),
		types.FilePart([]byte("%PDF"), "application/pdf"),
	}}}
	_, warnings, body := build(t, "meta.llama-3.2-90b-vision-instruct", prompt, nil, types.GenerationOptions{})
	assert.Equal(t, "IMAGE", body.Get("messages.0.content.1.type").String())
	assert.Equal(t, "data:image/png;base64,iVA=", body.Get("messages.0.content.1.imageUrl.url").String())
	assert.Equal(t, []string{"file"}, warningSettings(warnings))

	_, warnings, body = build(t, "meta.llama-3.3-70b-instruct", prompt, nil, types.GenerationOptions{})
	assert.Equal(t, int64(1), body.Get("messages.0.content.#").Int())
	assert.Len(t, warnings, 2)

	_, warnings, _ = build(t, "cohere.command-r-08-2024", prompt, nil, types.GenerationOptions{})
	assert.Len(t, warnings, 2)
}

func TestSetStream(t *testing.T) {
	req, _, _ := build(t, "meta.llama-3.3-70b-instruct", types.Prompt{types.UserText("hi")}, nil, types.GenerationOptions{})
	req.SetStream(true)
	raw, err := json.Marshal(req)
	require.NoError(t, err)
	body := gjson.ParseBytes(raw)
	assert.True(t, body.Get("isStream").Bool())
	assert.True(t, body.Get("streamOptions.isIncludeUsage").Bool())

	cr, _, _ := build(t, "cohere.command-r-08-2024", types.Prompt{types.UserText("hi")}, nil, types.GenerationOptions{})
	cr.SetStream(true)
	assert.True(t, cr.(*types.CohereChatRequest).IsStream)
}

func TestNormalizeImageDataURL(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,iVA=", normalizeImageDataURL("data:image/png;base64,iVA"))
	assert.Equal(t, "https://example.com/a.png", normalizeImageDataURL("https://example.com/a.png"))
	assert.Equal(t, "data:image/png;base64,+/8=", normalizeImageDataURL("data:image/png;base64,-_8"))
}
