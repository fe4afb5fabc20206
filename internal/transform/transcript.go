package transform

import (
	"log/slog"

	"github.com/n0madic/go-ocigenai/internal/models"
	"github.com/n0madic/go-ocigenai/internal/types"
)

// turn is one wire message before it is shaped for a specific family.
type turn struct {
	Role       string
	Text       string
	Images     []string
	ToolCalls  []types.GenericToolCall
	ToolCallID string
}

func (t turn) mergeable() bool {
	return len(t.ToolCalls) == 0 && t.ToolCallID == "" && t.Role != types.WireRoleTool
}

func (t turn) empty() bool {
	return t.Text == "" && len(t.Images) == 0 && t.mergeable()
}

// transcript flattens a prompt into alternating turns. When native is false
// every tool call and result is rendered as a text directive. When native is
// true an assistant turn with exactly one identified call keeps it as a
// structured call and its result becomes a TOOL turn; parallel calls and
// their results still use text.
type transcript struct {
	turns       []turn
	warnings    []types.Warning
	native      map[string]bool
	names       map[string]string
	caps        models.Capabilities
	allowNative bool
}

func buildTranscript(prompt types.Prompt, caps models.Capabilities, allowNative bool) ([]turn, []types.Warning) {
	tr := &transcript{
		native:      map[string]bool{},
		names:       callNames(prompt),
		caps:        caps,
		allowNative: allowNative,
	}
	for _, m := range prompt {
		switch m.Role {
		case types.RoleSystem:
			text := m.Content
			if text == "" {
				text = partsText(m.Parts)
			}
			tr.add(turn{Role: types.WireRoleSystem, Text: text})
		case types.RoleAssistant:
			tr.assistant(m.Parts)
		default:
			tr.user(m.Parts)
		}
	}
	return tr.turns, tr.warnings
}

func (tr *transcript) assistant(parts []types.Part) {
	var texts []string
	var calls []types.Part
	for _, p := range parts {
		switch p.Type {
		case types.PartText:
			if p.Text != "" {
				texts = append(texts, p.Text)
			}
		case types.PartToolCall:
			calls = append(calls, p)
		case types.PartToolResult:
			tr.flushAssistant(texts, calls)
			texts, calls = nil, nil
			tr.result(p)
		case types.PartFile:
			tr.warnings = append(tr.warnings, droppedFile(p, tr.caps))
		}
	}
	tr.flushAssistant(texts, calls)
}

func (tr *transcript) flushAssistant(texts []string, calls []types.Part) {
	if tr.allowNative && len(calls) == 1 && calls[0].ToolCallID != "" {
		c := calls[0]
		tr.native[c.ToolCallID] = true
		tr.add(turn{
			Role: types.WireRoleAssistant,
			Text: joinText(texts...),
			ToolCalls: []types.GenericToolCall{{
				ID:        c.ToolCallID,
				Type:      types.WireToolFunction,
				Name:      c.ToolName,
				Arguments: toolInputJSON(c.Input),
			}},
		})
		return
	}
	if len(calls) > 1 && tr.allowNative {
		slog.Debug("parallel tool calls encoded as text", "model", tr.caps.ModelID, "count", len(calls))
	}
	for _, c := range calls {
		texts = append(texts, toolCallDirective(c.ToolName, toolInputJSON(c.Input)))
	}
	tr.add(turn{Role: types.WireRoleAssistant, Text: joinText(texts...)})
}

func (tr *transcript) user(parts []types.Part) {
	for _, p := range parts {
		switch p.Type {
		case types.PartText:
			tr.add(turn{Role: types.WireRoleUser, Text: p.Text})
		case types.PartFile:
			if u, ok := imageURL(p, tr.caps); ok {
				tr.add(turn{Role: types.WireRoleUser, Images: []string{u}})
			} else {
				tr.warnings = append(tr.warnings, droppedFile(p, tr.caps))
			}
		case types.PartToolResult:
			tr.result(p)
		case types.PartToolCall:
			tr.add(turn{Role: types.WireRoleUser, Text: toolCallDirective(p.ToolName, toolInputJSON(p.Input))})
		}
	}
}

func (tr *transcript) result(p types.Part) {
	text := toolOutputText(p.Output)
	if tr.native[p.ToolCallID] {
		tr.add(turn{Role: types.WireRoleTool, Text: text, ToolCallID: p.ToolCallID})
		return
	}
	tr.add(turn{Role: types.WireRoleUser, Text: toolResultDirective(resultName(p, tr.names), text)})
}

// add appends t, merging it into the previous turn when both are plain turns
// of the same role.
func (tr *transcript) add(t turn) {
	if t.empty() {
		return
	}
	if n := len(tr.turns); n > 0 {
		last := &tr.turns[n-1]
		if last.Role == t.Role && last.mergeable() && t.mergeable() {
			last.Text = joinText(last.Text, t.Text)
			last.Images = append(last.Images, t.Images...)
			return
		}
	}
	tr.turns = append(tr.turns, t)
}

func joinText(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += p
	}
	return out
}
