package normalize

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/n0madic/go-ocigenai/internal/models"
	"github.com/n0madic/go-ocigenai/internal/types"
)

// Fragment is the content decoded from one message object, either a complete
// response message or a single stream event.
type Fragment struct {
	Text      string
	Reasoning string
	ToolCalls []ToolCall
}

// DecodeMessage extracts text, reasoning and tool calls from a message object.
//
// Text is read from a typed part array first, then a bare string content,
// then a "text" field. Reasoning is only read for reasoning-capable models.
func DecodeMessage(msg gjson.Result, caps models.Capabilities) Fragment {
	var f Fragment
	content := msg.Get("content")
	var text, thinking strings.Builder

	switch {
	case content.IsArray():
		content.ForEach(func(_, part gjson.Result) bool {
			switch {
			case isToolCallPart(part):
				f.ToolCalls = append(f.ToolCalls, ParseToolCall(part))
			case isReasoningPart(part):
				thinking.WriteString(ReasoningText(part))
			case isTextPart(part):
				text.WriteString(part.Get("text").String())
			}
			return true
		})
	case content.Type == gjson.String:
		text.WriteString(content.String())
	default:
		if t := msg.Get("text"); t.Type == gjson.String {
			text.WriteString(t.String())
		}
	}

	if caps.SupportsReasoning {
		if rc := msg.Get("reasoningContent"); rc.Type == gjson.String {
			f.Reasoning = rc.String() + thinking.String()
		} else {
			f.Reasoning = thinking.String()
		}
	}
	f.Text = text.String()

	for _, p := range []string{"toolCalls", "tool_calls"} {
		msg.Get(p).ForEach(func(_, tc gjson.Result) bool {
			f.ToolCalls = append(f.ToolCalls, ParseToolCall(tc))
			return true
		})
	}
	for _, p := range []string{"functionCall", "function_call"} {
		if fc := msg.Get(p); fc.IsObject() {
			f.ToolCalls = append(f.ToolCalls, ParseToolCall(fc))
		}
	}
	f.ToolCalls = uniqueToolCalls(f.ToolCalls)
	return f
}

// uniqueToolCalls drops repeats of an id already listed; calls without an id
// are kept.
func uniqueToolCalls(calls []ToolCall) []ToolCall {
	if len(calls) < 2 {
		return calls
	}
	seen := make(map[string]bool, len(calls))
	out := calls[:0]
	for _, tc := range calls {
		if tc.ID != "" {
			if seen[tc.ID] {
				continue
			}
			seen[tc.ID] = true
		}
		out = append(out, tc)
	}
	return out
}

// Locate finds the message object and raw finish code inside a chat response
// or stream event. nested is true when the message is not the object itself.
func Locate(chat gjson.Result) (msg gjson.Result, rawFinish string, nested bool) {
	if choice := chat.Get("choices.0"); choice.Exists() {
		msg = choice.Get("message")
		if !msg.Exists() {
			msg = choice.Get("delta")
		}
		return msg, firstString(choice, "finishReason", "finish_reason"), true
	}
	if m := chat.Get("message"); m.IsObject() {
		return m, firstString(chat, "finishReason", "finish_reason"), true
	}
	return chat, firstString(chat, "finishReason", "finish_reason"), false
}

// Response normalizes a non-streaming chat response body. It fails only when
// the body is not JSON.
func Response(body []byte, caps models.Capabilities) (*types.Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, &types.Error{Kind: types.ErrorKindParse, Message: "response body is not valid JSON"}
	}
	root := gjson.ParseBytes(body)
	chat := root.Get("chatResponse")
	if !chat.IsObject() {
		chat = root
	}

	msg, raw, nested := Locate(chat)
	f := DecodeMessage(msg, caps)
	if nested {
		chat.Get("toolCalls").ForEach(func(_, tc gjson.Result) bool {
			f.ToolCalls = append(f.ToolCalls, ParseToolCall(tc))
			return true
		})
	}

	res := &types.Result{RawFinishReason: raw}
	if f.Reasoning != "" {
		res.Content = append(res.Content, types.ContentBlock{Type: types.BlockReasoning, Text: f.Reasoning})
	}
	if f.Text != "" {
		res.Content = append(res.Content, types.ContentBlock{Type: types.BlockText, Text: f.Text})
	}
	seen := make(map[string]bool, len(f.ToolCalls))
	calls := 0
	for _, tc := range f.ToolCalls {
		id := tc.ID
		if id == "" {
			id = NewToolCallID()
		}
		// A call may be listed both as a content part and in toolCalls.
		if seen[id] {
			continue
		}
		seen[id] = true
		calls++
		res.Content = append(res.Content, types.ContentBlock{
			Type:       types.BlockToolCall,
			ToolCallID: id,
			ToolName:   tc.Name,
			Input:      ArgumentsOrEmpty(tc.Arguments),
		})
	}
	res.FinishReason = Finish(raw, calls > 0)
	res.Usage, _ = FindUsage(root)
	return res, nil
}
