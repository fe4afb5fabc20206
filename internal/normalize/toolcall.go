package normalize

import (
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// ToolCall is a tool call decoded from any of the backend shapes.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
	// HasArguments is false when the source carried no argument field at all,
	// which happens on streamed name-only fragments.
	HasArguments bool
	// Index is the positional index some streams use instead of repeating the id.
	Index    int
	HasIndex bool
}

// NewToolCallID returns a synthetic id for calls the backend left unnamed.
func NewToolCallID() string {
	return "call_" + uuid.NewString()
}

// ParseToolCall decodes one tool call object. Recognized shapes:
//
//	{"id", "type": "FUNCTION", "name", "arguments": "<json>"}        GENERIC
//	{"id", "type": "FUNCTION", "function": {"name", "arguments"}}    COHEREV2
//	{"name", "parameters": {...}}                                    COHERE
//
// Arguments given as objects are returned as their raw JSON text.
func ParseToolCall(v gjson.Result) ToolCall {
	tc := ToolCall{
		ID:   firstString(v, "id", "toolCallId", "callId", "call_id"),
		Name: firstString(v, "name", "function.name", "toolName"),
	}
	for _, p := range []string{"arguments", "function.arguments", "parameters", "input"} {
		a := v.Get(p)
		if !a.Exists() {
			continue
		}
		tc.HasArguments = true
		if a.Type == gjson.String {
			tc.Arguments = a.String()
		} else {
			tc.Arguments = a.Raw
		}
		break
	}
	if idx := v.Get("index"); idx.Type == gjson.Number {
		tc.Index = int(idx.Int())
		tc.HasIndex = true
	}
	return tc
}

// ArgumentsOrEmpty returns args or "{}" when args is blank.
func ArgumentsOrEmpty(args string) string {
	if strings.TrimSpace(args) == "" {
		return "{}"
	}
	return args
}

func firstString(v gjson.Result, paths ...string) string {
	for _, p := range paths {
		if s := v.Get(p); s.Type == gjson.String && s.String() != "" {
			return s.String()
		}
	}
	return ""
}

// isToolCallPart reports whether a content-array entry is a tool call.
func isToolCallPart(part gjson.Result) bool {
	switch strings.ToUpper(part.Get("type").String()) {
	case "TOOL_CALL", "TOOL_USE", "FUNCTION_CALL", "FUNCTION":
		return true
	}
	return false
}

// isReasoningPart reports whether a content-array entry carries thinking text.
func isReasoningPart(part gjson.Result) bool {
	switch strings.ToUpper(part.Get("type").String()) {
	case "THINKING", "REASONING":
		return true
	}
	return false
}

// isTextPart reports whether a content-array entry carries answer text.
func isTextPart(part gjson.Result) bool {
	t := strings.ToUpper(part.Get("type").String())
	return t == "TEXT" || t == "OUTPUT_TEXT" || (t == "" && part.Get("text").Type == gjson.String)
}

// ReasoningText returns the thinking text of a reasoning part.
func ReasoningText(part gjson.Result) string {
	return firstString(part, "thinking", "text", "reasoning")
}
