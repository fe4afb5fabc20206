package types

import "github.com/openai/openai-go/v3/packages/param"

// Role identifies the author of a canonical message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartType discriminates the content parts carried by user, assistant and tool messages.
type PartType string

const (
	PartText       PartType = "text"
	PartFile       PartType = "file"
	PartToolCall   PartType = "tool-call"
	PartToolResult PartType = "tool-result"
)

// ToolOutputType tags the payload of a tool result.
type ToolOutputType string

const (
	ToolOutputText      ToolOutputType = "text"
	ToolOutputJSON      ToolOutputType = "json"
	ToolOutputErrorText ToolOutputType = "error-text"
)

// Prompt is the ordered conversation sent to the backend in one invocation.
type Prompt []Message

// Message is one vendor-neutral conversation entry. System messages carry Content;
// the other roles carry Parts.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`
	Parts   []Part `json:"parts,omitempty"`
}

// Part is a single content part. Which fields are meaningful depends on Type:
//
//   - text: Text
//   - file: Data or URL, MediaType
//   - tool-call: ToolCallID, ToolName, Input (serialized JSON string or structured value)
//   - tool-result: ToolCallID, ToolName, Output
type Part struct {
	Type       PartType    `json:"type"`
	Text       string      `json:"text,omitempty"`
	Data       []byte      `json:"data,omitempty"`
	URL        string      `json:"url,omitempty"`
	MediaType  string      `json:"media_type,omitempty"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
	ToolName   string      `json:"tool_name,omitempty"`
	Input      any         `json:"input,omitempty"`
	Output     *ToolOutput `json:"output,omitempty"`
}

// ToolOutput is the payload of a tool-result part.
type ToolOutput struct {
	Type  ToolOutputType `json:"type"`
	Value any            `json:"value"`
}

// ToolDeclaration describes a callable tool. InputSchema is JSON-Schema shaped.
type ToolDeclaration struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema any    `json:"input_schema,omitempty"`
}

// GenerationOptions holds caller-supplied sampling parameters. Unset values are filled
// from the model's capability defaults by the request builders.
type GenerationOptions struct {
	MaxTokens        param.Opt[int64]
	Temperature      param.Opt[float64]
	TopP             param.Opt[float64]
	TopK             param.Opt[int64]
	FrequencyPenalty param.Opt[float64]
	PresencePenalty  param.Opt[float64]
	Seed             param.Opt[int64]
	StopSequences    []string

	// ReasoningEffort overrides the model's default effort ("low", "medium", "high").
	// "none" turns reasoning off for models that gate it by parameter.
	ReasoningEffort string
	// ThinkingBudget overrides the token budget derived from the effort level.
	ThinkingBudget param.Opt[int64]
}

// SystemMessage builds a system message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// UserText builds a user message with a single text part.
func UserText(text string) Message {
	return Message{Role: RoleUser, Parts: []Part{TextPart(text)}}
}

// AssistantText builds an assistant message with a single text part.
func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Parts: []Part{TextPart(text)}}
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Type: PartText, Text: text}
}

// FilePart builds an inline binary attachment.
func FilePart(data []byte, mediaType string) Part {
	return Part{Type: PartFile, Data: data, MediaType: mediaType}
}

// ToolCallPart builds an assistant tool-call part.
func ToolCallPart(id, name string, input any) Part {
	return Part{Type: PartToolCall, ToolCallID: id, ToolName: name, Input: input}
}

// ToolResultPart builds a tool-result part.
func ToolResultPart(id, name string, output ToolOutput) Part {
	return Part{Type: PartToolResult, ToolCallID: id, ToolName: name, Output: &output}
}

// HasToolResults reports whether any message in p carries a tool-result part.
func (p Prompt) HasToolResults() bool {
	for _, m := range p {
		for _, part := range m.Parts {
			if part.Type == PartToolResult {
				return true
			}
		}
	}
	return false
}
