package types

// Role and content type names used by the GENERIC and COHEREV2 formats.
const (
	WireRoleSystem    = "SYSTEM"
	WireRoleUser      = "USER"
	WireRoleAssistant = "ASSISTANT"
	WireRoleTool      = "TOOL"

	WireContentText  = "TEXT"
	WireContentImage = "IMAGE"

	WireToolFunction = "FUNCTION"
)

// GenericChatRequest is the GENERIC chat request (Meta, xAI, Google and unknown vendors).
type GenericChatRequest struct {
	Format           string           `json:"apiFormat"`
	Messages         []GenericMessage `json:"messages"`
	Tools            []GenericTool    `json:"tools,omitempty"`
	MaxTokens        *int64           `json:"maxTokens,omitempty"`
	Temperature      *float64         `json:"temperature,omitempty"`
	TopP             *float64         `json:"topP,omitempty"`
	TopK             *int64           `json:"topK,omitempty"`
	FrequencyPenalty *float64         `json:"frequencyPenalty,omitempty"`
	PresencePenalty  *float64         `json:"presencePenalty,omitempty"`
	Stop             []string         `json:"stop,omitempty"`
	Seed             *int64           `json:"seed,omitempty"`
	ReasoningEffort  string           `json:"reasoningEffort,omitempty"`
	IsStream         bool             `json:"isStream,omitempty"`
	StreamOptions    *StreamOptions   `json:"streamOptions,omitempty"`
}

func (r *GenericChatRequest) APIFormat() string { return "GENERIC" }

func (r *GenericChatRequest) SetStream(stream bool) {
	r.IsStream = stream
	if stream {
		r.StreamOptions = &StreamOptions{IsIncludeUsage: true}
	} else {
		r.StreamOptions = nil
	}
}

// GenericMessage is one entry of GenericChatRequest.Messages.
type GenericMessage struct {
	Role       string            `json:"role"`
	Content    []GenericContent  `json:"content,omitempty"`
	ToolCalls  []GenericToolCall `json:"toolCalls,omitempty"`
	ToolCallID string            `json:"toolCallId,omitempty"`
}

// GenericContent is a typed content part.
type GenericContent struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"imageUrl,omitempty"`
}

// GenericToolCall is a native message-level tool call.
type GenericToolCall struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// GenericTool declares a function tool.
type GenericTool struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}
