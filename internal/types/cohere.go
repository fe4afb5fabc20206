package types

// Chat history roles of the legacy COHERE format.
const (
	CohereRoleUser    = "USER"
	CohereRoleChatbot = "CHATBOT"
	CohereRoleSystem  = "SYSTEM"
	CohereRoleTool    = "TOOL"
)

// CohereChatRequest is the legacy COHERE request: one message plus history.
type CohereChatRequest struct {
	Format            string                 `json:"apiFormat"`
	Message           string                 `json:"message"`
	ChatHistory       []CohereHistoryMessage `json:"chatHistory,omitempty"`
	PreambleOverride  string                 `json:"preambleOverride,omitempty"`
	Tools             []CohereTool           `json:"tools,omitempty"`
	ToolResults       []CohereToolResult     `json:"toolResults,omitempty"`
	IsForceSingleStep bool                   `json:"isForceSingleStep,omitempty"`
	MaxTokens         *int64                 `json:"maxTokens,omitempty"`
	Temperature       *float64               `json:"temperature,omitempty"`
	TopP              *float64               `json:"topP,omitempty"`
	TopK              *int64                 `json:"topK,omitempty"`
	FrequencyPenalty  *float64               `json:"frequencyPenalty,omitempty"`
	PresencePenalty   *float64               `json:"presencePenalty,omitempty"`
	StopSequences     []string               `json:"stopSequences,omitempty"`
	Seed              *int64                 `json:"seed,omitempty"`
	IsStream          bool                   `json:"isStream,omitempty"`
}

func (r *CohereChatRequest) APIFormat() string { return "COHERE" }

func (r *CohereChatRequest) SetStream(stream bool) { r.IsStream = stream }

// CohereHistoryMessage is one chatHistory entry.
type CohereHistoryMessage struct {
	Role        string             `json:"role"`
	Message     string             `json:"message,omitempty"`
	ToolCalls   []CohereToolCall   `json:"toolCalls,omitempty"`
	ToolResults []CohereToolResult `json:"toolResults,omitempty"`
}

// CohereToolCall is a legacy tool call. The protocol does not carry call ids.
type CohereToolCall struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}

// CohereToolResult pairs a call with its outputs.
type CohereToolResult struct {
	Call    CohereToolCall   `json:"call"`
	Outputs []map[string]any `json:"outputs"`
}

// CohereTool declares a legacy tool through flat parameter definitions.
type CohereTool struct {
	Name                 string                               `json:"name"`
	Description          string                               `json:"description"`
	ParameterDefinitions map[string]CohereParameterDefinition `json:"parameterDefinitions,omitempty"`
}

// CohereParameterDefinition describes one top-level tool parameter.
type CohereParameterDefinition struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	IsRequired  bool   `json:"isRequired"`
}

// CohereV2ChatRequest is the COHEREV2 messages-array request.
type CohereV2ChatRequest struct {
	Format           string            `json:"apiFormat"`
	Messages         []CohereV2Message `json:"messages"`
	Tools            []CohereV2Tool    `json:"tools,omitempty"`
	MaxTokens        *int64            `json:"maxTokens,omitempty"`
	Temperature      *float64          `json:"temperature,omitempty"`
	TopP             *float64          `json:"topP,omitempty"`
	TopK             *int64            `json:"topK,omitempty"`
	FrequencyPenalty *float64          `json:"frequencyPenalty,omitempty"`
	PresencePenalty  *float64          `json:"presencePenalty,omitempty"`
	StopSequences    []string          `json:"stopSequences,omitempty"`
	Seed             *int64            `json:"seed,omitempty"`
	Thinking         *CohereThinking   `json:"thinking,omitempty"`
	IsStream         bool              `json:"isStream,omitempty"`
}

func (r *CohereV2ChatRequest) APIFormat() string { return "COHEREV2" }

func (r *CohereV2ChatRequest) SetStream(stream bool) { r.IsStream = stream }

// CohereV2Message is one COHEREV2 message. Only SYSTEM, USER and ASSISTANT roles are used.
type CohereV2Message struct {
	Role    string            `json:"role"`
	Content []CohereV2Content `json:"content"`
}

// CohereV2Content is a typed content part.
type CohereV2Content struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"imageUrl,omitempty"`
}

// CohereV2ContentImage is the COHEREV2 image content type.
const CohereV2ContentImage = "IMAGE_URL"

// CohereV2Tool declares a function tool.
type CohereV2Tool struct {
	Type     string           `json:"type"`
	Function CohereV2Function `json:"function"`
}

// CohereV2Function is the function body of a CohereV2Tool.
type CohereV2Function struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

// CohereThinking enables extended thinking with a token budget.
type CohereThinking struct {
	Type        string `json:"type"`
	TokenBudget int64  `json:"tokenBudget,omitempty"`
}
