package types

// BlockType discriminates canonical output content blocks.
type BlockType string

const (
	BlockText      BlockType = "text"
	BlockReasoning BlockType = "reasoning"
	BlockToolCall  BlockType = "tool-call"
)

// ContentBlock is one unit of model output. Tool-call Input is always stringified JSON.
type ContentBlock struct {
	Type       BlockType `json:"type"`
	Text       string    `json:"text,omitempty"`
	ToolCallID string    `json:"tool_call_id,omitempty"`
	ToolName   string    `json:"tool_name,omitempty"`
	Input      string    `json:"input,omitempty"`
}

// FinishReason is the canonical terminal state of a generation.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolCalls     FinishReason = "tool-calls"
	FinishContentFilter FinishReason = "content-filter"
	FinishError         FinishReason = "error"
	FinishOther         FinishReason = "other"
)

// Usage reports token counts. Missing counts are zero.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// WarningType classifies a builder warning.
type WarningType string

const (
	WarningUnsupportedSetting WarningType = "unsupported-setting"
	WarningOther              WarningType = "other"
)

// Warning reports a caller-supplied setting that was dropped or altered for the target model.
type Warning struct {
	Type    WarningType `json:"type"`
	Setting string      `json:"setting,omitempty"`
	Details string      `json:"details,omitempty"`
}

// Result is the normalized outcome of a non-streaming generation.
type Result struct {
	Content         []ContentBlock `json:"content"`
	FinishReason    FinishReason   `json:"finish_reason"`
	RawFinishReason string         `json:"raw_finish_reason,omitempty"`
	Usage           Usage          `json:"usage"`
	Warnings        []Warning      `json:"warnings,omitempty"`
}

// ToolCalls returns the tool-call blocks of r in order.
func (r *Result) ToolCalls() []ContentBlock {
	if r == nil {
		return nil
	}
	var out []ContentBlock
	for _, b := range r.Content {
		if b.Type == BlockToolCall {
			out = append(out, b)
		}
	}
	return out
}

// Text returns the concatenated text blocks of r.
func (r *Result) Text() string {
	if r == nil {
		return ""
	}
	var s string
	for _, b := range r.Content {
		if b.Type == BlockText {
			s += b.Text
		}
	}
	return s
}
