package types

// EventType discriminates canonical stream events.
type EventType string

const (
	EventStreamStart    EventType = "stream-start"
	EventTextStart      EventType = "text-start"
	EventTextDelta      EventType = "text-delta"
	EventTextEnd        EventType = "text-end"
	EventReasoningStart EventType = "reasoning-start"
	EventReasoningDelta EventType = "reasoning-delta"
	EventReasoningEnd   EventType = "reasoning-end"
	EventToolInputStart EventType = "tool-input-start"
	EventToolInputDelta EventType = "tool-input-delta"
	EventToolInputEnd   EventType = "tool-input-end"
	EventToolCall       EventType = "tool-call"
	EventFinish         EventType = "finish"
	EventError          EventType = "error"
)

// StreamEvent is one canonical streaming event.
//
// Every *-start is matched by exactly one *-end with the same ID before the stream closes,
// unless an error event terminates the stream first. Deltas reference the ID of their start.
type StreamEvent struct {
	Type EventType `json:"type"`
	ID   string    `json:"id,omitempty"`

	Delta    string `json:"delta,omitempty"`
	ToolName string `json:"tool_name,omitempty"`

	// ToolCall is the assembled call, set on tool-call events.
	ToolCall *ContentBlock `json:"tool_call,omitempty"`

	// Set on finish events.
	FinishReason    FinishReason `json:"finish_reason,omitempty"`
	RawFinishReason string       `json:"raw_finish_reason,omitempty"`
	Usage           *Usage       `json:"usage,omitempty"`

	// Set on stream-start events.
	Warnings []Warning `json:"warnings,omitempty"`

	// Set on error events.
	Error *Error `json:"error,omitempty"`
}

// IsStart reports whether e opens a span.
func (e StreamEvent) IsStart() bool {
	switch e.Type {
	case EventTextStart, EventReasoningStart, EventToolInputStart:
		return true
	}
	return false
}

// IsEnd reports whether e closes a span.
func (e StreamEvent) IsEnd() bool {
	switch e.Type {
	case EventTextEnd, EventReasoningEnd, EventToolInputEnd:
		return true
	}
	return false
}
