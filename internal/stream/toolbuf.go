package stream

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/n0madic/go-ocigenai/internal/normalize"
	"github.com/n0madic/go-ocigenai/internal/types"
)

// MaxToolArgBufSize is the upper bound (in bytes) for buffered tool-call
// argument fragments per call.
const MaxToolArgBufSize = 1 << 20 // 1 MB

type toolCall struct {
	id         string
	name       string
	input      strings.Builder
	ended      bool
	summarized bool
}

// ToolBuffer accumulates streamed tool-call fragments per call id.
type ToolBuffer struct {
	order   []string
	calls   map[string]*toolCall
	byIndex map[int]string
	last    string
}

// NewToolBuffer creates a new empty ToolBuffer.
func NewToolBuffer() *ToolBuffer {
	return &ToolBuffer{
		calls:   map[string]*toolCall{},
		byIndex: map[int]string{},
	}
}

// Resolve maps a fragment to its call id. Fragments without an id are matched
// by positional index, then to the most recent call that is still open; a
// fragment that matches nothing starts a new call with a synthetic id.
// ok is false when the fragment belongs to a call that has already ended.
func (tb *ToolBuffer) Resolve(id string, index int, hasIndex bool) (callID string, isNew, ok bool) {
	id = strings.TrimSpace(id)
	if id == "" && hasIndex {
		id = tb.byIndex[index]
	}
	if id == "" {
		if c := tb.calls[tb.last]; c != nil && !c.ended {
			id = c.id
		}
	}
	if id == "" {
		id = normalize.NewToolCallID()
	}
	c, exists := tb.calls[id]
	if !exists {
		c = &toolCall{id: id}
		tb.calls[id] = c
		tb.order = append(tb.order, id)
	}
	if hasIndex {
		tb.byIndex[index] = id
	}
	tb.last = id
	if c.ended {
		return id, false, false
	}
	return id, !exists, true
}

// SetName records the tool name for a call. Empty names are ignored.
func (tb *ToolBuffer) SetName(id, name string) {
	if c := tb.calls[id]; c != nil && name != "" {
		c.name = name
	}
}

// Name returns the recorded tool name of a call.
func (tb *ToolBuffer) Name(id string) string {
	if c := tb.calls[id]; c != nil {
		return c.name
	}
	return ""
}

// Append adds an argument fragment. It returns false when the fragment was
// dropped because the buffer limit would be exceeded.
func (tb *ToolBuffer) Append(id, delta string) bool {
	c := tb.calls[id]
	if c == nil || delta == "" {
		return false
	}
	if c.input.Len()+len(delta) > MaxToolArgBufSize {
		slog.Warn("toolArgBuf size limit exceeded, dropping delta", "call_id", id, "buf_len", c.input.Len(), "delta_len", len(delta))
		return false
	}
	c.input.WriteString(delta)
	return true
}

// Complete reports whether the buffered input of a call is a full JSON value.
func (tb *ToolBuffer) Complete(id string) bool {
	c := tb.calls[id]
	return c != nil && c.input.Len() > 0 && json.Valid([]byte(c.input.String()))
}

// Open returns the ids of calls whose input has not ended, in arrival order.
func (tb *ToolBuffer) Open() []string {
	var out []string
	for _, id := range tb.order {
		if !tb.calls[id].ended {
			out = append(out, id)
		}
	}
	return out
}

// End marks a call's input as ended. It reports false if it already was.
func (tb *ToolBuffer) End(id string) bool {
	c := tb.calls[id]
	if c == nil || c.ended {
		return false
	}
	c.ended = true
	return true
}

// Summarize returns the assembled call once, after its input has ended.
func (tb *ToolBuffer) Summarize(id string) (types.ContentBlock, bool) {
	c := tb.calls[id]
	if c == nil || !c.ended || c.summarized {
		return types.ContentBlock{}, false
	}
	c.summarized = true
	return types.ContentBlock{
		Type:       types.BlockToolCall,
		ToolCallID: c.id,
		ToolName:   c.name,
		Input:      normalize.ArgumentsOrEmpty(c.input.String()),
	}, true
}

// Pending returns ended calls that have not been summarized, in arrival order.
func (tb *ToolBuffer) Pending() []string {
	var out []string
	for _, id := range tb.order {
		if c := tb.calls[id]; c.ended && !c.summarized {
			out = append(out, id)
		}
	}
	return out
}

// Len returns the number of calls seen.
func (tb *ToolBuffer) Len() int {
	return len(tb.order)
}
