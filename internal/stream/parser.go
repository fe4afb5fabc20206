package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tidwall/gjson"

	"github.com/n0madic/go-ocigenai/internal/models"
	"github.com/n0madic/go-ocigenai/internal/normalize"
	"github.com/n0madic/go-ocigenai/internal/types"
)

// SimulatedChunkRunes is the delta size used when replaying a complete
// response as a stream.
const SimulatedChunkRunes = 32

// Parser turns backend stream events into canonical stream events. A Parser
// holds the open-span state of one invocation and must not be reused.
//
// A closed span is never reopened. When text and reasoning interleave, each
// switch ends the current span and the next delta of the other kind starts a
// new span with a fresh id, so deltas keep their arrival order.
type Parser struct {
	caps models.Capabilities
	emit func(types.StreamEvent)

	seq         int
	textID      string
	reasoningID string
	textSeen    bool
	tools       *ToolBuffer
	rawFinish   string
	usage       types.Usage
}

// NewParser creates a parser that forwards events to emit synchronously.
func NewParser(caps models.Capabilities, emit func(types.StreamEvent)) *Parser {
	return &Parser{caps: caps, emit: emit, tools: NewToolBuffer()}
}

// Run consumes body until it ends and emits the canonical events, finishing
// with exactly one finish or error event. Run does not close body.
func (p *Parser) Run(ctx context.Context, body io.Reader) {
	r := NewReader(body)
	for {
		if err := ctx.Err(); err != nil {
			p.fail(ctx, err)
			return
		}
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			if ctx.Err() != nil {
				p.fail(ctx, ctx.Err())
				return
			}
			p.finish()
			return
		}
		if err != nil {
			p.fail(ctx, err)
			return
		}
		p.handle(ev)
	}
}

// Simulate replays a complete result as a stream: text and reasoning are cut
// into SimulatedChunkRunes deltas and every tool call is sent as one delta.
func (p *Parser) Simulate(res *types.Result) {
	for _, b := range res.Content {
		switch b.Type {
		case types.BlockReasoning:
			for _, c := range chunkRunes(b.Text, SimulatedChunkRunes) {
				p.reasoningDelta(c)
			}
		case types.BlockText:
			for _, c := range chunkRunes(b.Text, SimulatedChunkRunes) {
				p.textDelta(c)
			}
		case types.BlockToolCall:
			id, isNew, ok := p.tools.Resolve(b.ToolCallID, 0, false)
			if !ok || !isNew {
				continue
			}
			p.closeSpans()
			p.tools.SetName(id, b.ToolName)
			p.emit(types.StreamEvent{Type: types.EventToolInputStart, ID: id, ToolName: b.ToolName})
			if p.tools.Append(id, b.Input) {
				p.emit(types.StreamEvent{Type: types.EventToolInputDelta, ID: id, Delta: b.Input})
			}
			p.endTool(id)
		}
	}
	p.closeSpans()
	usage := res.Usage
	p.emit(types.StreamEvent{
		Type:            types.EventFinish,
		FinishReason:    res.FinishReason,
		RawFinishReason: res.RawFinishReason,
		Usage:           &usage,
	})
}

func (p *Parser) handle(ev *Event) {
	if !gjson.ValidBytes(ev.Data) {
		slog.Warn("stream fragment skipped", "model", p.caps.ModelID, "event", ev.Name, "reason", "invalid json", "bytes", len(ev.Data))
		return
	}
	root := gjson.ParseBytes(ev.Data)
	if !root.IsObject() {
		slog.Warn("stream fragment skipped", "model", p.caps.ModelID, "event", ev.Name, "reason", "not an object")
		return
	}

	msg, raw, _ := normalize.Locate(root)
	frag := normalize.DecodeMessage(msg, p.caps)
	if u, ok := normalize.FindUsage(root); ok {
		p.usage = u
	}

	// The legacy format repeats the whole answer on its final event and sends
	// tool calls only there, complete.
	legacy := p.caps.APIFormat == models.APIFormatCohere
	final := raw != ""

	if frag.Reasoning != "" {
		p.reasoningDelta(frag.Reasoning)
	}
	if frag.Text != "" && !(legacy && final && p.textSeen) {
		p.textDelta(frag.Text)
	}
	for _, tc := range frag.ToolCalls {
		p.toolFragment(tc, legacy)
	}
	if final {
		p.rawFinish = raw
	}
}

func (p *Parser) textDelta(delta string) {
	p.closeReasoning()
	if p.textID == "" {
		p.seq++
		p.textID = fmt.Sprintf("text-%d", p.seq)
		p.emit(types.StreamEvent{Type: types.EventTextStart, ID: p.textID})
	}
	p.textSeen = true
	p.emit(types.StreamEvent{Type: types.EventTextDelta, ID: p.textID, Delta: delta})
}

func (p *Parser) reasoningDelta(delta string) {
	p.closeText()
	if p.reasoningID == "" {
		p.seq++
		p.reasoningID = fmt.Sprintf("reasoning-%d", p.seq)
		p.emit(types.StreamEvent{Type: types.EventReasoningStart, ID: p.reasoningID})
	}
	p.emit(types.StreamEvent{Type: types.EventReasoningDelta, ID: p.reasoningID, Delta: delta})
}

func (p *Parser) closeText() {
	if p.textID != "" {
		p.emit(types.StreamEvent{Type: types.EventTextEnd, ID: p.textID})
		p.textID = ""
	}
}

func (p *Parser) closeReasoning() {
	if p.reasoningID != "" {
		p.emit(types.StreamEvent{Type: types.EventReasoningEnd, ID: p.reasoningID})
		p.reasoningID = ""
	}
}

func (p *Parser) closeSpans() {
	p.closeReasoning()
	p.closeText()
}

func (p *Parser) toolFragment(tc normalize.ToolCall, atomic bool) {
	id, isNew, ok := p.tools.Resolve(tc.ID, tc.Index, tc.HasIndex)
	if !ok {
		return
	}
	if isNew {
		p.closeSpans()
		p.settleOthers(id)
		p.tools.SetName(id, tc.Name)
		p.emit(types.StreamEvent{Type: types.EventToolInputStart, ID: id, ToolName: tc.Name})
	} else {
		p.tools.SetName(id, tc.Name)
	}
	if p.tools.Append(id, tc.Arguments) {
		p.emit(types.StreamEvent{Type: types.EventToolInputDelta, ID: id, Delta: tc.Arguments})
	}
	if atomic {
		p.endTool(id)
	}
}

// settleOthers ends earlier open calls whose input already parses, since a
// new call id means their arguments are complete.
func (p *Parser) settleOthers(current string) {
	for _, id := range p.tools.Open() {
		if id != current && p.tools.Complete(id) {
			p.endTool(id)
		}
	}
}

func (p *Parser) endTool(id string) {
	if !p.tools.End(id) {
		return
	}
	p.emit(types.StreamEvent{Type: types.EventToolInputEnd, ID: id})
	if call, ok := p.tools.Summarize(id); ok {
		p.emit(types.StreamEvent{Type: types.EventToolCall, ID: id, ToolName: call.ToolName, ToolCall: &call})
	}
}

// finish closes every open span, then summarizes pending calls, then emits
// the single finish event.
func (p *Parser) finish() {
	p.closeSpans()
	for _, id := range p.tools.Open() {
		if p.tools.End(id) {
			p.emit(types.StreamEvent{Type: types.EventToolInputEnd, ID: id})
		}
	}
	for _, id := range p.tools.Pending() {
		if call, ok := p.tools.Summarize(id); ok {
			p.emit(types.StreamEvent{Type: types.EventToolCall, ID: id, ToolName: call.ToolName, ToolCall: &call})
		}
	}
	usage := p.usage
	p.emit(types.StreamEvent{
		Type:            types.EventFinish,
		FinishReason:    normalize.Finish(p.rawFinish, p.tools.Len() > 0),
		RawFinishReason: p.rawFinish,
		Usage:           &usage,
	})
}

// fail emits the terminal error event. Open spans are left open.
func (p *Parser) fail(ctx context.Context, err error) {
	kind := types.ErrorKindTransport
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		kind = types.ErrorKindCancelled
	}
	slog.Debug("stream aborted", "model", p.caps.ModelID, "kind", kind, "error", err)
	p.emit(types.StreamEvent{
		Type:  types.EventError,
		Error: &types.Error{Kind: kind, Message: err.Error(), Err: err},
	})
}

// chunkRunes splits s into pieces of at most n runes.
func chunkRunes(s string, n int) []string {
	if s == "" {
		return nil
	}
	runes := []rune(s)
	out := make([]string, 0, (len(runes)+n-1)/n)
	for start := 0; start < len(runes); start += n {
		end := start + n
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}
