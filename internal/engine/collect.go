package engine

import (
	"context"
	"io"
	"strings"

	"github.com/n0madic/go-ocigenai/internal/models"
	"github.com/n0madic/go-ocigenai/internal/stream"
	"github.com/n0madic/go-ocigenai/internal/types"
)

// collect assembles a result from an event stream, for backends that stream
// even when asked not to.
func collect(ctx context.Context, caps models.Capabilities, body io.Reader) (*types.Result, error) {
	var text, thinking strings.Builder
	var calls []types.ContentBlock
	res := &types.Result{}
	var failure *types.Error

	stream.NewParser(caps, func(ev types.StreamEvent) {
		switch ev.Type {
		case types.EventTextDelta:
			text.WriteString(ev.Delta)
		case types.EventReasoningDelta:
			thinking.WriteString(ev.Delta)
		case types.EventToolCall:
			if ev.ToolCall != nil {
				calls = append(calls, *ev.ToolCall)
			}
		case types.EventFinish:
			res.FinishReason = ev.FinishReason
			res.RawFinishReason = ev.RawFinishReason
			if ev.Usage != nil {
				res.Usage = *ev.Usage
			}
		case types.EventError:
			failure = ev.Error
		}
	}).Run(ctx, body)

	if failure != nil {
		return nil, failure
	}
	if thinking.Len() > 0 {
		res.Content = append(res.Content, types.ContentBlock{Type: types.BlockReasoning, Text: thinking.String()})
	}
	if text.Len() > 0 {
		res.Content = append(res.Content, types.ContentBlock{Type: types.BlockText, Text: text.String()})
	}
	res.Content = append(res.Content, calls...)
	return res, nil
}
