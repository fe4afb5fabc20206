// Package normalize turns backend chat responses into canonical results.
package normalize

import "github.com/n0madic/go-ocigenai/internal/types"

var finishReasons = map[string]types.FinishReason{
	"MAX_TOKENS":     types.FinishLength,
	"length":         types.FinishLength,
	"COMPLETE":       types.FinishStop,
	"stop":           types.FinishStop,
	"STOP":           types.FinishStop,
	"TOOL_CALL":      types.FinishToolCalls,
	"tool_calls":     types.FinishToolCalls,
	"TOOL_USE":       types.FinishToolCalls,
	"CONTENT_FILTER": types.FinishContentFilter,
	"content_filter": types.FinishContentFilter,
	"ERROR_TOXIC":    types.FinishContentFilter,
	"ERROR":          types.FinishError,
	"ERROR_LIMIT":    types.FinishError,
	"USER_CANCEL":    types.FinishOther,
}

// FinishReason maps a vendor finish code to its canonical value. Unknown and
// empty codes map to stop.
func FinishReason(raw string) types.FinishReason {
	if r, ok := finishReasons[raw]; ok {
		return r
	}
	return types.FinishStop
}

// Finish applies the tool-call override: any tool call means tool-calls.
func Finish(raw string, sawToolCall bool) types.FinishReason {
	if sawToolCall {
		return types.FinishToolCalls
	}
	return FinishReason(raw)
}
