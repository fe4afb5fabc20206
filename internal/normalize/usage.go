package normalize

import (
	"github.com/tidwall/gjson"

	"github.com/n0madic/go-ocigenai/internal/types"
)

// usagePaths are the locations a usage object is found at, most specific first.
var usagePaths = []string{"chatResponse.usage", "usage", "chatResponse.meta.billedUnits", "meta.billedUnits"}

// FindUsage locates usage in a response or stream event. ok is false when no
// usage object is present.
func FindUsage(root gjson.Result) (types.Usage, bool) {
	for _, p := range usagePaths {
		if u := root.Get(p); u.IsObject() {
			return Usage(u), true
		}
	}
	return types.Usage{}, false
}

// Usage reads token counts from a usage object under any of the field
// spellings the backend families use. Missing counts are zero and a missing
// total is the sum of input and output.
func Usage(u gjson.Result) types.Usage {
	in := firstInt(u, "promptTokens", "inputTokens", "prompt_tokens", "input_tokens")
	out := firstInt(u, "completionTokens", "outputTokens", "completion_tokens", "output_tokens")
	total := firstInt(u, "totalTokens", "total_tokens")
	if total == 0 {
		total = in + out
	}
	return types.Usage{InputTokens: in, OutputTokens: out, TotalTokens: total}
}

func firstInt(v gjson.Result, keys ...string) int64 {
	for _, k := range keys {
		if f := v.Get(k); f.Exists() && f.Type == gjson.Number {
			return f.Int()
		}
	}
	return 0
}
