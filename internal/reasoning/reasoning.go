package reasoning

import (
	"strings"

	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/shared"

	"github.com/n0madic/go-ocigenai/internal/models"
)

// Disabled is the override value that turns reasoning off for one request.
const Disabled = "none"

// Thinking budgets used when the caller gives an effort but no explicit budget.
var effortBudgets = map[shared.ReasoningEffort]int64{
	shared.ReasoningEffortLow:    1024,
	shared.ReasoningEffortMedium: 4096,
	shared.ReasoningEffortHigh:   16384,
}

// Setting is the resolved reasoning request for one invocation.
type Setting struct {
	Effort      shared.ReasoningEffort
	TokenBudget int64
}

// WireEffort returns the upper-case effort used by the GENERIC format.
func (s *Setting) WireEffort() string {
	return strings.ToUpper(string(s.Effort))
}

// Resolve decides whether a reasoning parameter is sent and with which effort.
// It returns nil when the model does not take the parameter: reasoning is
// unsupported, toggled by model variant name, or disabled by override.
func Resolve(caps models.Capabilities, override string, budget param.Opt[int64]) *Setting {
	if !caps.SupportsReasoning || caps.ReasoningByModelName {
		return nil
	}

	o := strings.ToLower(strings.TrimSpace(override))
	if o == Disabled {
		return nil
	}

	effort, ok := parseEffort(o)
	if !ok {
		effort, ok = parseEffort(string(caps.DefaultReasoningEffort))
	}
	if !ok {
		effort = shared.ReasoningEffortMedium
	}

	s := &Setting{Effort: effort, TokenBudget: effortBudgets[effort]}
	if budget.Valid() && budget.Value > 0 {
		s.TokenBudget = budget.Value
	}
	return s
}

// parseEffort accepts low/medium/high and folds the outer levels other
// clients send onto the nearest supported one.
func parseEffort(s string) (shared.ReasoningEffort, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal", "low":
		return shared.ReasoningEffortLow, true
	case "medium":
		return shared.ReasoningEffortMedium, true
	case "high", "xhigh":
		return shared.ReasoningEffortHigh, true
	}
	return "", false
}

// VariantEnabled reports whether a model id names a reasoning variant. The
// second result is false when the id carries no variant suffix.
func VariantEnabled(modelID string) (enabled, known bool) {
	s := strings.ToLower(strings.TrimSpace(modelID))
	switch {
	case strings.HasSuffix(s, "-non-reasoning"):
		return false, true
	case strings.HasSuffix(s, "-reasoning"):
		return true, true
	}
	return false, false
}
