package reasoning

import (
	"testing"

	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n0madic/go-ocigenai/internal/models"
)

func TestResolve(t *testing.T) {
	reg := models.NewRegistry()
	google := reg.Lookup("google.gemini-2.5-pro")
	cohere := reg.Lookup("cohere.command-a-reasoning-08-2025")

	tests := []struct {
		name     string
		caps     models.Capabilities
		override string
		budget   param.Opt[int64]
		want     *Setting
	}{
		{"default effort", google, "", param.Opt[int64]{}, &Setting{Effort: shared.ReasoningEffortMedium, TokenBudget: 4096}},
		{"override high", google, "HIGH", param.Opt[int64]{}, &Setting{Effort: shared.ReasoningEffortHigh, TokenBudget: 16384}},
		{"override low with budget", cohere, "low", param.NewOpt[int64](2000), &Setting{Effort: shared.ReasoningEffortLow, TokenBudget: 2000}},
		{"minimal folds to low", cohere, "minimal", param.Opt[int64]{}, &Setting{Effort: shared.ReasoningEffortLow, TokenBudget: 1024}},
		{"invalid falls back", google, "turbo", param.Opt[int64]{}, &Setting{Effort: shared.ReasoningEffortMedium, TokenBudget: 4096}},
		{"disabled", google, "none", param.Opt[int64]{}, nil},
		{"unsupported", reg.Lookup("meta.llama-3.3-70b-instruct"), "high", param.Opt[int64]{}, nil},
		{"lite variant", reg.Lookup("google.gemini-2.5-flash-lite"), "high", param.Opt[int64]{}, nil},
		{"xai by model name", reg.Lookup("xai.grok-4-fast-reasoning"), "high", param.Opt[int64]{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.caps, tt.override, tt.budget))
		})
	}
}

func TestResolveSupportedWithoutDefault(t *testing.T) {
	caps := models.Capabilities{SupportsReasoning: true}
	s := Resolve(caps, "", param.Opt[int64]{})
	require.NotNil(t, s)
	assert.Equal(t, shared.ReasoningEffortMedium, s.Effort)
	assert.Equal(t, "MEDIUM", s.WireEffort())
}

func TestVariantEnabled(t *testing.T) {
	on, known := VariantEnabled("xai.grok-4-fast-reasoning")
	assert.True(t, on)
	assert.True(t, known)

	on, known = VariantEnabled("xai.grok-4-fast-non-reasoning")
	assert.False(t, on)
	assert.True(t, known)

	_, known = VariantEnabled("xai.grok-4")
	assert.False(t, known)
}
