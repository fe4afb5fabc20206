// Package transform builds backend chat requests from canonical prompts.
package transform

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/n0madic/go-ocigenai/internal/models"
	"github.com/n0madic/go-ocigenai/internal/reasoning"
	"github.com/n0madic/go-ocigenai/internal/schema"
	"github.com/n0madic/go-ocigenai/internal/types"
)

// ErrEmptyPrompt is returned when a prompt carries no messages.
var ErrEmptyPrompt = errors.New("prompt has no messages")

// Builder converts a canonical prompt into one family-specific chat request.
type Builder interface {
	Build(prompt types.Prompt, tools []types.ToolDeclaration, opts types.GenerationOptions, caps models.Capabilities) (types.ChatRequest, []types.Warning, error)
}

// For returns the builder for an API format. Unknown formats use GENERIC.
func For(format models.APIFormat) Builder {
	switch format {
	case models.APIFormatCohere:
		return cohereBuilder{}
	case models.APIFormatCohereV2:
		return cohereV2Builder{}
	default:
		return genericBuilder{}
	}
}

// sampling is the option set shared by all three request shapes.
type sampling struct {
	MaxTokens        *int64
	Temperature      *float64
	TopP             *float64
	TopK             *int64
	FrequencyPenalty *float64
	PresencePenalty  *float64
	Stop             []string
	Seed             *int64
}

// applySampling fills unset options from the descriptor and omits the ones
// the model rejects.
func applySampling(opts types.GenerationOptions, caps models.Capabilities) (sampling, []types.Warning) {
	var s sampling
	var warnings []types.Warning

	if opts.MaxTokens.Valid() {
		s.MaxTokens = types.Int64Ptr(opts.MaxTokens.Value)
	}
	if opts.TopK.Valid() {
		s.TopK = types.Int64Ptr(opts.TopK.Value)
	}
	if opts.Seed.Valid() {
		s.Seed = types.Int64Ptr(opts.Seed.Value)
	}
	s.Temperature = types.Float64Ptr(opts.Temperature.Or(caps.DefaultTemperature))
	s.TopP = types.Float64Ptr(opts.TopP.Or(caps.DefaultTopP))

	if caps.SupportsPenalties {
		s.FrequencyPenalty = types.Float64Ptr(opts.FrequencyPenalty.Or(caps.DefaultFrequencyPenalty))
		s.PresencePenalty = types.Float64Ptr(opts.PresencePenalty.Or(caps.DefaultPresencePenalty))
	} else {
		if opts.FrequencyPenalty.Valid() {
			warnings = append(warnings, unsupported("frequencyPenalty", caps))
		}
		if opts.PresencePenalty.Valid() {
			warnings = append(warnings, unsupported("presencePenalty", caps))
		}
	}

	if len(opts.StopSequences) > 0 {
		if caps.SupportsStopSequences {
			s.Stop = append([]string(nil), opts.StopSequences...)
		} else {
			warnings = append(warnings, unsupported("stopSequences", caps))
		}
	}
	return s, warnings
}

// resolveReasoning wraps reasoning.Resolve and reports an ignored override.
func resolveReasoning(opts types.GenerationOptions, caps models.Capabilities) (*reasoning.Setting, []types.Warning) {
	s := reasoning.Resolve(caps, opts.ReasoningEffort, opts.ThinkingBudget)
	if s != nil || opts.ReasoningEffort == "" || opts.ReasoningEffort == reasoning.Disabled {
		return s, nil
	}
	if caps.ReasoningByModelName {
		details := fmt.Sprintf("%s selects reasoning by model variant (-reasoning / -non-reasoning)", caps.ModelID)
		if on, known := reasoning.VariantEnabled(caps.ModelID); known {
			state := "off"
			if on {
				state = "on"
			}
			details = fmt.Sprintf("%s has reasoning fixed %s by its model variant", caps.ModelID, state)
		}
		return nil, []types.Warning{{
			Type:    types.WarningUnsupportedSetting,
			Setting: "reasoningEffort",
			Details: details,
		}}
	}
	return nil, []types.Warning{unsupported("reasoningEffort", caps)}
}

func unsupported(setting string, caps models.Capabilities) types.Warning {
	return types.Warning{
		Type:    types.WarningUnsupportedSetting,
		Setting: setting,
		Details: fmt.Sprintf("%s is not supported by %s and was omitted", setting, caps.ModelID),
	}
}

// preparedTool is a declaration whose schema has been sanitized.
type preparedTool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// prepareTools sanitizes tool schemas. It returns nothing, with a warning,
// when the model does not take tools.
func prepareTools(tools []types.ToolDeclaration, caps models.Capabilities) ([]preparedTool, []types.Warning) {
	if len(tools) == 0 {
		return nil, nil
	}
	if !caps.SupportsTools {
		return nil, []types.Warning{unsupported("tools", caps)}
	}
	out := make([]preparedTool, 0, len(tools))
	for _, t := range tools {
		if t.Name == "" {
			continue
		}
		params, err := schema.Prepare(t.InputSchema)
		if err != nil {
			slog.Warn("tool schema dropped", "tool", t.Name, "error", err)
			params = nil
		}
		obj, ok := params.(map[string]any)
		if !ok {
			obj = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		if err := schema.Check(obj); err != nil {
			slog.Warn("sanitized tool schema does not compile", "tool", t.Name, "error", err)
		}
		out = append(out, preparedTool{Name: t.Name, Description: t.Description, Parameters: obj})
	}
	return out, nil
}
