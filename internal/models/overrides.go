package models

import (
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go/v3/shared"
	"gopkg.in/yaml.v3"
)

// Override replaces individual descriptor fields. Nil fields are left untouched.
type Override struct {
	APIFormat               *string  `yaml:"api_format"`
	DefaultTemperature      *float64 `yaml:"default_temperature"`
	DefaultTopP             *float64 `yaml:"default_top_p"`
	DefaultFrequencyPenalty *float64 `yaml:"default_frequency_penalty"`
	DefaultPresencePenalty  *float64 `yaml:"default_presence_penalty"`
	SupportsTools           *bool    `yaml:"supports_tools"`
	SupportsPenalties       *bool    `yaml:"supports_penalties"`
	SupportsStopSequences   *bool    `yaml:"supports_stop_sequences"`
	SupportsReasoning       *bool    `yaml:"supports_reasoning"`
	SupportsImages          *bool    `yaml:"supports_images"`
	ReasoningByModelName    *bool    `yaml:"reasoning_by_model_name"`
	DefaultReasoningEffort  *string  `yaml:"default_reasoning_effort"`
	NativeToolMessages      *bool    `yaml:"native_tool_messages"`
}

type overridesFile struct {
	Models map[string]Override `yaml:"models"`
}

func (o Override) apply(c *Capabilities) {
	if o.APIFormat != nil {
		c.APIFormat = APIFormat(strings.ToUpper(strings.TrimSpace(*o.APIFormat)))
	}
	if o.DefaultTemperature != nil {
		c.DefaultTemperature = *o.DefaultTemperature
	}
	if o.DefaultTopP != nil {
		c.DefaultTopP = *o.DefaultTopP
	}
	if o.DefaultFrequencyPenalty != nil {
		c.DefaultFrequencyPenalty = *o.DefaultFrequencyPenalty
	}
	if o.DefaultPresencePenalty != nil {
		c.DefaultPresencePenalty = *o.DefaultPresencePenalty
	}
	if o.SupportsTools != nil {
		c.SupportsTools = *o.SupportsTools
	}
	if o.SupportsPenalties != nil {
		c.SupportsPenalties = *o.SupportsPenalties
	}
	if o.SupportsStopSequences != nil {
		c.SupportsStopSequences = *o.SupportsStopSequences
	}
	if o.SupportsReasoning != nil {
		c.SupportsReasoning = *o.SupportsReasoning
	}
	if o.SupportsImages != nil {
		c.SupportsImages = *o.SupportsImages
	}
	if o.ReasoningByModelName != nil {
		c.ReasoningByModelName = *o.ReasoningByModelName
	}
	if o.DefaultReasoningEffort != nil {
		c.DefaultReasoningEffort = shared.ReasoningEffort(strings.ToLower(strings.TrimSpace(*o.DefaultReasoningEffort)))
	}
	if o.NativeToolMessages != nil {
		c.NativeToolMessages = *o.NativeToolMessages
	}
}

func (o Override) validate() error {
	if o.APIFormat == nil {
		return nil
	}
	switch APIFormat(strings.ToUpper(strings.TrimSpace(*o.APIFormat))) {
	case APIFormatCohere, APIFormatCohereV2, APIFormatGeneric:
		return nil
	}
	return fmt.Errorf("unknown api_format %q", *o.APIFormat)
}

// parseOverrides decodes a YAML document of the form:
//
//	models:
//	  xai.grok-4:
//	    default_temperature: 0.8
func parseOverrides(r io.Reader) (map[string]Override, error) {
	var f overridesFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return map[string]Override{}, nil
		}
		return nil, fmt.Errorf("failed to parse capability overrides: %w", err)
	}
	out := make(map[string]Override, len(f.Models))
	for id, o := range f.Models {
		if err := o.validate(); err != nil {
			return nil, fmt.Errorf("model %s: %w", id, err)
		}
		out[NormalizeModelID(id)] = o
	}
	return out, nil
}
