package models

import (
	"strings"

	"github.com/openai/openai-go/v3/shared"
)

// Vendor is the model family addressed by a model id prefix ("cohere.", "meta.", ...).
type Vendor string

const (
	VendorCohere  Vendor = "cohere"
	VendorMeta    Vendor = "meta"
	VendorXAI     Vendor = "xai"
	VendorGoogle  Vendor = "google"
	VendorUnknown Vendor = "unknown"
)

// APIFormat is the wire protocol family selected by chatRequest.apiFormat.
type APIFormat string

const (
	APIFormatCohere   APIFormat = "COHERE"
	APIFormatCohereV2 APIFormat = "COHEREV2"
	APIFormatGeneric  APIFormat = "GENERIC"
)

// Capabilities describes what a model accepts and how unset options default.
// Descriptors are values; callers never share or mutate a registry's copy.
type Capabilities struct {
	ModelID   string
	Vendor    Vendor
	APIFormat APIFormat

	DefaultTemperature      float64
	DefaultTopP             float64
	DefaultFrequencyPenalty float64
	DefaultPresencePenalty  float64

	SupportsTools         bool
	SupportsPenalties     bool
	SupportsStopSequences bool
	SupportsReasoning     bool
	SupportsImages        bool

	// ReasoningByModelName marks families that toggle reasoning through the model
	// variant (-reasoning / -non-reasoning). No reasoning parameter is ever sent to them.
	ReasoningByModelName bool
	// DefaultReasoningEffort is the effort sent when the caller gives none.
	// Empty means reasoning is not requested by default.
	DefaultReasoningEffort shared.ReasoningEffort

	// NativeToolMessages is false for vendors that reject TOOL-role messages and
	// tool-call content on the GENERIC format.
	NativeToolMessages bool
}

// familyDefaults returns the vendor-wide descriptor before any model-level rule.
func familyDefaults(v Vendor) Capabilities {
	switch v {
	case VendorCohere:
		return Capabilities{
			Vendor:                VendorCohere,
			APIFormat:             APIFormatCohere,
			DefaultTemperature:    0.3,
			DefaultTopP:           0.75,
			SupportsTools:         true,
			SupportsPenalties:     true,
			SupportsStopSequences: true,
			NativeToolMessages:    true,
		}
	case VendorMeta:
		return Capabilities{
			Vendor:                VendorMeta,
			APIFormat:             APIFormatGeneric,
			DefaultTemperature:    0.7,
			DefaultTopP:           0.9,
			SupportsTools:         true,
			SupportsPenalties:     true,
			SupportsStopSequences: true,
			NativeToolMessages:    true,
		}
	case VendorXAI:
		return Capabilities{
			Vendor:               VendorXAI,
			APIFormat:            APIFormatGeneric,
			DefaultTemperature:   1.0,
			DefaultTopP:          1.0,
			SupportsTools:        true,
			SupportsReasoning:    true,
			ReasoningByModelName: true,
			NativeToolMessages:   true,
		}
	case VendorGoogle:
		return Capabilities{
			Vendor:                 VendorGoogle,
			APIFormat:              APIFormatGeneric,
			DefaultTemperature:     1.0,
			DefaultTopP:            0.95,
			SupportsTools:          true,
			SupportsStopSequences:  true,
			SupportsReasoning:      true,
			SupportsImages:         true,
			DefaultReasoningEffort: shared.ReasoningEffortMedium,
		}
	default:
		return Capabilities{
			Vendor:             VendorUnknown,
			APIFormat:          APIFormatGeneric,
			DefaultTemperature: 0.7,
			DefaultTopP:        1.0,
			SupportsTools:      true,
			NativeToolMessages: true,
		}
	}
}

// applyFamilyRules applies vendor-wide rules keyed on model-name substrings.
func applyFamilyRules(c *Capabilities, id string) {
	name := strings.TrimPrefix(id, string(c.Vendor)+".")
	switch c.Vendor {
	case VendorCohere:
		if strings.HasPrefix(name, "command-a") {
			c.APIFormat = APIFormatCohereV2
		}
		if strings.Contains(name, "reasoning") {
			c.SupportsReasoning = true
			c.DefaultReasoningEffort = shared.ReasoningEffortMedium
		}
		if strings.Contains(name, "vision") {
			c.SupportsImages = true
		}
	case VendorMeta:
		if strings.Contains(name, "vision") || strings.HasPrefix(name, "llama-4") {
			c.SupportsImages = true
		}
	case VendorXAI:
		if strings.HasPrefix(name, "grok-4") {
			c.SupportsImages = true
		}
	}
}

// builtinOverrides are model-specific corrections that win over family rules.
var builtinOverrides = map[string]Override{
	"google.gemini-2.5-flash-lite": {
		SupportsReasoning:      boolPtr(false),
		DefaultReasoningEffort: stringPtr(""),
	},
	"cohere.command-a-vision-07-2025": {
		SupportsTools: boolPtr(false),
	},
}

// vendorOf derives the vendor from a normalized model id.
func vendorOf(id string) Vendor {
	prefix, _, ok := strings.Cut(id, ".")
	if !ok {
		return VendorUnknown
	}
	switch Vendor(prefix) {
	case VendorCohere, VendorMeta, VendorXAI, VendorGoogle:
		return Vendor(prefix)
	}
	return VendorUnknown
}

func boolPtr(b bool) *bool { return &b }

func stringPtr(s string) *string { return &s }
