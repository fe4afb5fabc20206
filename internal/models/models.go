package models

import (
	"sort"
	"strings"
)

// knownModels is the static catalog of on-demand chat models.
var knownModels = []string{
	"cohere.command-r-08-2024",
	"cohere.command-r-plus-08-2024",
	"cohere.command-a-03-2025",
	"cohere.command-a-reasoning-08-2025",
	"cohere.command-a-vision-07-2025",
	"meta.llama-3.1-405b-instruct",
	"meta.llama-3.2-90b-vision-instruct",
	"meta.llama-3.3-70b-instruct",
	"meta.llama-4-maverick-17b-128e-instruct-fp8",
	"meta.llama-4-scout-17b-16e-instruct",
	"xai.grok-3",
	"xai.grok-3-mini",
	"xai.grok-4",
	"xai.grok-4-fast-reasoning",
	"xai.grok-4-fast-non-reasoning",
	"xai.grok-code-fast-1",
	"google.gemini-2.5-pro",
	"google.gemini-2.5-flash",
	"google.gemini-2.5-flash-lite",
}

// modelMapping resolves bare or shorthand names to catalog ids.
var modelMapping = map[string]string{
	"command-r":         "cohere.command-r-08-2024",
	"command-r-plus":    "cohere.command-r-plus-08-2024",
	"command-a":         "cohere.command-a-03-2025",
	"command-a-reason":  "cohere.command-a-reasoning-08-2025",
	"command-a-vision":  "cohere.command-a-vision-07-2025",
	"llama-3.3":         "meta.llama-3.3-70b-instruct",
	"llama-4-maverick":  "meta.llama-4-maverick-17b-128e-instruct-fp8",
	"llama-4-scout":     "meta.llama-4-scout-17b-16e-instruct",
	"grok-3":            "xai.grok-3",
	"grok-3-mini":       "xai.grok-3-mini",
	"grok-4":            "xai.grok-4",
	"grok-code":         "xai.grok-code-fast-1",
	"gemini-pro":        "google.gemini-2.5-pro",
	"gemini-flash":      "google.gemini-2.5-flash",
	"gemini-flash-lite": "google.gemini-2.5-flash-lite",
}

// NormalizeModelID trims the id, lower-cases a known vendor prefix and maps
// shorthand aliases to catalog ids. Unknown ids are returned as given.
func NormalizeModelID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if mapped, ok := modelMapping[strings.ToLower(id)]; ok {
		return mapped
	}
	if prefix, rest, ok := strings.Cut(id, "."); ok {
		lp := strings.ToLower(prefix)
		if vendorOf(lp+".") != VendorUnknown {
			return lp + "." + rest
		}
	}
	return id
}

// Catalog returns the descriptors of every catalog model, sorted by id.
func (r *Registry) Catalog() []Capabilities {
	ids := append([]string(nil), knownModels...)
	r.mu.RLock()
	for id := range r.overrides {
		if !containsString(ids, id) {
			ids = append(ids, id)
		}
	}
	r.mu.RUnlock()
	sort.Strings(ids)

	out := make([]Capabilities, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.Lookup(id))
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
