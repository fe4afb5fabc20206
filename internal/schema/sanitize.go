// Package schema prepares tool input schemas for the backend's strictest validators.
package schema

import (
	"encoding/json"
	"fmt"
)

// unsupportedKeywords are dropped wherever they appear as schema keywords.
var unsupportedKeywords = map[string]bool{
	"$schema":              true,
	"$ref":                 true,
	"ref":                  true,
	"$defs":                true,
	"definitions":          true,
	"$id":                  true,
	"$comment":             true,
	"additionalProperties": true,
	"propertyNames":        true,
	"title":                true,
	"examples":             true,
	"default":              true,
	"const":                true,
	"minLength":            true,
	"maxLength":            true,
	"minItems":             true,
	"maxItems":             true,
	"exclusiveMinimum":     true,
	"exclusiveMaximum":     true,
}

// stringConstraints are dropped only as string-valued siblings of type "string".
var stringConstraints = map[string]bool{
	"pattern": true,
	"format":  true,
}

// Sanitize returns a copy of node with unsupported keywords removed. Values that
// are not objects or arrays are returned unchanged. The input is never mutated
// and Sanitize(Sanitize(x)) equals Sanitize(x).
//
// Keys of a "properties" map are property names, not keywords, so a property
// called "pattern" or "title" survives while its own schema is still sanitized.
func Sanitize(node any) any {
	switch v := node.(type) {
	case map[string]any:
		return sanitizeObject(v)
	case []any:
		out := make([]any, len(v))
		for i, el := range v {
			if obj, ok := el.(map[string]any); ok {
				out[i] = sanitizeObject(obj)
			} else {
				out[i] = el
			}
		}
		return out
	default:
		return node
	}
}

func sanitizeObject(obj map[string]any) map[string]any {
	isString := obj["type"] == "string"
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		if unsupportedKeywords[k] {
			continue
		}
		if stringConstraints[k] && isString {
			if _, ok := v.(string); ok {
				continue
			}
		}
		if k == "properties" {
			if props, ok := v.(map[string]any); ok {
				out[k] = sanitizeProperties(props)
				continue
			}
		}
		out[k] = Sanitize(v)
	}
	return out
}

// sanitizeProperties keeps every property name, including names that match a
// stripped keyword such as "title" or "default"; only the property schemas are
// sanitized.
func sanitizeProperties(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for name, def := range props {
		out[name] = Sanitize(def)
	}
	return out
}

// Normalize converts any JSON-marshalable schema (structs, json.RawMessage,
// typed maps) into the generic map[string]any form Sanitize walks. A nil
// schema yields nil.
func Normalize(schema any) (any, error) {
	switch v := schema.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return out, nil
}

// Prepare normalizes and sanitizes a tool input schema in one step.
func Prepare(schema any) (any, error) {
	n, err := Normalize(schema)
	if err != nil {
		return nil, err
	}
	return Sanitize(n), nil
}
