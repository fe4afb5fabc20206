package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Checker compiles sanitized schemas and caches the outcome per schema text.
type Checker struct {
	cache sync.Map // map[string]error
}

// NewChecker creates an empty checker.
func NewChecker() *Checker {
	return &Checker{}
}

var defaultChecker = NewChecker()

// Check reports whether schema compiles as a JSON Schema using a shared cache.
func Check(schema any) error {
	return defaultChecker.Check(schema)
}

// Check reports whether schema compiles as a JSON Schema.
func (c *Checker) Check(schema any) error {
	if schema == nil {
		return nil
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("invalid schema definition: %w", err)
	}
	key := string(raw)
	if v, ok := c.cache.Load(key); ok {
		if v == nil {
			return nil
		}
		return v.(error)
	}

	_, err = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		err = fmt.Errorf("schema does not compile: %w", err)
		c.cache.Store(key, err)
		return err
	}
	c.cache.Store(key, nil)
	return nil
}
