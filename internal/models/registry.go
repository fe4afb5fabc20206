package models

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Registry resolves model ids to capability descriptors. The zero value is not
// usable; call NewRegistry.
type Registry struct {
	mu        sync.RWMutex
	overrides map[string]Override
}

// NewRegistry creates a registry holding only the built-in rules.
func NewRegistry() *Registry {
	return &Registry{overrides: map[string]Override{}}
}

// Lookup returns the descriptor for modelID. It never fails: ids with an
// unrecognized vendor prefix resolve to the default descriptor.
//
// Resolution order, most specific wins: family defaults, family-wide name
// rules, built-in model overrides, then operator overrides.
func (r *Registry) Lookup(modelID string) Capabilities {
	id := NormalizeModelID(modelID)
	caps := familyDefaults(vendorOf(id))
	caps.ModelID = id
	applyFamilyRules(&caps, id)
	if o, ok := builtinOverrides[id]; ok {
		o.apply(&caps)
	}

	r.mu.RLock()
	o, ok := r.overrides[id]
	r.mu.RUnlock()
	if ok {
		o.apply(&caps)
	}
	return caps
}

// LoadOverrides merges operator overrides from a YAML document. Later loads
// replace earlier entries for the same model.
func (r *Registry) LoadOverrides(rd io.Reader) error {
	parsed, err := parseOverrides(rd)
	if err != nil {
		return err
	}
	r.mu.Lock()
	for id, o := range parsed {
		r.overrides[id] = o
	}
	r.mu.Unlock()
	slog.Debug("capability overrides loaded", "models", len(parsed))
	return nil
}

// LoadOverridesFile is LoadOverrides for a file path. An empty path is a no-op.
func (r *Registry) LoadOverridesFile(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open capabilities file: %w", err)
	}
	defer f.Close()
	return r.LoadOverrides(f)
}
