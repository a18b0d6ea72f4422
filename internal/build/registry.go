package build

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/vk/devdag/internal/config"
)

// Registry holds builders by name.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// DefaultRegistry returns a registry holding every builder of this package.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, b := range All() {
		r.Register(b)
	}
	return r
}

// Register adds b under its name.
func (r *Registry) Register(b Builder) {
	if _, exists := r.builders[b.Name()]; exists {
		panic(fmt.Sprintf("graph builder with name '%s' already registered", b.Name()))
	}
	slog.Debug("Registering graph builder.", "name", b.Name())
	r.builders[b.Name()] = b
}

// Lookup returns the builder registered under name.
func (r *Registry) Lookup(name string) (Builder, bool) {
	b, ok := r.builders[name]
	return b, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.builders))
}

// Resolve looks up every name, failing with a configuration error on the
// first unknown one.
func (r *Registry) Resolve(names []string) ([]Builder, error) {
	out := make([]Builder, 0, len(names))
	for _, name := range names {
		b, ok := r.Lookup(name)
		if !ok {
			return nil, config.Errorf("", "unknown graph type %q (known: %v)", name, r.Names())
		}
		out = append(out, b)
	}
	return out, nil
}
