package postprocessors

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
)

// BuilderFunc builds a processor from its table in the pipeline config.
// cfg is nil when the config has no table for the processor.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// Registry maps processor names to builders.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: map[string]BuilderFunc{}}
}

// Register adds a builder under name. Registering a name twice replaces
// the earlier builder.
func (r *Registry) Register(name string, build BuilderFunc) {
	r.builders[name] = build
}

// Build runs the builder registered under name.
func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	build, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown processor %q (have %v)", name, r.Names())
	}
	proc, err := build(cfg)
	if err != nil {
		return nil, fmt.Errorf("build processor %q: %w", name, err)
	}
	return proc, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
