package render

import (
	"fmt"
	"sort"
	"sync"
)

// Registry stores templates by name. Templates are validated on the way in.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{templates: make(map[string]Template)}
}

// DefaultRegistry returns a registry holding the persona, about and home
// templates.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, t := range []Template{PersonasNarrow, PersonasFull, PersonaCard, AcercaDe, Home} {
		r.MustRegister(t)
	}
	return r
}

// Register adds tpl under tpl.Name. Duplicate names and invalid templates
// are rejected.
func (r *Registry) Register(tpl Template) error {
	if tpl.Name == "" {
		return fmt.Errorf("render: template name is required")
	}
	if err := tpl.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.templates[tpl.Name]; exists {
		return fmt.Errorf("render: template %q already registered", tpl.Name)
	}
	r.templates[tpl.Name] = tpl
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(tpl Template) {
	if err := r.Register(tpl); err != nil {
		panic(err)
	}
}

// Get retrieves a template by name.
func (r *Registry) Get(name string) (Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tpl, ok := r.templates[name]
	if !ok {
		return Template{}, fmt.Errorf("render: template %q not found", name)
	}
	return tpl, nil
}

// MustGet panics if the template is missing.
func (r *Registry) MustGet(name string) Template {
	tpl, err := r.Get(name)
	if err != nil {
		panic(err)
	}
	return tpl
}

// List returns the registered names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.templates[name]
	return ok
}
