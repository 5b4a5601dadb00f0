package providers

import (
	"fmt"
	"sort"
)

// Registry manages a collection of providers for lookup by name.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Get returns a provider by name and whether it was found.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// MustGet returns a provider by name or panics if not found.
func (r *Registry) MustGet(name string) Provider {
	p, ok := r.providers[name]
	if !ok {
		panic(fmt.Sprintf("provider not found: %s", name))
	}
	return p
}

// List returns the names of all registered providers, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// KeyStatus reports, per provider, whether its API key is configured.
func (r *Registry) KeyStatus() map[string]bool {
	out := make(map[string]bool, len(r.providers))
	for name, p := range r.providers {
		out[name] = p.Configured()
	}
	return out
}
