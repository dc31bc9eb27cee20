package metadata

import (
	"sort"
	"sync"
)

// OptionSource names one option list of an option group and the entity it
// is drawn from.
type OptionSource struct {
	Key    string `json:"key" yaml:"key"`
	Entity string `json:"entity" yaml:"entity"`
}

type Registry struct {
	mu       sync.RWMutex
	entities map[string]*Entity
	options  map[string][]OptionSource
}

func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[string]*Entity),
		options:  make(map[string][]OptionSource),
	}
}

// Default returns a registry loaded with the HR catalog.
func Default() *Registry {
	r := NewRegistry()
	r.Load(Catalog(), CatalogOptions())
	return r
}

// Resolve returns the entity with the given logical name. Unknown names
// resolve to (nil, false); there is no fallback to the raw name.
func (r *Registry) Resolve(name string) (*Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[name]
	return e, ok
}

// AllEntities returns all registered entities ordered by name.
func (r *Registry) AllEntities() []*Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entities := make([]*Entity, 0, len(r.entities))
	for _, e := range r.entities {
		entities = append(entities, e)
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i].Name < entities[j].Name })
	return entities
}

// OptionGroup returns the option sources of a group, or nil.
func (r *Registry) OptionGroup(name string) []OptionSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.options[name]
}

// Load replaces all entities and option groups in the registry.
func (r *Registry) Load(entities []*Entity, options map[string][]OptionSource) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entities = make(map[string]*Entity, len(entities))
	for _, e := range entities {
		r.entities[e.Name] = e
	}
	r.options = make(map[string][]OptionSource, len(options))
	for k, v := range options {
		r.options[k] = v
	}
}

// Merge adds entities and option groups, replacing same-named ones.
func (r *Registry) Merge(entities []*Entity, options map[string][]OptionSource) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range entities {
		r.entities[e.Name] = e
	}
	for k, v := range options {
		r.options[k] = v
	}
}
