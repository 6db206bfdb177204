package preset

import (
	"fmt"
	"sync"
)

// Registry is a thread-safe lookup of presets by key.
// Keys are kept in registration order.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Preset
	order   []string
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]Preset),
	}
}

// Register adds or replaces a preset under key.
// Replacing keeps the key's original position.
func (r *Registry) Register(key string, p Preset) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("register %s: %w", key, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[key]; !exists {
		r.order = append(r.order, key)
	}
	r.entries[key] = p.Clone()
	return nil
}

// Get returns a deep copy of the preset for key and whether it exists.
func (r *Registry) Get(key string) (Preset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.entries[key]
	if !ok {
		return Preset{}, false
	}
	return p.Clone(), true
}

// Definitions returns a copy of the node definitions for key.
func (r *Registry) Definitions(key string) ([]NodeDefinition, bool) {
	p, ok := r.Get(key)
	if !ok {
		return nil, false
	}
	return p.Nodes, true
}

// Has returns true if the key exists in the registry.
func (r *Registry) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[key]
	return ok
}

// Keys returns all keys in registration order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, len(r.order))
	copy(keys, r.order)
	return keys
}

// Len returns the number of registered presets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
