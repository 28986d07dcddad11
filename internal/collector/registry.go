package collector

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages market data collectors
type Registry struct {
	mu         sync.RWMutex
	collectors map[string]Collector
}

// NewRegistry creates a new collector registry
func NewRegistry() *Registry {
	return &Registry{
		collectors: make(map[string]Collector),
	}
}

// Register adds a collector to the registry
func (r *Registry) Register(c Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collectors[c.Name()] = c
}

// Get retrieves a collector by name
func (r *Registry) Get(name string) (Collector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.collectors[name]
	return c, ok
}

// Lookup retrieves a collector by name or returns an error naming the known ones
func (r *Registry) Lookup(name string) (Collector, error) {
	if c, ok := r.Get(name); ok {
		return c, nil
	}
	return nil, fmt.Errorf("collector %s not registered (have %v)", name, r.Names())
}

// Names returns registered collector names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.collectors))
	for name := range r.collectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
