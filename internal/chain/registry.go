package chain

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps chain names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory. Registering the same name twice panics.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if factory == nil {
		panic("chain: Register factory is nil for " + name)
	}
	if _, dup := r.factories[name]; dup {
		panic("chain: Register called twice for " + name)
	}
	r.factories[name] = factory
}

// Lookup returns the factory registered under name.
func (r *Registry) Lookup(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrChainNotFound, name)
	}
	return factory, nil
}

// Names returns the registered chain names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build looks up name and constructs the chain.
func (r *Registry) Build(name string, cfg Config) (Chain, error) {
	factory, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}

	c, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build chain %q: %w", name, err)
	}
	return c, nil
}

var defaultRegistry = NewRegistry()

// Register adds a factory to the default registry.
func Register(name string, factory Factory) { defaultRegistry.Register(name, factory) }

// Lookup finds a factory in the default registry.
func Lookup(name string) (Factory, error) { return defaultRegistry.Lookup(name) }

// Names lists the default registry.
func Names() []string { return defaultRegistry.Names() }

// Build constructs a chain from the default registry.
func Build(name string, cfg Config) (Chain, error) { return defaultRegistry.Build(name, cfg) }
