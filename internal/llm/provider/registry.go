package provider

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrMissingCredential is returned by a factory when the provider's
// credential is not configured.
var ErrMissingCredential = errors.New("provider credential not configured")

// Config carries the settings every factory understands
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	// Region is used by cloud-hosted providers (bedrock)
	Region string
}

// Factory builds a provider from its configuration
type Factory func(Config) (Provider, error)

// Registry manages provider factories
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register registers a factory
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// New builds the named provider
func (r *Registry) New(name string, cfg Config) (Provider, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("provider '%s' not found", name)
	}
	return factory(cfg)
}

// Has checks if a factory is registered
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// List returns all registered provider names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Global registry
var globalRegistry = NewRegistry()

// RegisterFactory registers a factory globally
func RegisterFactory(name string, factory Factory) {
	globalRegistry.Register(name, factory)
}

// New builds a provider from the global registry
func New(name string, cfg Config) (Provider, error) {
	return globalRegistry.New(name, cfg)
}

// Has checks if a factory exists in the global registry
func Has(name string) bool {
	return globalRegistry.Has(name)
}

// List returns all registered provider names from the global registry
func List() []string {
	return globalRegistry.List()
}
