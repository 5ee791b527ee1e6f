package llm

import (
	"fmt"
	"strings"
	"sync"

	"github.com/alantheprice/reqgen/pkg/interfaces"
	"github.com/alantheprice/reqgen/pkg/interfaces/types"
)

// Registry manages LLM provider registration and discovery. Providers are
// enumerated in registration order.
type Registry struct {
	mu        sync.RWMutex
	order     []string
	providers map[string]ProviderFactory
	instances map[string]interfaces.LLMProvider
}

// ProviderFactory creates new instances of a specific provider
type ProviderFactory interface {
	// Create creates a new provider instance with the given configuration
	Create(config *types.ProviderConfig) (interfaces.LLMProvider, error)

	// GetName returns the name of the provider
	GetName() string

	// Validate reports whether config carries the settings the provider needs
	Validate(config *types.ProviderConfig) error
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]ProviderFactory),
		instances: make(map[string]interfaces.LLMProvider),
	}
}

// Register registers a new provider factory
func (r *Registry) Register(factory ProviderFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := strings.ToLower(factory.GetName())
	if name == "" {
		return fmt.Errorf("provider factory must have a non-empty name")
	}

	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("provider '%s' is already registered", name)
	}

	r.providers[name] = factory
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the factory registered under name (case-insensitive)
func (r *Registry) Lookup(name string) (ProviderFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	return factory, ok
}

// GetProvider returns a provider instance, creating and caching it if necessary
func (r *Registry) GetProvider(name string, config *types.ProviderConfig) (interfaces.LLMProvider, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	r.mu.RLock()
	if instance, exists := r.instances[name]; exists {
		r.mu.RUnlock()
		return instance, nil
	}
	factory, exists := r.providers[name]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("provider '%s' is not registered", name)
	}

	instance, err := factory.Create(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider '%s': %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another goroutine may have won the race; keep the first instance.
	if existing, ok := r.instances[name]; ok {
		return existing, nil
	}
	r.instances[name] = instance
	return instance, nil
}

// ListProviders returns the names of all registered providers in registration order
func (r *Registry) ListProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// ValidateConfig validates a configuration for a specific provider
func (r *Registry) ValidateConfig(name string, config *types.ProviderConfig) error {
	factory, exists := r.Lookup(name)
	if !exists {
		return fmt.Errorf("provider '%s' is not registered", name)
	}
	return factory.Validate(config)
}

// Clear clears all cached provider instances
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances = make(map[string]interfaces.LLMProvider)
}
