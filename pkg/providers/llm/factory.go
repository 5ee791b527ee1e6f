package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/alantheprice/reqgen/pkg/configuration"
	"github.com/alantheprice/reqgen/pkg/interfaces"
	"github.com/alantheprice/reqgen/pkg/interfaces/types"
	"github.com/alantheprice/reqgen/pkg/providers/llm/mock"
	"github.com/alantheprice/reqgen/pkg/utils"
)

// Factory resolves provider names to adapters using the loaded LLM settings
type Factory struct {
	registry *Registry
	settings configuration.LLMSettings
	mock     interfaces.LLMProvider
}

// NewFactory creates a new provider factory
func NewFactory(registry *Registry, settings configuration.LLMSettings) *Factory {
	return &Factory{
		registry: registry,
		settings: settings,
		mock:     mock.New(),
	}
}

// GetProvider returns the adapter for name. In mock mode every name resolves to
// the mock adapter. Unknown names yield a configuration error.
func (f *Factory) GetProvider(name string) (interfaces.LLMProvider, error) {
	if f.settings.UseMockProvider {
		return f.mock, nil
	}

	providerName := strings.ToLower(strings.TrimSpace(name))
	if providerName == configuration.MockProviderName {
		return f.mock, nil
	}
	if _, ok := f.registry.Lookup(providerName); !ok {
		return nil, utils.NewConfigError("llm.provider", fmt.Sprintf("unknown provider: %s", name))
	}

	provider, err := f.registry.GetProvider(providerName, f.settings.ProviderConfig(providerName))
	if err != nil {
		return nil, utils.NewStructuredError("CFG_ERROR", fmt.Sprintf("provider %s is not usable", providerName), utils.CategoryConfiguration, err)
	}
	return provider, nil
}

// GetAvailableProviders lists the configured providers in registration order
func (f *Factory) GetAvailableProviders() []string {
	if f.settings.UseMockProvider {
		return []string{configuration.MockProviderName}
	}

	var available []string
	for _, name := range f.registry.ListProviders() {
		if err := f.registry.ValidateConfig(name, f.settings.ProviderConfig(name)); err == nil {
			available = append(available, name)
		}
	}
	return available
}

// DefaultProvider returns the configured default provider name
func (f *Factory) DefaultProvider() string {
	if f.settings.UseMockProvider {
		return configuration.MockProviderName
	}
	return strings.ToLower(f.settings.DefaultProvider)
}

// Registered returns every provider name known to the factory
func (f *Factory) Registered() []string {
	return f.registry.ListProviders()
}

// ValidateConnection performs one minimal real generation call and reports whether it succeeded
func ValidateConnection(ctx context.Context, provider interfaces.LLMProvider) bool {
	resp, err := provider.Generate(ctx, types.GenerationRequest{
		Prompt:      "Reply with OK",
		Temperature: types.Float64(0),
		MaxTokens:   5,
	})
	return err == nil && resp != nil && resp.Success
}
