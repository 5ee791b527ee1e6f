// Package grok adapts xAI's OpenAI-compatible API.
package grok

import (
	"github.com/alantheprice/reqgen/pkg/interfaces"
	"github.com/alantheprice/reqgen/pkg/interfaces/types"
	"github.com/alantheprice/reqgen/pkg/providers/llm/openai"
)

const (
	ProviderName   = "grok"
	DefaultBaseURL = "https://api.x.ai/v1"
	DefaultModel   = "grok-2-latest"
)

// Factory implements the ProviderFactory interface for Grok
type Factory struct{}

// GetName returns the provider name
func (f *Factory) GetName() string {
	return ProviderName
}

// Create creates a new Grok provider instance
func (f *Factory) Create(config *types.ProviderConfig) (interfaces.LLMProvider, error) {
	if err := f.Validate(config); err != nil {
		return nil, err
	}
	return openai.NewCompatible(ProviderName, config, DefaultBaseURL, DefaultModel), nil
}

// Validate validates the Grok provider configuration
func (f *Factory) Validate(config *types.ProviderConfig) error {
	return openai.ValidateAPIKey(ProviderName, config)
}
