package providers

import (
	"fmt"

	"github.com/alantheprice/reqgen/pkg/configuration"
	"github.com/alantheprice/reqgen/pkg/providers/llm"
	"github.com/alantheprice/reqgen/pkg/providers/llm/anthropic"
	"github.com/alantheprice/reqgen/pkg/providers/llm/gemini"
	"github.com/alantheprice/reqgen/pkg/providers/llm/grok"
	"github.com/alantheprice/reqgen/pkg/providers/llm/ollama"
	"github.com/alantheprice/reqgen/pkg/providers/llm/openai"
)

// RegisterDefaultProviders registers all vendor factories in enumeration order
func RegisterDefaultProviders(registry *llm.Registry) error {
	factories := []llm.ProviderFactory{
		&openai.Factory{},
		&anthropic.Factory{},
		&gemini.Factory{},
		&grok.Factory{},
		&ollama.Factory{},
	}
	for _, factory := range factories {
		if err := registry.Register(factory); err != nil {
			return fmt.Errorf("failed to register provider %s: %w", factory.GetName(), err)
		}
	}
	return nil
}

// NewDefaultFactory creates a factory with every vendor adapter registered
func NewDefaultFactory(settings configuration.LLMSettings) *llm.Factory {
	registry := llm.NewRegistry()
	if err := RegisterDefaultProviders(registry); err != nil {
		// only possible with duplicate names above
		panic("failed to register default providers: " + err.Error())
	}
	return llm.NewFactory(registry, settings)
}
