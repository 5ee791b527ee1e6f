package interfaces

import (
	"context"

	"github.com/alantheprice/reqgen/pkg/interfaces/types"
)

// LLMProvider defines the interface for interacting with Large Language Models
type LLMProvider interface {
	// GetName returns the provider name (e.g., "openai", "gemini", "mock")
	GetName() string

	// GetModel returns the model requests are sent to
	GetModel() string

	// Generate performs exactly one generation call. Vendor-reported failures come back
	// as an unsuccessful response; the error return is reserved for transient failures
	// (transport, timeout, cancellation).
	Generate(ctx context.Context, req types.GenerationRequest) (*types.GenerationResponse, error)

	// IsAvailable reports whether the provider's required settings are configured
	IsAvailable() bool
}

// ProviderResolver resolves providers by name
type ProviderResolver interface {
	// GetProvider returns the named provider or a configuration error
	GetProvider(name string) (LLMProvider, error)

	// GetAvailableProviders lists configured providers in enumeration order
	GetAvailableProviders() []string
}

// TextGenerator generates text with provider selection, retry and failover
type TextGenerator interface {
	Generate(ctx context.Context, req types.GenerationRequest) *types.GenerationResponse
}

// TemplateProvider loads and renders document templates
type TemplateProvider interface {
	// Load returns the raw template text for name
	Load(name string) (string, error)

	// Render substitutes data into a template
	Render(template string, data map[string]any) (string, error)

	// List returns the names of all available templates
	List() ([]string, error)
}
