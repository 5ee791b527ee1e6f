// Package openai adapts OpenAI-compatible chat completion APIs.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alantheprice/reqgen/pkg/interfaces"
	"github.com/alantheprice/reqgen/pkg/interfaces/types"
	"github.com/alantheprice/reqgen/pkg/providers/llm"
	"github.com/alantheprice/reqgen/pkg/utils"
	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	ProviderName   = "openai"
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o"
)

// Provider implements an OpenAI-compatible chat completion provider
type Provider struct {
	name   string
	config *types.ProviderConfig
	client sdk.Client
}

// Factory implements the ProviderFactory interface for OpenAI
type Factory struct{}

// GetName returns the provider name
func (f *Factory) GetName() string {
	return ProviderName
}

// Create creates a new OpenAI provider instance
func (f *Factory) Create(config *types.ProviderConfig) (interfaces.LLMProvider, error) {
	if err := f.Validate(config); err != nil {
		return nil, err
	}
	return NewCompatible(ProviderName, config, DefaultBaseURL, DefaultModel), nil
}

// Validate validates the OpenAI provider configuration
func (f *Factory) Validate(config *types.ProviderConfig) error {
	return ValidateAPIKey(ProviderName, config)
}

// ValidateAPIKey requires an API key in config
func ValidateAPIKey(name string, config *types.ProviderConfig) error {
	if config == nil {
		return fmt.Errorf("configuration is required")
	}
	if config.APIKey == "" {
		return fmt.Errorf("API key is required for %s provider", name)
	}
	return nil
}

// NewCompatible builds a provider for any OpenAI-compatible endpoint. Blank base URL
// and model fall back to the supplied defaults.
func NewCompatible(name string, config *types.ProviderConfig, defaultBaseURL, defaultModel string) *Provider {
	cfg := *config
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(llm.NewHTTPClient(&cfg)),
		// retries belong to the generation service
		option.WithMaxRetries(0),
	}
	for k, v := range cfg.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}

	return &Provider{
		name:   name,
		config: &cfg,
		client: sdk.NewClient(opts...),
	}
}

// GetName returns the provider name
func (p *Provider) GetName() string {
	return p.name
}

// GetModel returns the configured model
func (p *Provider) GetModel() string {
	return p.config.Model
}

// IsAvailable reports whether an API key is configured
func (p *Provider) IsAvailable() bool {
	return p.config.APIKey != ""
}

// Generate sends one chat completion request
func (p *Provider) Generate(ctx context.Context, req types.GenerationRequest) (*types.GenerationResponse, error) {
	start := time.Now()

	messages := make([]sdk.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, sdk.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, sdk.UserMessage(req.Prompt))

	completion, err := p.client.Chat.Completions.New(ctx, sdk.ChatCompletionNewParams{
		Model:       sdk.ChatModel(p.config.Model),
		Messages:    messages,
		Temperature: sdk.Float(llm.Temperature(req, p.config)),
		MaxTokens:   sdk.Int(int64(llm.MaxTokens(req, p.config))),
	})
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return llm.ApplicationFailure(p.name, p.config.Model, apiErrorMessage(apiErr), start), nil
		}
		return nil, utils.NewNetworkError(p.name+" chat completion", err)
	}

	if len(completion.Choices) == 0 {
		return llm.ApplicationFailure(p.name, p.config.Model, "no choices in response", start), nil
	}
	content := completion.Choices[0].Message.Content
	if content == "" {
		return llm.ApplicationFailure(p.name, p.config.Model, "empty response content", start), nil
	}

	model := completion.Model
	if model == "" {
		model = p.config.Model
	}
	return &types.GenerationResponse{
		Success:    true,
		Content:    content,
		Provider:   p.name,
		Model:      model,
		TokensUsed: int(completion.Usage.TotalTokens),
		Duration:   time.Since(start),
		Metadata: map[string]any{
			"finish_reason": completion.Choices[0].FinishReason,
		},
	}, nil
}

func apiErrorMessage(apiErr *sdk.Error) string {
	message := apiErr.Message
	if message == "" {
		message = http.StatusText(apiErr.StatusCode)
	}
	return fmt.Sprintf("API error (%d): %s", apiErr.StatusCode, message)
}
