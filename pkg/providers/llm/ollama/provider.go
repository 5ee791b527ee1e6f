// Package ollama adapts a local or remote Ollama server.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/alantheprice/reqgen/pkg/interfaces"
	"github.com/alantheprice/reqgen/pkg/interfaces/types"
	"github.com/alantheprice/reqgen/pkg/providers/llm"
	"github.com/alantheprice/reqgen/pkg/utils"
	ollama "github.com/ollama/ollama/api"
)

const (
	ProviderName = "ollama"
	DefaultModel = "llama3.1"
)

// Provider implements the Ollama LLM provider
type Provider struct {
	config *types.ProviderConfig
	client *ollama.Client
}

// Factory implements the ProviderFactory interface for Ollama
type Factory struct{}

// GetName returns the provider name
func (f *Factory) GetName() string {
	return ProviderName
}

// Create creates a new Ollama provider instance
func (f *Factory) Create(config *types.ProviderConfig) (interfaces.LLMProvider, error) {
	if err := f.Validate(config); err != nil {
		return nil, err
	}

	cfg := *config
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	base, err := parseHost(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	return &Provider{
		config: &cfg,
		client: ollama.NewClient(base, llm.NewHTTPClient(&cfg)),
	}, nil
}

// Validate requires a configured host; ollama needs no credentials
func (f *Factory) Validate(config *types.ProviderConfig) error {
	if config == nil {
		return fmt.Errorf("configuration is required")
	}
	if config.BaseURL == "" {
		return fmt.Errorf("host is required for Ollama provider")
	}
	_, err := parseHost(config.BaseURL)
	return err
}

func parseHost(host string) (*url.URL, error) {
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	u, err := url.Parse(host)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid Ollama host %q", host)
	}
	return u, nil
}

// GetName returns the provider name
func (p *Provider) GetName() string {
	return ProviderName
}

// GetModel returns the configured model
func (p *Provider) GetModel() string {
	return p.config.Model
}

// IsAvailable reports whether a host is configured
func (p *Provider) IsAvailable() bool {
	return p.config.BaseURL != ""
}

// Generate sends one non-streaming chat request
func (p *Provider) Generate(ctx context.Context, req types.GenerationRequest) (*types.GenerationResponse, error) {
	start := time.Now()

	messages := make([]ollama.Message, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, ollama.Message{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, ollama.Message{Role: "user", Content: req.Prompt})

	stream := false
	chatReq := &ollama.ChatRequest{
		Model:    p.config.Model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]interface{}{
			"temperature": llm.Temperature(req, p.config),
			"num_predict": llm.MaxTokens(req, p.config),
		},
	}

	var (
		content strings.Builder
		final   ollama.ChatResponse
	)
	err := p.client.Chat(ctx, chatReq, func(res ollama.ChatResponse) error {
		content.WriteString(res.Message.Content)
		if res.Done {
			final = res
		}
		return nil
	})
	if err != nil {
		var statusErr ollama.StatusError
		if errors.As(err, &statusErr) {
			message := statusErr.ErrorMessage
			if message == "" {
				message = statusErr.Status
			}
			return llm.ApplicationFailure(ProviderName, p.config.Model, fmt.Sprintf("API error (%d): %s", statusErr.StatusCode, message), start), nil
		}
		return nil, utils.NewNetworkError("ollama chat", err)
	}

	if content.Len() == 0 {
		return llm.ApplicationFailure(ProviderName, p.config.Model, "empty response content", start), nil
	}

	return &types.GenerationResponse{
		Success:    true,
		Content:    content.String(),
		Provider:   ProviderName,
		Model:      p.config.Model,
		TokensUsed: final.PromptEvalCount + final.EvalCount,
		Duration:   time.Since(start),
		Metadata:   map[string]any{"done_reason": final.DoneReason},
	}, nil
}
