// Package anthropic adapts the Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alantheprice/reqgen/pkg/interfaces"
	"github.com/alantheprice/reqgen/pkg/interfaces/types"
	"github.com/alantheprice/reqgen/pkg/providers/llm"
	"github.com/alantheprice/reqgen/pkg/utils"
)

const (
	ProviderName   = "anthropic"
	DefaultBaseURL = "https://api.anthropic.com/v1"
	DefaultModel   = "claude-3-5-sonnet-latest"
	APIVersion     = "2023-06-01"
)

// Provider implements the Anthropic LLM provider
type Provider struct {
	config     *types.ProviderConfig
	httpClient *http.Client
}

// Factory implements the ProviderFactory interface for Anthropic
type Factory struct{}

// GetName returns the provider name
func (f *Factory) GetName() string {
	return ProviderName
}

// Create creates a new Anthropic provider instance
func (f *Factory) Create(config *types.ProviderConfig) (interfaces.LLMProvider, error) {
	if err := f.Validate(config); err != nil {
		return nil, err
	}

	cfg := *config
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Provider{
		config:     &cfg,
		httpClient: llm.NewHTTPClient(&cfg),
	}, nil
}

// Validate validates the Anthropic provider configuration
func (f *Factory) Validate(config *types.ProviderConfig) error {
	if config == nil {
		return fmt.Errorf("configuration is required")
	}
	if config.APIKey == "" {
		return fmt.Errorf("API key is required for Anthropic provider")
	}
	return nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// GetName returns the provider name
func (p *Provider) GetName() string {
	return ProviderName
}

// GetModel returns the configured model
func (p *Provider) GetModel() string {
	return p.config.Model
}

// IsAvailable reports whether an API key is configured
func (p *Provider) IsAvailable() bool {
	return p.config.APIKey != ""
}

// Generate sends one Messages API request
func (p *Provider) Generate(ctx context.Context, req types.GenerationRequest) (*types.GenerationResponse, error) {
	start := time.Now()

	body, err := json.Marshal(messagesRequest{
		Model:       p.config.Model,
		System:      req.SystemPrompt,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
		MaxTokens:   llm.MaxTokens(req, p.config),
		Temperature: llm.Temperature(req, p.config),
	})
	if err != nil {
		return llm.ApplicationFailure(ProviderName, p.config.Model, fmt.Sprintf("failed to marshal request: %v", err), start), nil
	}

	status, respBody, err := p.makeRequest(ctx, body)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return llm.ApplicationFailure(ProviderName, p.config.Model, llm.APIError(status, respBody), start), nil
	}

	var parsed messagesResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return llm.ApplicationFailure(ProviderName, p.config.Model, fmt.Sprintf("failed to parse response: %v", err), start), nil
	}
	if len(parsed.Content) == 0 || parsed.Content[0].Text == "" {
		return llm.ApplicationFailure(ProviderName, p.config.Model, "empty response content", start), nil
	}

	model := parsed.Model
	if model == "" {
		model = p.config.Model
	}
	return &types.GenerationResponse{
		Success:    true,
		Content:    parsed.Content[0].Text,
		Provider:   ProviderName,
		Model:      model,
		TokensUsed: parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		Duration:   time.Since(start),
		Metadata:   map[string]any{"stop_reason": parsed.StopReason},
	}, nil
}

func (p *Provider) makeRequest(ctx context.Context, body []byte) (int, []byte, error) {
	url := strings.TrimRight(p.config.BaseURL, "/") + "/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.config.APIKey)
	httpReq.Header.Set("anthropic-version", APIVersion)
	for k, v := range p.config.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, utils.NewNetworkError("anthropic messages", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, utils.NewNetworkError("anthropic read response", err)
	}
	return resp.StatusCode, respBody, nil
}
