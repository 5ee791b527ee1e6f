// Package gemini adapts the Google Gemini generateContent API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alantheprice/reqgen/pkg/interfaces"
	"github.com/alantheprice/reqgen/pkg/interfaces/types"
	"github.com/alantheprice/reqgen/pkg/providers/llm"
	"github.com/alantheprice/reqgen/pkg/utils"
)

const (
	ProviderName   = "gemini"
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-1.5-pro"
)

// Provider implements the Gemini LLM provider
type Provider struct {
	config     *types.ProviderConfig
	httpClient *http.Client
}

// Factory implements the ProviderFactory interface for Gemini
type Factory struct{}

// GetName returns the provider name
func (f *Factory) GetName() string {
	return ProviderName
}

// Create creates a new Gemini provider instance
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

// Validate validates the Gemini provider configuration
func (f *Factory) Validate(config *types.ProviderConfig) error {
	if config == nil {
		return fmt.Errorf("configuration is required")
	}
	if config.APIKey == "" {
		return fmt.Errorf("API key is required for Gemini provider")
	}
	return nil
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
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

// Generate sends one generateContent request
func (p *Provider) Generate(ctx context.Context, req types.GenerationRequest) (*types.GenerationResponse, error) {
	start := time.Now()

	payload := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.Prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     llm.Temperature(req, p.config),
			MaxOutputTokens: llm.MaxTokens(req, p.config),
		},
	}
	if req.SystemPrompt != "" {
		payload.SystemInstruction = &content{Parts: []part{{Text: req.SystemPrompt}}}
	}
	body, err := json.Marshal(payload)
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

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return llm.ApplicationFailure(ProviderName, p.config.Model, fmt.Sprintf("failed to parse response: %v", err), start), nil
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 || parsed.Candidates[0].Content.Parts[0].Text == "" {
		return llm.ApplicationFailure(ProviderName, p.config.Model, "empty response content", start), nil
	}

	text := parsed.Candidates[0].Content.Parts[0].Text
	return &types.GenerationResponse{
		Success:  true,
		Content:  text,
		Provider: ProviderName,
		Model:    p.config.Model,
		// the API does not report usage on every model; estimate
		TokensUsed: len(text) / 4,
		Duration:   time.Since(start),
		Metadata:   map[string]any{"finish_reason": parsed.Candidates[0].FinishReason},
	}, nil
}

func (p *Provider) makeRequest(ctx context.Context, body []byte) (int, []byte, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(p.config.BaseURL, "/"), url.PathEscape(p.config.Model), url.QueryEscape(p.config.APIKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range p.config.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, utils.NewNetworkError("gemini generateContent", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, utils.NewNetworkError("gemini read response", err)
	}
	return resp.StatusCode, respBody, nil
}
