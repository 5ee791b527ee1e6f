package types

import "time"

// ErrorKind classifies a failed generation so callers can decide whether a retry
// can help without inspecting error strings.
type ErrorKind string

const (
	ErrorKindNone          ErrorKind = ""
	ErrorKindConfiguration ErrorKind = "configuration"
	ErrorKindTransient     ErrorKind = "transient"
	ErrorKindProvider      ErrorKind = "provider"
)

// ProviderConfig represents configuration for an LLM provider
type ProviderConfig struct {
	Name        string            `json:"name" yaml:"name"`
	Model       string            `json:"model" yaml:"model"`
	Temperature float64           `json:"temperature" yaml:"temperature"`
	MaxTokens   int               `json:"max_tokens" yaml:"max_tokens"`
	Timeout     int               `json:"timeout" yaml:"timeout"`
	BaseURL     string            `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIKey      string            `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// GenerationRequest is a single text generation call
type GenerationRequest struct {
	Prompt            string         `json:"prompt"`
	SystemPrompt      string         `json:"system_prompt,omitempty"`
	Temperature       *float64       `json:"temperature,omitempty"` // nil uses the provider setting
	MaxTokens         int            `json:"max_tokens"`
	PreferredProvider string         `json:"preferred_provider,omitempty"`
	Parameters        map[string]any `json:"parameters,omitempty"`
}

// Float64 returns a pointer to v, for optional request fields
func Float64(v float64) *float64 {
	return &v
}

// GenerationResponse is the result of a text generation call. Failures are reported
// through Success/Error rather than Go errors.
type GenerationResponse struct {
	Success    bool           `json:"success"`
	Content    string         `json:"content,omitempty"`
	Error      string         `json:"error,omitempty"`
	ErrorKind  ErrorKind      `json:"error_kind,omitempty"`
	Provider   string         `json:"provider,omitempty"`
	Model      string         `json:"model,omitempty"`
	TokensUsed int            `json:"tokens_used"`
	Duration   time.Duration  `json:"duration"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Failure builds an unsuccessful response.
func Failure(kind ErrorKind, provider, message string) *GenerationResponse {
	return &GenerationResponse{
		Success:   false,
		Error:     message,
		ErrorKind: kind,
		Provider:  provider,
	}
}

// ModelInfo contains information about an LLM model
type ModelInfo struct {
	Name      string `json:"name"`
	Provider  string `json:"provider"`
	MaxTokens int    `json:"max_tokens"`
}
