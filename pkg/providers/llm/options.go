package llm

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alantheprice/reqgen/pkg/interfaces/types"
	"github.com/tidwall/gjson"
)

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4000
	DefaultTimeout     = 120 * time.Second
)

// NewHTTPClient returns the dedicated client an adapter uses for its calls
func NewHTTPClient(config *types.ProviderConfig) *http.Client {
	timeout := DefaultTimeout
	if config != nil && config.Timeout > 0 {
		timeout = time.Duration(config.Timeout) * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// Temperature returns the request temperature, falling back to the provider setting.
// An explicit zero on the request is honored.
func Temperature(req types.GenerationRequest, config *types.ProviderConfig) float64 {
	if req.Temperature != nil {
		return *req.Temperature
	}
	if config != nil && config.Temperature > 0 {
		return config.Temperature
	}
	return DefaultTemperature
}

// MaxTokens returns the request token limit, falling back to the provider setting
func MaxTokens(req types.GenerationRequest, config *types.ProviderConfig) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if config != nil && config.MaxTokens > 0 {
		return config.MaxTokens
	}
	return DefaultMaxTokens
}

// APIError formats a non-2xx vendor response. The message comes from the vendor's
// JSON error envelope when present, otherwise the raw body is used.
func APIError(status int, body []byte) string {
	message := strings.TrimSpace(string(body))
	for _, path := range []string{"error.message", "error", "message"} {
		if v := gjson.GetBytes(body, path); v.Exists() && v.Type == gjson.String && v.String() != "" {
			message = v.String()
			break
		}
	}
	return fmt.Sprintf("API error (%d): %s", status, message)
}

// ApplicationFailure builds the unsuccessful response adapters return for vendor-side failures
func ApplicationFailure(provider, model, message string, started time.Time) *types.GenerationResponse {
	resp := types.Failure(types.ErrorKindProvider, provider, message)
	resp.Model = model
	resp.Duration = time.Since(started)
	return resp
}
