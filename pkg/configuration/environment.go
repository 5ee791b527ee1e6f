package configuration

import (
	"os"
	"strconv"
	"strings"
)

// providerKeyEnvVars maps providers to the environment variables holding their API
// keys, in lookup order.
var providerKeyEnvVars = map[string][]string{
	"openai":    {"OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY"},
	"gemini":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"grok":      {"GROK_API_KEY", "XAI_API_KEY"},
}

// ApplyEnvironment overlays environment variables on top of the loaded values
func (c *Config) ApplyEnvironment() {
	if c.LLM.Providers == nil {
		c.LLM.Providers = make(map[string]ProviderSettings)
	}

	for provider, vars := range providerKeyEnvVars {
		if key := firstEnv(vars...); key != "" {
			settings := c.LLM.Providers[provider]
			settings.APIKey = key
			c.LLM.Providers[provider] = settings
		}
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		settings := c.LLM.Providers["ollama"]
		settings.BaseURL = host
		c.LLM.Providers["ollama"] = settings
	}

	if v := os.Getenv("REQGEN_DEFAULT_PROVIDER"); v != "" {
		c.LLM.DefaultProvider = strings.ToLower(v)
	}
	if v, ok := envBool("REQGEN_USE_MOCK"); ok {
		c.LLM.UseMockProvider = v
	}
	if v, ok := envInt("REQGEN_MAX_RETRIES"); ok {
		c.LLM.MaxRetries = v
	}
	if v, ok := envInt("REQGEN_TIMEOUT_SECONDS"); ok {
		c.LLM.TimeoutSeconds = v
	}
	if v := os.Getenv("REQGEN_TEMPLATES_DIR"); v != "" {
		c.Templates.Dir = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Store.RedisURL = v
	}
	if v := os.Getenv("REQGEN_STORE"); v != "" {
		c.Store.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("REQGEN_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v, ok := envBool("REQGEN_JSON_LOGS"); ok {
		c.Logging.JSON = v
	}
}

// APIKeyEnvVars returns the environment variables consulted for provider's API key
func APIKeyEnvVars(provider string) []string {
	return append([]string(nil), providerKeyEnvVars[strings.ToLower(provider)]...)
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

func envBool(name string) (bool, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

func envInt(name string) (int, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
