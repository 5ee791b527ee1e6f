package configuration

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/alantheprice/reqgen/pkg/interfaces/types"
	"github.com/alantheprice/reqgen/pkg/utils"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ConfigDirName  = ".reqgen"
	ConfigFileName = "config.yaml"
)

// KnownProviders lists provider names in failover enumeration order
var KnownProviders = []string{"openai", "anthropic", "gemini", "grok", "ollama"}

// MockProviderName is the provider used in mock mode
const MockProviderName = "mock"

// Store backends
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config represents the application configuration
type Config struct {
	LLM        LLMSettings        `yaml:"llm"`
	Generation GenerationSettings `yaml:"generation"`
	Templates  TemplateSettings   `yaml:"templates"`
	Store      StoreSettings      `yaml:"store"`
	Server     ServerSettings     `yaml:"server"`
	Logging    LoggingSettings    `yaml:"logging"`
}

// LLMSettings configures provider selection, retry and timeouts
type LLMSettings struct {
	DefaultProvider string                      `yaml:"default_provider"`
	UseMockProvider bool                        `yaml:"use_mock_provider"`
	MaxRetries      int                         `yaml:"max_retries"`
	TimeoutSeconds  int                         `yaml:"timeout_seconds"`
	Providers       map[string]ProviderSettings `yaml:"providers"`
}

// ProviderSettings holds vendor credentials and defaults
type ProviderSettings struct {
	APIKey      string            `yaml:"api_key"`
	BaseURL     string            `yaml:"base_url"`
	Model       string            `yaml:"model"`
	MaxTokens   int               `yaml:"max_tokens"`
	Temperature float64           `yaml:"temperature"`
	Headers     map[string]string `yaml:"headers"`
}

// GenerationSettings configures document generation
type GenerationSettings struct {
	MaxRetries       int     `yaml:"max_retries"`
	Temperature      float64 `yaml:"temperature"`
	MaxTokens        int     `yaml:"max_tokens"`
	BatchConcurrency int     `yaml:"batch_concurrency"`
}

// TemplateSettings configures the template store
type TemplateSettings struct {
	Dir             string `yaml:"dir"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

// StoreSettings selects the project store backend
type StoreSettings struct {
	Backend  string `yaml:"backend"`
	RedisURL string `yaml:"redis_url"`
}

// ServerSettings configures the HTTP API
type ServerSettings struct {
	Addr string `yaml:"addr"`
}

// LoggingSettings configures the log file
type LoggingSettings struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	JSON       bool   `yaml:"json"`
	RunLogDir  string `yaml:"run_log_dir"`
}

// NewConfig returns a configuration populated with defaults
func NewConfig() *Config {
	return &Config{
		LLM: LLMSettings{
			DefaultProvider: "openai",
			MaxRetries:      3,
			TimeoutSeconds:  120,
			Providers:       make(map[string]ProviderSettings),
		},
		Generation: GenerationSettings{
			MaxRetries:       3,
			Temperature:      0.7,
			MaxTokens:        4000,
			BatchConcurrency: 4,
		},
		Templates: TemplateSettings{
			CacheTTLSeconds: 300,
		},
		Store: StoreSettings{
			Backend: StoreMemory,
		},
		Server: ServerSettings{
			Addr: ":8080",
		},
		Logging: LoggingSettings{
			File:       filepath.Join(ConfigDirName, "reqgen.log"),
			MaxSizeMB:  15,
			MaxBackups: 3,
			MaxAgeDays: 28,
			RunLogDir:  filepath.Join(ConfigDirName, "runlogs"),
		},
	}
}

// DefaultConfigPath returns .reqgen/config.yaml in the working directory
func DefaultConfigPath() string {
	return filepath.Join(ConfigDirName, ConfigFileName)
}

// Load builds the configuration from defaults, the YAML file at path (when it exists),
// a .env file in the working directory and finally environment variables.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		path = DefaultConfigPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults + environment only
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg.ApplyEnvironment()
	if cfg.LLM.Providers == nil {
		cfg.LLM.Providers = make(map[string]ProviderSettings)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.LLM.MaxRetries < 0 {
		return utils.NewConfigError("llm.max_retries", "llm.max_retries cannot be negative")
	}
	if c.LLM.TimeoutSeconds < 0 {
		return utils.NewConfigError("llm.timeout_seconds", "llm.timeout_seconds cannot be negative")
	}
	if c.Generation.MaxRetries < 0 {
		return utils.NewConfigError("generation.max_retries", "generation.max_retries cannot be negative")
	}
	if c.LLM.DefaultProvider != "" && !IsKnownProvider(c.LLM.DefaultProvider) {
		return utils.NewConfigError("llm.default_provider", fmt.Sprintf("unknown default provider: %s", c.LLM.DefaultProvider))
	}
	for name := range c.LLM.Providers {
		if !IsKnownProvider(name) {
			return utils.NewConfigError("llm.providers", fmt.Sprintf("unknown provider in configuration: %s", name))
		}
	}
	switch c.Store.Backend {
	case "", StoreMemory:
	case StoreRedis:
		if c.Store.RedisURL == "" {
			return utils.NewConfigError("store.redis_url", "store.redis_url is required when store.backend is redis")
		}
	default:
		return utils.NewConfigError("store.backend", fmt.Sprintf("unsupported store backend: %s", c.Store.Backend))
	}
	return nil
}

// IsKnownProvider reports whether name is a supported provider (case-insensitive)
func IsKnownProvider(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == MockProviderName {
		return true
	}
	for _, known := range KnownProviders {
		if known == name {
			return true
		}
	}
	return false
}

// Timeout returns the per-call provider timeout
func (s LLMSettings) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Provider returns the settings for name (case-insensitive)
func (s LLMSettings) Provider(name string) (ProviderSettings, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for key, settings := range s.Providers {
		if strings.ToLower(key) == name {
			return settings, true
		}
	}
	return ProviderSettings{}, false
}

// APIKeys returns every configured provider key, sorted
func (s LLMSettings) APIKeys() []string {
	var keys []string
	for _, settings := range s.Providers {
		if key := strings.TrimSpace(settings.APIKey); key != "" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// ProviderConfig converts the vendor settings into the provider construction config
func (s LLMSettings) ProviderConfig(name string) *types.ProviderConfig {
	settings, _ := s.Provider(name)
	return &types.ProviderConfig{
		Name:        strings.ToLower(name),
		Model:       settings.Model,
		Temperature: settings.Temperature,
		MaxTokens:   settings.MaxTokens,
		Timeout:     int(s.Timeout() / time.Second),
		BaseURL:     settings.BaseURL,
		APIKey:      settings.APIKey,
		Headers:     settings.Headers,
	}
}

// LogSettings converts the logging section into logger settings
func (l LoggingSettings) LogSettings() utils.LogSettings {
	return utils.LogSettings{
		File:       l.File,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAgeDays: l.MaxAgeDays,
		JSON:       l.JSON,
	}
}

// CacheTTL returns the template cache lifetime
func (t TemplateSettings) CacheTTL() time.Duration {
	if t.CacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(t.CacheTTLSeconds) * time.Second
}
