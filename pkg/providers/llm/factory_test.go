package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/alantheprice/reqgen/pkg/configuration"
	"github.com/alantheprice/reqgen/pkg/interfaces"
	"github.com/alantheprice/reqgen/pkg/interfaces/types"
	"github.com/alantheprice/reqgen/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name string
	resp *types.GenerationResponse
	err  error
}

func (s *stubProvider) GetName() string   { return s.name }
func (s *stubProvider) GetModel() string  { return "stub" }
func (s *stubProvider) IsAvailable() bool { return true }
func (s *stubProvider) Generate(context.Context, types.GenerationRequest) (*types.GenerationResponse, error) {
	return s.resp, s.err
}

type keyedFactory struct {
	name    string
	created int
}

func (f *keyedFactory) GetName() string { return f.name }

func (f *keyedFactory) Create(config *types.ProviderConfig) (interfaces.LLMProvider, error) {
	if err := f.Validate(config); err != nil {
		return nil, err
	}
	f.created++
	return &stubProvider{name: f.name}, nil
}

func (f *keyedFactory) Validate(config *types.ProviderConfig) error {
	if config == nil || config.APIKey == "" {
		return errors.New("api key required")
	}
	return nil
}

func newTestFactory(t *testing.T, settings configuration.LLMSettings) (*Factory, []*keyedFactory) {
	t.Helper()
	registry := NewRegistry()
	var factories []*keyedFactory
	for _, name := range []string{"openai", "anthropic", "gemini"} {
		f := &keyedFactory{name: name}
		require.NoError(t, registry.Register(f))
		factories = append(factories, f)
	}
	return NewFactory(registry, settings), factories
}

func TestRegistryRejectsDuplicatesAndKeepsOrder(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&keyedFactory{name: "b"}))
	require.NoError(t, registry.Register(&keyedFactory{name: "a"}))
	assert.Error(t, registry.Register(&keyedFactory{name: "B"}))
	assert.Error(t, registry.Register(&keyedFactory{name: ""}))
	assert.Equal(t, []string{"b", "a"}, registry.ListProviders())
}

func TestGetProviderCaseInsensitiveAndCached(t *testing.T) {
	factory, factories := newTestFactory(t, configuration.LLMSettings{
		Providers: map[string]configuration.ProviderSettings{"anthropic": {APIKey: "k"}},
	})

	p1, err := factory.GetProvider("Anthropic")
	require.NoError(t, err)
	p2, err := factory.GetProvider("anthropic")
	require.NoError(t, err)
	assert.Same(t, p1, p2)
	assert.Equal(t, 1, factories[1].created)
}

func TestGetProviderUnknownIsConfigurationError(t *testing.T) {
	factory, _ := newTestFactory(t, configuration.LLMSettings{})

	_, err := factory.GetProvider("bard")
	require.Error(t, err)
	assert.True(t, utils.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "unknown provider: bard")
}

func TestGetProviderUnconfiguredIsConfigurationError(t *testing.T) {
	factory, _ := newTestFactory(t, configuration.LLMSettings{})

	_, err := factory.GetProvider("openai")
	require.Error(t, err)
	assert.True(t, utils.IsConfigurationError(err))
}

func TestGetAvailableProvidersInRegistrationOrder(t *testing.T) {
	factory, _ := newTestFactory(t, configuration.LLMSettings{
		Providers: map[string]configuration.ProviderSettings{
			"gemini": {APIKey: "g"},
			"openai": {APIKey: "o"},
		},
	})
	assert.Equal(t, []string{"openai", "gemini"}, factory.GetAvailableProviders())
}

func TestMockMode(t *testing.T) {
	factory, _ := newTestFactory(t, configuration.LLMSettings{UseMockProvider: true, DefaultProvider: "openai"})

	assert.Equal(t, []string{"mock"}, factory.GetAvailableProviders())
	assert.Equal(t, "mock", factory.DefaultProvider())

	p, err := factory.GetProvider("anything-at-all")
	require.NoError(t, err)
	assert.Equal(t, "mock", p.GetName())
}

func TestValidateConnection(t *testing.T) {
	ok := &stubProvider{name: "ok", resp: &types.GenerationResponse{Success: true, Content: "OK"}}
	failed := &stubProvider{name: "bad", resp: types.Failure(types.ErrorKindProvider, "bad", "API error (401): nope")}
	broken := &stubProvider{name: "down", err: utils.NewNetworkError("dial", errors.New("connection refused"))}

	assert.True(t, ValidateConnection(context.Background(), ok))
	assert.False(t, ValidateConnection(context.Background(), failed))
	assert.False(t, ValidateConnection(context.Background(), broken))
}

func TestAPIError(t *testing.T) {
	assert.Equal(t, "API error (401): invalid key", APIError(401, []byte(`{"error":{"message":"invalid key"}}`)))
	assert.Equal(t, "API error (400): flat", APIError(400, []byte(`{"error":"flat"}`)))
	assert.Equal(t, "API error (503): Service Unavailable", APIError(503, []byte("Service Unavailable")))
}

func TestTemperatureFallback(t *testing.T) {
	config := &types.ProviderConfig{Temperature: 0.3}

	assert.Equal(t, 0.0, Temperature(types.GenerationRequest{Temperature: types.Float64(0)}, config))
	assert.Equal(t, 0.9, Temperature(types.GenerationRequest{Temperature: types.Float64(0.9)}, config))
	assert.Equal(t, 0.3, Temperature(types.GenerationRequest{}, config))
	assert.Equal(t, DefaultTemperature, Temperature(types.GenerationRequest{}, nil))
}
