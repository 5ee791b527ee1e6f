package grok

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alantheprice/reqgen/pkg/interfaces/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoryRequiresAPIKey(t *testing.T) {
	f := &Factory{}
	assert.Equal(t, ProviderName, f.GetName())
	assert.Error(t, f.Validate(&types.ProviderConfig{}))

	_, err := f.Create(&types.ProviderConfig{})
	assert.Error(t, err)
}

func TestCreateUsesGrokDefaults(t *testing.T) {
	p, err := (&Factory{}).Create(&types.ProviderConfig{APIKey: "xai-test"})
	require.NoError(t, err)
	assert.Equal(t, ProviderName, p.GetName())
	assert.Equal(t, DefaultModel, p.GetModel())
	assert.True(t, p.IsAvailable())
}

func TestGenerateAgainstCompatibleEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer xai-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","created":1,"model":"grok-2",
			"choices":[{"index":0,"message":{"role":"assistant","content":"# Grok"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`))
	}))
	defer server.Close()

	p, err := (&Factory{}).Create(&types.ProviderConfig{APIKey: "xai-test", BaseURL: server.URL})
	require.NoError(t, err)

	resp, err := p.Generate(context.Background(), types.GenerationRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "# Grok", resp.Content)
	assert.Equal(t, ProviderName, resp.Provider)
}
