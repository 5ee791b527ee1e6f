package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alantheprice/reqgen/pkg/interfaces/types"
	"github.com/alantheprice/reqgen/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProvider(t *testing.T, url string) *Provider {
	t.Helper()
	p, err := (&Factory{}).Create(&types.ProviderConfig{APIKey: "sk-test", BaseURL: url, Timeout: 5})
	require.NoError(t, err)
	return p.(*Provider)
}

func TestGenerateSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, APIVersion, r.Header.Get("anthropic-version"))

		var body messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, DefaultModel, body.Model)
		assert.Equal(t, "be helpful", body.System)
		require.Len(t, body.Messages, 1)
		assert.Equal(t, "hello", body.Messages[0].Content)
		assert.Equal(t, 100, body.MaxTokens)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"claude-x","content":[{"type":"text","text":"hi there"}],"usage":{"input_tokens":7,"output_tokens":3}}`))
	}))
	defer server.Close()

	resp, err := newProvider(t, server.URL).Generate(context.Background(), types.GenerationRequest{
		Prompt:       "hello",
		SystemPrompt: "be helpful",
		MaxTokens:    100,
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "hi there", resp.Content)
	assert.Equal(t, 10, resp.TokensUsed)
	assert.Equal(t, "claude-x", resp.Model)
	assert.Equal(t, ProviderName, resp.Provider)
}

func TestGenerateVendorErrorIsApplicationFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens too large"}}`))
	}))
	defer server.Close()

	resp, err := newProvider(t, server.URL).Generate(context.Background(), types.GenerationRequest{Prompt: "x"})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "API error (400): max_tokens too large", resp.Error)
	assert.Equal(t, types.ErrorKindProvider, resp.ErrorKind)
}

func TestGenerateRawBodyWhenNoEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	resp, err := newProvider(t, server.URL).Generate(context.Background(), types.GenerationRequest{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "API error (502): upstream down", resp.Error)
}

func TestGenerateUnparsableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	resp, err := newProvider(t, server.URL).Generate(context.Background(), types.GenerationRequest{Prompt: "x"})
	require.NoError(t, err)
	assert.False(t, resp.Success)
}

func TestGenerateTransportErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	resp, err := newProvider(t, url).Generate(context.Background(), types.GenerationRequest{Prompt: "x"})
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.True(t, utils.IsTransientError(err))
}

func TestFactoryValidate(t *testing.T) {
	f := &Factory{}
	assert.Error(t, f.Validate(nil))
	assert.Error(t, f.Validate(&types.ProviderConfig{}))
	assert.NoError(t, f.Validate(&types.ProviderConfig{APIKey: "k"}))
}
