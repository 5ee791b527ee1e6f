package llm

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alantheprice/reqgen/pkg/interfaces"
	"github.com/alantheprice/reqgen/pkg/interfaces/types"
	"github.com/alantheprice/reqgen/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider replays a fixed sequence of outcomes, repeating the last one.
type scriptedProvider struct {
	name    string
	mu      sync.Mutex
	calls   int
	results []outcome
}

type outcome struct {
	resp *types.GenerationResponse
	err  error
}

func (p *scriptedProvider) GetName() string   { return p.name }
func (p *scriptedProvider) GetModel() string  { return p.name + "-model" }
func (p *scriptedProvider) IsAvailable() bool { return true }

func (p *scriptedProvider) Generate(ctx context.Context, req types.GenerationRequest) (*types.GenerationResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.calls
	if idx >= len(p.results) {
		idx = len(p.results) - 1
	}
	p.calls++
	o := p.results[idx]
	return o.resp, o.err
}

func (p *scriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeResolver struct {
	providers map[string]interfaces.LLMProvider
	available []string
}

func (r *fakeResolver) GetProvider(name string) (interfaces.LLMProvider, error) {
	p, ok := r.providers[strings.ToLower(name)]
	if !ok {
		return nil, utils.NewConfigError("llm.provider", "unknown provider: "+name)
	}
	return p, nil
}

func (r *fakeResolver) GetAvailableProviders() []string { return r.available }

func ok(provider, content string) outcome {
	return outcome{resp: &types.GenerationResponse{Success: true, Content: content, Provider: provider}}
}

func appFailure(provider, msg string) outcome {
	return outcome{resp: types.Failure(types.ErrorKindProvider, provider, msg)}
}

func transient() outcome {
	return outcome{err: utils.NewNetworkError("chat", errors.New("connection reset by peer"))}
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func newService(resolver *fakeResolver, defaultProvider string, sleeps *sleepRecorder) *Service {
	return NewService(resolver, Options{
		DefaultProvider: defaultProvider,
		MaxRetries:      3,
		AttemptTimeout:  time.Second,
		Sleep:           sleeps.sleep,
		Logger:          utils.NewLoggerWithWriter(io.Discard),
	})
}

func TestNoProvidersConfigured(t *testing.T) {
	svc := newService(&fakeResolver{}, "openai", &sleepRecorder{})

	resp := svc.Generate(context.Background(), types.GenerationRequest{Prompt: "x"})
	require.NotNil(t, resp)
	assert.False(t, resp.Success)
	assert.Equal(t, NoProvidersMessage, resp.Error)
	assert.Equal(t, types.ErrorKindConfiguration, resp.ErrorKind)
}

func TestDefaultProviderTriedFirst(t *testing.T) {
	openai := &scriptedProvider{name: "openai", results: []outcome{ok("openai", "from openai")}}
	gemini := &scriptedProvider{name: "gemini", results: []outcome{ok("gemini", "from gemini")}}
	resolver := &fakeResolver{
		providers: map[string]interfaces.LLMProvider{"openai": openai, "gemini": gemini},
		available: []string{"openai", "gemini"},
	}

	resp := newService(resolver, "gemini", &sleepRecorder{}).Generate(context.Background(), types.GenerationRequest{Prompt: "x"})
	assert.True(t, resp.Success)
	assert.Equal(t, "from gemini", resp.Content)
	assert.Equal(t, 0, openai.Calls())
	assert.Equal(t, []string{"gemini", "openai"}, newService(resolver, "gemini", &sleepRecorder{}).AvailableProviders())
}

func TestApplicationFailureFailsOverWithoutRetry(t *testing.T) {
	openai := &scriptedProvider{name: "openai", results: []outcome{appFailure("openai", "API error (401): bad key")}}
	anthropic := &scriptedProvider{name: "anthropic", results: []outcome{ok("anthropic", "done")}}
	resolver := &fakeResolver{
		providers: map[string]interfaces.LLMProvider{"openai": openai, "anthropic": anthropic},
		available: []string{"openai", "anthropic"},
	}
	sleeps := &sleepRecorder{}

	resp := newService(resolver, "openai", sleeps).Generate(context.Background(), types.GenerationRequest{Prompt: "x"})
	assert.True(t, resp.Success)
	assert.Equal(t, "done", resp.Content)
	assert.Equal(t, 1, openai.Calls())
	assert.Empty(t, sleeps.delays)
}

func TestTransientRetriedExactlyMaxRetriesThenFailover(t *testing.T) {
	openai := &scriptedProvider{name: "openai", results: []outcome{transient()}}
	anthropic := &scriptedProvider{name: "anthropic", results: []outcome{ok("anthropic", "done")}}
	resolver := &fakeResolver{
		providers: map[string]interfaces.LLMProvider{"openai": openai, "anthropic": anthropic},
		available: []string{"openai", "anthropic"},
	}
	sleeps := &sleepRecorder{}

	resp := newService(resolver, "openai", sleeps).Generate(context.Background(), types.GenerationRequest{Prompt: "x"})
	assert.True(t, resp.Success)
	assert.Equal(t, 4, openai.Calls())
	assert.Equal(t, 1, anthropic.Calls())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, sleeps.delays)
}

func TestTransientRecoversOnSameProvider(t *testing.T) {
	openai := &scriptedProvider{name: "openai", results: []outcome{transient(), ok("openai", "second try")}}
	resolver := &fakeResolver{
		providers: map[string]interfaces.LLMProvider{"openai": openai},
		available: []string{"openai"},
	}

	resp := newService(resolver, "openai", &sleepRecorder{}).Generate(context.Background(), types.GenerationRequest{Prompt: "x"})
	assert.True(t, resp.Success)
	assert.Equal(t, "second try", resp.Content)
	assert.Equal(t, 2, openai.Calls())
}

func TestAllProvidersFailJoinsErrors(t *testing.T) {
	openai := &scriptedProvider{name: "openai", results: []outcome{appFailure("openai", "quota exceeded")}}
	gemini := &scriptedProvider{name: "gemini", results: []outcome{appFailure("gemini", "blocked")}}
	resolver := &fakeResolver{
		providers: map[string]interfaces.LLMProvider{"openai": openai, "gemini": gemini},
		available: []string{"openai", "gemini"},
	}

	resp := newService(resolver, "openai", &sleepRecorder{}).Generate(context.Background(), types.GenerationRequest{Prompt: "x"})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "openai: quota exceeded")
	assert.Contains(t, resp.Error, "gemini: blocked")
	assert.Equal(t, types.ErrorKindProvider, resp.ErrorKind)
}

func TestPreferredProvider(t *testing.T) {
	openai := &scriptedProvider{name: "openai", results: []outcome{appFailure("openai", "API error (500): boom")}}
	gemini := &scriptedProvider{name: "gemini", results: []outcome{ok("gemini", "unused")}}
	resolver := &fakeResolver{
		providers: map[string]interfaces.LLMProvider{"openai": openai, "gemini": gemini},
		available: []string{"openai", "gemini"},
	}
	svc := newService(resolver, "gemini", &sleepRecorder{})

	t.Run("failure returned verbatim without failover", func(t *testing.T) {
		resp := svc.Generate(context.Background(), types.GenerationRequest{Prompt: "x", PreferredProvider: "openai"})
		assert.False(t, resp.Success)
		assert.Equal(t, "API error (500): boom", resp.Error)
		assert.Equal(t, 0, gemini.Calls())
	})

	t.Run("unknown preferred provider is a configuration error", func(t *testing.T) {
		resp := svc.Generate(context.Background(), types.GenerationRequest{Prompt: "x", PreferredProvider: "bard"})
		assert.False(t, resp.Success)
		assert.Equal(t, types.ErrorKindConfiguration, resp.ErrorKind)
		assert.Contains(t, resp.Error, "unknown provider: bard")
		assert.Equal(t, 0, gemini.Calls())
	})
}

func TestCancelledContextStopsFailover(t *testing.T) {
	openai := &scriptedProvider{name: "openai", results: []outcome{{err: context.Canceled}}}
	gemini := &scriptedProvider{name: "gemini", results: []outcome{ok("gemini", "unused")}}
	resolver := &fakeResolver{
		providers: map[string]interfaces.LLMProvider{"openai": openai, "gemini": gemini},
		available: []string{"openai", "gemini"},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := newService(resolver, "openai", &sleepRecorder{}).Generate(ctx, types.GenerationRequest{Prompt: "x"})
	assert.False(t, resp.Success)
	assert.Equal(t, types.ErrorKindTransient, resp.ErrorKind)
	assert.Equal(t, 1, openai.Calls())
	assert.Equal(t, 0, gemini.Calls())
}

func TestGenerateBatchKeepsOrder(t *testing.T) {
	echo := &echoProvider{}
	resolver := &fakeResolver{
		providers: map[string]interfaces.LLMProvider{"openai": echo},
		available: []string{"openai"},
	}
	svc := newService(resolver, "openai", &sleepRecorder{})

	reqs := []types.GenerationRequest{{Prompt: "a"}, {Prompt: "b"}, {Prompt: "c"}}
	results := svc.GenerateBatch(context.Background(), reqs)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.True(t, r.Success)
		assert.Equal(t, reqs[i].Prompt, r.Content)
	}
}

type echoProvider struct{}

func (echoProvider) GetName() string   { return "openai" }
func (echoProvider) GetModel() string  { return "echo" }
func (echoProvider) IsAvailable() bool { return true }
func (echoProvider) Generate(_ context.Context, req types.GenerationRequest) (*types.GenerationResponse, error) {
	return &types.GenerationResponse{Success: true, Content: req.Prompt}, nil
}

// blockingProvider never answers; each call ends when its context does.
type blockingProvider struct {
	mu    sync.Mutex
	calls int
}

func (p *blockingProvider) GetName() string   { return "slow" }
func (p *blockingProvider) GetModel() string  { return "slow-model" }
func (p *blockingProvider) IsAvailable() bool { return true }

func (p *blockingProvider) Generate(ctx context.Context, _ types.GenerationRequest) (*types.GenerationResponse, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestAttemptTimeoutRetriesThenFailsOver(t *testing.T) {
	slow := &blockingProvider{}
	fast := &scriptedProvider{name: "fast", results: []outcome{ok("fast", "quick answer")}}
	resolver := &fakeResolver{
		providers: map[string]interfaces.LLMProvider{"slow": slow, "fast": fast},
		available: []string{"slow", "fast"},
	}
	sleeps := &sleepRecorder{}
	svc := NewService(resolver, Options{
		DefaultProvider: "slow",
		MaxRetries:      2,
		AttemptTimeout:  20 * time.Millisecond,
		Sleep:           sleeps.sleep,
		Logger:          utils.NewLoggerWithWriter(io.Discard),
	})

	resp := svc.Generate(context.Background(), types.GenerationRequest{Prompt: "x"})
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "fast", resp.Provider)
	assert.Equal(t, "quick answer", resp.Content)
	assert.Equal(t, 3, slow.calls)
	assert.Equal(t, 1, fast.Calls())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeps.delays)
}
