// Package llm selects providers for generation requests, retrying transient failures
// and failing over between configured providers.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alantheprice/reqgen/pkg/interfaces"
	"github.com/alantheprice/reqgen/pkg/interfaces/types"
	"github.com/alantheprice/reqgen/pkg/providers/batch"
	"github.com/alantheprice/reqgen/pkg/utils"
)

// NoProvidersMessage is returned when no provider can serve a request
const NoProvidersMessage = "No LLM providers are configured"

// Options configures a Service
type Options struct {
	DefaultProvider  string
	MaxRetries       int
	AttemptTimeout   time.Duration
	BatchConcurrency int

	// Sleep replaces the backoff wait; tests use it to avoid real delays.
	Sleep  func(ctx context.Context, d time.Duration) error
	Logger *utils.Logger
}

// Service generates text through the configured providers
type Service struct {
	resolver        interfaces.ProviderResolver
	defaultProvider string
	maxRetries      int
	attemptTimeout  time.Duration
	sleep           func(ctx context.Context, d time.Duration) error
	batch           *batch.Processor
	logger          *utils.Logger
}

// NewService creates a generation service over resolver
func NewService(resolver interfaces.ProviderResolver, opts Options) *Service {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 120 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = utils.GetLogger()
	}
	return &Service{
		resolver:        resolver,
		defaultProvider: strings.ToLower(opts.DefaultProvider),
		maxRetries:      opts.MaxRetries,
		attemptTimeout:  opts.AttemptTimeout,
		sleep:           opts.Sleep,
		batch:           batch.NewProcessor(batch.Config{MaxConcurrency: opts.BatchConcurrency}),
		logger:          opts.Logger,
	}
}

// Generate runs req against the preferred provider, or fails over across the
// available providers starting with the default. It never returns nil.
func (s *Service) Generate(ctx context.Context, req types.GenerationRequest) *types.GenerationResponse {
	if req.PreferredProvider != "" {
		provider, err := s.resolver.GetProvider(req.PreferredProvider)
		if err != nil {
			s.logger.LogError(err)
			return types.Failure(types.ErrorKindConfiguration, req.PreferredProvider, err.Error())
		}
		return s.generateWithRetry(ctx, provider, req)
	}

	candidates := s.candidates()
	if len(candidates) == 0 {
		return types.Failure(types.ErrorKindConfiguration, "", NoProvidersMessage)
	}

	var (
		failures     []string
		allTransient = true
	)
	for i, name := range candidates {
		provider, err := s.resolver.GetProvider(name)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			allTransient = false
			continue
		}

		resp := s.generateWithRetry(ctx, provider, req)
		if resp.Success {
			return resp
		}
		failures = append(failures, fmt.Sprintf("%s: %s", name, resp.Error))
		if resp.ErrorKind != types.ErrorKindTransient {
			allTransient = false
		}

		if ctx.Err() != nil {
			break
		}
		if i < len(candidates)-1 {
			s.logger.LogFields("failing over to next provider", map[string]any{
				"failed": name,
				"next":   candidates[i+1],
			})
		}
	}

	kind := types.ErrorKindProvider
	if allTransient {
		kind = types.ErrorKindTransient
	}
	return types.Failure(kind, "", "All LLM providers failed: "+strings.Join(failures, "; "))
}

// GenerateBatch runs independent requests concurrently; results follow input order.
func (s *Service) GenerateBatch(ctx context.Context, reqs []types.GenerationRequest) []*types.GenerationResponse {
	return batch.Process(ctx, s.batch, reqs, func(ctx context.Context, req types.GenerationRequest) *types.GenerationResponse {
		return s.Generate(ctx, req)
	})
}

// AvailableProviders lists the providers failover would try, in order
func (s *Service) AvailableProviders() []string {
	return s.candidates()
}

// candidates returns the default provider (when available) followed by the
// remaining available providers in enumeration order.
func (s *Service) candidates() []string {
	available := s.resolver.GetAvailableProviders()
	ordered := make([]string, 0, len(available))
	for _, name := range available {
		if name == s.defaultProvider {
			ordered = append(ordered, name)
			break
		}
	}
	for _, name := range available {
		if name != s.defaultProvider {
			ordered = append(ordered, name)
		}
	}
	return ordered
}

func (s *Service) generateWithRetry(ctx context.Context, provider interfaces.LLMProvider, req types.GenerationRequest) *types.GenerationResponse {
	name := provider.GetName()
	start := time.Now()

	policy := utils.NewRetryPolicy(s.maxRetries)
	policy.Sleep = s.sleep
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		s.logger.LogFields("transient provider error, retrying", map[string]any{
			"provider": name,
			"attempt":  attempt + 1,
			"delay":    delay.String(),
			"error":    err.Error(),
		})
	}

	resp, err := utils.Execute(ctx, policy, func(ctx context.Context) (*types.GenerationResponse, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, s.attemptTimeout)
		defer cancel()
		return provider.Generate(attemptCtx, req)
	})
	if err != nil {
		kind := types.ErrorKindProvider
		if utils.IsTransientError(err) {
			kind = types.ErrorKindTransient
		}
		s.logger.LogFields("provider call failed", map[string]any{"provider": name, "error": err.Error()})
		failure := types.Failure(kind, name, err.Error())
		failure.Model = provider.GetModel()
		failure.Duration = time.Since(start)
		return failure
	}
	if resp == nil {
		return types.Failure(types.ErrorKindProvider, name, "provider returned no response")
	}

	if resp.Provider == "" {
		resp.Provider = name
	}
	if resp.Duration == 0 {
		resp.Duration = time.Since(start)
	}
	if !resp.Success {
		if resp.ErrorKind == types.ErrorKindNone {
			resp.ErrorKind = types.ErrorKindProvider
		}
		s.logger.LogFields("provider reported failure", map[string]any{"provider": name, "error": resp.Error})
	}
	return resp
}
