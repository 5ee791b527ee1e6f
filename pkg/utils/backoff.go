package utils

import (
	"context"
	"math"
	"time"
)

// RetryPolicy retries an operation with exponential backoff while the returned
// error satisfies ShouldRetry.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// ShouldRetry classifies errors. Defaults to IsTransientError.
	ShouldRetry func(error) bool
	// Backoff computes the wait before retry number attempt (0-based).
	// Defaults to BaseDelay * 2^attempt capped at MaxDelay.
	Backoff func(attempt int) time.Duration
	// Sleep waits for d or until ctx is done. Tests replace it to avoid real waits.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// NewRetryPolicy creates a retry policy for transient errors with sensible defaults:
// delays of 1s, 2s, 4s, ... capped at one minute.
func NewRetryPolicy(maxRetries int) *RetryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryPolicy{
		MaxRetries: maxRetries,
		BaseDelay:  time.Second,
		MaxDelay:   60 * time.Second,
	}
}

// Delay returns how long to wait before retry number attempt (0-based).
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	if p.Backoff != nil {
		return p.Backoff(attempt)
	}
	return p.exponentialBackoff(attempt)
}

// exponentialBackoff calculates exponential backoff delay
func (p *RetryPolicy) exponentialBackoff(attempt int) time.Duration {
	delay := p.BaseDelay * time.Duration(math.Pow(2, float64(attempt)))
	return p.capDelay(delay)
}

// capDelay ensures delay doesn't exceed maximum
func (p *RetryPolicy) capDelay(delay time.Duration) time.Duration {
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	if delay < 0 {
		return p.BaseDelay
	}
	return delay
}

// ShouldRetryAttempt determines if we should retry based on attempt count and error
func (p *RetryPolicy) ShouldRetryAttempt(attempt int, err error) bool {
	if attempt >= p.MaxRetries {
		return false
	}
	if p.ShouldRetry != nil {
		return p.ShouldRetry(err)
	}
	return IsTransientError(err)
}

// Execute runs fn, retrying up to MaxRetries times. The last error is returned once
// retries are exhausted, the error is not retryable, or ctx is done.
func Execute[T any](ctx context.Context, p *RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if !p.ShouldRetryAttempt(attempt, err) {
			return zero, err
		}
		// Retrying after the caller gave up is pointless.
		if ctx.Err() != nil {
			return zero, err
		}

		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if sleepErr := p.sleep(ctx, delay); sleepErr != nil {
			return zero, err
		}
	}
}

func (p *RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
