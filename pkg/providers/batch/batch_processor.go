// Package batch fans independent LLM requests out with bounded concurrency.
package batch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Config configures batching behavior
type Config struct {
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency"` // Maximum in-flight requests
}

// Stats tracks batching performance metrics
type Stats struct {
	TotalRequests    int64         `json:"total_requests"`
	TotalBatches     int64         `json:"total_batches"`
	AverageBatchSize float64       `json:"average_batch_size"`
	AverageLatency   time.Duration `json:"average_latency"`
}

// Processor runs batches of independent requests
type Processor struct {
	config Config
	mu     sync.Mutex
	stats  Stats
}

// NewProcessor creates a new batch processor
func NewProcessor(config Config) *Processor {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	return &Processor{config: config}
}

// MaxConcurrency returns the configured fan-out bound
func (p *Processor) MaxConcurrency() int {
	return p.config.MaxConcurrency
}

// Process calls fn for every item with at most MaxConcurrency calls in flight and
// returns the results in input order. Items are independent: fn reports failures in
// its result rather than aborting the batch.
func Process[In, Out any](ctx context.Context, p *Processor, items []In, fn func(ctx context.Context, item In) Out) []Out {
	results := make([]Out, len(items))
	if len(items) == 0 {
		return results
	}

	start := time.Now()
	g := new(errgroup.Group)
	g.SetLimit(p.config.MaxConcurrency)
	for i, item := range items {
		g.Go(func() error {
			results[i] = fn(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	p.record(len(items), time.Since(start))
	return results
}

func (p *Processor) record(size int, latency time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.TotalRequests += int64(size)
	p.stats.TotalBatches++
	p.stats.AverageBatchSize = float64(p.stats.TotalRequests) / float64(p.stats.TotalBatches)
	// running mean over batches
	n := time.Duration(p.stats.TotalBatches)
	p.stats.AverageLatency = p.stats.AverageLatency + (latency-p.stats.AverageLatency)/n
}

// Stats returns a snapshot of the processor statistics
func (p *Processor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
