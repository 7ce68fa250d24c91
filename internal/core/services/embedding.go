package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
	"github.com/custodia-labs/propdocs/internal/logger"
)

// Embedding client defaults.
const (
	DefaultEmbeddingBatchSize   = 100
	DefaultEmbeddingMaxAttempts = 5
	DefaultEmbeddingBaseDelay   = 500 * time.Millisecond
	DefaultEmbeddingMaxDelay    = 30 * time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// EmbeddingClient batches texts into embedding requests and retries
// transient provider failures with capped exponential backoff. A batch that
// still fails after the last attempt yields nil vectors instead of an error.
//
// Requests from every caller share one token bucket. A provider retry-after
// hint pauses that bucket for all callers until the hinted time has passed.
type EmbeddingClient struct {
	provider    driven.EmbeddingService
	batchSize   int
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	limiter     *rate.Limiter
	sleep       SleepFunc
	now         func() time.Time

	mu       sync.Mutex
	resumeAt time.Time
}

// EmbeddingClientOption configures an EmbeddingClient.
type EmbeddingClientOption func(*EmbeddingClient)

// WithBatchSize sets the number of texts per provider request.
func WithBatchSize(n int) EmbeddingClientOption {
	return func(c *EmbeddingClient) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithMaxAttempts sets the number of tries per batch, including the first.
func WithMaxAttempts(n int) EmbeddingClientOption {
	return func(c *EmbeddingClient) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoff sets the first retry delay and the ceiling it doubles up to.
func WithBackoff(base, ceiling time.Duration) EmbeddingClientOption {
	return func(c *EmbeddingClient) {
		if base > 0 {
			c.baseDelay = base
		}
		if ceiling >= c.baseDelay {
			c.maxDelay = ceiling
		}
	}
}

// WithRequestRate paces provider requests.
func WithRequestRate(limit rate.Limit, burst int) EmbeddingClientOption {
	return func(c *EmbeddingClient) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithRequestsPerSecond paces provider requests from configuration.
// A non-positive rate disables pacing.
func WithRequestsPerSecond(rps float64, burst int) EmbeddingClientOption {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = 1
	}
	return WithRequestRate(limit, burst)
}

// WithSleep replaces the backoff sleep, for tests.
func WithSleep(sleep SleepFunc) EmbeddingClientOption {
	return func(c *EmbeddingClient) {
		c.sleep = sleep
	}
}

// NewEmbeddingClient wraps an embedding provider.
func NewEmbeddingClient(provider driven.EmbeddingService, opts ...EmbeddingClientOption) *EmbeddingClient {
	c := &EmbeddingClient{
		provider:    provider,
		batchSize:   DefaultEmbeddingBatchSize,
		maxAttempts: DefaultEmbeddingMaxAttempts,
		baseDelay:   DefaultEmbeddingBaseDelay,
		maxDelay:    DefaultEmbeddingMaxDelay,
		limiter:     rate.NewLimiter(rate.Inf, 1),
		sleep:       sleepContext,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Available reports whether a provider is configured.
func (c *EmbeddingClient) Available() bool {
	return c != nil && c.provider != nil
}

// ModelName returns the provider's model, or "" when unavailable.
func (c *EmbeddingClient) ModelName() string {
	if !c.Available() {
		return ""
	}
	return c.provider.ModelName()
}

// EmbedBatch returns one vector per text, in order. Entries are nil for
// batches whose retries were exhausted; callers skip those texts. An error
// is returned only for cancellation or a non-transient provider failure.
func (c *EmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if !c.Available() {
		return nil, domain.ErrEmbeddingUnavailable
	}

	vectors := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := c.embedWithRetry(ctx, texts[start:end])
		if err != nil {
			if domain.IsTransient(err) {
				logger.Warn("Embedding batch [%d,%d) skipped after %d attempts: %v", start, end, c.maxAttempts, err)
				continue
			}
			return nil, err
		}
		copy(vectors[start:end], batch)
	}
	return vectors, nil
}

// EmbedOne embeds a single text, typically a query. Exhausted retries
// surface as ErrEmbeddingUnavailable.
func (c *EmbeddingClient) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if !c.Available() {
		return nil, domain.ErrEmbeddingUnavailable
	}

	vectors, err := c.embedWithRetry(ctx, []string{text})
	if err != nil {
		if domain.IsTransient(err) {
			return nil, errors.Join(domain.ErrEmbeddingUnavailable, err)
		}
		return nil, err
	}
	return vectors[0], nil
}

func (c *EmbeddingClient) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		vectors, err := c.provider.EmbedBatch(ctx, texts)
		if err == nil {
			if len(vectors) != len(texts) {
				return nil, fmt.Errorf("embedding provider returned %d vectors for %d texts", len(vectors), len(texts))
			}
			return vectors, nil
		}
		if !domain.IsTransient(err) {
			return nil, err
		}

		lastErr = err
		hint := domain.RetryAfterHint(err)
		if hint > 0 {
			c.pauseFor(hint)
		}
		if attempt == c.maxAttempts {
			break
		}

		if hint > 0 {
			logger.Debug("Embedding attempt %d/%d throttled, provider asked for %s: %v", attempt, c.maxAttempts, hint, err)
			continue
		}
		delay := c.backoff(attempt)
		logger.Debug("Embedding attempt %d/%d failed, retrying in %s: %v", attempt, c.maxAttempts, delay, err)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// wait blocks until any retry-after pause has passed and a request token
// is available.
func (c *EmbeddingClient) wait(ctx context.Context) error {
	c.mu.Lock()
	pause := c.resumeAt.Sub(c.now())
	c.mu.Unlock()

	if pause > 0 {
		if err := c.sleep(ctx, pause); err != nil {
			return err
		}
	}
	return c.limiter.Wait(ctx)
}

// pauseFor holds back every caller for d. An earlier, longer pause wins.
func (c *EmbeddingClient) pauseFor(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if until := c.now().Add(d); until.After(c.resumeAt) {
		c.resumeAt = until
	}
}

// backoff doubles from baseDelay up to maxDelay.
func (c *EmbeddingClient) backoff(attempt int) time.Duration {
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			return c.maxDelay
		}
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
