package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

func texts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("chunk %d", i)
	}
	return out
}

func TestEmbeddingClient_BatchesInOrder(t *testing.T) {
	provider := &mockEmbedder{embed: func(_ int, in []string) ([][]float32, error) {
		out := make([][]float32, len(in))
		for i, s := range in {
			var n int
			_, _ = fmt.Sscanf(s, "chunk %d", &n)
			out[i] = []float32{float32(n)}
		}
		return out, nil
	}}
	c := NewEmbeddingClient(provider, WithBatchSize(2))

	vectors, err := c.EmbedBatch(context.Background(), texts(5))

	require.NoError(t, err)
	require.Len(t, vectors, 5)
	for i, v := range vectors {
		assert.Equal(t, []float32{float32(i)}, v)
	}
	assert.Equal(t, 3, provider.calls())
	assert.Equal(t, "mock-embed", c.ModelName())
}

func TestEmbeddingClient_RetriesTransientWithBackoff(t *testing.T) {
	provider := &mockEmbedder{embed: func(call int, in []string) ([][]float32, error) {
		if call < 3 {
			return nil, transient(503)
		}
		return [][]float32{{1}, {2}}, nil
	}}
	sleeper := &noSleep{}
	c := NewEmbeddingClient(provider, WithBackoff(100*time.Millisecond, time.Second), WithSleep(sleeper.sleep))

	vectors, err := c.EmbedBatch(context.Background(), texts(2))

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}}, vectors)
	assert.Equal(t, 3, provider.calls())
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, sleeper.delays)
}

func TestEmbeddingClient_BackoffCaps(t *testing.T) {
	c := NewEmbeddingClient(&mockEmbedder{}, WithBackoff(time.Second, 3*time.Second))

	assert.Equal(t, time.Second, c.backoff(1))
	assert.Equal(t, 2*time.Second, c.backoff(2))
	assert.Equal(t, 3*time.Second, c.backoff(3))
	assert.Equal(t, 3*time.Second, c.backoff(8))
}

// fakeClock advances when slept on.
type fakeClock struct {
	mu     sync.Mutex
	at     time.Time
	delays []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{at: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.at
}

func (f *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	f.mu.Lock()
	f.at = f.at.Add(d)
	f.delays = append(f.delays, d)
	f.mu.Unlock()
	return ctx.Err()
}

func throttled(after time.Duration) error {
	return &domain.TransientError{Op: "embed", StatusCode: 429, RetryAfter: after, Err: errors.New("slow down")}
}

func TestEmbeddingClient_RetryAfterPacesNextAttempt(t *testing.T) {
	provider := &mockEmbedder{embed: func(call int, _ []string) ([][]float32, error) {
		if call == 1 {
			return nil, throttled(7 * time.Second)
		}
		return [][]float32{{1}}, nil
	}}
	clock := newFakeClock()
	c := NewEmbeddingClient(provider, WithSleep(clock.sleep))
	c.now = clock.now

	vectors, err := c.EmbedBatch(context.Background(), texts(1))

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}}, vectors)
	assert.Equal(t, 2, provider.calls())
	assert.Equal(t, []time.Duration{7 * time.Second}, clock.delays)
}

func TestEmbeddingClient_RetryAfterHoldsBackOtherCallers(t *testing.T) {
	provider := &mockEmbedder{embed: func(call int, _ []string) ([][]float32, error) {
		if call == 1 {
			return nil, throttled(7 * time.Second)
		}
		return [][]float32{{1}}, nil
	}}
	clock := newFakeClock()
	c := NewEmbeddingClient(provider, WithMaxAttempts(1), WithSleep(clock.sleep))
	c.now = clock.now

	_, err := c.EmbedOne(context.Background(), "first")
	require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Empty(t, clock.delays)

	vector, err := c.EmbedOne(context.Background(), "second")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vector)
	assert.Equal(t, []time.Duration{7 * time.Second}, clock.delays)
}

func TestEmbeddingClient_LongerPauseWins(t *testing.T) {
	clock := newFakeClock()
	c := NewEmbeddingClient(&mockEmbedder{})
	c.now = clock.now
	start := clock.now()

	c.pauseFor(10 * time.Second)
	c.pauseFor(2 * time.Second)

	assert.Equal(t, start.Add(10*time.Second), c.resumeAt)
}

func TestEmbeddingClient_RequestRateLimitsProviderCalls(t *testing.T) {
	provider := &mockEmbedder{embed: func(_ int, _ []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}}
	c := NewEmbeddingClient(provider, WithRequestRate(rate.Every(time.Hour), 1))

	_, err := c.EmbedOne(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.EmbedOne(ctx, "second")

	assert.Error(t, err)
	assert.Equal(t, 1, provider.calls())
}

func TestWithRequestsPerSecond(t *testing.T) {
	c := NewEmbeddingClient(&mockEmbedder{}, WithRequestsPerSecond(0, 0))
	assert.Equal(t, rate.Inf, c.limiter.Limit())
	assert.Equal(t, 1, c.limiter.Burst())

	c = NewEmbeddingClient(&mockEmbedder{}, WithRequestsPerSecond(2.5, 4))
	assert.Equal(t, rate.Limit(2.5), c.limiter.Limit())
	assert.Equal(t, 4, c.limiter.Burst())
}

func TestEmbeddingClient_ExhaustedBatchYieldsNil(t *testing.T) {
	// The second batch always fails; the others succeed.
	provider := &mockEmbedder{embed: func(_ int, in []string) ([][]float32, error) {
		if in[0] == "chunk 2" {
			return nil, transient(429)
		}
		out := make([][]float32, len(in))
		for i := range in {
			out[i] = []float32{1}
		}
		return out, nil
	}}
	sleeper := &noSleep{}
	c := NewEmbeddingClient(provider, WithBatchSize(2), WithMaxAttempts(3), WithSleep(sleeper.sleep))

	vectors, err := c.EmbedBatch(context.Background(), texts(5))

	require.NoError(t, err)
	require.Len(t, vectors, 5)
	assert.NotNil(t, vectors[0])
	assert.NotNil(t, vectors[1])
	assert.Nil(t, vectors[2])
	assert.Nil(t, vectors[3])
	assert.NotNil(t, vectors[4])
	assert.Len(t, sleeper.delays, 2)
}

func TestEmbeddingClient_NonTransientAborts(t *testing.T) {
	provider := &mockEmbedder{embed: func(_ int, _ []string) ([][]float32, error) {
		return nil, errors.New("401 unauthorized")
	}}
	c := NewEmbeddingClient(provider, WithSleep((&noSleep{}).sleep))

	_, err := c.EmbedBatch(context.Background(), texts(3))

	assert.EqualError(t, err, "401 unauthorized")
	assert.Equal(t, 1, provider.calls())
}

func TestEmbeddingClient_CountMismatchIsError(t *testing.T) {
	provider := &mockEmbedder{embed: func(_ int, _ []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}}
	c := NewEmbeddingClient(provider)

	_, err := c.EmbedBatch(context.Background(), texts(2))
	assert.ErrorContains(t, err, "returned 1 vectors for 2 texts")
}

func TestEmbeddingClient_EmbedOne(t *testing.T) {
	c := NewEmbeddingClient(&mockEmbedder{})
	v, err := c.EmbedOne(context.Background(), "Is the roof old?")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, v)

	failing := NewEmbeddingClient(&mockEmbedder{embed: func(_ int, _ []string) ([][]float32, error) {
		return nil, transient(503)
	}}, WithMaxAttempts(2), WithSleep((&noSleep{}).sleep))
	_, err = failing.EmbedOne(context.Background(), "q")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.True(t, domain.IsTransient(err))
}

func TestEmbeddingClient_Unavailable(t *testing.T) {
	var c *EmbeddingClient
	assert.False(t, c.Available())
	assert.Empty(t, c.ModelName())

	c = NewEmbeddingClient(nil)
	_, err := c.EmbedBatch(context.Background(), texts(1))
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	_, err = c.EmbedOne(context.Background(), "q")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestEmbeddingClient_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	provider := &mockEmbedder{embed: func(_ int, _ []string) ([][]float32, error) {
		cancel()
		return nil, transient(503)
	}}
	c := NewEmbeddingClient(provider, WithSleep((&noSleep{}).sleep))

	_, err := c.EmbedBatch(ctx, texts(1))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, provider.calls())
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
