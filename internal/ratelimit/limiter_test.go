package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/soft404-sweeper/internal/sweep"
)

type countingFetcher struct {
	mu    sync.Mutex
	calls int
}

func (f *countingFetcher) Fetch(_ context.Context, rawURL string) (sweep.FetchResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return sweep.FetchResult{RequestURL: rawURL, FinalURL: rawURL, StatusCode: 200}, nil
}

func TestLimiterDisabledPassesThrough(t *testing.T) {
	t.Parallel()

	l := New(Config{}, nil)
	require.False(t, l.Enabled())
	next := &countingFetcher{}
	require.Same(t, next, l.Fetcher(next))
	require.NoError(t, l.Wait(context.Background(), "https://example.com"))
	require.Zero(t, l.Hosts())

	var nilLimiter *Limiter
	require.False(t, nilLimiter.Enabled())
	require.NoError(t, nilLimiter.Wait(context.Background(), "https://example.com"))
}

func TestLimiterDelaysSameHost(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		delayed []string
	)
	l := New(Config{RPS: 10, Burst: 1}, func(host string, _ time.Duration) {
		mu.Lock()
		delayed = append(delayed, host)
		mu.Unlock()
	})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://Test.com/a"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "test.com/b"))
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	require.Equal(t, 1, l.Hosts())

	mu.Lock()
	require.Equal(t, []string{"test.com"}, delayed)
	mu.Unlock()
}

func TestLimiterHostsAreIndependent(t *testing.T) {
	t.Parallel()

	l := New(Config{RPS: 1, Burst: 1}, nil)
	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, "https://a.example/x"))

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://b.example/y"))
	require.Less(t, time.Since(start), 500*time.Millisecond)
	require.Equal(t, 2, l.Hosts())
}

func TestLimitedFetcherHonorsContext(t *testing.T) {
	t.Parallel()

	l := New(Config{RPS: 0.1, Burst: 1}, nil)
	next := &countingFetcher{}
	f := l.Fetcher(next)

	_, err := f.Fetch(context.Background(), "https://slow.example/1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res, err := f.Fetch(ctx, "https://slow.example/2")
	require.Error(t, err)
	require.Equal(t, "https://slow.example/2", res.RequestURL)
	require.Equal(t, 1, next.calls)
}
