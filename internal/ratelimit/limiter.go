// Package ratelimit implements a per-host token bucket shared by every worker
// so parallel chunks hitting the same site stay polite.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/soft404-sweeper/internal/sweep"
)

// Config holds rate limiter configuration. A non-positive RPS disables
// limiting.
type Config struct {
	RPS   float64
	Burst int
}

// DelayObserver receives the time a caller spent waiting for a token.
type DelayObserver func(host string, d time.Duration)

// Limiter manages per-host rate limits.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	observe  DelayObserver
}

// New creates a Limiter. observe may be nil.
func New(cfg Config, observe DelayObserver) *Limiter {
	limit := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
		observe:  observe,
	}
}

// Enabled reports whether the limiter ever delays callers.
func (l *Limiter) Enabled() bool {
	return l != nil && l.limit != rate.Inf
}

// Wait blocks until a token is available for the host of rawURL.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	if !l.Enabled() {
		return nil
	}
	host := hostOf(rawURL)
	l.mu.Lock()
	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[host] = limiter
	}
	l.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if d := time.Since(start); d > time.Millisecond && l.observe != nil {
		l.observe(host, d)
	}
	return nil
}

// Hosts returns the number of hosts with a bucket.
func (l *Limiter) Hosts() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Fetcher delays every fetch until the target host has a token.
func (l *Limiter) Fetcher(next sweep.Fetcher) sweep.Fetcher {
	if !l.Enabled() {
		return next
	}
	return &limitedFetcher{next: next, limiter: l}
}

type limitedFetcher struct {
	next    sweep.Fetcher
	limiter *Limiter
}

func (f *limitedFetcher) Fetch(ctx context.Context, rawURL string) (sweep.FetchResult, error) {
	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return sweep.FetchResult{RequestURL: rawURL}, err
	}
	return f.next.Fetch(ctx, rawURL)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(sweep.EnsureScheme(strings.TrimSpace(rawURL)))
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}
