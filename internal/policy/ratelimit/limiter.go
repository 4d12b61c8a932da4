// Package ratelimit paces outbound fetches with a token bucket per host.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/stockwatch/internal/metrics"
	"github.com/JakeFAU/stockwatch/internal/stock"
)

// Limiter manages per-host rate limits.
type Limiter struct {
	mu           sync.Mutex
	limiters     map[string]*rate.Limiter
	defaultRate  rate.Limit
	defaultBurst int
}

// Config holds rate limiter configuration.
type Config struct {
	RPS   float64
	Burst int
}

// New creates a new Limiter. A non-positive RPS never blocks.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  r,
		defaultBurst: burst,
	}
}

// Wait blocks until a token is available for the host of rawURL.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host := hostOf(rawURL)
	l.mu.Lock()
	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
		l.limiters[host] = limiter
	}
	l.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if d := time.Since(start); d > time.Millisecond {
		metrics.ObserveRateLimitDelay(host, d)
	}
	return nil
}

// Fetcher paces an inner fetcher through a Limiter.
type Fetcher struct {
	inner   stock.Fetcher
	limiter *Limiter
}

// Wrap returns f paced by l.
func Wrap(f stock.Fetcher, l *Limiter) *Fetcher {
	return &Fetcher{inner: f, limiter: l}
}

// Fetch waits for a token and then delegates. A canceled wait is reported
// as a TransportError so callers treat it like any other failed request.
func (f *Fetcher) Fetch(ctx context.Context, request stock.FetchRequest) (stock.FetchResponse, error) {
	if err := f.limiter.Wait(ctx, request.URL); err != nil {
		return stock.FetchResponse{}, &stock.TransportError{URL: request.URL, Err: err}
	}
	return f.inner.Fetch(ctx, request)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return u.Hostname()
}
