// Package ratelimit spaces requests to the same host.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/amishk599/jobpulse/internal/model"
)

// HostLimiter enforces a minimum delay between requests to the same host.
// Several sources on one job board (Greenhouse, Workday) share a host.
type HostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	minDelay time.Duration
}

// NewHostLimiter creates a limiter that allows one request per minDelay per
// host. A zero minDelay disables limiting.
func NewHostLimiter(minDelay time.Duration) *HostLimiter {
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		minDelay: minDelay,
	}
}

func (h *HostLimiter) limiter(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Every(h.minDelay), 1)
		h.limiters[host] = l
	}
	return l
}

// Wait blocks until a request to host is allowed.
// Returns an error if the context is cancelled while waiting.
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	if h.minDelay <= 0 {
		return nil
	}
	if err := h.limiter(host).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", host, err)
	}
	return nil
}

// Fetcher is a decorator that waits for the host limiter before delegating to
// the wrapped model.Fetcher.
type Fetcher struct {
	inner   model.Fetcher
	limiter *HostLimiter
	host    string
}

// NewFetcher wraps inner with per-host rate limiting. All fetchers should
// share one HostLimiter.
func NewFetcher(inner model.Fetcher, limiter *HostLimiter, rawURL string) *Fetcher {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return &Fetcher{inner: inner, limiter: limiter, host: host}
}

// Fetch waits for the limiter, then delegates.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	if err := f.limiter.Wait(ctx, f.host); err != nil {
		return nil, err
	}
	return f.inner.Fetch(ctx)
}
