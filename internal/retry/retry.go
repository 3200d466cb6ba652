// Package retry wraps a fetcher with bounded retries for transient failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/amishk599/jobpulse/internal/model"
)

// Fetcher is a decorator that retries transient failures with exponential
// backoff and jitter before giving up on the wrapped model.Fetcher.
type Fetcher struct {
	inner      model.Fetcher
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// New wraps inner with retry logic. maxRetries is the number of additional
// attempts after the first failure; zero disables retrying. baseDelay is the
// delay before the first retry, doubled on each subsequent one.
func New(inner model.Fetcher, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// Fetch attempts the wrapped fetch, retrying on transient errors.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	body, err := f.inner.Fetch(ctx)
	if err == nil || !isRetryable(err) {
		return body, err
	}

	lastErr := err
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		delay := f.backoffDelay(attempt, lastErr)

		f.logger.Warn("retrying after transient error",
			"attempt", attempt,
			"max_retries", f.maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-t.C:
		}

		body, err = f.inner.Fetch(ctx)
		if err == nil {
			return body, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// A Retry-After from the server takes precedence.
func (f *Fetcher) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	delay := f.baseDelay << (attempt - 1)
	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// isRetryable reports whether err is a transient failure worth retrying:
// 429, 5xx and network errors. Cancellation and other 4xx never are.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}

	var parseErr *model.ParseError
	if errors.As(err, &parseErr) {
		return false
	}
	return true
}
