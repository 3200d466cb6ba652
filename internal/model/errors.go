package model

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// ParseError means the response body could not be parsed at all, or was too
// large to read.
type ParseError struct {
	Format string // "json", "html" or "response"
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var (
	// ErrAmbiguous means no extraction strategy found listings and the page
	// carried no explicit "no jobs" marker.
	ErrAmbiguous = errors.New("no listings found and no empty marker present")

	// ErrModeMismatch means the stored signal was written in a different mode
	// than the source is configured for.
	ErrModeMismatch = errors.New("stored signal mode does not match source mode")

	// ErrStateLocked means another process holds the source's state lock.
	ErrStateLocked = errors.New("source state is locked by another process")
)

// StateError wraps a failure reading or writing the state store.
type StateError struct {
	Op  string
	Err error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state %s: %v", e.Op, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// ErrorKind classifies err for log lines.
func ErrorKind(err error) string {
	var httpErr *HTTPError
	var urlErr *url.Error
	var parseErr *ParseError
	var stateErr *StateError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &httpErr), errors.As(err, &urlErr), errors.Is(err, context.DeadlineExceeded):
		return "transport"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.Is(err, ErrAmbiguous):
		return "ambiguous"
	case errors.Is(err, ErrModeMismatch):
		return "mode_mismatch"
	case errors.Is(err, ErrStateLocked):
		return "locked"
	case errors.As(err, &stateErr):
		return "state"
	}
	return "unknown"
}
