package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strconv"
	"time"

	"github.com/amishk599/jobpulse/internal/model"
)

// maxBodyBytes caps how much of a response body is read. A larger body fails
// the fetch rather than being parsed truncated.
const maxBodyBytes = 16 << 20

// DefaultTimeout bounds a single fetch when the config does not set one.
const DefaultTimeout = 20 * time.Second

// BrowserHeaders returns the request headers of a desktop Chrome navigation.
// HTML career pages block clients that do not send them.
func BrowserHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
		"Sec-Fetch-Dest":  "document",
		"Sec-Fetch-Mode":  "navigate",
		"Sec-Fetch-Site":  "none",
		"Sec-Fetch-User":  "?1",
	}
}

// JSONHeaders returns the headers sent to JSON APIs.
func JSONHeaders() map[string]string {
	return map[string]string{
		"Accept":       "application/json",
		"Content-Type": "application/json",
	}
}

// Request describes the single HTTP call a source makes per poll.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// HTTPFetcher performs one HTTP request per Fetch and returns the body.
type HTTPFetcher struct {
	req     Request
	client  *http.Client
	maxBody int64
}

// NewHTTPFetcher creates a fetcher for req. Method defaults to GET, or POST
// when a body is set.
func NewHTTPFetcher(req Request, client *http.Client) *HTTPFetcher {
	if req.Method == "" {
		req.Method = http.MethodGet
		if len(req.Body) > 0 {
			req.Method = http.MethodPost
		}
	}
	req.Headers = maps.Clone(req.Headers)
	return &HTTPFetcher{req: req, client: client, maxBody: maxBodyBytes}
}

// URL returns the endpoint this fetcher targets.
func (f *HTTPFetcher) URL() string { return f.req.URL }

// Fetch issues the request. Non-2xx responses return *model.HTTPError.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]byte, error) {
	var body io.Reader
	if len(f.req.Body) > 0 {
		body = bytes.NewReader(f.req.Body)
	}

	req, err := http.NewRequestWithContext(ctx, f.req.Method, f.req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", f.req.URL, err)
	}
	for k, v := range f.req.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("fetch %s: unexpected status %d", f.req.URL, resp.StatusCode),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read body from %s: %w", f.req.URL, err)
	}
	if int64(len(data)) > f.maxBody {
		return nil, &model.ParseError{
			Format: "response",
			Err:    fmt.Errorf("body from %s exceeds %d bytes", f.req.URL, f.maxBody),
		}
	}
	return data, nil
}

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
