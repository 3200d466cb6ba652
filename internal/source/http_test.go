package source

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobpulse/internal/model"
)

func TestHTTPFetcher_GET(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(Request{URL: srv.URL, Headers: BrowserHeaders()}, srv.Client())
	body, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", string(body))
	assert.Equal(t, srv.URL, f.URL())
}

func TestHTTPFetcher_POSTWhenBodySet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"limit":20}`, string(b))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(Request{URL: srv.URL, Headers: JSONHeaders(), Body: []byte(`{"limit":20}`)}, srv.Client())
	_, err := f.Fetch(context.Background())
	require.NoError(t, err)
}

func TestHTTPFetcher_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(Request{URL: srv.URL}, srv.Client()).Fetch(context.Background())
	var herr *model.HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusTooManyRequests, herr.StatusCode)
	assert.Equal(t, 30*time.Second, herr.RetryAfter)
	assert.Equal(t, "transport", model.ErrorKind(err))
}

func TestHTTPFetcher_OversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(Request{URL: srv.URL}, srv.Client())
	f.maxBody = 10
	body, err := f.Fetch(context.Background())
	require.NoError(t, err, "a body exactly at the limit is accepted")
	assert.Equal(t, "0123456789", string(body))

	f.maxBody = 9
	_, err = f.Fetch(context.Background())
	var perr *model.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "response", perr.Format)
	assert.Contains(t, err.Error(), "exceeds 9 bytes")
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := &http.Client{Timeout: 50 * time.Millisecond}
	_, err := NewHTTPFetcher(Request{URL: srv.URL}, client).Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, "transport", model.ErrorKind(err))
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon"))
	assert.Equal(t, 5*time.Second, parseRetryAfter("5"))
}
