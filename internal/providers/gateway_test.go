package providers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cassiomorais/giftpay/pkg/retry"
	"github.com/rs/zerolog"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// fakeGateway is an httptest server that records and counts every request.
type fakeGateway struct {
	*httptest.Server
	calls atomic.Int64

	mu       sync.Mutex
	requests []recordedRequest
}

func newFakeGateway(t *testing.T, handler func(w http.ResponseWriter, r recordedRequest)) *fakeGateway {
	t.Helper()
	g := &fakeGateway{}
	g.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec := recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		}
		g.calls.Add(1)
		g.mu.Lock()
		g.requests = append(g.requests, rec)
		g.mu.Unlock()
		handler(w, rec)
	}))
	t.Cleanup(g.Close)
	return g
}

func (g *fakeGateway) Requests() []recordedRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]recordedRequest(nil), g.requests...)
}

func (g *fakeGateway) Calls() int64 { return g.calls.Load() }

func (g *fakeGateway) config() Config {
	return Config{APIKey: "test-key", BaseURL: g.URL, Environment: "sandbox", Timeout: 2 * time.Second}
}

func testDeps() Deps {
	return Deps{
		Logger:      zerolog.Nop(),
		HTTPClient:  &http.Client{},
		StatusRetry: retry.Config{MaxAttempts: 1},
	}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
