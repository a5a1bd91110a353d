package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mesaYaReviews/internal/modules/restaurants/application/port"
)

type fakeTokenSource struct {
	mu         sync.Mutex
	session    port.Session
	next       port.Session
	refreshErr error
	gate       chan struct{}

	refreshCalls  atomic.Int32
	redirectCalls atomic.Int32
}

func newFakeTokenSource(session port.Session) *fakeTokenSource {
	return &fakeTokenSource{session: session}
}

func (f *fakeTokenSource) Session() port.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session
}

func (f *fakeTokenSource) RefreshSilent(ctx context.Context) error {
	f.refreshCalls.Add(1)
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refreshErr != nil {
		return f.refreshErr
	}
	f.session = f.next
	return nil
}

func (f *fakeTokenSource) SignInRedirect(context.Context) error {
	f.redirectCalls.Add(1)
	return nil
}

func authenticated(token string, expiresIn time.Duration) port.Session {
	return port.Session{AccessToken: token, ExpiresAt: time.Now().Add(expiresIn), Authenticated: true}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestClient starts srv and wires an APIClient against it with base path /api.
func newTestClient(t *testing.T, handler http.Handler, tokens port.TokenSource, opts ...PipelineOption) (*APIClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	rest := NewRESTClient(srv.URL+"/api", 5*time.Second, srv.Client())
	opts = append([]PipelineOption{WithLogger(quietLogger())}, opts...)
	pipeline := NewPipeline(rest, tokens, opts...)
	return NewAPIClient(pipeline, quietLogger()), srv
}

const emptySummaryPage = `{"content":[],"totalPages":0,"totalElements":0,"number":0,"size":8,"first":true,"last":true}`

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
