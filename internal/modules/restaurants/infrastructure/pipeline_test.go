package infrastructure

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mesaYaReviews/internal/modules/restaurants/application/port"
	"mesaYaReviews/internal/modules/restaurants/domain"
)

func TestPipelineSendsNoAuthorizationWhenUnauthenticated(t *testing.T) {
	var header atomic.Value
	tokens := newFakeTokenSource(port.Session{AccessToken: "leftover", Authenticated: false})
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header.Store(r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, emptySummaryPage)
	}), tokens)

	_, err := client.SearchRestaurants(context.Background(), domain.SearchParams{Size: 8})
	require.NoError(t, err)
	assert.Equal(t, "", header.Load())
	assert.Zero(t, tokens.refreshCalls.Load())
}

func TestPipelineAttachesCurrentToken(t *testing.T) {
	var header atomic.Value
	tokens := newFakeTokenSource(authenticated("valid", time.Hour))
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header.Store(r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, emptySummaryPage)
	}), tokens)

	_, err := client.SearchRestaurants(context.Background(), domain.SearchParams{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer valid", header.Load())
	assert.Zero(t, tokens.refreshCalls.Load())
}

func TestPipelineRefreshesBeforeSendWithinMargin(t *testing.T) {
	var header atomic.Value
	tokens := newFakeTokenSource(authenticated("stale", 30*time.Second))
	tokens.next = authenticated("fresh", time.Hour)
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header.Store(r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, emptySummaryPage)
	}), tokens)

	_, err := client.SearchRestaurants(context.Background(), domain.SearchParams{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), tokens.refreshCalls.Load())
	assert.Equal(t, "Bearer fresh", header.Load(), "the token read after the refresh must be sent")
}

func TestPipelineContinuesWithStaleTokenWhenProactiveRefreshFails(t *testing.T) {
	var header atomic.Value
	tokens := newFakeTokenSource(authenticated("stale", 10*time.Second))
	tokens.refreshErr = errors.New("idp unavailable")
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header.Store(r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, emptySummaryPage)
	}), tokens)

	_, err := client.SearchRestaurants(context.Background(), domain.SearchParams{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer stale", header.Load())
	assert.Zero(t, tokens.redirectCalls.Load())
}

func TestPipelineHonoursInjectedClockAndMargin(t *testing.T) {
	tokens := newFakeTokenSource(port.Session{AccessToken: "t", ExpiresAt: time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC), Authenticated: true})
	tokens.next = tokens.session
	clock := func() time.Time { return time.Date(2030, 1, 1, 11, 55, 0, 0, time.UTC) }
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, emptySummaryPage)
	}), tokens, WithClock(clock), WithRefreshMargin(10*time.Minute))

	_, err := client.SearchRestaurants(context.Background(), domain.SearchParams{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), tokens.refreshCalls.Load())
}

func TestPipelineReplaysOnceAfterSuccessfulRefresh(t *testing.T) {
	var hits atomic.Int32
	tokens := newFakeTokenSource(authenticated("revoked", time.Hour))
	tokens.next = authenticated("renewed", time.Hour)
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Authorization") != "Bearer renewed" {
			writeJSON(w, http.StatusUnauthorized, `{"status":401,"message":"token expired"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"id":"r1","name":"Pho 99","averageRating":4.5,"photos":[],"reviews":[]}`)
	}), tokens)

	restaurant, err := client.GetRestaurant(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "Pho 99", restaurant.Name)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, int32(1), tokens.refreshCalls.Load())
	assert.Zero(t, tokens.redirectCalls.Load())
}

func TestPipelineReturnsSecondUnauthorizedWithoutAnotherCycle(t *testing.T) {
	var hits atomic.Int32
	tokens := newFakeTokenSource(authenticated("a", time.Hour))
	tokens.next = authenticated("b", time.Hour)
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusUnauthorized, `{"status":401,"message":"nope"}`)
	}), tokens)

	err := client.DeleteRestaurant(context.Background(), "r1")
	require.Error(t, err)
	assert.ErrorIs(t, err, port.ErrAuthExpired)
	assert.NotErrorIs(t, err, port.ErrSilentRefresh)
	assert.Equal(t, int32(2), hits.Load(), "exactly one replay")
	assert.Equal(t, int32(1), tokens.refreshCalls.Load())
	assert.Zero(t, tokens.redirectCalls.Load())

	var apiErr *port.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "nope", apiErr.Message)
}

func TestPipelineRedirectsWhenRecoveryRefreshFails(t *testing.T) {
	var hits atomic.Int32
	cause := errors.New("refresh token expired")
	tokens := newFakeTokenSource(authenticated("a", time.Hour))
	tokens.refreshErr = cause
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusUnauthorized, `{"status":401,"message":"expired"}`)
	}), tokens)

	_, err := client.GetReview(context.Background(), "r1", "v1")
	require.Error(t, err)
	assert.ErrorIs(t, err, port.ErrAuthExpired)
	assert.ErrorIs(t, err, port.ErrSilentRefresh)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, int32(1), hits.Load(), "no replay without a new token")
	assert.Equal(t, int32(1), tokens.redirectCalls.Load())
	assert.Equal(t, http.StatusUnauthorized, port.StatusOf(err))
}

func TestPipelineDoesNotRetryOtherFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    error
		message string
	}{
		{name: "validation", status: http.StatusBadRequest, body: `{"status":400,"message":"Name is required"}`, kind: port.ErrClient, message: "Name is required"},
		{name: "forbidden", status: http.StatusForbidden, body: ``, kind: port.ErrClient, message: ""},
		{name: "not found", status: http.StatusNotFound, body: `{"status":404,"message":"Restaurant not found"}`, kind: port.ErrClient, message: "Restaurant not found"},
		{name: "server", status: http.StatusInternalServerError, body: `boom`, kind: port.ErrServer, message: "boom"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var hits atomic.Int32
			tokens := newFakeTokenSource(authenticated("a", time.Hour))
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				writeJSON(w, test.status, test.body)
			}), tokens)

			_, err := client.CreateRestaurant(context.Background(), domain.CreateRestaurantRequest{Name: "x"})
			require.Error(t, err)
			assert.ErrorIs(t, err, test.kind)
			var apiErr *port.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, test.status, apiErr.Status)
			assert.Equal(t, test.message, apiErr.Message)
			assert.Equal(t, int32(1), hits.Load())
			assert.Zero(t, tokens.refreshCalls.Load())
		})
	}
}

func TestPipelineCoalescesConcurrentRefreshes(t *testing.T) {
	const callers = 5
	var oldTokenHits atomic.Int32
	tokens := newFakeTokenSource(authenticated("old", time.Hour))
	tokens.next = authenticated("new", time.Hour)
	tokens.gate = make(chan struct{})
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer old" {
			oldTokenHits.Add(1)
			writeJSON(w, http.StatusUnauthorized, `{}`)
			return
		}
		writeJSON(w, http.StatusOK, emptySummaryPage)
	}), tokens)

	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.SearchRestaurants(context.Background(), domain.SearchParams{})
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return oldTokenHits.Load() == callers }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	close(tokens.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), tokens.refreshCalls.Load())
}

func TestPipelineCancelledCallerStopsWaitingForRefresh(t *testing.T) {
	tokens := newFakeTokenSource(authenticated("old", 5*time.Second))
	tokens.gate = make(chan struct{})
	t.Cleanup(func() { close(tokens.gate) })
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, emptySummaryPage)
	}), tokens)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.SearchRestaurants(ctx, domain.SearchParams{})
	require.Error(t, err)
	assert.ErrorIs(t, err, port.ErrTransport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPipelineCancelledRecoveryDoesNotRedirect(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	tokens := newFakeTokenSource(authenticated("old", time.Hour))
	tokens.gate = make(chan struct{})
	t.Cleanup(func() { close(tokens.gate) })
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{}`)
	}), tokens, WithMetrics(metrics))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := client.GetRestaurant(ctx, "r1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, port.ErrTransport)
	assert.NotErrorIs(t, err, port.ErrAuthExpired)
	assert.NotErrorIs(t, err, port.ErrSilentRefresh)
	assert.Zero(t, tokens.redirectCalls.Load())
	assert.Zero(t, testutil.ToFloat64(metrics.redirects))
	assert.Zero(t, testutil.ToFloat64(metrics.refreshes.WithLabelValues(triggerRecovery, "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.refreshes.WithLabelValues(triggerRecovery, "abandoned")))
}

func TestPipelineTransportFailure(t *testing.T) {
	tokens := newFakeTokenSource(port.Session{})
	client, srv := newTestClient(t, http.NotFoundHandler(), tokens)
	srv.Close()

	_, err := client.GetRestaurant(context.Background(), "r1")
	require.Error(t, err)
	assert.ErrorIs(t, err, port.ErrTransport)
	assert.Zero(t, port.StatusOf(err))
}

func TestPipelineRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	tokens := newFakeTokenSource(authenticated("a", time.Hour))
	tokens.refreshErr = errors.New("denied")
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{}`)
	}), tokens, WithMetrics(metrics))

	_, err := client.GetRestaurant(context.Background(), "r1")
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("GetRestaurant", "4xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.refreshes.WithLabelValues(triggerRecovery, "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.redirects))
}
