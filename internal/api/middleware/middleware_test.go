package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scribe-api/internal/api/shared"
	"github.com/phrazzld/scribe-api/internal/metrics"
	"github.com/phrazzld/scribe-api/internal/platform/logger"
	"github.com/phrazzld/scribe-api/internal/ratelimit"
)

func TestTraceMiddleware(t *testing.T) {
	log, buf := logger.GetTestLogger(t)

	var seen string
	h := NewTraceMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
	}))

	t.Run("generates id", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Len(t, seen, 2*shared.TraceIDLength)
		assert.Equal(t, seen, rr.Header().Get(shared.TraceIDHeader))
		logger.AssertLogContains(t, buf, seen)
	})

	t.Run("reuses valid client id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(shared.TraceIDHeader, "client-trace-1234")
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "client-trace-1234", seen)
	})

	t.Run("replaces malformed client id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(shared.TraceIDHeader, "bad id\nwith newline")
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.NotEqual(t, "bad id\nwith newline", seen)
		assert.Len(t, seen, 2*shared.TraceIDLength)
	})
}

// mockLimiter is a ratelimit.Limiter with a scripted answer.
type mockLimiter struct {
	AllowFn func(ctx context.Context, scope, subject string, bucket ratelimit.Bucket) (ratelimit.Decision, error)

	mu       sync.Mutex
	subjects []string
}

func (m *mockLimiter) Allow(ctx context.Context, scope, subject string, bucket ratelimit.Bucket) (ratelimit.Decision, error) {
	m.mu.Lock()
	m.subjects = append(m.subjects, subject)
	m.mu.Unlock()
	return m.AllowFn(ctx, scope, subject, bucket)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiter(t *testing.T) {
	bucket := ratelimit.Bucket{RequestsPerMinute: 60, BurstSize: 1}

	t.Run("denied request gets 429", func(t *testing.T) {
		m := metrics.New()
		limiter := &mockLimiter{AllowFn: func(context.Context, string, string, ratelimit.Bucket) (ratelimit.Decision, error) {
			return ratelimit.Decision{Allowed: false, RetryAfter: 7 * time.Second}, nil
		}}
		h := NewRateLimiter(limiter, bucket, m, nil).Limit("generate")(okHandler())

		req := httptest.NewRequest(http.MethodPost, "/api/batches", nil)
		req.RemoteAddr = "203.0.113.9:5555"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.Equal(t, "7", rr.Header().Get("Retry-After"))
		assert.Equal(t, []string{"203.0.113.9"}, limiter.subjects)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.RateLimitHitsTotal.WithLabelValues("generate")))
	})

	t.Run("allowed request passes", func(t *testing.T) {
		limiter := &mockLimiter{AllowFn: func(context.Context, string, string, ratelimit.Bucket) (ratelimit.Decision, error) {
			return ratelimit.Decision{Allowed: true}, nil
		}}
		rr := httptest.NewRecorder()
		NewRateLimiter(limiter, bucket, nil, nil).Limit("generate")(okHandler()).
			ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("limiter failure fails open", func(t *testing.T) {
		limiter := &mockLimiter{AllowFn: func(context.Context, string, string, ratelimit.Bucket) (ratelimit.Decision, error) {
			return ratelimit.Decision{}, errors.New("redis down")
		}}
		rr := httptest.NewRecorder()
		NewRateLimiter(limiter, bucket, nil, nil).Limit("generate")(okHandler()).
			ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("disabled bucket skips limiter", func(t *testing.T) {
		limiter := &mockLimiter{AllowFn: func(context.Context, string, string, ratelimit.Bucket) (ratelimit.Decision, error) {
			t.Fatal("limiter should not be called")
			return ratelimit.Decision{}, nil
		}}
		rr := httptest.NewRecorder()
		NewRateLimiter(limiter, ratelimit.Bucket{}, nil, nil).Limit("generate")(okHandler()).
			ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("memory limiter end to end", func(t *testing.T) {
		h := NewRateLimiter(ratelimit.NewMemoryLimiter(), bucket, nil, nil).Limit("generate")(okHandler())
		codes := make([]int, 0, 2)
		for range 2 {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.RemoteAddr = "198.51.100.1:1000"
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			codes = append(codes, rr.Code)
		}
		assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
	})
}

type recordedRequest struct {
	method string
	route  string
	code   int
}

type fakeObserver struct {
	mu   sync.Mutex
	seen []recordedRequest
}

func (f *fakeObserver) ObserveHTTP(method, route string, code int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, recordedRequest{method, route, code})
}

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	obs := &fakeObserver{}
	r := chi.NewRouter()
	r.Use(NewMetricsMiddleware(obs))
	r.Get("/api/blogs/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/blogs/123", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Len(t, obs.seen, 2)
	assert.Equal(t, recordedRequest{http.MethodGet, "/api/blogs/{id}", http.StatusNotFound}, obs.seen[0])
	assert.Equal(t, recordedRequest{http.MethodGet, "/health", http.StatusOK}, obs.seen[1])
}
