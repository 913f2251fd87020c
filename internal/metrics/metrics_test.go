package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scribe-api/internal/events"
)

func updated(id uuid.UUID, from, to string, d time.Duration) *events.TaskEvent {
	e := events.NewTaskEvent(events.TaskUpdated, id, "label", to)
	e.PreviousStatus = from
	e.Duration = d
	return e
}

func TestHandleEvent_Lifecycle(t *testing.T) {
	t.Parallel()
	m := New()
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	require.NoError(t, m.HandleEvent(ctx, events.NewTaskEvent(events.TaskInserted, a, "a", "queued")))
	require.NoError(t, m.HandleEvent(ctx, events.NewTaskEvent(events.TaskInserted, b, "b", "queued")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TasksCreatedTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TasksInFlight.WithLabelValues("queued")))

	require.NoError(t, m.HandleEvent(ctx, updated(a, "queued", "generating", 0)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksInFlight.WithLabelValues("queued")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksInFlight.WithLabelValues("generating")))

	require.NoError(t, m.HandleEvent(ctx, updated(a, "generating", "completed", 3*time.Second)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.TasksInFlight.WithLabelValues("generating")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksFinishedTotal.WithLabelValues("completed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.GenerationSeconds))

	require.NoError(t, m.HandleEvent(ctx, events.NewTaskEvent(events.TaskRemoved, b, "b", "queued")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.TasksInFlight.WithLabelValues("queued")))

	require.NoError(t, m.HandleEvent(ctx, events.NewTaskEvent(events.TaskRemoved, a, "a", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksFinishedTotal.WithLabelValues("completed")))
}

func TestHandleEvent_FailedWithoutStart(t *testing.T) {
	t.Parallel()
	m := New()
	id := uuid.New()

	require.NoError(t, m.HandleEvent(context.Background(), events.NewTaskEvent(events.TaskInserted, id, "x", "queued")))
	require.NoError(t, m.HandleEvent(context.Background(), updated(id, "queued", "failed", 0)))

	assert.Equal(t, 0.0, testutil.ToFloat64(m.TasksInFlight.WithLabelValues("queued")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksFinishedTotal.WithLabelValues("failed")))
	assert.Equal(t, 0, testutil.CollectAndCount(m.GenerationSeconds))
}

func TestHandler_ServesMetrics(t *testing.T) {
	t.Parallel()
	m := New()
	m.ObserveHTTP(http.MethodGet, "/api/tasks", http.StatusOK, 10*time.Millisecond)
	m.RateLimitHitsTotal.WithLabelValues("generate").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `scribe_http_requests_total{code="200",method="GET",route="/api/tasks"} 1`)
	assert.Contains(t, body, `scribe_rate_limit_hits_total{scope="generate"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
