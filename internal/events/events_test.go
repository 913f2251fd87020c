package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewTaskEvent(t *testing.T) {
	taskID := uuid.New()

	event := NewTaskEvent(TaskUpdated, taskID, "label", "generating")

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, TaskUpdated, event.Type)
	assert.Equal(t, taskID, event.TaskID)
	assert.Equal(t, "label", event.Label)
	assert.Equal(t, "generating", event.Status)
	assert.Empty(t, event.PreviousStatus)
	assert.WithinDuration(t, time.Now(), event.OccurredAt, 2*time.Second)
}

// MockEventHandler implements the EventHandler interface for testing
type MockEventHandler struct {
	mu sync.Mutex
	// The last event received by this handler
	LastEvent *TaskEvent
	// Error to return from HandleEvent
	HandlerError error
	// Count of events handled
	HandledCount int
}

// HandleEvent implements the EventHandler interface
func (h *MockEventHandler) HandleEvent(ctx context.Context, event *TaskEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.LastEvent = event
	h.HandledCount++
	return h.HandlerError
}

func TestHandlerFunc(t *testing.T) {
	var got *TaskEvent
	handler := HandlerFunc(func(_ context.Context, e *TaskEvent) error {
		got = e
		return errors.New("boom")
	})

	event := NewTaskEvent(TaskRemoved, uuid.New(), "x", "completed")
	err := handler.HandleEvent(context.Background(), event)

	assert.EqualError(t, err, "boom")
	assert.Same(t, event, got)
}

func TestNoopEmitter(t *testing.T) {
	var emitter EventEmitter = NoopEmitter{}
	assert.NoError(t, emitter.EmitEvent(context.Background(), NewTaskEvent(TaskInserted, uuid.New(), "", "queued")))
}
