package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TaskEventType identifies what happened to a task.
type TaskEventType string

// Task event types
const (
	TaskInserted TaskEventType = "task.inserted"
	TaskUpdated  TaskEventType = "task.updated"
	TaskRemoved  TaskEventType = "task.removed"
)

// TaskEvent describes one change to a tracked task. Statuses are carried as
// plain strings so this package stays free of task package imports.
type TaskEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	Type   TaskEventType `json:"type"`
	TaskID uuid.UUID     `json:"task_id"`
	Label  string        `json:"label"`

	// Status is the status after the change; PreviousStatus is empty for inserts.
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status,omitempty"`

	// Error is the failure message recorded on the task, if any
	Error string `json:"error,omitempty"`

	// Duration is the time spent generating, set once the task reaches a
	// terminal status.
	Duration time.Duration `json:"duration,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// NewTaskEvent creates a TaskEvent stamped with a fresh ID and the current time.
func NewTaskEvent(eventType TaskEventType, taskID uuid.UUID, label, status string) *TaskEvent {
	return &TaskEvent{
		ID:         uuid.New(),
		Type:       eventType,
		TaskID:     taskID,
		Label:      label,
		Status:     status,
		OccurredAt: time.Now(),
	}
}

// EventHandler defines an interface for components that react to task events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// HandlerFunc adapts a plain function to EventHandler.
type HandlerFunc func(ctx context.Context, event *TaskEvent) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event *TaskEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows the registry to publish changes without knowing its observers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}

// NoopEmitter discards every event.
type NoopEmitter struct{}

// EmitEvent implements EventEmitter.
func (NoopEmitter) EmitEvent(context.Context, *TaskEvent) error { return nil }
