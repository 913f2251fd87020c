package task

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/scribe-api/internal/domain"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusGenerating TaskStatus = "generating"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []TaskStatus{
	TaskStatusQueued,
	TaskStatusGenerating,
	TaskStatusCompleted,
	TaskStatusFailed,
}

// IsValid reports whether s is a known status.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusQueued, TaskStatusGenerating, TaskStatusCompleted, TaskStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether s is a status from which no transition occurs.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// GenerationTask is the tracked lifecycle record for one generation request.
//
// StartedAt is nil exactly while the task is queued. CompletedAt is set
// exactly when the task is terminal. Error is non-empty only for failed tasks.
type GenerationTask struct {
	ID          uuid.UUID  `json:"id"`
	Label       string     `json:"label"`
	Status      TaskStatus `json:"status"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// NewGenerationTask creates a queued task with a fresh ID.
func NewGenerationTask(label string) GenerationTask {
	return GenerationTask{
		ID:        uuid.New(),
		Label:     label,
		Status:    TaskStatusQueued,
		CreatedAt: time.Now(),
	}
}

// Duration is the time spent between start and completion, or zero while
// the task is unfinished.
func (t GenerationTask) Duration() time.Duration {
	if t.StartedAt == nil || t.CompletedAt == nil {
		return 0
	}
	return t.CompletedAt.Sub(*t.StartedAt)
}

// Generator turns one request into a generated blog. Implementations must
// honour ctx cancellation.
type Generator interface {
	Generate(ctx context.Context, req domain.BlogRequest) (*domain.GeneratedBlog, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, req domain.BlogRequest) (*domain.GeneratedBlog, error)

// Generate calls f(ctx, req).
func (f GeneratorFunc) Generate(ctx context.Context, req domain.BlogRequest) (*domain.GeneratedBlog, error) {
	return f(ctx, req)
}

// ResultSink receives every successfully generated blog. Accept is called
// before the owning task is marked completed and must not fail the task.
type ResultSink interface {
	Accept(ctx context.Context, taskID uuid.UUID, blog *domain.GeneratedBlog)
}

// ResultDiscarder is implemented by sinks that can take back a result whose
// task was removed while the result was being stored.
type ResultDiscarder interface {
	Discard(ctx context.Context, taskID uuid.UUID)
}

// ResultSinkFunc adapts a plain function to ResultSink.
type ResultSinkFunc func(ctx context.Context, taskID uuid.UUID, blog *domain.GeneratedBlog)

// Accept calls f(ctx, taskID, blog).
func (f ResultSinkFunc) Accept(ctx context.Context, taskID uuid.UUID, blog *domain.GeneratedBlog) {
	f(ctx, taskID, blog)
}
