package task

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/scribe-api/internal/events"
)

// Snapshot is a consistent copy of every tracked task, ordered by creation.
type Snapshot struct {
	Tasks   []GenerationTask   `json:"tasks"`
	Counts  map[TaskStatus]int `json:"counts"`
	TakenAt time.Time          `json:"takenAt"`
}

// Active reports whether any task in the snapshot is still queued or generating.
func (s Snapshot) Active() bool {
	return s.Counts[TaskStatusQueued]+s.Counts[TaskStatusGenerating] > 0
}

// Registry holds the lifecycle state of every task in a session. It is safe
// for concurrent use; changes are published to the emitter after the lock is
// released so handlers may read the registry.
type Registry struct {
	mu      sync.RWMutex
	tasks   map[uuid.UUID]*GenerationTask
	order   []uuid.UUID
	emitter events.EventEmitter
	logger  *slog.Logger
	now     func() time.Time
}

// NewRegistry creates an empty registry. A nil emitter discards events.
func NewRegistry(emitter events.EventEmitter, logger *slog.Logger) *Registry {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tasks:   make(map[uuid.UUID]*GenerationTask),
		emitter: emitter,
		logger:  logger.With("component", "task_registry"),
		now:     time.Now,
	}
}

// Insert starts tracking t. The task must be queued.
func (r *Registry) Insert(ctx context.Context, t GenerationTask) error {
	if t.Status == "" {
		t.Status = TaskStatusQueued
	}
	if t.Status != TaskStatusQueued {
		return fmt.Errorf("%w: new tasks must be %s, got %s", ErrInvalidStatus, TaskStatusQueued, t.Status)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.now()
	}
	t.Error = ""
	t.StartedAt = nil
	t.CompletedAt = nil

	r.mu.Lock()
	if _, exists := r.tasks[t.ID]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateTask, t.ID)
	}
	stored := t
	r.tasks[t.ID] = &stored
	r.order = append(r.order, t.ID)
	r.mu.Unlock()

	r.emit(ctx, events.NewTaskEvent(events.TaskInserted, t.ID, t.Label, string(t.Status)))
	return nil
}

// UpdateStatus moves a task to status. Updating an unknown ID is a no-op so
// late writers never resurrect removed tasks. errMsg is recorded only for
// failed tasks.
func (r *Registry) UpdateStatus(ctx context.Context, id uuid.UUID, status TaskStatus, errMsg string) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	r.mu.Lock()
	t, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		r.logger.Debug("status update for unknown task ignored",
			slog.String("task_id", id.String()),
			slog.String("status", string(status)))
		return nil
	}
	if t.Status.IsTerminal() {
		current := t.Status
		r.mu.Unlock()
		return fmt.Errorf("%w: task %s is %s", ErrTaskTerminal, id, current)
	}
	if status == TaskStatusQueued && t.Status != TaskStatusQueued {
		current := t.Status
		r.mu.Unlock()
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current, status)
	}

	previous := t.Status
	now := r.now()
	t.Status = status
	if status != TaskStatusQueued && t.StartedAt == nil {
		t.StartedAt = &now
	}
	if status.IsTerminal() {
		completed := now
		if completed.Before(*t.StartedAt) {
			completed = *t.StartedAt
		}
		t.CompletedAt = &completed
	}
	if status == TaskStatusFailed {
		if errMsg == "" {
			errMsg = msgGenerationFailed
		}
		t.Error = errMsg
	} else {
		t.Error = ""
	}

	event := events.NewTaskEvent(events.TaskUpdated, t.ID, t.Label, string(t.Status))
	event.PreviousStatus = string(previous)
	event.Error = t.Error
	event.Duration = t.Duration()
	r.mu.Unlock()

	r.emit(ctx, event)
	return nil
}

// Remove stops tracking a task. Removing an unknown ID is a no-op.
func (r *Registry) Remove(ctx context.Context, id uuid.UUID) {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.tasks, id)
	r.order = slices.DeleteFunc(r.order, func(other uuid.UUID) bool { return other == id })
	event := events.NewTaskEvent(events.TaskRemoved, t.ID, t.Label, string(t.Status))
	r.mu.Unlock()

	r.emit(ctx, event)
}

// Get returns a copy of the task with the given ID.
func (r *Registry) Get(id uuid.UUID) (GenerationTask, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return GenerationTask{}, false
	}
	return *t, true
}

// Len returns the number of tracked tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Snapshot returns a copy of every task in creation order together with
// per-status counts.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		Tasks:   make([]GenerationTask, 0, len(r.order)),
		Counts:  make(map[TaskStatus]int, len(AllStatuses)),
		TakenAt: r.now(),
	}
	for _, s := range AllStatuses {
		snap.Counts[s] = 0
	}
	for _, id := range r.order {
		t := r.tasks[id]
		snap.Tasks = append(snap.Tasks, *t)
		snap.Counts[t.Status]++
	}
	return snap
}

func (r *Registry) emit(ctx context.Context, event *events.TaskEvent) {
	if err := r.emitter.EmitEvent(ctx, event); err != nil {
		r.logger.Warn("task event handler failed",
			slog.String("task_id", event.TaskID.String()),
			slog.String("event_type", string(event.Type)),
			slog.String("error", err.Error()))
	}
}
