package task

import "errors"

var (
	// ErrDuplicateTask is returned when inserting a task whose ID is already tracked.
	ErrDuplicateTask = errors.New("task already exists")

	// ErrTaskTerminal is returned when updating a task that already completed or failed.
	ErrTaskTerminal = errors.New("task is already in a terminal state")

	// ErrInvalidStatus is returned for a status outside the known set.
	ErrInvalidStatus = errors.New("invalid task status")

	// ErrInvalidTransition is returned when a started task is moved back to queued.
	ErrInvalidTransition = errors.New("invalid task status transition")

	// ErrNilRegistry is returned when a runner is built without a registry.
	ErrNilRegistry = errors.New("task registry cannot be nil")

	// ErrNilGenerator is returned when a runner is built without a generator.
	ErrNilGenerator = errors.New("generator cannot be nil")

	// ErrNilSink is returned when a runner is built without a result sink.
	ErrNilSink = errors.New("result sink cannot be nil")
)

// Messages recorded on tasks that never produced a generator error.
const (
	msgBatchCancelled   = "batch cancelled"
	msgGenerationFailed = "generation failed"
)
