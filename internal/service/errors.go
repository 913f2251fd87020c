package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/scribe-api/internal/domain"
	"github.com/phrazzld/scribe-api/internal/export/docx"
	"github.com/phrazzld/scribe-api/internal/store"
)

// Common sentinel errors for BatchService
var (
	// ErrNoValidRequests indicates that every request in a submission was rejected.
	ErrNoValidRequests = errors.New("no valid blog requests")

	// ErrTaskNotFound indicates that the task is neither tracked nor stored.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskInProgress indicates that a task cannot be retried while it is
	// still queued or generating.
	ErrTaskInProgress = errors.New("task is still in progress")

	// ErrBlogNotFound indicates that no generated blog has the given ID.
	ErrBlogNotFound = errors.New("blog not found")

	// ErrNothingToExport indicates the export was requested with no blogs.
	ErrNothingToExport = errors.New("no blogs to export")

	// ErrServiceClosed indicates the service has been shut down.
	ErrServiceClosed = errors.New("batch service is shut down")
)

// BatchServiceError wraps errors from the batch service with context.
type BatchServiceError struct {
	// Operation is the operation that failed (e.g., "submit_batch", "remove_task")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for BatchServiceError.
func (e *BatchServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("batch service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("batch service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *BatchServiceError) Unwrap() error {
	return e.Err
}

// NewBatchServiceError creates a new BatchServiceError.
// Known sentinel errors are returned directly, with store and export
// sentinels mapped to their service-level equivalents.
func NewBatchServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrNoValidRequests),
		errors.Is(err, ErrTaskNotFound),
		errors.Is(err, ErrTaskInProgress),
		errors.Is(err, ErrServiceClosed),
		errors.Is(err, domain.ErrInvalidEditionCount):
		return err
	case errors.Is(err, ErrBlogNotFound), errors.Is(err, store.ErrBlogNotFound):
		return ErrBlogNotFound
	case errors.Is(err, ErrNothingToExport), errors.Is(err, docx.ErrNothingToExport):
		return ErrNothingToExport
	}

	return &BatchServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
