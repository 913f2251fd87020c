package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/phrazzld/scribe-api/internal/domain"
	"github.com/phrazzld/scribe-api/internal/export/docx"
	"github.com/phrazzld/scribe-api/internal/platform/logger"
	"github.com/phrazzld/scribe-api/internal/store"
	"github.com/phrazzld/scribe-api/internal/task"
)

// Config holds the limits applied to submissions.
type Config struct {
	// MaxParallel is the default and the upper bound for a batch's worker count.
	MaxParallel int
}

// RejectedRequest reports a request that failed validation.
type RejectedRequest struct {
	Index  int                 `json:"index"`
	Errors []domain.FieldError `json:"errors"`
}

// BatchReceipt describes an accepted submission.
type BatchReceipt struct {
	BatchID  uuid.UUID         `json:"batchId"`
	TaskIDs  []uuid.UUID       `json:"taskIds"`
	Workers  int               `json:"workers"`
	Rejected []RejectedRequest `json:"rejected,omitempty"`
}

// BatchService runs batches in the background and keeps the request behind
// every task so it can be retried.
type BatchService struct {
	runner   *task.Runner
	registry *task.Registry
	blogs    store.BlogStore
	config   Config
	logger   *slog.Logger

	// ctx outlives individual requests; Shutdown cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closed   bool
	requests map[uuid.UUID]domain.BlogRequest
	batches  sync.WaitGroup
}

// NewBatchService creates a BatchService. The runner's sink should write to
// blogs so that generated artifacts are visible through the service.
func NewBatchService(
	runner *task.Runner,
	blogs store.BlogStore,
	config Config,
	log *slog.Logger,
) (*BatchService, error) {
	if runner == nil {
		return nil, &BatchServiceError{
			Operation: "create_service",
			Message:   "runner cannot be nil",
		}
	}
	if blogs == nil {
		return nil, &BatchServiceError{
			Operation: "create_service",
			Message:   "blogs cannot be nil",
		}
	}
	if log == nil {
		log = slog.Default()
	}
	if config.MaxParallel <= 0 {
		config.MaxParallel = task.DefaultRunnerConfig().DefaultConcurrency
	}

	log = log.With("component", "batch_service")
	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), log))

	return &BatchService{
		runner:   runner,
		registry: runner.Registry(),
		blogs:    blogs,
		config:   config,
		logger:   log,
		ctx:      ctx,
		cancel:   cancel,
		requests: make(map[uuid.UUID]domain.BlogRequest),
	}, nil
}

// SubmitBatch validates reqs and starts the valid ones in the background.
// Invalid requests are reported in the receipt and skipped. An empty reqs
// yields an empty, already finished batch. concurrency is clamped to
// [1, MaxParallel]; zero or less means MaxParallel.
func (s *BatchService) SubmitBatch(
	ctx context.Context,
	reqs []domain.BlogRequest,
	concurrency int,
) (*BatchReceipt, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	valid := make([]domain.BlogRequest, 0, len(reqs))
	var rejected []RejectedRequest
	for i, req := range reqs {
		result := domain.ValidateRequest(req)
		if !result.Valid() {
			rejected = append(rejected, RejectedRequest{Index: i, Errors: result.Errors})
			continue
		}
		valid = append(valid, *result.Request)
	}
	if len(valid) == 0 && len(reqs) > 0 {
		log.Warn("batch rejected",
			slog.Int("requests", len(reqs)),
			slog.Int("rejected", len(rejected)))
		return &BatchReceipt{Rejected: rejected}, ErrNoValidRequests
	}

	if concurrency <= 0 || concurrency > s.config.MaxParallel {
		concurrency = s.config.MaxParallel
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrServiceClosed
	}
	s.batches.Add(1)
	batch := s.runner.Start(s.ctx, valid, concurrency)
	for i, id := range batch.TaskIDs {
		s.requests[id] = batch.Requests[i]
	}
	s.mu.Unlock()

	go func() {
		defer s.batches.Done()
		batch.Wait()
	}()

	log.Info("batch submitted",
		slog.String("batch_id", batch.ID.String()),
		slog.Int("tasks", len(batch.TaskIDs)),
		slog.Int("rejected", len(rejected)),
		slog.Int("workers", batch.Workers))

	return &BatchReceipt{
		BatchID:  batch.ID,
		TaskIDs:  batch.TaskIDs,
		Workers:  batch.Workers,
		Rejected: rejected,
	}, nil
}

// SubmitEditions submits n copies of base as one batch.
func (s *BatchService) SubmitEditions(
	ctx context.Context,
	base domain.BlogRequest,
	n int,
	concurrency int,
) (*BatchReceipt, error) {
	reqs, err := domain.ExpandEditions(base, n)
	if err != nil {
		return nil, NewBatchServiceError("submit_editions", "invalid edition count", err)
	}
	return s.SubmitBatch(ctx, reqs, concurrency)
}

// Retry submits the request behind taskID again as a new single-task batch.
// The original task and its blog are left in place. Tasks that are still
// queued or generating cannot be retried.
func (s *BatchService) Retry(ctx context.Context, taskID uuid.UUID) (*BatchReceipt, error) {
	if t, ok := s.registry.Get(taskID); ok && !t.Status.IsTerminal() {
		return nil, ErrTaskInProgress
	}

	req, err := s.retryRequest(ctx, taskID)
	if err != nil {
		return nil, err
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("retrying task",
		slog.String("task_id", taskID.String()))
	return s.SubmitBatch(ctx, []domain.BlogRequest{req}, 1)
}

// retryRequest finds the request behind taskID, falling back to rebuilding it
// from the stored blog when the service did not submit it.
func (s *BatchService) retryRequest(ctx context.Context, taskID uuid.UUID) (domain.BlogRequest, error) {
	s.mu.Lock()
	req, ok := s.requests[taskID]
	s.mu.Unlock()
	if ok {
		return req, nil
	}

	blog, err := s.blogs.Get(ctx, taskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return domain.BlogRequest{}, ErrTaskNotFound
		}
		return domain.BlogRequest{}, NewBatchServiceError("retry_task", "failed to load blog", err)
	}
	return blog.RetryRequest(), nil
}

// RemoveTask forgets a task: its registry entry, its blog and its request.
// A task still generating finishes in the background and its result is
// discarded.
func (s *BatchService) RemoveTask(ctx context.Context, taskID uuid.UUID) error {
	_, tracked := s.registry.Get(taskID)
	s.registry.Remove(ctx, taskID)

	s.mu.Lock()
	_, remembered := s.requests[taskID]
	delete(s.requests, taskID)
	s.mu.Unlock()

	stored := true
	if err := s.blogs.Delete(ctx, taskID); err != nil {
		if !store.IsNotFoundError(err) {
			return NewBatchServiceError("remove_task", "failed to delete blog", err)
		}
		stored = false
	}

	if !tracked && !remembered && !stored {
		return ErrTaskNotFound
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("task removed",
		slog.String("task_id", taskID.String()))
	return nil
}

// ClearAll removes every tracked task and every stored blog. It returns the
// number of blogs deleted.
func (s *BatchService) ClearAll(ctx context.Context) (int, error) {
	for _, t := range s.registry.Snapshot().Tasks {
		s.registry.Remove(ctx, t.ID)
	}

	s.mu.Lock()
	clear(s.requests)
	s.mu.Unlock()

	blogs, err := s.blogs.List(ctx)
	if err != nil {
		return 0, NewBatchServiceError("clear_all", "failed to list blogs", err)
	}
	deleted := 0
	for _, blog := range blogs {
		if err := s.blogs.Delete(ctx, blog.ID); err != nil {
			if store.IsNotFoundError(err) {
				continue
			}
			return deleted, NewBatchServiceError("clear_all", "failed to delete blog", err)
		}
		deleted++
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("cleared all tasks and blogs",
		slog.Int("blogs", deleted))
	return deleted, nil
}

// Snapshot returns the current state of every tracked task.
func (s *BatchService) Snapshot() task.Snapshot {
	return s.registry.Snapshot()
}

// Blogs returns every stored blog, newest first.
func (s *BatchService) Blogs(ctx context.Context) ([]*domain.GeneratedBlog, error) {
	blogs, err := s.blogs.List(ctx)
	if err != nil {
		return nil, NewBatchServiceError("list_blogs", "failed to list blogs", err)
	}
	return blogs, nil
}

// Blog returns the blog generated by taskID.
func (s *BatchService) Blog(ctx context.Context, id uuid.UUID) (*domain.GeneratedBlog, error) {
	blog, err := s.blogs.Get(ctx, id)
	if err != nil {
		return nil, NewBatchServiceError("get_blog", "failed to get blog", err)
	}
	return blog, nil
}

// ExportDocx renders every stored blog, newest first, into a Word document.
func (s *BatchService) ExportDocx(ctx context.Context) ([]byte, int, error) {
	blogs, err := s.Blogs(ctx)
	if err != nil {
		return nil, 0, err
	}
	if len(blogs) == 0 {
		return nil, 0, ErrNothingToExport
	}

	values := make([]domain.GeneratedBlog, len(blogs))
	for i, b := range blogs {
		values[i] = *b
	}
	data, err := docx.Export(values)
	if err != nil {
		return nil, 0, NewBatchServiceError("export_docx", "failed to build document", err)
	}
	return data, len(values), nil
}

// Wait blocks until every submitted batch has finished.
func (s *BatchService) Wait() {
	s.batches.Wait()
}

// Shutdown stops accepting batches, cancels the running ones and waits for
// their workers to exit or for ctx to end, whichever comes first. Tasks that
// were never claimed are marked failed.
func (s *BatchService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.batches.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("batch service stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("batch service shutdown timed out", slog.String("error", ctx.Err().Error()))
		return errors.Join(ErrServiceClosed, ctx.Err())
	}
}
