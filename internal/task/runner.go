package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/scribe-api/internal/domain"
)

// RunnerConfig holds configuration for the batch runner
type RunnerConfig struct {
	// DefaultConcurrency is the worker limit used when a batch does not
	// request one.
	DefaultConcurrency int
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		DefaultConcurrency: 3,
	}
}

// WorkerCount returns how many workers a batch of n requests gets under the
// given limit: max(1, min(limit, n)). Empty batches get none.
func WorkerCount(limit, n int) int {
	if n <= 0 {
		return 0
	}
	return max(1, min(limit, n))
}

// Batch is a running set of tasks started together.
type Batch struct {
	// ID identifies the batch in logs and receipts
	ID uuid.UUID

	// TaskIDs holds one task per request, in submission order
	TaskIDs []uuid.UUID

	// Requests holds the request behind each entry of TaskIDs
	Requests []domain.BlogRequest

	// Workers is the number of workers draining the batch
	Workers int

	done chan struct{}
}

// Done is closed once every worker has exited and every task is terminal.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until the batch is done.
func (b *Batch) Wait() {
	<-b.done
}

// Runner dispatches batches of requests against a Generator, recording every
// task's lifecycle in a Registry.
type Runner struct {
	registry  *Registry
	generator Generator
	sink      ResultSink
	config    RunnerConfig
	logger    *slog.Logger
}

// NewRunner creates a Runner. All dependencies are required.
func NewRunner(
	registry *Registry,
	generator Generator,
	sink ResultSink,
	config RunnerConfig,
	logger *slog.Logger,
) (*Runner, error) {
	if registry == nil {
		return nil, ErrNilRegistry
	}
	if generator == nil {
		return nil, ErrNilGenerator
	}
	if sink == nil {
		return nil, ErrNilSink
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.DefaultConcurrency <= 0 {
		config.DefaultConcurrency = DefaultRunnerConfig().DefaultConcurrency
	}

	return &Runner{
		registry:  registry,
		generator: generator,
		sink:      sink,
		config:    config,
		logger:    logger.With("component", "batch_runner"),
	}, nil
}

// Registry returns the registry the runner records into.
func (r *Runner) Registry() *Registry {
	return r.registry
}

// Start creates one queued task per request, in order, and begins draining
// them in the background. Every task exists in the registry before Start
// returns. A concurrency of zero or less uses the configured default.
//
// Cancelling ctx stops workers from claiming further tasks; tasks that were
// never claimed are marked failed.
func (r *Runner) Start(ctx context.Context, reqs []domain.BlogRequest, concurrency int) *Batch {
	if concurrency <= 0 {
		concurrency = r.config.DefaultConcurrency
	}

	batch := &Batch{
		ID:       uuid.New(),
		TaskIDs:  make([]uuid.UUID, 0, len(reqs)),
		Requests: make([]domain.BlogRequest, 0, len(reqs)),
		done:     make(chan struct{}),
	}
	logger := r.logger.With("batch_id", batch.ID.String())

	// Inserted tasks line up with reqs by index.
	queued := make([]queuedRequest, 0, len(reqs))
	for i, req := range reqs {
		t := NewGenerationTask(req.Label(i))
		if err := r.registry.Insert(ctx, t); err != nil {
			logger.Error("failed to register task",
				slog.Int("index", i),
				slog.String("error", err.Error()))
			continue
		}
		batch.TaskIDs = append(batch.TaskIDs, t.ID)
		batch.Requests = append(batch.Requests, req)
		queued = append(queued, queuedRequest{taskID: t.ID, req: req})
	}

	batch.Workers = WorkerCount(concurrency, len(queued))
	if batch.Workers == 0 {
		close(batch.done)
		return batch
	}

	logger.Info("starting batch",
		slog.Int("tasks", len(queued)),
		slog.Int("workers", batch.Workers))

	var (
		cursor atomic.Int64
		wg     sync.WaitGroup
	)
	for i := 0; i < batch.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			r.worker(ctx, workerID, queued, &cursor, logger)
		}(i)
	}

	go func() {
		wg.Wait()
		r.failUnclaimed(ctx, queued, &cursor, logger)
		logger.Info("batch finished", slog.Int("tasks", len(queued)))
		close(batch.done)
	}()

	return batch
}

// Run starts a batch and waits for it to finish, returning its task IDs.
func (r *Runner) Run(ctx context.Context, reqs []domain.BlogRequest, concurrency int) []uuid.UUID {
	batch := r.Start(ctx, reqs, concurrency)
	batch.Wait()
	return batch.TaskIDs
}

type queuedRequest struct {
	taskID uuid.UUID
	req    domain.BlogRequest
}

// worker claims indices from the shared cursor until the batch is exhausted
// or ctx is cancelled.
func (r *Runner) worker(
	ctx context.Context,
	id int,
	queued []queuedRequest,
	cursor *atomic.Int64,
	logger *slog.Logger,
) {
	logger = logger.With("worker_id", id)
	logger.Debug("starting worker")

	for {
		if ctx.Err() != nil {
			logger.Debug("context cancelled, stopping worker")
			return
		}
		idx := int(cursor.Add(1) - 1)
		if idx >= len(queued) {
			logger.Debug("no work left, stopping worker")
			return
		}
		r.processTask(ctx, queued[idx], logger)
	}
}

func (r *Runner) processTask(ctx context.Context, q queuedRequest, logger *slog.Logger) {
	logger = logger.With("task_id", q.taskID.String())

	if _, ok := r.registry.Get(q.taskID); !ok {
		logger.Info("task removed before start, skipping")
		return
	}
	if err := r.registry.UpdateStatus(ctx, q.taskID, TaskStatusGenerating, ""); err != nil {
		logger.Error("failed to update task status to generating", "error", err)
		return
	}

	logger.Info("generating blog")
	start := time.Now()

	blog, err := r.generate(ctx, q.req)
	if err == nil && blog == nil {
		err = errors.New("generator returned no blog")
	}
	if err != nil {
		logger.Error("blog generation failed",
			"error", err,
			"elapsed", time.Since(start))
		if updateErr := r.registry.UpdateStatus(ctx, q.taskID, TaskStatusFailed, err.Error()); updateErr != nil {
			logger.Error("failed to update task status to failed", "error", updateErr)
		}
		return
	}

	blog.ID = q.taskID
	if blog.CreatedAt.IsZero() {
		blog.CreatedAt = time.Now()
	}

	if _, ok := r.registry.Get(q.taskID); !ok {
		logger.Info("task removed during generation, discarding result")
		return
	}
	r.sink.Accept(ctx, q.taskID, blog)
	if _, ok := r.registry.Get(q.taskID); !ok {
		if d, ok := r.sink.(ResultDiscarder); ok {
			d.Discard(ctx, q.taskID)
		}
		logger.Info("task removed while storing result, discarding")
		return
	}

	logger.Info("blog generated", "elapsed", time.Since(start))
	if updateErr := r.registry.UpdateStatus(ctx, q.taskID, TaskStatusCompleted, ""); updateErr != nil {
		logger.Error("failed to update task status to completed", "error", updateErr)
	}
}

// generate calls the generator, converting a panic into an error so one bad
// request cannot take down its worker.
func (r *Runner) generate(ctx context.Context, req domain.BlogRequest) (blog *domain.GeneratedBlog, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("generator panicked: %v", p)
		}
	}()
	return r.generator.Generate(ctx, req)
}

// failUnclaimed marks every task the workers never reached as failed.
func (r *Runner) failUnclaimed(
	ctx context.Context,
	queued []queuedRequest,
	cursor *atomic.Int64,
	logger *slog.Logger,
) {
	claimed := min(int(cursor.Load()), len(queued))
	if claimed == len(queued) {
		return
	}

	logger.Warn("batch cancelled before all tasks started",
		slog.Int("unclaimed", len(queued)-claimed))

	// ctx is already cancelled; notifications still need to reach observers.
	notifyCtx := context.WithoutCancel(ctx)
	for _, q := range queued[claimed:] {
		if err := r.registry.UpdateStatus(notifyCtx, q.taskID, TaskStatusFailed, msgBatchCancelled); err != nil {
			logger.Error("failed to mark unclaimed task failed",
				"task_id", q.taskID.String(),
				"error", err)
		}
	}
}
