package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/scribe-api/internal/domain"
	"github.com/phrazzld/scribe-api/internal/platform/logger"
	"github.com/phrazzld/scribe-api/internal/store"
	"github.com/phrazzld/scribe-api/internal/task"
)

// BlogSink stores every blog the runner produces.
type BlogSink struct {
	blogs  store.BlogStore
	logger *slog.Logger
}

var (
	_ task.ResultSink      = (*BlogSink)(nil)
	_ task.ResultDiscarder = (*BlogSink)(nil)
)

// NewBlogSink creates a BlogSink writing to blogs.
func NewBlogSink(blogs store.BlogStore, log *slog.Logger) (*BlogSink, error) {
	if blogs == nil {
		return nil, &BatchServiceError{
			Operation: "create_sink",
			Message:   "blogs cannot be nil",
		}
	}
	if log == nil {
		log = slog.Default()
	}
	return &BlogSink{
		blogs:  blogs,
		logger: log.With("component", "blog_sink"),
	}, nil
}

// Accept saves blog. Failures are logged; the task still completes because
// the generation itself succeeded.
func (s *BlogSink) Accept(ctx context.Context, taskID uuid.UUID, blog *domain.GeneratedBlog) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// The batch may be cancelled between generation and save; the result is
	// kept regardless.
	if err := s.blogs.Save(context.WithoutCancel(ctx), blog); err != nil {
		log.Error("failed to store generated blog",
			slog.String("task_id", taskID.String()),
			slog.String("error", err.Error()))
		return
	}
	log.Debug("stored generated blog", slog.String("task_id", taskID.String()))
}

// Discard deletes the blog stored for taskID. A missing blog is not an error.
func (s *BlogSink) Discard(ctx context.Context, taskID uuid.UUID) {
	err := s.blogs.Delete(context.WithoutCancel(ctx), taskID)
	if err != nil && !store.IsNotFoundError(err) {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to discard generated blog",
			slog.String("task_id", taskID.String()),
			slog.String("error", err.Error()))
	}
}
