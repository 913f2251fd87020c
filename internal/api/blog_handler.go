package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/scribe-api/internal/api/shared"
	"github.com/phrazzld/scribe-api/internal/domain"
	"github.com/phrazzld/scribe-api/internal/export/docx"
	"github.com/phrazzld/scribe-api/internal/metrics"
	"github.com/phrazzld/scribe-api/internal/platform/logger"
	"github.com/phrazzld/scribe-api/internal/service"
)

// BlogReader is the part of service.BatchService that serves generated blogs.
type BlogReader interface {
	Blogs(ctx context.Context) ([]*domain.GeneratedBlog, error)
	Blog(ctx context.Context, id uuid.UUID) (*domain.GeneratedBlog, error)
	ExportDocx(ctx context.Context) ([]byte, int, error)
}

var _ BlogReader = (*service.BatchService)(nil)

// BlogHandler serves generated blogs and their export.
type BlogHandler struct {
	blogs   BlogReader
	metrics *metrics.Metrics
	now     func() time.Time
	logger  *slog.Logger
}

// NewBlogHandler creates a BlogHandler. m may be nil.
func NewBlogHandler(blogs BlogReader, m *metrics.Metrics, log *slog.Logger) *BlogHandler {
	if log == nil {
		log = slog.Default()
	}
	return &BlogHandler{
		blogs:   blogs,
		metrics: m,
		now:     time.Now,
		logger:  log.With("component", "blog_handler"),
	}
}

// ListBlogs handles GET /api/blogs.
func (h *BlogHandler) ListBlogs(w http.ResponseWriter, r *http.Request) {
	blogs, err := h.blogs.Blogs(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list blogs")
		return
	}
	if blogs == nil {
		blogs = []*domain.GeneratedBlog{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, blogs)
}

// GetBlog handles GET /api/blogs/{id}.
func (h *BlogHandler) GetBlog(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	blog, err := h.blogs.Blog(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get blog")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, blog)
}

// ExportDocx handles GET /api/export/docx.
func (h *BlogHandler) ExportDocx(w http.ResponseWriter, r *http.Request) {
	data, n, err := h.blogs.ExportDocx(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to export blogs")
		return
	}
	if h.metrics != nil {
		h.metrics.BlogExportsTotal.Inc()
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("blogs exported", slog.Int("blogs", n))

	w.Header().Set("Content-Type", docx.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+docx.Filename(h.now())+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Warn("failed to write export", "error", err)
	}
}
