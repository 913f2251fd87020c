package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/phrazzld/scribe-api/internal/domain"
)

// BlogStore persists generated blogs.
type BlogStore interface {
	// Save stores a new blog. Returns ErrBlogExists if the ID is taken and
	// ErrInvalidEntity if the blog fails validation.
	Save(ctx context.Context, blog *domain.GeneratedBlog) error

	// Get retrieves a blog by ID. Returns ErrBlogNotFound if it does not exist.
	Get(ctx context.Context, id uuid.UUID) (*domain.GeneratedBlog, error)

	// List returns every stored blog, newest first.
	List(ctx context.Context) ([]*domain.GeneratedBlog, error)

	// Delete removes a blog. Returns ErrBlogNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}
