package store

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/phrazzld/scribe-api/internal/domain"
)

// MemoryBlogStore keeps blogs in process memory. It is safe for concurrent use.
type MemoryBlogStore struct {
	mu    sync.RWMutex
	blogs map[uuid.UUID]*domain.GeneratedBlog
}

var _ BlogStore = (*MemoryBlogStore)(nil)

// NewMemoryBlogStore creates an empty MemoryBlogStore.
func NewMemoryBlogStore() *MemoryBlogStore {
	return &MemoryBlogStore{blogs: make(map[uuid.UUID]*domain.GeneratedBlog)}
}

// Save implements BlogStore.
func (s *MemoryBlogStore) Save(_ context.Context, blog *domain.GeneratedBlog) error {
	if blog == nil {
		return fmt.Errorf("%w: blog cannot be nil", ErrInvalidEntity)
	}
	if err := blog.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.blogs[blog.ID]; exists {
		return fmt.Errorf("%w: %s", ErrBlogExists, blog.ID)
	}
	s.blogs[blog.ID] = cloneBlog(blog)
	return nil
}

// Get implements BlogStore.
func (s *MemoryBlogStore) Get(_ context.Context, id uuid.UUID) (*domain.GeneratedBlog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blog, ok := s.blogs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlogNotFound, id)
	}
	return cloneBlog(blog), nil
}

// List implements BlogStore.
func (s *MemoryBlogStore) List(_ context.Context) ([]*domain.GeneratedBlog, error) {
	s.mu.RLock()
	blogs := make([]*domain.GeneratedBlog, 0, len(s.blogs))
	for _, b := range s.blogs {
		blogs = append(blogs, cloneBlog(b))
	}
	s.mu.RUnlock()

	SortNewestFirst(blogs)
	return blogs, nil
}

// Delete implements BlogStore.
func (s *MemoryBlogStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blogs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrBlogNotFound, id)
	}
	delete(s.blogs, id)
	return nil
}

// SortNewestFirst orders blogs by creation time, newest first, breaking ties
// by ID so the order is stable.
func SortNewestFirst(blogs []*domain.GeneratedBlog) {
	slices.SortFunc(blogs, func(a, b *domain.GeneratedBlog) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
}

func cloneBlog(b *domain.GeneratedBlog) *domain.GeneratedBlog {
	c := *b
	c.SecondaryKeywords = slices.Clone(b.SecondaryKeywords)
	c.Meta.Keywords = slices.Clone(b.Meta.Keywords)
	return &c
}
