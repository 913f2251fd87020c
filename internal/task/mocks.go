package task

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/phrazzld/scribe-api/internal/domain"
)

// MockGenerator is a Generator for tests. GenerateFn defaults to returning a
// minimal blog built from the request.
type MockGenerator struct {
	GenerateFn func(ctx context.Context, req domain.BlogRequest) (*domain.GeneratedBlog, error)

	mu    sync.Mutex
	calls []domain.BlogRequest
}

// NewMockGenerator creates a MockGenerator that always succeeds.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{
		GenerateFn: func(_ context.Context, req domain.BlogRequest) (*domain.GeneratedBlog, error) {
			return &domain.GeneratedBlog{
				Title:          req.Label(0),
				HTML:           "<p>" + req.PrimaryKeyword + "</p>",
				PrimaryKeyword: req.PrimaryKeyword,
				BacklinkURL:    req.BacklinkURL,
				Tone:           req.Tone,
				WordCount:      req.WordCount,
			}, nil
		},
	}
}

// Generate implements Generator.
func (m *MockGenerator) Generate(ctx context.Context, req domain.BlogRequest) (*domain.GeneratedBlog, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	return m.GenerateFn(ctx, req)
}

// Calls returns the requests seen so far.
func (m *MockGenerator) Calls() []domain.BlogRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.BlogRequest(nil), m.calls...)
}

// RecordingSink is a ResultSink that keeps every accepted blog.
type RecordingSink struct {
	mu    sync.Mutex
	blogs map[uuid.UUID]*domain.GeneratedBlog
}

// NewRecordingSink creates an empty RecordingSink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{blogs: make(map[uuid.UUID]*domain.GeneratedBlog)}
}

// Accept implements ResultSink.
func (s *RecordingSink) Accept(_ context.Context, taskID uuid.UUID, blog *domain.GeneratedBlog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blogs[taskID] = blog
}

// Discard implements ResultDiscarder.
func (s *RecordingSink) Discard(_ context.Context, taskID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blogs, taskID)
}

// Blog returns the blog accepted for taskID.
func (s *RecordingSink) Blog(taskID uuid.UUID) (*domain.GeneratedBlog, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blogs[taskID]
	return b, ok
}

// Len returns the number of accepted blogs.
func (s *RecordingSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blogs)
}
