// Package brand resolves a website to its brand's Instagram display name and
// the ad counts published for that brand.
package brand

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/scribe-api/internal/domain"
	"github.com/phrazzld/scribe-api/internal/platform/logger"
)

// ErrBrandNotIdentified is returned when no confident brand name could be
// inferred for a website.
var ErrBrandNotIdentified = errors.New("could not identify a brand for this website")

// DefaultCacheTTL is how long a resolved report is reused.
const DefaultCacheTTL = 15 * time.Minute

// BrandNamer infers a brand's display name from its website.
type BrandNamer interface {
	IdentifyBrandName(ctx context.Context, websiteURL string) (string, error)
}

// AdCounter looks up published ad counts for a brand name.
type AdCounter interface {
	AdCounts(ctx context.Context, brandName string) (*domain.AdCounts, error)
}

// Service combines a BrandNamer and an AdCounter and caches their answers.
type Service struct {
	namer   BrandNamer
	counter AdCounter
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	report  domain.BrandAdReport
	expires time.Time
}

// NewService creates a Service. A non-positive ttl disables caching.
func NewService(namer BrandNamer, counter AdCounter, ttl time.Duration, log *slog.Logger) (*Service, error) {
	if namer == nil {
		return nil, errors.New("brand namer cannot be nil")
	}
	if counter == nil {
		return nil, errors.New("ad counter cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		namer:   namer,
		counter: counter,
		ttl:     ttl,
		now:     time.Now,
		logger:  log.With("component", "brand_service"),
		cache:   make(map[string]cacheEntry),
	}, nil
}

// Lookup resolves websiteURL to a brand name and its ad counts. Counts are
// nil when the ad service does not know the brand.
func (s *Service) Lookup(ctx context.Context, websiteURL string) (*domain.BrandAdReport, error) {
	websiteURL = strings.TrimSpace(websiteURL)
	if err := domain.ValidateWebsiteURL(websiteURL); err != nil {
		return nil, err
	}
	log := logger.FromContextOrDefault(ctx, s.logger).With("website_url", websiteURL)

	key := strings.ToLower(strings.TrimRight(websiteURL, "/"))
	if report, ok := s.cached(key); ok {
		log.DebugContext(ctx, "brand report served from cache")
		return &report, nil
	}

	raw, err := s.namer.IdentifyBrandName(ctx, websiteURL)
	if err != nil {
		return nil, fmt.Errorf("identifying brand name: %w", err)
	}
	name := CleanDisplayName(raw)
	if name == "" {
		log.InfoContext(ctx, "brand name not identified", "raw_answer", raw)
		return nil, ErrBrandNotIdentified
	}
	log.InfoContext(ctx, "identified brand name", "brand_name", name)

	counts, err := s.counter.AdCounts(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("fetching ad counts for %q: %w", name, err)
	}

	report := domain.BrandAdReport{
		WebsiteURL: websiteURL,
		BrandName:  name,
		AdCounts:   counts,
		Timestamp:  s.now().UTC(),
	}
	s.store(key, report)
	return &report, nil
}

func (s *Service) cached(key string) (domain.BrandAdReport, bool) {
	if s.ttl <= 0 {
		return domain.BrandAdReport{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.cache[key]
	if !ok {
		return domain.BrandAdReport{}, false
	}
	if !s.now().Before(entry.expires) {
		delete(s.cache, key)
		return domain.BrandAdReport{}, false
	}
	return entry.report, true
}

func (s *Service) store(key string, report domain.BrandAdReport) {
	if s.ttl <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = cacheEntry{report: report, expires: s.now().Add(s.ttl)}
}

var uncertaintyMarkers = []string{
	"not sure",
	"cannot determine",
	"unknown",
	"no official",
	"unsure",
	"n/a",
}

// CleanDisplayName extracts a display name from a model answer. It keeps the
// first line, strips leading handles, hashes and quotes, and returns "" for
// answers that signal uncertainty or are too short to be a name.
func CleanDisplayName(raw string) string {
	text := strings.TrimSpace(raw)
	if line, _, found := strings.Cut(text, "\n"); found {
		text = strings.TrimSpace(line)
	}
	if text == "" || strings.EqualFold(text, "UNKNOWN") {
		return ""
	}

	text = strings.TrimLeft(text, "\"'@# \t")
	text = strings.TrimSpace(strings.TrimRight(text, "\"'"))

	lowered := strings.ToLower(text)
	for _, marker := range uncertaintyMarkers {
		if strings.Contains(lowered, marker) {
			return ""
		}
	}
	if len([]rune(text)) < 2 {
		return ""
	}
	return text
}
