// Package domainmetrics reports SEO metrics and brand ad insights for a list
// of domains and exports the report as CSV.
package domainmetrics

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/phrazzld/scribe-api/internal/brand"
	"github.com/phrazzld/scribe-api/internal/domain"
	"github.com/phrazzld/scribe-api/internal/platform/logger"
)

// MaxDomains is how many domains one analysis accepts.
const MaxDomains = 20

var (
	// ErrNoDomains is returned when the input names no domains.
	ErrNoDomains = errors.New("no domains provided")

	// ErrTooManyDomains is returned when the input names more than MaxDomains.
	ErrTooManyDomains = errors.New("maximum 20 domains allowed at once")

	// ErrInvalidDomain is recorded for entries that do not parse as a host.
	ErrInvalidDomain = errors.New("invalid domain")
)

// MetricsProvider reports SEO metrics for a bare host name.
type MetricsProvider interface {
	SiteMetrics(ctx context.Context, host string) (*domain.SiteMetrics, error)
}

// BrandLookup resolves a website to its brand ad report.
type BrandLookup interface {
	Lookup(ctx context.Context, websiteURL string) (*domain.BrandAdReport, error)
}

// Config tunes an analysis run.
type Config struct {
	// Provider labels every result.
	Provider string
	// Parallel bounds how many domains are analyzed at once.
	Parallel int
	// RequestInterval is the minimum spacing between provider calls.
	RequestInterval time.Duration
}

// Service analyzes domains against a MetricsProvider and enriches each result
// with brand insights.
type Service struct {
	provider MetricsProvider
	brands   BrandLookup
	cfg      Config
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewService creates a Service. brands may be nil, in which case results carry
// no brand insights.
func NewService(provider MetricsProvider, brands BrandLookup, cfg Config, log *slog.Logger) (*Service, error) {
	if provider == nil {
		return nil, errors.New("metrics provider cannot be nil")
	}
	if cfg.Parallel < 1 {
		cfg.Parallel = 1
	}
	limit := rate.Inf
	if cfg.RequestInterval > 0 {
		limit = rate.Every(cfg.RequestInterval)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		provider: provider,
		brands:   brands,
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   log.With("component", "domain_metrics"),
	}, nil
}

// Analyze parses input into domains and reports on each one. Results keep the
// input order. A domain whose metrics cannot be fetched gets an error result
// rather than failing the whole analysis.
func (s *Service) Analyze(ctx context.Context, input string) ([]domain.DomainAnalysis, error) {
	domains := ParseDomains(input)
	if len(domains) == 0 {
		return nil, ErrNoDomains
	}
	if len(domains) > MaxDomains {
		return nil, ErrTooManyDomains
	}

	log := logger.FromContextOrDefault(ctx, s.logger)
	log.InfoContext(ctx, "analyzing domains", slog.Int("count", len(domains)))

	results := make([]domain.DomainAnalysis, len(domains))
	var g errgroup.Group
	g.SetLimit(s.cfg.Parallel)
	for i, raw := range domains {
		g.Go(func() error {
			results[i] = s.analyze(ctx, raw)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) analyze(ctx context.Context, raw string) domain.DomainAnalysis {
	host := NormalizeDomain(raw)
	res := domain.DomainAnalysis{Domain: host, Provider: s.cfg.Provider}
	if host == "" {
		res.Domain = raw
		return failed(res, ErrInvalidDomain)
	}
	log := logger.FromContextOrDefault(ctx, s.logger).With("domain", host)

	s.enrich(ctx, log, &res)

	if err := s.limiter.Wait(ctx); err != nil {
		return failed(res, err)
	}
	metrics, err := s.provider.SiteMetrics(ctx, host)
	if err != nil {
		log.WarnContext(ctx, "failed to fetch domain metrics", "error", err)
		return failed(res, err)
	}
	res.Status = domain.AnalysisSuccess
	res.DomainRating = metrics.DomainRating
	res.USTraffic = metrics.USTraffic
	return res
}

// enrich adds brand insights to res. Lookup failures leave the brand fields
// empty.
func (s *Service) enrich(ctx context.Context, log *slog.Logger, res *domain.DomainAnalysis) {
	if s.brands == nil {
		return
	}
	report, err := s.brands.Lookup(ctx, "https://"+res.Domain)
	switch {
	case errors.Is(err, brand.ErrBrandNotIdentified):
		log.DebugContext(ctx, "no brand identified for domain")
		return
	case err != nil:
		log.WarnContext(ctx, "brand insight lookup failed", "error", err)
		return
	}
	res.InstagramDisplayName = report.BrandName
	res.AdCounts = report.AdCounts
}

func failed(res domain.DomainAnalysis, err error) domain.DomainAnalysis {
	res.Status = domain.AnalysisError
	res.Error = err.Error()
	res.DomainRating = nil
	res.USTraffic = nil
	return res
}

// ParseDomains splits input on whitespace and commas.
func ParseDomains(input string) []string {
	return strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

// NormalizeDomain reduces a URL or bare domain to its lower-case host without
// a leading www. It returns "" when raw has no host.
func NormalizeDomain(raw string) string {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
