package domainmetrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scribe-api/internal/brand"
	"github.com/phrazzld/scribe-api/internal/domain"
)

type mockProvider struct {
	mu            sync.Mutex
	hosts         []string
	SiteMetricsFn func(ctx context.Context, host string) (*domain.SiteMetrics, error)
}

func (m *mockProvider) SiteMetrics(ctx context.Context, host string) (*domain.SiteMetrics, error) {
	m.mu.Lock()
	m.hosts = append(m.hosts, host)
	m.mu.Unlock()
	return m.SiteMetricsFn(ctx, host)
}

func (m *mockProvider) Hosts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.hosts...)
}

type mockBrands struct {
	mu       sync.Mutex
	urls     []string
	LookupFn func(ctx context.Context, websiteURL string) (*domain.BrandAdReport, error)
}

func (m *mockBrands) Lookup(ctx context.Context, websiteURL string) (*domain.BrandAdReport, error) {
	m.mu.Lock()
	m.urls = append(m.urls, websiteURL)
	m.mu.Unlock()
	return m.LookupFn(ctx, websiteURL)
}

func intPtr(n int) *int { return &n }

func floatPtr(f float64) *float64 { return &f }

func fixedProvider() *mockProvider {
	return &mockProvider{SiteMetricsFn: func(context.Context, string) (*domain.SiteMetrics, error) {
		return &domain.SiteMetrics{DomainRating: floatPtr(42.5), USTraffic: intPtr(1200)}, nil
	}}
}

func newTestService(t *testing.T, provider MetricsProvider, brands BrandLookup) *Service {
	t.Helper()
	svc, err := NewService(provider, brands, Config{Provider: "semrush", Parallel: 3}, nil)
	require.NoError(t, err)
	return svc
}

func TestParseDomains(t *testing.T) {
	t.Parallel()
	got := ParseDomains("acme.com, beta.io\n\n  https://www.gamma.dev/path,delta.org\tepsilon.net,,")
	assert.Equal(t, []string{"acme.com", "beta.io", "https://www.gamma.dev/path", "delta.org", "epsilon.net"}, got)
	assert.Empty(t, ParseDomains(" ,\n "))
}

func TestNormalizeDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "acme.com", want: "acme.com"},
		{in: "www.Acme.com", want: "acme.com"},
		{in: "https://www.acme.com/shop?x=1", want: "acme.com"},
		{in: "HTTP://shop.acme.com:8080", want: "shop.acme.com"},
		{in: "acme.com/blog", want: "acme.com"},
		{in: "://", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDomain(tt.in), tt.in)
	}
}

func TestAnalyze(t *testing.T) {
	t.Parallel()
	provider := fixedProvider()
	brands := &mockBrands{LookupFn: func(_ context.Context, websiteURL string) (*domain.BrandAdReport, error) {
		if strings.Contains(websiteURL, "acme") {
			return &domain.BrandAdReport{BrandName: "Acme", AdCounts: &domain.AdCounts{Total: intPtr(7)}}, nil
		}
		return nil, brand.ErrBrandNotIdentified
	}}
	svc := newTestService(t, provider, brands)

	results, err := svc.Analyze(context.Background(), "www.acme.com\nhttps://beta.io/about")

	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "acme.com", results[0].Domain)
	assert.Equal(t, domain.AnalysisSuccess, results[0].Status)
	assert.Equal(t, floatPtr(42.5), results[0].DomainRating)
	assert.Equal(t, intPtr(1200), results[0].USTraffic)
	assert.Equal(t, "Acme", results[0].InstagramDisplayName)
	assert.Equal(t, intPtr(7), results[0].AdCounts.Total)
	assert.Equal(t, "semrush", results[0].Provider)

	assert.Equal(t, "beta.io", results[1].Domain)
	assert.Equal(t, domain.AnalysisSuccess, results[1].Status)
	assert.Empty(t, results[1].InstagramDisplayName)
	assert.Nil(t, results[1].AdCounts)

	assert.ElementsMatch(t, []string{"acme.com", "beta.io"}, provider.Hosts())
	assert.ElementsMatch(t, []string{"https://acme.com", "https://beta.io"}, brands.urls)
}

func TestAnalyzeRecordsPerDomainErrors(t *testing.T) {
	t.Parallel()
	upstreamErr := errors.New("status 403: not subscribed")
	provider := &mockProvider{SiteMetricsFn: func(_ context.Context, host string) (*domain.SiteMetrics, error) {
		if host == "broken.com" {
			return nil, upstreamErr
		}
		return &domain.SiteMetrics{USTraffic: intPtr(5)}, nil
	}}
	brands := &mockBrands{LookupFn: func(context.Context, string) (*domain.BrandAdReport, error) {
		return &domain.BrandAdReport{BrandName: "Broken"}, nil
	}}
	svc := newTestService(t, provider, brands)

	results, err := svc.Analyze(context.Background(), "broken.com ok.com")

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, domain.AnalysisError, results[0].Status)
	assert.Equal(t, upstreamErr.Error(), results[0].Error)
	assert.Equal(t, "Broken", results[0].InstagramDisplayName, "brand insights survive a metrics failure")
	assert.Nil(t, results[0].USTraffic)
	assert.Equal(t, domain.AnalysisSuccess, results[1].Status)
	assert.Empty(t, results[1].Error)
}

func TestAnalyzeToleratesBrandFailures(t *testing.T) {
	t.Parallel()
	brands := &mockBrands{LookupFn: func(context.Context, string) (*domain.BrandAdReport, error) {
		return nil, errors.New("gemini unavailable")
	}}
	svc := newTestService(t, fixedProvider(), brands)

	results, err := svc.Analyze(context.Background(), "acme.com")

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.AnalysisSuccess, results[0].Status)
	assert.Empty(t, results[0].InstagramDisplayName)
}

func TestAnalyzeWithoutBrandLookup(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, fixedProvider(), nil)

	results, err := svc.Analyze(context.Background(), "acme.com")

	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisSuccess, results[0].Status)
	assert.Nil(t, results[0].AdCounts)
}

func TestAnalyzeInputErrors(t *testing.T) {
	t.Parallel()
	provider := fixedProvider()
	svc := newTestService(t, provider, nil)

	_, err := svc.Analyze(context.Background(), " , \n")
	assert.ErrorIs(t, err, ErrNoDomains)

	many := make([]string, MaxDomains+1)
	for i := range many {
		many[i] = "site.com"
	}
	_, err = svc.Analyze(context.Background(), strings.Join(many, ","))
	assert.ErrorIs(t, err, ErrTooManyDomains)
	assert.Empty(t, provider.Hosts())

	results, err := svc.Analyze(context.Background(), strings.Join(many[:MaxDomains], ","))
	require.NoError(t, err)
	assert.Len(t, results, MaxDomains)
}

func TestAnalyzeInvalidDomain(t *testing.T) {
	t.Parallel()
	provider := fixedProvider()
	svc := newTestService(t, provider, nil)

	results, err := svc.Analyze(context.Background(), "://")

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "://", results[0].Domain)
	assert.Equal(t, domain.AnalysisError, results[0].Status)
	assert.Equal(t, ErrInvalidDomain.Error(), results[0].Error)
	assert.Empty(t, provider.Hosts())
}

func TestAnalyzeSpacesProviderCalls(t *testing.T) {
	t.Parallel()
	var (
		mu    sync.Mutex
		times []time.Time
	)
	provider := &mockProvider{SiteMetricsFn: func(context.Context, string) (*domain.SiteMetrics, error) {
		mu.Lock()
		times = append(times, time.Now())
		mu.Unlock()
		return &domain.SiteMetrics{}, nil
	}}
	interval := 40 * time.Millisecond
	svc, err := NewService(provider, nil, Config{Parallel: 3, RequestInterval: interval}, nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = svc.Analyze(context.Background(), "a.com b.com c.com")
	require.NoError(t, err)

	require.Len(t, times, 3)
	assert.GreaterOrEqual(t, time.Since(start), 2*interval-5*time.Millisecond)
}

func TestAnalyzeCancelled(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, fixedProvider(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Analyze(ctx, "acme.com")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewServiceRequiresProvider(t *testing.T) {
	t.Parallel()
	_, err := NewService(nil, nil, Config{}, nil)
	assert.Error(t, err)
}
