// Package semrush is a client for the SEMrush website traffic checker
// published on RapidAPI.
package semrush

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/scribe-api/internal/config"
	"github.com/phrazzld/scribe-api/internal/domain"
	"github.com/phrazzld/scribe-api/internal/platform/logger"
)

// ProviderName labels results produced by this client.
const ProviderName = "semrush"

const trafficPath = "/webtraffic.php"

// maxErrorBody caps how much of an error response is quoted back.
const maxErrorBody = 512

var (
	// ErrEmptyDomain is returned when SiteMetrics is called without a domain.
	ErrEmptyDomain = errors.New("domain cannot be empty")

	// ErrUpstream is returned when the API responds with an unexpected status
	// or body, or cannot be reached.
	ErrUpstream = errors.New("semrush API error")
)

// Client fetches domain metrics from the traffic checker.
type Client struct {
	baseURL    string
	host       string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client for cfg.BaseURL. A nil httpClient gets one with
// cfg.Timeout.
func NewClient(cfg config.DomainMetricsConfig, httpClient *http.Client, log *slog.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if _, err := url.ParseRequestURI(base); err != nil || base == "" {
		return nil, fmt.Errorf("invalid semrush base url %q", cfg.BaseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = slog.Default()
	}
	c := &Client{
		baseURL:    base,
		host:       strings.TrimSpace(cfg.Host),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: httpClient,
		logger:     log.With("component", "semrush_client"),
	}
	if c.apiKey == "" {
		c.logger.Warn("no RapidAPI key configured, domain metrics requests will be rejected upstream")
	}
	return c, nil
}

// SiteMetrics returns the domain rating and US traffic for host. A response
// without organic data yields empty metrics and no error.
func (c *Client) SiteMetrics(ctx context.Context, host string) (*domain.SiteMetrics, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, ErrEmptyDomain
	}
	log := logger.FromContextOrDefault(ctx, c.logger)

	form := url.Values{"website": {host}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+trafficPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building semrush request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-rapidapi-host", c.host)
	req.Header.Set("x-rapidapi-key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	log.DebugContext(ctx, "semrush responded",
		"domain", host,
		"status", resp.StatusCode,
		"elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload trafficResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrUpstream, err)
	}
	return payload.metrics(), nil
}

// trafficResponse mirrors semrush.tasks[0].result[0].items[0].metrics.
type trafficResponse struct {
	Semrush struct {
		Tasks []struct {
			Result []struct {
				Items []struct {
					Metrics struct {
						Organic struct {
							ETV   any `json:"etv"`
							Count any `json:"count"`
						} `json:"organic"`
					} `json:"metrics"`
				} `json:"items"`
			} `json:"result"`
		} `json:"tasks"`
	} `json:"semrush"`
}

func (r trafficResponse) metrics() *domain.SiteMetrics {
	out := &domain.SiteMetrics{}
	tasks := r.Semrush.Tasks
	if len(tasks) == 0 || len(tasks[0].Result) == 0 || len(tasks[0].Result[0].Items) == 0 {
		return out
	}
	organic := tasks[0].Result[0].Items[0].Metrics.Organic

	if etv, ok := toFloat(organic.ETV); ok && etv != 0 {
		n := int(etv)
		out.USTraffic = &n
	}
	if count, ok := toFloat(organic.Count); ok && count > 0 {
		rating := RatingFromKeywords(count)
		out.DomainRating = &rating
	}
	return out
}

// ratingOffset brings the keyword based score in line with Ahrefs domain
// ratings, which run about this much lower.
const ratingOffset = 19

// RatingFromKeywords maps an organic keyword count onto a 0-100 rating on a
// log scale, rounded to one decimal.
func RatingFromKeywords(count float64) float64 {
	raw := min(100, max(0, 20+math.Log10(count)*15))
	return math.Round(max(0, raw-ratingOffset)*10) / 10
}

// toFloat accepts JSON numbers and numeric strings.
func toFloat(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
