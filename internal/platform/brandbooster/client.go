// Package brandbooster is a client for the BrandBooster public ad research API.
package brandbooster

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

const adsCountPath = "/api/v1/research/brand-ads-count-public"

// maxErrorBody caps how much of an error response is quoted back.
const maxErrorBody = 512

var (
	// ErrEmptyBrandName is returned when AdCounts is called without a name.
	ErrEmptyBrandName = errors.New("brand name cannot be empty")

	// ErrUpstream is returned when the API responds with an unexpected status
	// or body, or cannot be reached.
	ErrUpstream = errors.New("brandbooster API error")
)

// Key variants seen in API responses, in lookup priority.
var (
	totalKeys    = []string{"total_ads_count", "total_ads", "total", "total_ad_count", "totalAdCount"}
	activeKeys   = []string{"active_ads_count", "active_ads", "active", "active_ad_count", "activeAdCount"}
	inactiveKeys = []string{"inactive_ads_count", "inactive_ads", "inactive", "inactive_ad_count", "inactiveAdCount"}
)

// Client queries brand ad counts.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client for cfg.BaseURL. A nil httpClient gets one with
// cfg.Timeout.
func NewClient(cfg config.BrandAdsConfig, httpClient *http.Client, log *slog.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if _, err := url.ParseRequestURI(base); err != nil || base == "" {
		return nil, fmt.Errorf("invalid brandbooster base url %q", cfg.BaseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		logger:     log.With("component", "brandbooster_client"),
	}, nil
}

// AdCounts returns the ad totals for brandName. A brand the API does not
// know yields nil counts and no error.
func (c *Client) AdCounts(ctx context.Context, brandName string) (*domain.AdCounts, error) {
	brandName = strings.TrimSpace(brandName)
	if brandName == "" {
		return nil, ErrEmptyBrandName
	}
	log := logger.FromContextOrDefault(ctx, c.logger)

	endpoint := c.baseURL + adsCountPath + "?" + url.Values{"brand_name": {brandName}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building brandbooster request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	log.DebugContext(ctx, "brandbooster responded",
		"brand_name", brandName,
		"status", resp.StatusCode,
		"elapsed", time.Since(start))

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrUpstream, err)
	}
	return parseCounts(payload), nil
}

func parseCounts(payload map[string]any) *domain.AdCounts {
	if inner, ok := payload["data"].(map[string]any); ok {
		payload = inner
	}
	return &domain.AdCounts{
		Total:    toInt(firstKey(payload, totalKeys)),
		Active:   toInt(firstKey(payload, activeKeys)),
		Inactive: toInt(firstKey(payload, inactiveKeys)),
	}
}

func firstKey(data map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := data[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// toInt accepts JSON numbers and numeric strings, truncating fractions.
func toInt(v any) *int {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n := int(f)
	return &n
}
