package semrush

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scribe-api/internal/config"
)

const testHost = "semrush-website-traffic-checker.p.rapidapi.com"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(config.DomainMetricsConfig{
		BaseURL: srv.URL + "/",
		Host:    testHost,
		APIKey:  "rapid-key",
		Timeout: 5 * time.Second,
	}, nil, nil)
	require.NoError(t, err)
	return c
}

func organicBody(etv, count string) string {
	return `{"semrush":{"tasks":[{"result":[{"items":[{"metrics":{"organic":{"etv":` +
		etv + `,"count":` + count + `}}}]}]}]}}`
}

func TestSiteMetrics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		wantRating  *float64
		wantTraffic *int
	}{
		{
			name:        "numeric organic data",
			body:        organicBody("15234.7", "1000"),
			wantRating:  floatPtr(46),
			wantTraffic: intPtr(15234),
		},
		{
			name:        "string values",
			body:        organicBody(`"820"`, `"100000"`),
			wantRating:  floatPtr(76),
			wantTraffic: intPtr(820),
		},
		{
			name: "zero values are missing",
			body: organicBody("0", "0"),
		},
		{
			name: "no tasks",
			body: `{"semrush":{"tasks":[]}}`,
		},
		{
			name: "no items",
			body: `{"semrush":{"tasks":[{"result":[{"items":[]}]}]}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, trafficPath, r.URL.Path)
				assert.Equal(t, testHost, r.Header.Get("x-rapidapi-host"))
				assert.Equal(t, "rapid-key", r.Header.Get("x-rapidapi-key"))
				assert.NoError(t, r.ParseForm())
				assert.Equal(t, "acme.com", r.PostForm.Get("website"))
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			})

			got, err := c.SiteMetrics(context.Background(), " acme.com ")

			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantRating, got.DomainRating)
			assert.Equal(t, tt.wantTraffic, got.USTraffic)
		})
	}
}

func TestSiteMetrics_Errors(t *testing.T) {
	t.Parallel()

	t.Run("forbidden", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "You are not subscribed to this API.", http.StatusForbidden)
		})
		_, err := c.SiteMetrics(context.Background(), "acme.com")
		require.ErrorIs(t, err, ErrUpstream)
		assert.Contains(t, err.Error(), "not subscribed")
	})

	t.Run("bad json", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		})
		_, err := c.SiteMetrics(context.Background(), "acme.com")
		assert.ErrorIs(t, err, ErrUpstream)
	})

	t.Run("empty domain", func(t *testing.T) {
		c := newTestClient(t, func(http.ResponseWriter, *http.Request) {
			t.Error("no request expected")
		})
		_, err := c.SiteMetrics(context.Background(), " ")
		assert.ErrorIs(t, err, ErrEmptyDomain)
	})
}

func TestRatingFromKeywords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		count float64
		want  float64
	}{
		{count: 1, want: 1},
		{count: 10, want: 16},
		{count: 1000, want: 46},
		{count: 5000, want: 56.5},
		{count: 1e6, want: 81},
		{count: 0.5, want: 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, RatingFromKeywords(tt.count), 0.001, "count %v", tt.count)
	}
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	t.Parallel()
	_, err := NewClient(config.DomainMetricsConfig{BaseURL: "not a url", Timeout: time.Second}, nil, nil)
	assert.Error(t, err)
}

func floatPtr(f float64) *float64 { return &f }

func intPtr(n int) *int { return &n }
