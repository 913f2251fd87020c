package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/phrazzld/scribe-api/internal/api/shared"
	"github.com/phrazzld/scribe-api/internal/brand"
	"github.com/phrazzld/scribe-api/internal/domain"
	"github.com/phrazzld/scribe-api/internal/metrics"
)

// BrandLookup resolves a website to its brand ad report.
type BrandLookup interface {
	Lookup(ctx context.Context, websiteURL string) (*domain.BrandAdReport, error)
}

var _ BrandLookup = (*brand.Service)(nil)

// BrandHandler serves brand ad lookups.
type BrandHandler struct {
	brands  BrandLookup
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewBrandHandler creates a BrandHandler. m may be nil.
func NewBrandHandler(brands BrandLookup, m *metrics.Metrics, log *slog.Logger) *BrandHandler {
	if log == nil {
		log = slog.Default()
	}
	return &BrandHandler{
		brands:  brands,
		metrics: m,
		logger:  log.With("component", "brand_handler"),
	}
}

// LookupBrandAds handles POST /api/brand-ads.
func (h *BrandHandler) LookupBrandAds(w http.ResponseWriter, r *http.Request) {
	var req BrandAdsRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	report, err := h.brands.Lookup(r.Context(), req.WebsiteURL)
	h.record(report, err)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to look up brand ads")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, report)
}

func (h *BrandHandler) record(report *domain.BrandAdReport, err error) {
	if h.metrics == nil {
		return
	}
	outcome := "found"
	switch {
	case errors.Is(err, domain.ErrValidation):
		outcome = "invalid"
	case errors.Is(err, brand.ErrBrandNotIdentified):
		outcome = "unidentified"
	case err != nil:
		outcome = "error"
	case report.AdCounts == nil:
		outcome = "no_ads"
	}
	h.metrics.BrandLookupsTotal.WithLabelValues(outcome).Inc()
}
