package api

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/phrazzld/scribe-api/internal/api/shared"
	"github.com/phrazzld/scribe-api/internal/domain"
	"github.com/phrazzld/scribe-api/internal/domainmetrics"
	"github.com/phrazzld/scribe-api/internal/metrics"
	"github.com/phrazzld/scribe-api/internal/platform/logger"
)

// DomainAnalyzer reports SEO metrics and brand insights for a domain list.
type DomainAnalyzer interface {
	Analyze(ctx context.Context, input string) ([]domain.DomainAnalysis, error)
}

var _ DomainAnalyzer = (*domainmetrics.Service)(nil)

// DomainHandler serves domain analysis and its CSV export.
type DomainHandler struct {
	analyzer DomainAnalyzer
	metrics  *metrics.Metrics
	now      func() time.Time
	logger   *slog.Logger
}

// NewDomainHandler creates a DomainHandler. m may be nil.
func NewDomainHandler(analyzer DomainAnalyzer, m *metrics.Metrics, log *slog.Logger) *DomainHandler {
	if log == nil {
		log = slog.Default()
	}
	return &DomainHandler{
		analyzer: analyzer,
		metrics:  m,
		now:      time.Now,
		logger:   log.With("component", "domain_handler"),
	}
}

// AnalyzeDomains handles POST /api/domains/analyze.
func (h *DomainHandler) AnalyzeDomains(w http.ResponseWriter, r *http.Request) {
	var req DomainAnalysisRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	results, err := h.analyzer.Analyze(r.Context(), req.Domains)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to analyze domains")
		return
	}
	if h.metrics != nil {
		for _, res := range results {
			h.metrics.DomainAnalysesTotal.WithLabelValues(string(res.Status)).Inc()
		}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, DomainAnalysisResponse{Results: results, Total: len(results)})
}

// ExportDomains handles POST /api/domains/export. The body carries the
// results of an earlier analysis.
func (h *DomainHandler) ExportDomains(w http.ResponseWriter, r *http.Request) {
	var req DomainExportRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	var buf bytes.Buffer
	if err := domainmetrics.WriteCSV(&buf, req.Results); err != nil {
		HandleAPIError(w, r, err, "Failed to export domain metrics")
		return
	}

	w.Header().Set("Content-Type", domainmetrics.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+domainmetrics.ExportFilename(h.now())+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Warn("failed to write domain export", "error", err)
	}
}
