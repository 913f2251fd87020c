package domainmetrics

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/phrazzld/scribe-api/internal/domain"
)

// ContentType is the media type of an exported report.
const ContentType = "text/csv"

var csvHeader = []string{
	"domain",
	"domain_rating",
	"us_traffic",
	"instagram_display_name",
	"brandbooster_total_ads",
	"brandbooster_active_ads",
	"brandbooster_inactive_ads",
	"provider",
}

// WriteCSV writes the successful results as CSV with a header row. Failed
// results are left out.
func WriteCSV(w io.Writer, results []domain.DomainAnalysis) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, r := range results {
		if r.Status != domain.AnalysisSuccess {
			continue
		}
		var counts domain.AdCounts
		if r.AdCounts != nil {
			counts = *r.AdCounts
		}
		record := []string{
			r.Domain,
			floatField(r.DomainRating),
			intField(r.USTraffic),
			r.InstagramDisplayName,
			intField(counts.Total),
			intField(counts.Active),
			intField(counts.Inactive),
			r.Provider,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row for %s: %w", r.Domain, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFilename names a report downloaded at now.
func ExportFilename(now time.Time) string {
	return "domain_metrics_" + now.Format("20060102_150405") + ".csv"
}

func floatField(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func intField(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
