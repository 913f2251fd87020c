package domain

// SiteMetrics are the SEO figures a provider reports for a domain. Nil fields
// mean the provider had no data for that figure.
type SiteMetrics struct {
	DomainRating *float64 `json:"domainRating"`
	USTraffic    *int     `json:"usTraffic"`
}

// AnalysisStatus is the outcome of analyzing one domain.
type AnalysisStatus string

const (
	AnalysisSuccess AnalysisStatus = "success"
	AnalysisError   AnalysisStatus = "error"
)

// DomainAnalysis is the combined SEO and brand report for one domain.
// Brand fields are empty when no brand could be identified.
type DomainAnalysis struct {
	Domain               string         `json:"domain"`
	DomainRating         *float64       `json:"domainRating"`
	USTraffic            *int           `json:"usTraffic"`
	Status               AnalysisStatus `json:"status"`
	Error                string         `json:"error,omitempty"`
	InstagramDisplayName string         `json:"instagramDisplayName,omitempty"`
	AdCounts             *AdCounts      `json:"adCounts"`
	Provider             string         `json:"provider"`
}
