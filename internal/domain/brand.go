package domain

import "time"

// AdCounts are the ad totals reported for a brand. Nil fields mean the
// upstream service did not report that figure.
type AdCounts struct {
	Total    *int `json:"total"`
	Active   *int `json:"active"`
	Inactive *int `json:"inactive"`
}

// BrandAdReport is the result of resolving a website to its brand and ads.
type BrandAdReport struct {
	WebsiteURL string    `json:"websiteUrl"`
	BrandName  string    `json:"brandName"`
	AdCounts   *AdCounts `json:"adCounts"`
	Timestamp  time.Time `json:"timestamp"`
}
