package api

import (
	"time"

	"github.com/phrazzld/scribe-api/internal/domain"
	"github.com/phrazzld/scribe-api/internal/task"
)

// SubmitBatchRequest is the payload for POST /api/batches.
type SubmitBatchRequest struct {
	Requests    []domain.BlogRequest `json:"requests"`
	Concurrency int                  `json:"concurrency,omitempty"`
}

// SubmitFormRequest is the payload for POST /api/batches/form: one brief
// repeated NumberOfBlogs times.
type SubmitFormRequest struct {
	Request       domain.BlogRequest `json:"request"`
	NumberOfBlogs int                `json:"numberOfBlogs"`
	Concurrency   int                `json:"concurrency,omitempty"`
}

// BrandAdsRequest is the payload for POST /api/brand-ads.
type BrandAdsRequest struct {
	WebsiteURL string `json:"websiteUrl"`
}

// DomainAnalysisRequest is the payload for POST /api/domains/analyze.
// Domains are separated by newlines, commas or spaces.
type DomainAnalysisRequest struct {
	Domains string `json:"domains"`
}

// DomainAnalysisResponse is the body of POST /api/domains/analyze.
type DomainAnalysisResponse struct {
	Results []domain.DomainAnalysis `json:"results"`
	Total   int                     `json:"total"`
}

// DomainExportRequest is the payload for POST /api/domains/export.
type DomainExportRequest struct {
	Results []domain.DomainAnalysis `json:"results"`
}

// TasksResponse is the body of GET /api/tasks.
type TasksResponse struct {
	Tasks   []task.GenerationTask   `json:"tasks"`
	Counts  map[task.TaskStatus]int `json:"counts"`
	Active  bool                    `json:"active"`
	TakenAt time.Time               `json:"takenAt"`
}

// ClearResponse is the body of DELETE /api/tasks.
type ClearResponse struct {
	DeletedBlogs int `json:"deletedBlogs"`
}

// OptionsResponse lists the values accepted in blog requests.
type OptionsResponse struct {
	Tones       []domain.ToneStyle `json:"tones"`
	WordCounts  []int              `json:"wordCounts"`
	MaxEditions int                `json:"maxEditions"`
}

func tasksResponse(snap task.Snapshot) TasksResponse {
	return TasksResponse{
		Tasks:   snap.Tasks,
		Counts:  snap.Counts,
		Active:  snap.Active(),
		TakenAt: snap.TakenAt,
	}
}
