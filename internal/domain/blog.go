package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ToneStyle is the writing voice requested for a blog.
type ToneStyle string

// Supported tone values
const (
	ToneConversational ToneStyle = "conversational"
	ToneProfessional   ToneStyle = "professional"
	ToneTechnical      ToneStyle = "technical"
	ToneCasual         ToneStyle = "casual"
)

// Defaults applied when imported rows carry unusable values.
const (
	DefaultTone      = ToneProfessional
	DefaultWordCount = 1500

	// MaxEditions bounds how many copies of a single brief can be requested at once.
	MaxEditions = 10
)

// ToneOptions lists every supported tone in display order.
var ToneOptions = []ToneStyle{ToneConversational, ToneProfessional, ToneTechnical, ToneCasual}

// WordCountOptions lists every supported word count target.
var WordCountOptions = []int{1000, 1500, 2000}

// IsValidTone reports whether tone is one of ToneOptions.
func IsValidTone(tone ToneStyle) bool {
	for _, t := range ToneOptions {
		if t == tone {
			return true
		}
	}
	return false
}

// IsValidWordCount reports whether n is one of WordCountOptions.
func IsValidWordCount(n int) bool {
	for _, wc := range WordCountOptions {
		if wc == n {
			return true
		}
	}
	return false
}

// BlogRequest holds the content parameters for one generated blog.
// Requests are immutable once handed to the batch runner.
type BlogRequest struct {
	PrimaryKeyword    string    `json:"primaryKeyword"    validate:"required,min=3"`
	SecondaryKeywords []string  `json:"secondaryKeywords"`
	BlogTitle         string    `json:"blogTitle,omitempty"`
	Outline           string    `json:"outline,omitempty"`
	WordCount         int       `json:"wordCount"         validate:"oneof=1000 1500 2000"`
	Tone              ToneStyle `json:"tone"              validate:"oneof=conversational professional technical casual"`
	BacklinkURL       string    `json:"backlinkUrl"       validate:"required,url"`
}

// Normalize returns a copy with surrounding whitespace trimmed and empty
// secondary keywords dropped.
func (r BlogRequest) Normalize() BlogRequest {
	out := r
	out.PrimaryKeyword = strings.TrimSpace(r.PrimaryKeyword)
	out.BlogTitle = strings.TrimSpace(r.BlogTitle)
	out.Outline = strings.TrimSpace(r.Outline)
	out.BacklinkURL = strings.TrimSpace(r.BacklinkURL)
	out.SecondaryKeywords = make([]string, 0, len(r.SecondaryKeywords))
	for _, kw := range r.SecondaryKeywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			out.SecondaryKeywords = append(out.SecondaryKeywords, kw)
		}
	}
	return out
}

// Label is the human-readable descriptor shown for the request's task.
// index is the request's zero-based position in its batch.
func (r BlogRequest) Label(index int) string {
	if r.BlogTitle != "" {
		return r.BlogTitle
	}
	return fmt.Sprintf("%s #%d", r.PrimaryKeyword, index+1)
}

// SplitKeywords splits a comma-separated keyword list, trimming entries and
// dropping empty ones.
func SplitKeywords(s string) []string {
	parts := strings.Split(s, ",")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keywords = append(keywords, p)
		}
	}
	return keywords
}

// ExpandEditions clones base n times. When more than one edition is requested
// and the brief carries a title, each copy gets an " (Edition i)" suffix so the
// drafts stay distinguishable.
func ExpandEditions(base BlogRequest, n int) ([]BlogRequest, error) {
	if n < 1 || n > MaxEditions {
		return nil, fmt.Errorf("%w: %d (must be between 1 and %d)", ErrInvalidEditionCount, n, MaxEditions)
	}

	requests := make([]BlogRequest, n)
	for i := range n {
		req := base
		req.SecondaryKeywords = append([]string(nil), base.SecondaryKeywords...)
		if base.BlogTitle != "" && n > 1 {
			req.BlogTitle = fmt.Sprintf("%s (Edition %d)", base.BlogTitle, i+1)
		}
		requests[i] = req
	}
	return requests, nil
}

// BlogMeta holds the SEO metadata generated alongside a blog.
type BlogMeta struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// GeneratedImage is an image produced for a blog, embedded as a data URI.
type GeneratedImage struct {
	Data   string `json:"data"`
	Prompt string `json:"prompt"`
	Alt    string `json:"alt"`
}

// BlogImages holds the image pair generated for every blog.
type BlogImages struct {
	Featured GeneratedImage `json:"featured"`
	Body     GeneratedImage `json:"body"`
}

// GeneratedBlog is the artifact produced by a successful generation.
// Its ID is the ID of the task that produced it.
type GeneratedBlog struct {
	ID                uuid.UUID  `json:"id"`
	Title             string     `json:"title"`
	HTML              string     `json:"html"`
	Meta              BlogMeta   `json:"meta"`
	Images            BlogImages `json:"images"`
	BacklinkURL       string     `json:"backlinkUrl"`
	PrimaryKeyword    string     `json:"primaryKeyword"`
	SecondaryKeywords []string   `json:"secondaryKeywords"`
	Tone              ToneStyle  `json:"tone"`
	WordCount         int        `json:"wordCount"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// Validate checks that the blog carries the fields every consumer relies on.
func (b *GeneratedBlog) Validate() error {
	if b.ID == uuid.Nil {
		return fmt.Errorf("%w: blog ID cannot be empty", ErrValidation)
	}
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("%w: blog title cannot be empty", ErrValidation)
	}
	if strings.TrimSpace(b.HTML) == "" {
		return fmt.Errorf("%w: blog html", ErrEmptyContent)
	}
	return nil
}

// RetryRequest rebuilds the request that would regenerate this blog. The
// outline is not preserved on the artifact, so it is left empty.
func (b *GeneratedBlog) RetryRequest() BlogRequest {
	return BlogRequest{
		PrimaryKeyword:    b.PrimaryKeyword,
		SecondaryKeywords: append([]string(nil), b.SecondaryKeywords...),
		BlogTitle:         b.Title,
		WordCount:         b.WordCount,
		Tone:              b.Tone,
		BacklinkURL:       b.BacklinkURL,
	}
}
