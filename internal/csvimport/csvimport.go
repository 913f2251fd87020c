// Package csvimport turns an uploaded CSV of blog briefs into generation
// requests.
//
// The expected headers are primaryKeyword, secondaryKeywords, blogTitle,
// outline, wordCount, tone and backlinkUrl. Header names are trimmed and
// matched case-insensitively; unknown columns are ignored.
package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/phrazzld/scribe-api/internal/domain"
)

// Column names recognised in the header row.
const (
	ColPrimaryKeyword    = "primaryKeyword"
	ColSecondaryKeywords = "secondaryKeywords"
	ColBlogTitle         = "blogTitle"
	ColOutline           = "outline"
	ColWordCount         = "wordCount"
	ColTone              = "tone"
	ColBacklinkURL       = "backlinkUrl"
)

var columns = []string{
	ColPrimaryKeyword,
	ColSecondaryKeywords,
	ColBlogTitle,
	ColOutline,
	ColWordCount,
	ColTone,
	ColBacklinkURL,
}

var (
	// ErrNoValidRows is returned when no row carries both a primary keyword
	// and a backlink URL.
	ErrNoValidRows = errors.New("no valid rows detected; ensure the CSV headers match the documentation")

	// ErrMalformedCSV is returned when the input cannot be read as CSV.
	ErrMalformedCSV = errors.New("malformed csv")
)

// Parse reads every data row from r. Rows missing a primary keyword or
// backlink URL are skipped. Unsupported word counts fall back to
// domain.DefaultWordCount and unsupported tones to domain.DefaultTone.
func Parse(r io.Reader) ([]domain.BlogRequest, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoValidRows
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrMalformedCSV, err)
	}
	index := headerIndex(header)

	var requests []domain.BlogRequest
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedCSV, line, err)
		}
		if req, ok := parseRow(rowValues(index, record)); ok {
			requests = append(requests, req)
		}
	}

	if len(requests) == 0 {
		return nil, ErrNoValidRows
	}
	return requests, nil
}

func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(columns))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		for _, col := range columns {
			if strings.EqualFold(h, col) {
				if _, seen := index[col]; !seen {
					index[col] = i
				}
			}
		}
	}
	return index
}

func rowValues(index map[string]int, record []string) map[string]string {
	values := make(map[string]string, len(index))
	for col, i := range index {
		if i < len(record) {
			values[col] = strings.TrimSpace(record[i])
		}
	}
	return values
}

func parseRow(values map[string]string) (domain.BlogRequest, bool) {
	primary := values[ColPrimaryKeyword]
	backlink := values[ColBacklinkURL]
	if primary == "" || backlink == "" {
		return domain.BlogRequest{}, false
	}

	return domain.BlogRequest{
		PrimaryKeyword:    primary,
		SecondaryKeywords: domain.SplitKeywords(values[ColSecondaryKeywords]),
		BlogTitle:         values[ColBlogTitle],
		Outline:           values[ColOutline],
		WordCount:         parseWordCount(values[ColWordCount]),
		Tone:              parseTone(values[ColTone]),
		BacklinkURL:       backlink,
	}, true
}

func parseWordCount(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		// Spreadsheets often export numbers as "1500.0".
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != math.Trunc(f) {
			return domain.DefaultWordCount
		}
		n = int(f)
	}
	if !domain.IsValidWordCount(n) {
		return domain.DefaultWordCount
	}
	return n
}

func parseTone(s string) domain.ToneStyle {
	tone := domain.ToneStyle(strings.ToLower(s))
	if !domain.IsValidTone(tone) {
		return domain.DefaultTone
	}
	return tone
}
