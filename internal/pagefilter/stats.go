package pagefilter

import (
	"strings"
	"unicode/utf8"
)

type RejectionCategory string

const (
	CategoryNoContent    RejectionCategory = "no-content"
	CategoryURLPattern   RejectionCategory = "url-pattern"
	CategoryForumContent RejectionCategory = "forum-content"
	CategoryStatusCode   RejectionCategory = "status-code"
)

// Rejection explains why a record was filtered out.
type Rejection struct {
	Category RejectionCategory
	Reason   string
}

const (
	maxExamplesPerCategory = 10
	maxExampleURLLength    = 120
)

// Example is one sampled exclusion kept for diagnostics.
type Example struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// Stats aggregates filter outcomes for one run. Counters and examples exist
// for observability only and never drive control flow.
type Stats struct {
	Accepted     int `json:"accepted"`
	NoContent    int `json:"no_content"`
	URLPattern   int `json:"url_pattern"`
	ForumContent int `json:"forum_content"`
	StatusCode   int `json:"status_code"`

	Languages map[string]int                  `json:"languages,omitempty"`
	Examples  map[RejectionCategory][]Example `json:"examples,omitempty"`
}

func NewStats() *Stats {
	return &Stats{
		Languages: make(map[string]int),
		Examples:  make(map[RejectionCategory][]Example),
	}
}

func (s *Stats) Rejected() int {
	return s.NoContent + s.URLPattern + s.ForumContent + s.StatusCode
}

func (s *Stats) recordAccepted() {
	s.Accepted++
}

func (s *Stats) recordLanguage(code string) {
	if code == "" {
		return
	}
	s.Languages[code]++
}

func (s *Stats) recordRejection(category RejectionCategory, url, reason string) {
	switch category {
	case CategoryNoContent:
		s.NoContent++
	case CategoryURLPattern:
		s.URLPattern++
	case CategoryForumContent:
		s.ForumContent++
	case CategoryStatusCode:
		s.StatusCode++
	default:
		return
	}

	if len(s.Examples[category]) >= maxExamplesPerCategory {
		return
	}
	s.Examples[category] = append(s.Examples[category], Example{
		URL:    truncateURL(url),
		Reason: reason,
	})
}

func truncateURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if utf8.RuneCountInString(trimmed) <= maxExampleURLLength {
		return trimmed
	}
	runes := []rune(trimmed)
	return string(runes[:maxExampleURLLength-3]) + "..."
}
