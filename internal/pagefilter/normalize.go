package pagefilter

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"anchor.fit/linkweaver/internal/crawl"
)

var articleCommaIDPattern = regexp.MustCompile(`,\d+\.`)

// Normalize converts a raw string-typed provider record into a typed page.
// Pure function: no network or database access.
func Normalize(raw crawl.RawPage) crawl.ProcessedPage {
	return crawl.ProcessedPage{
		URL:              strings.TrimSpace(raw.URL),
		Title:            normalizeNullableString(raw.Title),
		MetaDescription:  normalizeNullableString(raw.MetaDescription),
		H1:               normalizeNullableString(raw.H1),
		WordCount:        parseNullableInt(raw.WordCount),
		Category:         CategorizeURL(raw.URL),
		Depth:            parseNullableInt(raw.Depth),
		InrankDecimal:    parseNullableFloat(raw.InrankDecimal),
		InternalOutlinks: parseNullableInt(raw.InternalOutlinks),
		NbInlinks:        parseNullableInt(raw.NbInlinks),
	}
}

// CategorizeURL derives a coarse page category from the URL path shape.
func CategorizeURL(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "unknown"
	}

	path := parsed.Path
	segments := splitPathSegments(path)

	if (strings.HasSuffix(path, "/") && len(segments) <= 4) || strings.Contains(path, "/tags/") {
		return "category"
	}
	if strings.Contains(path, ".html") || articleCommaIDPattern.MatchString(path) {
		return "article"
	}
	if len(segments) <= 3 {
		return "page"
	}
	return "unknown"
}

func splitPathSegments(path string) []string {
	parts := strings.Split(path, "/")
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

func normalizeNullableString(raw string) *string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// parseNullableInt tolerates the provider's stringly-typed numerics: empty,
// "null" and non-numeric input all yield nil rather than zero or an error.
func parseNullableInt(raw string) *int {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, "null") {
		return nil
	}
	value, err := strconv.Atoi(trimmed)
	if err != nil {
		// Some exports format counts as floats ("12.0").
		parsed, ferr := strconv.ParseFloat(trimmed, 64)
		if ferr != nil {
			return nil
		}
		value = int(parsed)
	}
	return &value
}

func parseNullableFloat(raw string) *float64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, "null") {
		return nil
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return nil
	}
	return &value
}
