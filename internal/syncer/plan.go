package syncer

import (
	"math"
	"strings"

	"anchor.fit/linkweaver/internal/crawl"
	"anchor.fit/linkweaver/internal/db"
)

// Plan is the categorized outcome of reconciling an incoming crawl against
// the persisted corpus, before any write happens.
type Plan struct {
	Inserts    []db.PageWrite
	Updates    []db.PageUpdate
	Overwrites []db.PageWrite
	StaleURLs  []string
	Unchanged  int
}

// BuildFullPlan compares every incoming page field-by-field against the
// existing snapshot. Strings are trimmed with empty treated as null; floats
// are rounded to 6 decimal places before comparison. Pages whose embeddable
// content (title, h1, meta description) changed are flagged so the stored
// embedding gets invalidated.
func BuildFullPlan(incoming []crawl.ProcessedPage, existing map[string]db.PageSnapshot) Plan {
	var plan Plan
	seen := make(map[string]struct{}, len(incoming))

	for _, page := range incoming {
		if _, duplicate := seen[page.URL]; duplicate {
			continue
		}
		seen[page.URL] = struct{}{}

		current, exists := existing[page.URL]
		if !exists {
			plan.Inserts = append(plan.Inserts, pageWrite(page))
			continue
		}

		contentChanged := embeddableContentChanged(page, current)
		if contentChanged || metricsChanged(page, current) {
			plan.Updates = append(plan.Updates, db.PageUpdate{
				PageID:              current.PageID,
				Write:               pageWrite(page),
				InvalidateEmbedding: contentChanged,
			})
			continue
		}
		plan.Unchanged++
	}

	plan.StaleURLs = staleURLs(seen, mapKeys(existing))
	return plan
}

// BuildQuickPlan skips field comparison entirely and reconciles on URL
// presence alone. With overwrite set, existing rows get their non-embedding
// columns blindly rewritten; embeddings are never touched either way.
func BuildQuickPlan(incoming []crawl.ProcessedPage, existingURLs map[string]struct{}, overwrite bool) Plan {
	var plan Plan
	seen := make(map[string]struct{}, len(incoming))

	for _, page := range incoming {
		if _, duplicate := seen[page.URL]; duplicate {
			continue
		}
		seen[page.URL] = struct{}{}

		if _, exists := existingURLs[page.URL]; !exists {
			plan.Inserts = append(plan.Inserts, pageWrite(page))
			continue
		}
		if overwrite {
			plan.Overwrites = append(plan.Overwrites, pageWrite(page))
			continue
		}
		plan.Unchanged++
	}

	urls := make([]string, 0, len(existingURLs))
	for url := range existingURLs {
		urls = append(urls, url)
	}
	plan.StaleURLs = staleURLs(seen, urls)
	return plan
}

func embeddableContentChanged(page crawl.ProcessedPage, current db.PageSnapshot) bool {
	return !equalNullableString(page.Title, current.Title) ||
		!equalNullableString(page.H1, current.H1) ||
		!equalNullableString(page.MetaDescription, current.MetaDescription)
}

func metricsChanged(page crawl.ProcessedPage, current db.PageSnapshot) bool {
	return !equalNullableInt(page.WordCount, current.WordCount) ||
		page.Category != current.Category ||
		!equalNullableInt(page.Depth, current.Depth) ||
		!equalNullableFloat(page.InrankDecimal, current.InrankDecimal) ||
		!equalNullableInt(page.InternalOutlinks, current.InternalOutlinks) ||
		!equalNullableInt(page.NbInlinks, current.NbInlinks)
}

func equalNullableString(a, b *string) bool {
	av := normalizedString(a)
	bv := normalizedString(b)
	return av == bv
}

// normalizedString trims and folds empty to the null representation so that
// "" and NULL compare equal.
func normalizedString(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func equalNullableInt(a, b *int) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if a == nil {
		return true
	}
	return *a == *b
}

func equalNullableFloat(a, b *float64) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if a == nil {
		return true
	}
	return roundSixDecimals(*a) == roundSixDecimals(*b)
}

func roundSixDecimals(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

func staleURLs(incoming map[string]struct{}, existing []string) []string {
	stale := make([]string, 0)
	for _, url := range existing {
		if _, present := incoming[url]; !present {
			stale = append(stale, url)
		}
	}
	return stale
}

func mapKeys(m map[string]db.PageSnapshot) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	return keys
}

func pageWrite(page crawl.ProcessedPage) db.PageWrite {
	return db.PageWrite{
		URL:              page.URL,
		Title:            page.Title,
		MetaDescription:  page.MetaDescription,
		H1:               page.H1,
		WordCount:        page.WordCount,
		Category:         page.Category,
		Depth:            page.Depth,
		InrankDecimal:    page.InrankDecimal,
		InternalOutlinks: page.InternalOutlinks,
		NbInlinks:        page.NbInlinks,
	}
}
