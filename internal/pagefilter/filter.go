package pagefilter

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"anchor.fit/linkweaver/internal/crawl"
	"anchor.fit/linkweaver/internal/langdetect"
)

// Filter screens raw crawl records before they reach normalization and
// persistence. Rules run in a fixed order and short-circuit on the first hit;
// a rejection is an expected outcome, counted but never an error.
type Filter struct {
	sitePathPatterns []string
	stats            *Stats
	logger           zerolog.Logger
}

// Curated exclusion phrases matched case-insensitively against the entire URL.
var urlExclusionPhrases = []string{
	// auth / account
	"login", "signin", "sign-in", "signup", "sign-up", "register",
	"password", "mot-de-passe", "mon-compte", "account",
	// admin / back office
	"wp-admin", "wp-login", "/admin", "phpmyadmin",
	// legal
	"mentions-legales", "politique-de-confidentialite", "privacy-policy",
	"conditions-generales", "cgv", "cgu", "cookies",
	// contact / transactional
	"contact", "newsletter", "unsubscribe", "panier", "checkout",
	// technical / dev
	"/api/", ".json", ".xml", "/wp-json", "staging.", "preprod.", "/feed",
}

// Standalone forum/first-person indicator phrases scanned against the meta
// description. Matching is whole-word, never substring, so "salut" does not
// fire inside "salutation".
var forumIndicatorPhrases = []string{
	"j'ai", "j'aimerais", "je voudrais", "je cherche", "je suis",
	"merci d'avance", "merci de votre aide", "merci pour vos réponses",
	"bonjour à tous", "salut", "quelqu'un", "svp",
	"forum", "topic", "sujet résolu", "répondre",
	"help me", "any advice", "thanks in advance",
}

func New(logger zerolog.Logger, sitePathPatterns []string) *Filter {
	patterns := make([]string, 0, len(sitePathPatterns))
	for _, pattern := range sitePathPatterns {
		trimmed := strings.ToLower(strings.TrimSpace(pattern))
		if trimmed != "" {
			patterns = append(patterns, trimmed)
		}
	}

	return &Filter{
		sitePathPatterns: patterns,
		stats:            NewStats(),
		logger:           logger,
	}
}

func (f *Filter) Stats() *Stats {
	return f.stats
}

// Check returns nil when the record may proceed, or the rejection that stopped
// it. Every rejection is recorded in the filter stats.
func (f *Filter) Check(page crawl.RawPage) *Rejection {
	if rejection := checkPage(page, f.sitePathPatterns); rejection != nil {
		f.stats.recordRejection(rejection.Category, page.URL, rejection.Reason)
		return rejection
	}

	// Observability only: the language breakdown never influences filtering.
	if code := langdetect.DetectISO6391(page.MetaDescription); code != "" {
		f.stats.recordLanguage(code)
	}

	f.stats.recordAccepted()
	return nil
}

func checkPage(page crawl.RawPage, sitePathPatterns []string) *Rejection {
	if rejection := checkStatusCode(page.StatusCode); rejection != nil {
		return rejection
	}
	if rejection := checkEmbeddableContent(page.Title, page.H1, page.MetaDescription); rejection != nil {
		return rejection
	}
	if rejection := checkURLShape(page.URL); rejection != nil {
		return rejection
	}
	if rejection := checkURLExclusionPhrases(page.URL); rejection != nil {
		return rejection
	}
	if rejection := checkSitePathPatterns(page.URL, sitePathPatterns); rejection != nil {
		return rejection
	}
	return checkForumContent(page.MetaDescription)
}

func checkStatusCode(raw string) *Rejection {
	code := strings.TrimSpace(raw)
	if code == "" || code == "200" {
		return nil
	}
	return &Rejection{
		Category: CategoryStatusCode,
		Reason:   fmt.Sprintf("status code %s", code),
	}
}

// checkEmbeddableContent guards against rows with no material for embedding:
// the space-joined non-empty title/h1/meta must be at least 3 characters.
func checkEmbeddableContent(title, h1, meta string) *Rejection {
	parts := make([]string, 0, 3)
	for _, part := range []string{title, h1, meta} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}

	combined := strings.Join(parts, " ")
	if combined == "" {
		return &Rejection{Category: CategoryNoContent, Reason: "no embeddable content"}
	}
	if len([]rune(combined)) < 3 {
		return &Rejection{Category: CategoryNoContent, Reason: "embeddable content under 3 characters"}
	}
	return nil
}

func checkURLShape(raw string) *Rejection {
	if !strings.HasPrefix(raw, "http") {
		return &Rejection{Category: CategoryURLPattern, Reason: "url does not start with http"}
	}
	if strings.ContainsAny(raw, "\n\r") {
		return &Rejection{Category: CategoryURLPattern, Reason: "url contains line break"}
	}
	if strings.Contains(raw, ";200;") {
		return &Rejection{Category: CategoryURLPattern, Reason: "url contains crawl artifact"}
	}
	if len(raw) < 8 {
		return &Rejection{Category: CategoryURLPattern, Reason: "url shorter than 8 characters"}
	}
	return nil
}

func checkURLExclusionPhrases(raw string) *Rejection {
	lowered := strings.ToLower(raw)
	for _, phrase := range urlExclusionPhrases {
		if strings.Contains(lowered, phrase) {
			return &Rejection{
				Category: CategoryURLPattern,
				Reason:   fmt.Sprintf("excluded phrase %q", phrase),
			}
		}
	}
	return nil
}

// checkSitePathPatterns matches the deployment-specific list against the URL
// path only, not the full URL.
func checkSitePathPatterns(raw string, patterns []string) *Rejection {
	if len(patterns) == 0 {
		return nil
	}

	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	path := strings.ToLower(parsed.Path)
	for _, pattern := range patterns {
		if strings.Contains(path, pattern) {
			return &Rejection{
				Category: CategoryURLPattern,
				Reason:   fmt.Sprintf("excluded site path %q", pattern),
			}
		}
	}
	return nil
}

func checkForumContent(meta string) *Rejection {
	lowered := strings.ToLower(strings.TrimSpace(meta))
	if lowered == "" {
		return nil
	}
	for _, phrase := range forumIndicatorPhrases {
		if containsStandalone(lowered, phrase) {
			return &Rejection{
				Category: CategoryForumContent,
				Reason:   fmt.Sprintf("forum indicator %q", phrase),
			}
		}
	}
	return nil
}

// containsStandalone reports whether phrase occurs in text as a whole word or
// whole phrase: the runes adjacent to the match must not be letters.
func containsStandalone(text, phrase string) bool {
	if phrase == "" {
		return false
	}

	for start := 0; ; {
		idx := strings.Index(text[start:], phrase)
		if idx < 0 {
			return false
		}
		idx += start

		if isStandaloneAt(text, idx, len(phrase)) {
			return true
		}
		start = idx + 1
	}
}

func isStandaloneAt(text string, idx, length int) bool {
	before := []rune(text[:idx])
	if len(before) > 0 && unicode.IsLetter(before[len(before)-1]) {
		return false
	}
	after := []rune(text[idx+length:])
	if len(after) > 0 && unicode.IsLetter(after[0]) {
		return false
	}
	return true
}
