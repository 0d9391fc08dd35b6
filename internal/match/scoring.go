package match

import "strings"

// Section names where the anchor text literally matched, or Semantic when the
// only signal is vector similarity.
type Section string

const (
	SectionTitle    Section = "Title"
	SectionH1       Section = "H1"
	SectionMeta     Section = "Meta"
	SectionSemantic Section = "Semantic"
)

// Additive bonuses per matched section. A literal title hit outweighs an h1
// hit, which outweighs a meta hit; pure semantic matches get the smallest
// nudge so they can still surface.
var sectionBonuses = map[Section]float64{
	SectionTitle:    0.15,
	SectionH1:       0.12,
	SectionMeta:     0.10,
	SectionSemantic: 0.07,
}

// resolveSection checks the anchor against title, h1 and meta description in
// priority order, case-insensitive substring. First hit wins.
func resolveSection(anchor string, title, h1, meta *string) (Section, string) {
	needle := strings.ToLower(strings.TrimSpace(anchor))
	if needle == "" {
		return SectionSemantic, ""
	}

	if content, ok := sectionContains(title, needle); ok {
		return SectionTitle, content
	}
	if content, ok := sectionContains(h1, needle); ok {
		return SectionH1, content
	}
	if content, ok := sectionContains(meta, needle); ok {
		return SectionMeta, content
	}

	content := ""
	if meta != nil {
		content = strings.TrimSpace(*meta)
	}
	return SectionSemantic, content
}

func sectionContains(field *string, needle string) (string, bool) {
	if field == nil {
		return "", false
	}
	content := strings.TrimSpace(*field)
	if content == "" {
		return "", false
	}
	if !strings.Contains(strings.ToLower(content), needle) {
		return "", false
	}
	return content, true
}

// adjustScore applies the section bonus to the raw similarity and clamps the
// result to 1.
func adjustScore(similarity float64, section Section) float64 {
	score := similarity + sectionBonuses[section]
	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}
