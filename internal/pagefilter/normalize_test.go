package pagefilter

import (
	"testing"

	"anchor.fit/linkweaver/internal/crawl"
)

func TestNormalizeTypesFields(t *testing.T) {
	t.Parallel()

	page := Normalize(crawl.RawPage{
		URL:              "  https://www.example.com/jardinage/semis.html  ",
		Title:            "  Réussir ses semis  ",
		H1:               "",
		MetaDescription:  "Conseils de semis",
		WordCount:        "840",
		Depth:            "2",
		InrankDecimal:    "0.4412",
		InternalOutlinks: "12.0",
		NbInlinks:        "null",
	})

	if page.URL != "https://www.example.com/jardinage/semis.html" {
		t.Fatalf("unexpected url: %q", page.URL)
	}
	if page.Title == nil || *page.Title != "Réussir ses semis" {
		t.Fatalf("unexpected title: %v", page.Title)
	}
	if page.H1 != nil {
		t.Fatalf("expected nil h1 for empty input, got %q", *page.H1)
	}
	if page.WordCount == nil || *page.WordCount != 840 {
		t.Fatalf("unexpected word count: %v", page.WordCount)
	}
	if page.InternalOutlinks == nil || *page.InternalOutlinks != 12 {
		t.Fatalf("float-formatted count should parse, got %v", page.InternalOutlinks)
	}
	if page.NbInlinks != nil {
		t.Fatalf("literal null should stay nil, got %v", *page.NbInlinks)
	}
	if page.InrankDecimal == nil || *page.InrankDecimal != 0.4412 {
		t.Fatalf("unexpected inrank: %v", page.InrankDecimal)
	}
	if page.Category != "article" {
		t.Fatalf("expected article category, got %q", page.Category)
	}
}

func TestParseNullableIntGarbage(t *testing.T) {
	t.Parallel()

	if got := parseNullableInt("not-a-number"); got != nil {
		t.Fatalf("expected nil for garbage input, got %d", *got)
	}
	if got := parseNullableInt("  "); got != nil {
		t.Fatalf("expected nil for blank input, got %d", *got)
	}
}

func TestCategorizeURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		url  string
		want string
	}{
		{"https://www.example.com/jardinage/", "category"},
		{"https://www.example.com/plantes/tags/vivaces", "category"},
		{"https://www.example.com/jardinage/semis.html", "article"},
		{"https://www.example.com/conseils/article,12345.php", "article"},
		{"https://www.example.com/a-propos", "page"},
		{"https://www.example.com/a/b/c/d/e", "unknown"},
	}

	for _, tc := range cases {
		if got := CategorizeURL(tc.url); got != tc.want {
			t.Fatalf("CategorizeURL(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
