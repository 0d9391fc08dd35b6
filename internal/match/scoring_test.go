package match

import "testing"

func ptr(v string) *string { return &v }

func TestResolveSectionPriority(t *testing.T) {
	t.Parallel()

	title := ptr("Préparer le sol du potager")
	h1 := ptr("Préparer le sol avant plantation")
	meta := ptr("Tout pour préparer le sol de votre jardin")

	// The anchor appears in all three fields; title wins.
	section, content := resolveSection("préparer le sol", title, h1, meta)
	if section != SectionTitle {
		t.Fatalf("expected title section, got %s", section)
	}
	if content != *title {
		t.Fatalf("unexpected matched content: %q", content)
	}

	section, _ = resolveSection("avant plantation", title, h1, meta)
	if section != SectionH1 {
		t.Fatalf("expected h1 section, got %s", section)
	}

	section, _ = resolveSection("votre jardin", title, h1, meta)
	if section != SectionMeta {
		t.Fatalf("expected meta section, got %s", section)
	}

	section, content = resolveSection("rotation des cultures", title, h1, meta)
	if section != SectionSemantic {
		t.Fatalf("expected semantic section, got %s", section)
	}
	if content != *meta {
		t.Fatalf("semantic fallback should surface the meta description, got %q", content)
	}
}

func TestResolveSectionCaseInsensitive(t *testing.T) {
	t.Parallel()

	section, _ := resolveSection("POTAGER", ptr("Le potager en carrés"), nil, nil)
	if section != SectionTitle {
		t.Fatalf("expected case-insensitive title match, got %s", section)
	}
}

func TestResolveSectionNilFields(t *testing.T) {
	t.Parallel()

	section, content := resolveSection("potager", nil, nil, nil)
	if section != SectionSemantic || content != "" {
		t.Fatalf("nil fields must fall through to semantic, got %s %q", section, content)
	}
}

func TestAdjustScoreBonuses(t *testing.T) {
	t.Parallel()

	cases := []struct {
		section Section
		raw     float64
		want    float64
	}{
		{SectionTitle, 0.60, 0.75},
		{SectionH1, 0.60, 0.72},
		{SectionMeta, 0.60, 0.70},
		{SectionSemantic, 0.60, 0.67},
	}

	for _, tc := range cases {
		if got := adjustScore(tc.raw, tc.section); got != tc.want {
			t.Fatalf("adjustScore(%v, %s) = %v, want %v", tc.raw, tc.section, got, tc.want)
		}
	}
}

func TestAdjustScoreClampsToOne(t *testing.T) {
	t.Parallel()

	if got := adjustScore(0.95, SectionTitle); got != 1 {
		t.Fatalf("expected clamp to 1, got %v", got)
	}
}
