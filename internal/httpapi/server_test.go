package httpapi

import "testing"

func TestParseLimitParam(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", 25, false},
		{"  ", 25, false},
		{"10", 10, false},
		{"500", 200, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
	}

	for _, tc := range cases {
		got, err := parseLimitParam(tc.raw, 25, 200)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("parseLimitParam(%q): expected error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseLimitParam(%q): %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("parseLimitParam(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}
