package config

import (
	"reflect"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Environment:         "local",
		LogLevel:            "info",
		DatabaseURL:         "postgres://localhost:5432/linkweaver",
		DBMinConns:          1,
		DBMaxConns:          8,
		EmbeddingEndpoint:   "http://127.0.0.1:8844/embed",
		EmbeddingDimensions: 1536,
		MatchThreshold:      0.52,
		MatchLimit:          5,
		MatchTimeout:        30 * time.Second,
		MatchPacingInterval: 100 * time.Millisecond,
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"blank database url", func(c *Config) { c.DatabaseURL = "  " }},
		{"min over max conns", func(c *Config) { c.DBMinConns = 9 }},
		{"zero max conns", func(c *Config) { c.DBMaxConns = 0 }},
		{"blank embedding endpoint", func(c *Config) { c.EmbeddingEndpoint = "" }},
		{"zero dimensions", func(c *Config) { c.EmbeddingDimensions = 0 }},
		{"threshold above one", func(c *Config) { c.MatchThreshold = 1.5 }},
		{"zero match limit", func(c *Config) { c.MatchLimit = 0 }},
		{"zero match timeout", func(c *Config) { c.MatchTimeout = 0 }},
		{"negative pacing", func(c *Config) { c.MatchPacingInterval = -time.Second }},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}
}

func TestSitePathExclusionsList(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.SitePathExclusions = " /archives/ , /boutique/ ,, /archives/ "

	got := cfg.SitePathExclusionsList()
	want := []string{"/archives/", "/boutique/"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected list: %v", got)
	}
}

func TestCORSAllowedOriginsListEmpty(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if got := cfg.CORSAllowedOriginsList(); len(got) != 0 {
		t.Fatalf("expected empty list, got %v", got)
	}
}
