package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"LW_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"LW_DB_MAX_CONNS" default:"8"`

	EmbeddingEndpoint   string        `envconfig:"EMBEDDING_ENDPOINT" default:"http://127.0.0.1:8844/embed"`
	EmbeddingModelName  string        `envconfig:"EMBEDDING_MODEL_NAME" default:"text-embedding-3-small"`
	EmbeddingDimensions int           `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	EmbeddingMaxLength  int           `envconfig:"EMBEDDING_MAX_LENGTH" default:"512"`
	EmbeddingTimeout    time.Duration `envconfig:"EMBEDDING_TIMEOUT" default:"45s"`

	MatchThreshold      float64       `envconfig:"MATCH_THRESHOLD" default:"0.52"`
	MatchLimit          int           `envconfig:"MATCH_LIMIT" default:"5"`
	MatchTimeout        time.Duration `envconfig:"MATCH_TIMEOUT" default:"30s"`
	MatchPacingInterval time.Duration `envconfig:"MATCH_PACING_INTERVAL" default:"100ms"`

	SitePathExclusions string `envconfig:"SITE_PATH_EXCLUSIONS" default:""`
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("LW_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("LW_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("LW_DB_MIN_CONNS (%d) cannot exceed LW_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if strings.TrimSpace(c.EmbeddingEndpoint) == "" {
		return fmt.Errorf("EMBEDDING_ENDPOINT is required")
	}
	if c.EmbeddingDimensions < 1 {
		return fmt.Errorf("EMBEDDING_DIMENSIONS must be >= 1")
	}
	if c.MatchThreshold < 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("MATCH_THRESHOLD must be within [0, 1]")
	}
	if c.MatchLimit < 1 {
		return fmt.Errorf("MATCH_LIMIT must be >= 1")
	}
	if c.MatchTimeout <= 0 {
		return fmt.Errorf("MATCH_TIMEOUT must be > 0")
	}
	if c.MatchPacingInterval < 0 {
		return fmt.Errorf("MATCH_PACING_INTERVAL must be >= 0")
	}
	return nil
}

// SitePathExclusionsList parses the comma-separated deployment-specific URL
// path exclusion list.
func (c *Config) SitePathExclusionsList() []string {
	return splitTrimmedList(c.SitePathExclusions)
}

func (c *Config) CORSAllowedOriginsList() []string {
	return splitTrimmedList(c.CORSAllowedOrigins)
}

func splitTrimmedList(raw string) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		values = append(values, value)
	}
	return values
}
