package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"anchor.fit/linkweaver/internal/config"
)

const (
	defaultBatchSize      = 32
	defaultMaxLength      = 512
	defaultRequestTimeout = 45 * time.Second
)

// Client talks to the embedding service. It accepts both the bare /embed
// payload shape and the OpenAI-style /v1/embeddings shape.
type Client struct {
	endpoint   string
	modelName  string
	dimensions int
	maxLength  int
	timeout    time.Duration
	httpClient *http.Client
	logger     zerolog.Logger
}

type embedRequest struct {
	Texts     []string `json:"texts,omitempty"`
	Input     []string `json:"input,omitempty"`
	Model     string   `json:"model,omitempty"`
	MaxLength int      `json:"max_length,omitempty"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
	Data       []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func NewClient(cfg *config.Config, logger zerolog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	endpoint := strings.TrimSpace(cfg.EmbeddingEndpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("embedding endpoint is required")
	}

	maxLength := cfg.EmbeddingMaxLength
	if maxLength <= 0 {
		maxLength = defaultMaxLength
	}
	timeout := cfg.EmbeddingTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &Client{
		endpoint:   endpoint,
		modelName:  strings.TrimSpace(cfg.EmbeddingModelName),
		dimensions: cfg.EmbeddingDimensions,
		maxLength:  maxLength,
		timeout:    timeout,
		httpClient: http.DefaultClient,
		logger:     logger,
	}, nil
}

func (c *Client) Dimensions() int {
	return c.dimensions
}

// EmbedTexts returns one vector per input text, in order.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload := embedRequest{
		Texts:     texts,
		MaxLength: c.maxLength,
	}
	if c.isOpenAIStyle() {
		payload = embedRequest{
			Input: texts,
			Model: c.modelName,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding service status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed embedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}

	vectors := parsed.Embeddings
	if len(vectors) == 0 && len(parsed.Data) > 0 {
		sort.Slice(parsed.Data, func(i, j int) bool {
			return parsed.Data[i].Index < parsed.Data[j].Index
		})
		vectors = make([][]float64, 0, len(parsed.Data))
		for _, row := range parsed.Data {
			vectors = append(vectors, row.Embedding)
		}
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding response count mismatch: requested=%d returned=%d", len(texts), len(vectors))
	}

	return vectors, nil
}

// EmbedLiteral embeds a single text and returns it as a pgvector literal.
func (c *Client) EmbedLiteral(ctx context.Context, text string) (string, error) {
	vectors, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return "", err
	}
	return VectorLiteral(vectors[0], c.dimensions)
}

func (c *Client) isOpenAIStyle() bool {
	parsed, err := url.Parse(c.endpoint)
	return err == nil && strings.HasSuffix(parsed.Path, "/v1/embeddings")
}

// EmbeddingInput joins the embeddable page fields, title first: anchors read
// like short headlines, so title-shaped text leads the input.
func EmbeddingInput(title, h1, meta *string) string {
	parts := make([]string, 0, 3)
	for _, part := range []*string{title, h1, meta} {
		if part == nil {
			continue
		}
		if trimmed := strings.TrimSpace(*part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, "\n")
}

// VectorLiteral renders a vector in pgvector input syntax, rejecting
// non-finite values and dimension mismatches.
func VectorLiteral(values []float64, dimensions int) (string, error) {
	if dimensions > 0 && len(values) != dimensions {
		return "", fmt.Errorf("expected %d dimensions, got %d", dimensions, len(values))
	}

	var builder strings.Builder
	builder.Grow(len(values) * 8)
	builder.WriteByte('[')
	for i, value := range values {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return "", fmt.Errorf("vector has non-finite value at index %d", i)
		}
		if i > 0 {
			builder.WriteByte(',')
		}
		builder.WriteString(strconv.FormatFloat(value, 'f', -1, 64))
	}
	builder.WriteByte(']')
	return builder.String(), nil
}
