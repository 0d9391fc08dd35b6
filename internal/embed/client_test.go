package embed

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"anchor.fit/linkweaver/internal/config"
)

func ptr(v string) *string { return &v }

func testClient(t *testing.T, endpoint string, dimensions int) *Client {
	t.Helper()
	client, err := NewClient(&config.Config{
		EmbeddingEndpoint:   endpoint,
		EmbeddingModelName:  "text-embedding-3-small",
		EmbeddingDimensions: dimensions,
		EmbeddingMaxLength:  512,
		EmbeddingTimeout:    5 * time.Second,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestEmbedTextsBareEndpoint(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if _, hasTexts := req["texts"]; !hasTexts {
			t.Errorf("bare endpoint must receive texts field, got %v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float64{{0.1, 0.2}, {0.3, 0.4}},
		})
	}))
	defer server.Close()

	client := testClient(t, server.URL+"/embed", 2)
	vectors, err := client.EmbedTexts(context.Background(), []string{"un", "deux"})
	if err != nil {
		t.Fatalf("embed texts: %v", err)
	}
	if len(vectors) != 2 || vectors[1][0] != 0.3 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}
}

func TestEmbedTextsOpenAIStyle(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if _, hasInput := req["input"]; !hasInput {
			t.Errorf("openai endpoint must receive input field, got %v", req)
		}
		// Out-of-order data rows must be reassembled by index.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float64{0.3, 0.4}},
				{"index": 0, "embedding": []float64{0.1, 0.2}},
			},
		})
	}))
	defer server.Close()

	client := testClient(t, server.URL+"/v1/embeddings", 2)
	vectors, err := client.EmbedTexts(context.Background(), []string{"un", "deux"})
	if err != nil {
		t.Fatalf("embed texts: %v", err)
	}
	if vectors[0][0] != 0.1 || vectors[1][0] != 0.3 {
		t.Fatalf("expected index-ordered vectors, got %v", vectors)
	}
}

func TestEmbedTextsCountMismatch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float64{{0.1}},
		})
	}))
	defer server.Close()

	client := testClient(t, server.URL+"/embed", 0)
	if _, err := client.EmbedTexts(context.Background(), []string{"un", "deux"}); err == nil {
		t.Fatalf("expected count mismatch error")
	}
}

func TestEmbedTextsServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := testClient(t, server.URL+"/embed", 0)
	if _, err := client.EmbedTexts(context.Background(), []string{"un"}); err == nil {
		t.Fatalf("expected error for 503 response")
	}
}

func TestEmbedTextsEmptyInput(t *testing.T) {
	t.Parallel()

	client := testClient(t, "http://127.0.0.1:1/embed", 0)
	vectors, err := client.EmbedTexts(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Fatalf("empty input must short-circuit, got %v / %v", vectors, err)
	}
}

func TestEmbeddingInput(t *testing.T) {
	t.Parallel()

	got := EmbeddingInput(ptr(" Préparer le sol "), ptr("Préparer le sol"), nil)
	if got != "Préparer le sol\nPréparer le sol" {
		t.Fatalf("unexpected input: %q", got)
	}

	if got := EmbeddingInput(nil, nil, ptr("Seulement la meta")); got != "Seulement la meta" {
		t.Fatalf("unexpected input: %q", got)
	}

	if got := EmbeddingInput(nil, nil, nil); got != "" {
		t.Fatalf("expected empty input, got %q", got)
	}
}

func TestVectorLiteral(t *testing.T) {
	t.Parallel()

	literal, err := VectorLiteral([]float64{0.25, -1, 0}, 3)
	if err != nil {
		t.Fatalf("vector literal: %v", err)
	}
	if literal != "[0.25,-1,0]" {
		t.Fatalf("unexpected literal: %q", literal)
	}
}

func TestVectorLiteralDimensionMismatch(t *testing.T) {
	t.Parallel()

	if _, err := VectorLiteral([]float64{0.25}, 3); err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
}

func TestVectorLiteralRejectsNonFinite(t *testing.T) {
	t.Parallel()

	if _, err := VectorLiteral([]float64{math.NaN()}, 0); err == nil {
		t.Fatalf("expected error for NaN")
	}
	if _, err := VectorLiteral([]float64{math.Inf(1)}, 0); err == nil {
		t.Fatalf("expected error for +Inf")
	}
}
