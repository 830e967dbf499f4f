package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/nexusplanner/nexusrag/internal/domain"
	"github.com/nexusplanner/nexusrag/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

type embeddingData struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// openaiEmbeddingResponse mirrors the OpenAI-compatible API embedding response.
type openaiEmbeddingResponse struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
	Usage  struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func embeddingServer(t *testing.T, vec []float32, tokens int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		resp := openaiEmbeddingResponse{Object: "list", Model: "text-embedding-3-small"}
		if vec != nil {
			resp.Data = []embeddingData{{Object: "embedding", Embedding: vec}}
		}
		resp.Usage.PromptTokens = tokens
		resp.Usage.TotalTokens = tokens
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestEmbedder(t *testing.T, baseURL string) *Embedder {
	t.Helper()
	emb, err := NewEmbedder(&Config{
		APIKey:   "test-key",
		BaseURL:  baseURL,
		Provider: "test",
		Logger:   zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}
	return emb
}

func TestEmbedder_Embed(t *testing.T) {
	expectedVec := []float32{0.1, 0.2, 0.3, 0.4}
	server := embeddingServer(t, expectedVec, 10)
	defer server.Close()

	result, err := newTestEmbedder(t, server.URL).Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(result.Embedding) != len(expectedVec) {
		t.Fatalf("expected %d dimensions, got %d", len(expectedVec), len(result.Embedding))
	}
	for i, v := range result.Embedding {
		if v != expectedVec[i] {
			t.Errorf("vec[%d] = %f, expected %f", i, v, expectedVec[i])
		}
	}
	if result.Degraded {
		t.Error("provider result must not be degraded")
	}
}

func TestEmbedder_EmbedReturnsUsage(t *testing.T) {
	server := embeddingServer(t, []float32{0.1, 0.2}, 42)
	defer server.Close()

	result, err := newTestEmbedder(t, server.URL).Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if result.PromptTokens != 42 || result.TotalTokens != 42 {
		t.Errorf("usage = %d/%d, expected 42/42", result.PromptTokens, result.TotalTokens)
	}
}

func TestEmbedder_EmptyResponse(t *testing.T) {
	server := embeddingServer(t, nil, 0)
	defer server.Close()

	_, err := newTestEmbedder(t, server.URL).Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestEmbedder_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "rate limit exceeded",
				"type":    "rate_limit_error",
			},
		})
	}))
	defer server.Close()

	_, err := newTestEmbedder(t, server.URL).Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError for 429, got %v", err)
	}
}

func TestEmbedder_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	emb, err := NewEmbedder(&Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}
	if _, err := emb.Embed(context.Background(), "slow"); !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected provider error on timeout, got %v", err)
	}
}

func TestNewEmbedder_RequiresKey(t *testing.T) {
	_, err := NewEmbedder(&Config{Provider: "openai"})
	if !errors.Is(err, domain.ErrEmbeddingNotConfigured) {
		t.Fatalf("expected ErrEmbeddingNotConfigured, got %v", err)
	}
}

func TestNewEmbedder_Defaults(t *testing.T) {
	emb, err := NewEmbedder(&Config{APIKey: "k"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emb.Model() != "text-embedding-3-small" {
		t.Errorf("Model() = %q", emb.Model())
	}
	if emb.timeout != DefaultTimeout {
		t.Errorf("timeout = %v", emb.timeout)
	}
}

func TestGatewayDetail(t *testing.T) {
	tests := map[string]string{
		`{"detail":"model not found"}`: "model not found",
		`{"error":{"message":"x"}}`:     "",
		`not json`:                     "",
	}
	for body, want := range tests {
		if got := gatewayDetail([]byte(body)); got != want {
			t.Errorf("gatewayDetail(%s) = %q, want %q", body, got, want)
		}
	}
}

func TestEmbedder_SendsDimensionsAndUser(t *testing.T) {
	var got struct {
		Input      []string `json:"input"`
		Model      string   `json:"model"`
		Dimensions int      `json:"dimensions"`
		User       string   `json:"user"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		resp := openaiEmbeddingResponse{Object: "list", Data: []embeddingData{{Object: "embedding", Embedding: []float32{1}}}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	emb, err := NewEmbedder(&Config{APIKey: "k", BaseURL: server.URL, Model: "m-large", Dimensions: 256, User: "nexusrag"})
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}
	if _, err := emb.Embed(context.Background(), "churn risk"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if got.Model != "m-large" || got.Dimensions != 256 || got.User != "nexusrag" {
		t.Errorf("request = %+v", got)
	}
	if len(got.Input) != 1 || got.Input[0] != "churn risk" {
		t.Errorf("input = %v", got.Input)
	}
}

func TestEmbedder_ErrorMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"detail":"upstream unavailable"}`))
	}))
	defer server.Close()

	emb, err := NewEmbedder(&Config{APIKey: "k", BaseURL: server.URL, Provider: "metrics-test"})
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}
	before := testutil.ToFloat64(metrics.EmbeddingRequestsTotal.WithLabelValues("metrics-test", emb.Model(), "error"))

	_, err = emb.Embed(context.Background(), "x")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("err = %v, want provider error", err)
	}
	after := testutil.ToFloat64(metrics.EmbeddingRequestsTotal.WithLabelValues("metrics-test", emb.Model(), "error"))
	if after-before != 1 {
		t.Errorf("error requests grew by %v, want 1", after-before)
	}
}
