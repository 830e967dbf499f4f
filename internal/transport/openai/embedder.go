package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/nexusplanner/nexusrag/internal/domain"
	"github.com/nexusplanner/nexusrag/internal/metrics"
)

// Defaults for the public OpenAI endpoint.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultTimeout = 10 * time.Second
)

// Error kinds reported on the embedding_errors_total metric.
const (
	errKindTimeout     = "timeout"
	errKindRateLimited = "rate_limited"
	errKindAPI         = "api_error"
	errKindEmpty       = "empty_response"
)

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int // 0 keeps the model's native size
	User       string
	Provider   string // metric label
	Timeout    time.Duration
	Logger     *zap.Logger
}

// Embedder calls an OpenAI-compatible /embeddings endpoint.
type Embedder struct {
	client   *openai.Client
	request  openai.EmbeddingRequest
	provider string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewEmbedder returns domain.ErrEmbeddingNotConfigured when cfg has no API key.
func NewEmbedder(cfg *Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider %q: %w", cfg.Provider, domain.ErrEmbeddingNotConfigured)
	}

	model := orDefault(cfg.Model, domain.DefaultVectorConfig().Model)
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = orDefault(cfg.BaseURL, DefaultBaseURL)
	oc.HTTPClient = &http.Client{Timeout: timeout}

	return &Embedder{
		client: openai.NewClientWithConfig(oc),
		request: openai.EmbeddingRequest{
			Model:          openai.EmbeddingModel(model),
			EncodingFormat: openai.EmbeddingEncodingFormatFloat,
			User:           cfg.User,
			Dimensions:     max(cfg.Dimensions, 0),
		},
		provider: cfg.Provider,
		timeout:  timeout,
		logger:   log.With(zap.String("provider", cfg.Provider), zap.String("model", model)),
	}, nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// Model returns the configured embedding model.
func (e *Embedder) Model() string { return string(e.request.Model) }

// Embed vectorizes one text. Every failure wraps domain.ErrEmbeddingProviderError.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	req := e.request
	req.Input = []string{text}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	began := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		e.fail(classify(err))
		e.logger.Debug("Embedding call failed", zap.Error(err))
		return domain.EmbeddingResult{}, describe(err)
	}
	if len(resp.Data) == 0 {
		e.fail(errKindEmpty)
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}

	e.succeed(time.Since(began), resp.Usage)
	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck lists models, which costs no tokens.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (e *Embedder) fail(kind string) {
	model := e.Model()
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, model, kind).Inc()
}

func (e *Embedder) succeed(took time.Duration, usage openai.Usage) {
	model := e.Model()
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, model).Observe(took.Seconds())
	if usage.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "prompt").Add(float64(usage.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "total").Add(float64(usage.TotalTokens))
	}
}

func classify(err error) string {
	var apiErr *openai.APIError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return errKindTimeout
	case errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests:
		return errKindRateLimited
	default:
		return errKindAPI
	}
}

// describe turns a client error into a readable provider error. Gateways that
// answer with {"detail": "..."} get that message surfaced.
func describe(err error) error {
	var (
		reqErr *openai.RequestError
		apiErr *openai.APIError
	)
	switch {
	case errors.As(err, &reqErr):
		msg := gatewayDetail(reqErr.Body)
		if msg == "" {
			msg = string(reqErr.Body)
		}
		return fmt.Errorf("embedding API error %d: %s: %w", reqErr.HTTPStatusCode, msg, domain.ErrEmbeddingProviderError)
	case errors.As(err, &apiErr):
		return fmt.Errorf("embedding API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, domain.ErrEmbeddingProviderError)
	default:
		return fmt.Errorf("embedding request failed: %v: %w", err, domain.ErrEmbeddingProviderError)
	}
}

func gatewayDetail(body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Detail
}
