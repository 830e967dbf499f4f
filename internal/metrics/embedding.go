package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "nexusrag"
	embedding = "embedding"
)

func embeddingCounter(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: embedding,
		Name:      name,
		Help:      help,
	}, labels)
}

// Embedding provider, cache, budget and fallback metrics. Names keep the
// nexusrag_embedding_ prefix.
var (
	EmbeddingRequestsTotal = embeddingCounter("requests_total",
		"Embedding provider calls by status (success, error).",
		"provider", "model", "status")

	EmbeddingRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: embedding,
		Name:      "request_duration_seconds",
		Help:      "Latency of successful embedding provider calls.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"provider", "model"})

	EmbeddingTokensTotal = embeddingCounter("tokens_total",
		"Provider tokens consumed, by type (prompt, total).",
		"provider", "model", "type")

	EmbeddingErrorsTotal = embeddingCounter("errors_total",
		"Failed embedding provider calls by kind (timeout, rate_limited, api_error, empty_response).",
		"provider", "model", "error_type")

	EmbeddingBudgetTokensRemaining = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: embedding,
		Name:      "budget_tokens_remaining",
		Help:      "Tokens left in the current budget window (daily, monthly).",
	}, []string{"provider", "period"})

	EmbeddingCacheTotal = embeddingCounter("cache_total",
		"Embedding cache lookups by result (hit, miss).",
		"result")

	EmbeddingFallbackTotal = embeddingCounter("fallback_total",
		"Vectors served by the deterministic fallback, by reason (not_configured, quota, provider_error).",
		"reason")
)

var embeddingOnce sync.Once

// RegisterEmbeddingMetrics registers the embedding collectors with the
// default registry. Later calls are no-ops.
func RegisterEmbeddingMetrics() {
	embeddingOnce.Do(func() {
		prometheus.MustRegister(
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingErrorsTotal,
			EmbeddingBudgetTokensRemaining,
			EmbeddingCacheTotal,
			EmbeddingFallbackTotal,
		)
	})
}
