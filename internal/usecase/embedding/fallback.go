package embedding

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/nexusplanner/nexusrag/internal/domain"
	"github.com/nexusplanner/nexusrag/internal/logger"
	"github.com/nexusplanner/nexusrag/internal/metrics"
)

// Fallback reasons, used as the metric label.
const (
	ReasonNotConfigured = "not_configured"
	ReasonQuota         = "quota"
	ReasonProviderError = "provider_error"
)

// FallbackEmbedder keeps retrieval available when the provider is missing or
// failing: any provider error is logged and replaced by the deterministic
// HashEmbedder vector with Degraded set. Embed only fails on context cancellation.
type FallbackEmbedder struct {
	primary  domain.Embedder
	fallback *HashEmbedder
	logger   *zap.Logger
}

// NewFallbackEmbedder wraps primary. A nil primary always serves the fallback.
func NewFallbackEmbedder(primary domain.Embedder, fallback *HashEmbedder, log *zap.Logger) *FallbackEmbedder {
	return &FallbackEmbedder{primary: primary, fallback: fallback, logger: log}
}

// Embed returns the primary embedding, or a degraded fallback vector.
func (f *FallbackEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if f.primary == nil {
		return f.degrade(ctx, text, ReasonNotConfigured, nil), nil
	}

	result, err := f.primary.Embed(ctx, text)
	if err == nil {
		if len(result.Embedding) != f.fallback.Dimensions() {
			err = domain.NewDimMismatch(len(result.Embedding), f.fallback.Dimensions())
		} else {
			return result, nil
		}
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.EmbeddingResult{}, ctxErr //nolint:wrapcheck // caller cancelled
	}

	reason := ReasonProviderError
	if errors.Is(err, domain.ErrEmbeddingQuotaExceeded) {
		reason = ReasonQuota
	}
	return f.degrade(ctx, text, reason, err), nil
}

// Configured reports whether a primary provider is wired.
func (f *FallbackEmbedder) Configured() bool { return f.primary != nil }

// HealthCheck reports the primary provider health. Missing provider is not an error.
func (f *FallbackEmbedder) HealthCheck(ctx context.Context) error {
	if f.primary == nil {
		return nil
	}
	if hc, ok := f.primary.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // pass-through decorator
	}
	return nil
}

func (f *FallbackEmbedder) degrade(ctx context.Context, text, reason string, cause error) domain.EmbeddingResult {
	metrics.EmbeddingFallbackTotal.WithLabelValues(reason).Inc()

	log := logger.FromContext(ctx, f.logger)
	if cause != nil {
		log.Warn("Embedding provider failed, using fallback vector",
			zap.String("reason", reason),
			zap.Error(cause),
		)
	} else {
		log.Debug("No embedding provider configured, using fallback vector")
	}

	return domain.EmbeddingResult{Embedding: f.fallback.Vector(text), Degraded: true}
}
