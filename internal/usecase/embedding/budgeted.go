package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nexusplanner/nexusrag/internal/domain"
	"github.com/nexusplanner/nexusrag/internal/logger"
)

// BudgetChecker gates provider calls on a token budget. *BudgetTracker satisfies it.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
}

// BudgetedEmbedder charges provider tokens against a budget and logs each
// call. Request metrics live in transport/openai.
type BudgetedEmbedder struct {
	inner  domain.Embedder
	budget BudgetChecker
	labels []zap.Field
	logger *zap.Logger
}

// NewBudgetedEmbedder wraps inner. A nil budget only logs.
func NewBudgetedEmbedder(inner domain.Embedder, provider, model string, budget BudgetChecker, log *zap.Logger) *BudgetedEmbedder {
	return &BudgetedEmbedder{
		inner:  inner,
		budget: budget,
		labels: []zap.Field{zap.String("provider", provider), zap.String("model", model)},
		logger: log,
	}
}

// Embed refuses with domain.ErrEmbeddingQuotaExceeded when a reject-mode
// budget is spent. Failed calls are never charged.
func (e *BudgetedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	log := logger.FromContext(ctx, e.logger).With(e.labels...)

	if e.budget != nil {
		if err := e.budget.Check(ctx); err != nil {
			log.Warn("Embedding refused by budget", zap.Error(err))
			return domain.EmbeddingResult{}, fmt.Errorf("budget check: %w", err)
		}
	}

	began := time.Now()
	res, err := e.inner.Embed(ctx, text)
	took := zap.Duration("duration", time.Since(began))
	if err != nil {
		log.Error("Embedding request failed", took, zap.Error(err))
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	if e.budget != nil && res.TotalTokens > 0 {
		e.budget.Record(int64(res.TotalTokens))
	}
	log.Debug("Embedding request completed", took,
		zap.Int("dimensions", len(res.Embedding)),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return res, nil
}

// HealthCheck checks the inner embedder when it supports it.
func (e *BudgetedEmbedder) HealthCheck(ctx context.Context) error {
	hc, ok := e.inner.(domain.HealthChecker)
	if !ok {
		return nil
	}
	return hc.HealthCheck(ctx) //nolint:wrapcheck // decorator
}
