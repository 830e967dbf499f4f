package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/nexusplanner/nexusrag/internal/db"
	"github.com/nexusplanner/nexusrag/internal/domain"
)

const (
	resultHit  = "hit"
	resultMiss = "miss"
)

type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEmbedder is an Embedder decorator that remembers provider vectors in
// the KV store. Fallback (degraded) vectors never enter the cache.
type CachedEmbedder struct {
	inner   domain.Embedder
	kv      kv
	prefix  string
	ttl     time.Duration
	lookups *prometheus.CounterVec
	logger  *zap.Logger
}

// Option configures a CachedEmbedder.
type Option func(*CachedEmbedder)

// WithTTL expires entries after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(c *CachedEmbedder) { c.ttl = ttl }
}

// WithModel scopes entries to one model and dimension setting.
func WithModel(model string) Option {
	return func(c *CachedEmbedder) {
		if model != "" {
			c.prefix = domain.KeyPrefix + "emb_cache:" + model + ":"
		}
	}
}

// New wraps inner. lookups, when set, is a counter vec labelled by result
// (hit or miss).
func New(inner domain.Embedder, s kv, lookups *prometheus.CounterVec, logger *zap.Logger, opts ...Option) *CachedEmbedder {
	c := &CachedEmbedder{
		inner:   inner,
		kv:      s,
		prefix:  domain.KeyPrefix + "emb_cache:",
		lookups: lookups,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Embed serves a cached vector when present. Hits report zero tokens.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.key(text)
	if vec, ok := c.lookup(ctx, key); ok {
		c.count(resultHit)
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	c.count(resultMiss)

	res, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	if !res.Degraded {
		if err := c.kv.SetWithTTL(ctx, key, encode(res.Embedding), c.ttl); err != nil {
			c.logger.Warn("Embedding cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return res, nil
}

// HealthCheck passes through to the inner embedder when it supports it.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	hc, ok := c.inner.(domain.HealthChecker)
	if !ok {
		return nil
	}
	return hc.HealthCheck(ctx) //nolint:wrapcheck // decorator
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.prefix + hex.EncodeToString(sum[:])
}

// lookup treats every read problem as a miss; only unexpected ones are logged.
func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	raw, err := c.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Embedding cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	vec, err := decode(raw)
	if err != nil {
		c.logger.Warn("Discarding cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) count(result string) {
	if c.lookups != nil {
		c.lookups.WithLabelValues(result).Inc()
	}
}
