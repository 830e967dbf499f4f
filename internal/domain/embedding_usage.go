package domain

import (
	"context"
	"sync"
)

type embeddingUsageKey struct{}

// EmbeddingUsage collects embedding activity for one HTTP request.
// The handler installs it, services record into it, and the handler
// reports it back in response headers. A nil *EmbeddingUsage ignores writes.
type EmbeddingUsage struct {
	mu       sync.Mutex
	tokens   int
	calls    int
	degraded bool
}

// NewContextWithUsage returns a context carrying u.
func NewContextWithUsage(ctx context.Context, u *EmbeddingUsage) context.Context {
	return context.WithValue(ctx, embeddingUsageKey{}, u)
}

// UsageFromContext returns the collector, or nil if none is installed.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// Record adds one embedding result. Cache hits count as calls with zero tokens.
func (u *EmbeddingUsage) Record(r EmbeddingResult) {
	if u == nil {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.tokens += r.TotalTokens
	u.calls++
	u.degraded = u.degraded || r.Degraded
}

// Tokens returns the total tokens consumed.
func (u *EmbeddingUsage) Tokens() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tokens
}

// Used reports whether any embedding was requested.
func (u *EmbeddingUsage) Used() bool {
	if u == nil {
		return false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls > 0
}

// Degraded reports whether any recorded result came from the fallback.
func (u *EmbeddingUsage) Degraded() bool {
	if u == nil {
		return false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.degraded
}
