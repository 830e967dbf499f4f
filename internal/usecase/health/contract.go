package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
	Configured() bool
}

// BudgetChecker reports whether the embedding token budget is spent.
type BudgetChecker interface {
	Exhausted() bool
}
