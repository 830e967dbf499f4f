package health

import (
	"context"
	"time"
)

// DefaultCheckTimeout bounds each check so a hung dependency cannot stall /health.
const DefaultCheckTimeout = 2 * time.Second

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded means retrieval still answers, possibly with fallback embeddings.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckDisabled marks a component that is not configured.
	CheckDisabled CheckResult = "disabled"
	// CheckExhausted marks a spent embedding budget.
	CheckExhausted CheckResult = "exhausted"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	embedding EmbeddingChecker
	budget    BudgetChecker
	timeout   time.Duration
}

// New creates a Service. Any checker may be nil.
func New(db DBPinger, embedding EmbeddingChecker, budget BudgetChecker) *Service {
	return &Service{db: db, embedding: embedding, budget: budget, timeout: DefaultCheckTimeout}
}

// WithTimeout overrides the per-check timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

func (s *Service) runCheck(ctx context.Context, f func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if f(ctx) != nil {
		return CheckError
	}
	return CheckOK
}

// Check runs health checks against all components. The service never reports
// itself down: without the provider or cache it serves fallback embeddings.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks["database"] = CheckDisabled
	if s.db != nil {
		checks["database"] = s.runCheck(ctx, s.db.Ping)
	}

	checks["embedding"] = CheckDisabled
	if s.embedding != nil && s.embedding.Configured() {
		checks["embedding"] = s.runCheck(ctx, s.embedding.HealthCheck)
	}

	if s.budget != nil {
		if s.budget.Exhausted() {
			checks["budget"] = CheckExhausted
		} else {
			checks["budget"] = CheckOK
		}
	}

	status := Healthy
	for name, v := range checks {
		if v == CheckError || v == CheckExhausted || (name == "embedding" && v == CheckDisabled) {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
