package usage

import (
	"context"
	"time"

	domusage "github.com/nexusplanner/nexusrag/internal/domain/usage"
)

// Service reports embedding token consumption.
type Service struct {
	br       BudgetReader
	provider string
	now      func() time.Time
}

// New creates a Service. br may be nil when no budget is configured. Reports
// are then unlimited with no recorded usage.
func New(br BudgetReader, provider string) *Service {
	if br != nil {
		provider = br.Provider()
	}
	return &Service{br: br, provider: provider, now: time.Now}
}

// WithClock overrides the clock used for period boundaries.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Report builds the usage report for period.
func (s *Service) Report(_ context.Context, period domusage.Period) domusage.Report {
	start, end := period.Window(s.now())
	r := domusage.Report{Provider: s.provider, Period: period, Start: start, End: end, Remaining: -1}
	if s.br == nil {
		return r
	}
	if period == domusage.PeriodMonth {
		r.Limit, r.Used, r.Remaining = s.br.MonthlyLimit(), s.br.MonthlyUsed(), s.br.RemainingMonthly()
	} else {
		r.Limit, r.Used, r.Remaining = s.br.DailyLimit(), s.br.DailyUsed(), s.br.RemainingDaily()
	}
	return r
}
