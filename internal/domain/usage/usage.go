package usage

import (
	"fmt"
	"time"

	"github.com/nexusplanner/nexusrag/internal/domain"
)

// Period is the budget window a report covers.
type Period string

// Budget windows.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod validates a period name. Empty means PeriodDay.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodDay:
		return PeriodDay, nil
	case PeriodMonth:
		return PeriodMonth, nil
	}
	return "", fmt.Errorf("unknown period %q (want day or month): %w", s, domain.ErrInvalidRequest)
}

// Window returns the UTC boundaries of the period containing t.
func (p Period) Window(t time.Time) (start, end time.Time) {
	t = t.UTC()
	if p == PeriodMonth {
		start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	}
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// Report is the embedding token consumption of one provider for a period.
// A zero Limit means unlimited, and Remaining is then -1.
type Report struct {
	Provider  string
	Period    Period
	Start     time.Time
	End       time.Time
	Limit     int64
	Used      int64
	Remaining int64
}

// Exhausted reports whether a limit is set and fully spent.
func (r *Report) Exhausted() bool { return r.Limit > 0 && r.Remaining <= 0 }
