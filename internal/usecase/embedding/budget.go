package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nexusplanner/nexusrag/internal/domain"
	"github.com/nexusplanner/nexusrag/internal/domain/usage"
	"github.com/nexusplanner/nexusrag/internal/metrics"
)

// BudgetAction defines behavior when token budget is exceeded.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but allows the request.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject blocks the request.
	BudgetActionReject BudgetAction = "reject"
)

// persistTimeout bounds the write-behind of one Record call.
const persistTimeout = 2 * time.Second

// BudgetStore persists counters. IncrBy may be retried, so it must be additive.
type BudgetStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// window is the token counter of one budget period.
type window struct {
	period usage.Period
	name   string // "daily" or "monthly", used in keys and metric labels
	layout string
	limit  int64
	used   int64
	start  time.Time
}

// roll zeroes the counter once now leaves the current period.
func (w *window) roll(now time.Time) {
	start, _ := w.period.Window(now)
	if start.After(w.start) {
		w.used = 0
		w.start = start
	}
}

func (w *window) exceeded() bool { return w.limit > 0 && w.used >= w.limit }

// remaining is -1 for an unlimited window.
func (w *window) remaining() int64 {
	if w.limit == 0 {
		return -1
	}
	return max(w.limit-w.used, 0)
}

// BudgetTracker enforces daily and monthly token limits for one provider.
// Check never leaves memory. Record updates memory, then writes behind to
// the optional store so counters survive restarts.
type BudgetTracker struct {
	mu       sync.Mutex
	day      window
	month    window
	action   BudgetAction
	provider string
	store    BudgetStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewBudgetTracker creates a tracker. A zero limit disables that window.
func NewBudgetTracker(
	provider string, dailyLimit, monthlyLimit int64,
	action BudgetAction, logger *zap.Logger,
) *BudgetTracker {
	b := &BudgetTracker{
		day:      window{period: usage.PeriodDay, name: "daily", layout: "2006-01-02", limit: dailyLimit},
		month:    window{period: usage.PeriodMonth, name: "monthly", layout: "2006-01", limit: monthlyLimit},
		action:   action,
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
	b.rebase()
	return b
}

// WithClock replaces the time source and restarts both windows at its current time.
func (b *BudgetTracker) WithClock(now func() time.Time) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
	b.rebase()
	return b
}

func (b *BudgetTracker) rebase() {
	t := b.now()
	b.day.start, _ = b.day.period.Window(t)
	b.month.start, _ = b.month.period.Window(t)
}

func (b *BudgetTracker) windows() [2]*window { return [2]*window{&b.day, &b.month} }

// WithStore attaches a store and loads the counters of the current periods.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = store
	now := b.now()
	for _, w := range b.windows() {
		v, err := store.Get(ctx, b.key(w, now))
		if err != nil {
			b.logger.Warn("Failed to load budget counter",
				zap.String("provider", b.provider), zap.String("window", w.name), zap.Error(err))
			continue
		}
		w.used = v
	}
	b.logger.Info("Budget loaded from store",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.day.used),
		zap.Int64("monthly_used", b.month.used),
	)
	return b
}

// key is nexusrag:budget:{provider}:{daily|monthly}:{period stamp}.
func (b *BudgetTracker) key(w *window, t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:%s:%s", domain.KeyPrefix, b.provider, w.name, t.UTC().Format(w.layout))
}

func (b *BudgetTracker) roll() {
	now := b.now()
	b.day.roll(now)
	b.month.roll(now)
}

// Check returns domain.ErrEmbeddingQuotaExceeded when a limit is spent and
// the action is reject. With warn the request is allowed and logged.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.roll()
	if !b.day.exceeded() && !b.month.exceeded() {
		return nil
	}
	if b.action == BudgetActionReject {
		return domain.ErrEmbeddingQuotaExceeded
	}
	b.logger.Warn("Token budget exceeded",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.day.used),
		zap.Int64("daily_limit", b.day.limit),
		zap.Int64("monthly_used", b.month.used),
		zap.Int64("monthly_limit", b.month.limit),
	)
	return nil
}

// Record adds consumed tokens to both windows and publishes the remaining
// budget gauge.
func (b *BudgetTracker) Record(tokens int64) {
	b.mu.Lock()
	b.roll()
	now := b.now()
	keys := make([]string, 0, 2)
	for _, w := range b.windows() {
		w.used += tokens
		metrics.EmbeddingBudgetTokensRemaining.WithLabelValues(b.provider, w.name).Set(float64(w.remaining()))
		keys = append(keys, b.key(w, now))
	}
	store := b.store
	b.mu.Unlock()

	if store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	for _, k := range keys {
		if err := store.IncrBy(ctx, k, tokens); err != nil {
			b.logger.Warn("Failed to persist budget counter", zap.String("key", k), zap.Error(err))
		}
	}
}

func (b *BudgetTracker) read(f func() int64) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll()
	return f()
}

// RemainingDaily returns tokens left today, or -1 when unlimited.
func (b *BudgetTracker) RemainingDaily() int64 { return b.read(b.day.remaining) }

// RemainingMonthly returns tokens left this month, or -1 when unlimited.
func (b *BudgetTracker) RemainingMonthly() int64 { return b.read(b.month.remaining) }

// DailyUsed returns tokens consumed today.
func (b *BudgetTracker) DailyUsed() int64 { return b.read(func() int64 { return b.day.used }) }

// MonthlyUsed returns tokens consumed this month.
func (b *BudgetTracker) MonthlyUsed() int64 { return b.read(func() int64 { return b.month.used }) }

// DailyLimit returns the daily token cap.
func (b *BudgetTracker) DailyLimit() int64 { return b.day.limit }

// MonthlyLimit returns the monthly token cap.
func (b *BudgetTracker) MonthlyLimit() int64 { return b.month.limit }

// Exhausted reports whether either limit is spent, whatever the action.
func (b *BudgetTracker) Exhausted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll()
	return b.day.exceeded() || b.month.exceeded()
}

// Provider returns the provider name the counters belong to.
func (b *BudgetTracker) Provider() string { return b.provider }
