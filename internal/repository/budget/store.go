package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nexusplanner/nexusrag/internal/db"
)

// Default retention of persisted counters. A window must outlive its period.
const (
	DefaultDailyRetention   = 48 * time.Hour
	DefaultMonthlyRetention = 62 * 24 * time.Hour
)

type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store keeps embedding token counters in the KV store so a restart does not
// reset the budget. Keys look like nexusrag:budget:{provider}:{daily|monthly}:{stamp}.
type Store struct {
	kv        kv
	retention map[string]time.Duration
}

// New creates a Store. Non-positive retentions fall back to the defaults.
func New(s kv, daily, monthly time.Duration) *Store {
	if daily <= 0 {
		daily = DefaultDailyRetention
	}
	if monthly <= 0 {
		monthly = DefaultMonthlyRetention
	}
	return &Store{kv: s, retention: map[string]time.Duration{"daily": daily, "monthly": monthly}}
}

// IncrBy adds tokens to the counter at key. The first increment of a window
// fixes its expiry; later ones leave it alone.
func (s *Store) IncrBy(ctx context.Context, key string, tokens int64) error {
	if err := s.kv.IncrBy(ctx, key, tokens); err != nil {
		return fmt.Errorf("budget: increment %s: %w", key, err)
	}
	if err := s.kv.Expire(ctx, key, s.retentionFor(key), true); err != nil {
		return fmt.Errorf("budget: expire %s: %w", key, err)
	}
	return nil
}

// Get reads the counter at key. A missing key counts as zero.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	raw, err := s.kv.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("budget: read %s: %w", key, err)
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget: counter %s is not an integer: %w", key, err)
	}
	return n, nil
}

// retentionFor picks the window kind from the second-to-last key segment.
func (s *Store) retentionFor(key string) time.Duration {
	parts := strings.Split(key, ":")
	if len(parts) >= 2 {
		if ttl, ok := s.retention[parts[len(parts)-2]]; ok {
			return ttl
		}
	}
	return s.retention["monthly"]
}
