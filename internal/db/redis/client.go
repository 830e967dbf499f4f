package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/nexusplanner/nexusrag/internal/db"
)

var _ db.Store = (*Store)(nil)

// Readiness polling backoff.
const (
	readyInitialDelay = 50 * time.Millisecond
	readyMaxDelay     = time.Second
)

// Config holds connection parameters. The same plain KV commands run on
// Redis and Valkey, so both drivers share this store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	// ClientName shows up in CLIENT LIST. Default: nexusrag.
	ClientName string
}

// Store is the optional key-value store behind the embedding cache and the
// persisted budget counters.
type Store struct {
	client rueidis.Client
}

// NewStore connects through rueidis. Client-side caching is off: cached
// vectors and counters are read once per miss.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("redis: at least one address is required")
	}
	name := cfg.ClientName
	if name == "" {
		name = "nexusrag"
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		ClientName:   name,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: connect %v: %w", cfg.Addrs, err)
	}
	return newStore(client), nil
}

func newStore(c rueidis.Client) *Store { return &Store{client: c} }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.exec(ctx, db.OpPing, s.b().Ping().Build())
}

// Close shuts down the client.
func (s *Store) Close() { s.client.Close() }

// WaitForReady pings with growing delays until the server answers or timeout
// elapses. The last ping error is reported on timeout.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	delay := readyInitialDelay
	for {
		err := s.Ping(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("database not ready after %s: %w", timeout, errors.Join(ctx.Err(), err))
		case <-time.After(delay):
		}
		delay = min(delay*2, readyMaxDelay)
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder { return s.client.B() }
