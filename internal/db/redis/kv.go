package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/nexusplanner/nexusrag/internal/db"
)

// exec runs cmd and tags a failure with op.
func (s *Store) exec(ctx context.Context, op string, cmd rueidis.Completed) error {
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: op, Err: err}
	}
	return nil
}

// Get returns the value at key, or db.ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.do(ctx, s.b().Get().Key(key).Build()).AsBytes()
	switch {
	case rueidis.IsRedisNil(err):
		return nil, db.ErrKeyNotFound
	case err != nil:
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return data, nil
}

// Set stores value at key without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.SetWithTTL(ctx, key, value, 0)
}

// SetWithTTL stores value at key. A non-positive ttl keeps the key forever;
// embedding vectors are cached that way when no TTL is configured.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	set := s.b().Set().Key(key).Value(rueidis.BinaryString(value))
	if ttl > 0 {
		return s.exec(ctx, db.OpSet, set.Ex(ttl).Build())
	}
	return s.exec(ctx, db.OpSet, set.Build())
}

// IncrBy adds val to the counter at key. Budget counters use it.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	return s.exec(ctx, db.OpIncrBy, s.b().Incrby().Key(key).Increment(val).Build())
}

// Expire sets a TTL on key. With nx it only applies when key has none yet,
// so a budget window keeps the expiry of its first increment.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error {
	exp := s.b().Expire().Key(key).Seconds(int64(ttl / time.Second))
	if nx {
		return s.exec(ctx, db.OpExpire, exp.Nx().Build())
	}
	return s.exec(ctx, db.OpExpire, exp.Build())
}
