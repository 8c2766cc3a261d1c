package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps cooldown records in Redis and makes the admission
// decision atomically: SET NX with the cooldown period as TTL means the key
// itself is the open window, and exactly one of any number of concurrent
// runs wins it. Expiry doubles as decay, so no cleanup pass is needed.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix overrides the default "taskmesh:cooldown:" key prefix.
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// NewRedisStore creates a store over an existing Redis client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: "taskmesh:cooldown:",
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *RedisStore) key(name string) string {
	return s.prefix + name
}

// Acquire implements Acquirer via SET NX PX: winning the key admits the
// caller, losing it reads the remaining TTL as the retry hint.
func (s *RedisStore) Acquire(ctx context.Context, name string, period time.Duration) (Decision, error) {
	now := time.Now().UTC()

	ok, err := s.client.SetNX(ctx, s.key(name), now.Format(time.RFC3339Nano), period).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("acquire cooldown key: %w", err)
	}
	if ok {
		return Decision{Allowed: true}, nil
	}

	ttl, err := s.client.PTTL(ctx, s.key(name)).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("read cooldown ttl: %w", err)
	}
	if ttl < 0 {
		// Key expired between SetNX and PTTL; treat as open window.
		return Decision{Allowed: true}, nil
	}

	return Decision{Allowed: false, RetryAfter: ttl}, nil
}

// LastUsed implements Store for callers that inspect rather than acquire.
func (s *RedisStore) LastUsed(ctx context.Context, name string) (time.Time, bool, error) {
	val, err := s.client.Get(ctx, s.key(name)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read cooldown record: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse cooldown timestamp %q: %w", val, err)
	}

	return t, true, nil
}

// Record implements Store. The record expires on its own; callers relying on
// Acquire never need it.
func (s *RedisStore) Record(ctx context.Context, name string, t time.Time) error {
	if err := s.client.Set(ctx, s.key(name), t.UTC().Format(time.RFC3339Nano), 0).Err(); err != nil {
		return fmt.Errorf("record cooldown usage: %w", err)
	}

	return nil
}
