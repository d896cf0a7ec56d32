package credstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// redisKeyPrefix namespaces credential hashes in a shared Redis.
	redisKeyPrefix = "taskboard:credentials:"
	// redisOpTimeout bounds each Redis round trip; the Store interface is
	// synchronous so the deadline lives here rather than in a caller context.
	redisOpTimeout = 5 * time.Second
)

// RedisStore keeps credentials in a Redis hash, one hash per profile.
// It serves shared environments (CI runners, agent fleets) where several
// processes reuse one login. An optional TTL expires abandoned credentials;
// the TTL is refreshed on every write.
type RedisStore struct {
	client  *redis.Client
	profile string
	ttl     time.Duration
}

// NewRedisStore creates a Redis-backed store for the given profile name.
// A non-positive ttl disables expiry.
func NewRedisStore(client *redis.Client, profile string, ttl time.Duration) *RedisStore {
	if profile == "" {
		profile = "default"
	}
	return &RedisStore{client: client, profile: profile, ttl: ttl}
}

// Get implements Store.
func (s *RedisStore) Get(key string) (string, bool, error) {
	ctx, cancel := s.opContext()
	defer cancel()

	val, err := s.client.HGet(ctx, s.hashKey(), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

// Set implements Store.
func (s *RedisStore) Set(key, value string) error {
	ctx, cancel := s.opContext()
	defer cancel()

	if err := s.client.HSet(ctx, s.hashKey(), key, value).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	s.refreshTTL(ctx)
	return nil
}

// Remove implements Store.
func (s *RedisStore) Remove(key string) error {
	ctx, cancel := s.opContext()
	defer cancel()

	if err := s.client.HDel(ctx, s.hashKey(), key).Err(); err != nil {
		return fmt.Errorf("redis remove %s: %w", key, err)
	}
	return nil
}

// Clear implements Store. The whole hash is deleted in one command so a
// concurrent reader sees either the full record or none of it.
func (s *RedisStore) Clear() error {
	ctx, cancel := s.opContext()
	defer cancel()

	if err := s.client.Del(ctx, s.hashKey()).Err(); err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) hashKey() string {
	return redisKeyPrefix + s.profile
}

func (s *RedisStore) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), redisOpTimeout)
}

func (s *RedisStore) refreshTTL(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}
	// Best effort: losing a TTL refresh only delays expiry.
	_ = s.client.Expire(ctx, s.hashKey(), s.ttl).Err()
}
