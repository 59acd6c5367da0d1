// Package redisdedup provides a Redis-backed seen store for deployments
// where the notification session outlives a single process or is shared
// across instances. Keys expire after a TTL, which bounds growth — the
// in-memory store accepts unbounded growth instead.
package redisdedup

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// SeenStore implements notify.SeenStore on Redis using SET NX, which is
// atomic across instances: exactly one caller wins each key.
type SeenStore struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// New creates a Redis seen store and verifies connectivity.
func New(ctx context.Context, addr, prefix string, ttl time.Duration) (*SeenStore, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &SeenStore{client: client, prefix: prefix, ttl: ttl}, nil
}

// MarkSurfaced returns true exactly once per key until the TTL expires it.
func (s *SeenStore) MarkSurfaced(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", key, err)
	}
	return ok, nil
}

// Close releases the Redis connection.
func (s *SeenStore) Close() error {
	return s.client.Close()
}
