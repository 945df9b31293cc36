package api

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"rivo-reminders/domain"
)

const guardKeyPrefix = "reminder-dispatch"

// RedisDispatchGuard records in-flight user/tier batches in Redis so an
// overlapping or retried invocation cannot dispatch the same batch while a
// concurrent run is still working on it. The per-task notified flags remain
// the durable duplicate gate; the guard only closes the window between a send
// and its flag writes.
type RedisDispatchGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDispatchGuard creates a guard using the provided Redis client and TTL.
func NewRedisDispatchGuard(client *redis.Client, ttl time.Duration) *RedisDispatchGuard {
	return &RedisDispatchGuard{client: client, ttl: ttl}
}

func (g *RedisDispatchGuard) key(date, userID string, tier domain.Tier) string {
	return fmt.Sprintf("%s:%s:%s:%s", guardKeyPrefix, date, userID, tier.Code)
}

// Acquire claims the batch for this run. It returns true when the claim is
// new and false when another in-flight run already holds it.
func (g *RedisDispatchGuard) Acquire(ctx context.Context, date, userID string, tier domain.Tier) (bool, error) {
	return g.client.SetNX(ctx, g.key(date, userID, tier), 1, g.ttl).Result()
}

// Release frees a claim after a failed send so the caller may retry.
func (g *RedisDispatchGuard) Release(ctx context.Context, date, userID string, tier domain.Tier) error {
	return g.client.Del(ctx, g.key(date, userID, tier)).Err()
}
