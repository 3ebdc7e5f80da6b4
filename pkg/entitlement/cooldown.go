package entitlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cooldown rate-limits the provider sync path per user. Acquire returns true
// when the caller may proceed and false while a previous sync is still fresh.
type Cooldown interface {
	Acquire(ctx context.Context, userID uuid.UUID) (bool, error)
}

// RedisCooldown implements Cooldown with a per-user SET NX key, so the
// throttle holds across independent request handlers without shared memory.
type RedisCooldown struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCooldown creates a Redis-backed sync cooldown.
// Panics on a nil client or non-positive ttl to fail fast during initialization.
func NewRedisCooldown(client *redis.Client, ttl time.Duration) *RedisCooldown {
	if client == nil {
		panic("entitlement: redis client is required")
	}
	if ttl <= 0 {
		panic("entitlement: cooldown ttl must be positive")
	}
	return &RedisCooldown{client: client, ttl: ttl}
}

func (c *RedisCooldown) Acquire(ctx context.Context, userID uuid.UUID) (bool, error) {
	key := fmt.Sprintf("entitlement:sync:%s", userID)
	ok, err := c.client.SetNX(ctx, key, 1, c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire sync cooldown: %w", err)
	}
	return ok, nil
}
