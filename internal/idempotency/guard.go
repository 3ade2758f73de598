// Package idempotency deduplicates caller-supplied Idempotency-Key values
// for the Integrations API's outbound/send endpoint (§6, §8: "produces at
// most one persisted outbound job"). Grounded on internal/sendqueue's own
// narrow-RedisClient-interface pattern (internal/sendqueue/redis_store.go)
// so a caller can hand in a *redis.Client without this package importing
// the full client surface.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTL bounds how long a claimed key is remembered before it can be reused.
const TTL = 24 * time.Hour

// RedisClient is the subset of *redis.Client this package depends on.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// Guard claims Idempotency-Key values against a shared Redis keyspace.
type Guard struct {
	client RedisClient
}

// New builds a Guard over client.
func New(client RedisClient) *Guard {
	return &Guard{client: client}
}

// Claim atomically marks key as seen for TTL and reports whether this call
// was the first to see it. A false result means a prior request already
// claimed the key — the caller must not repeat the side effect it guards.
func (g *Guard) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, "idempotency:"+key, "1", TTL).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency: claim %q: %w", key, err)
	}
	return ok, nil
}
