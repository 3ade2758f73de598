package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeRedisClient struct {
	claimed map[string]bool
}

func newFakeRedisClient() *fakeRedisClient {
	return &fakeRedisClient{claimed: make(map[string]bool)}
}

func (f *fakeRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	first := !f.claimed[key]
	f.claimed[key] = true
	return redis.NewBoolResult(first, nil)
}

func TestGuard_FirstClaimSucceeds(t *testing.T) {
	g := New(newFakeRedisClient())

	ok, err := g.Claim(context.Background(), "key-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected first claim to succeed")
	}
}

func TestGuard_RepeatClaimFails(t *testing.T) {
	g := New(newFakeRedisClient())
	ctx := context.Background()

	if ok, err := g.Claim(ctx, "key-1"); err != nil || !ok {
		t.Fatalf("expected first claim to succeed, got ok=%v err=%v", ok, err)
	}

	ok, err := g.Claim(ctx, "key-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected repeat claim with the same key to fail")
	}
}
