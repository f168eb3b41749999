// Package idempotency provides a short-TTL duplicate-submission guard.
//
// The guard is a fast-path, best-effort suppressor: it keeps bursts of
// near-simultaneous duplicate submissions from racing each other into the
// durable store, but provides no permanent idempotency. The unique
// constraint on signals.idem_key is the permanent layer; the two
// guarantees are independent and differently scoped.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTL is the duplicate-suppression window.
const TTL = 60 * time.Second

// ErrConflict is returned when the key was already claimed within the window.
var ErrConflict = errors.New("idempotency key already claimed")

// Guard claims idempotency keys with an atomic set-if-absent.
type Guard struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewGuard creates a Guard with the fixed 60-second window.
func NewGuard(client redis.Cmdable) *Guard {
	if client == nil {
		panic("idempotency: redis client must not be nil")
	}
	return &Guard{client: client, ttl: TTL}
}

// EnsureOnce atomically claims key for the TTL window. Returns
// ErrConflict if the key is already claimed; any other error is a store
// failure.
func (g *Guard) EnsureOnce(ctx context.Context, key string) error {
	claimed, err := g.client.SetNX(ctx, "idempotency:"+key, "1", g.ttl).Result()
	if err != nil {
		return fmt.Errorf("claim idempotency key: %w", err)
	}
	if !claimed {
		return ErrConflict
	}
	return nil
}
