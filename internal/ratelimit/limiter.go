package ratelimit

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

//go:embed tokenbucket.lua
var tokenBucketSrc string

// tokenBucket is content-addressed: go-redis registers it by SHA, runs it
// via EVALSHA, and transparently reloads and retries when the server has
// evicted the script (e.g. after a restart). Callers never see NOSCRIPT.
var tokenBucket = redis.NewScript(tokenBucketSrc)

// RetryAfter is the hint surfaced to clients on deny.
const RetryAfter = 60 * time.Second

// Result is the outcome of one admission check.
type Result struct {
	Allowed   bool
	Remaining float64
}

// Limiter is a distributed continuous token bucket: each client has
// capacity burst, refilled at per-minute/60 tokens per second. All state
// lives in Redis and every check executes as one atomic script, so
// concurrent checks for the same client can never over-admit.
type Limiter struct {
	client    redis.Scripter
	perMinute int
	burst     int
	now       func() time.Time
}

// LimiterOption customizes a Limiter.
type LimiterOption func(*Limiter)

// WithClock overrides the time source. Used by tests to control refill.
func WithClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) { l.now = now }
}

// NewLimiter creates a Limiter against the given Redis client.
func NewLimiter(client redis.Scripter, perMinute, burst int, opts ...LimiterOption) *Limiter {
	if client == nil {
		panic("ratelimit: redis client must not be nil")
	}

	l := &Limiter{
		client:    client,
		perMinute: perMinute,
		burst:     burst,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check runs one admission decision for clientKey. On allow, one token is
// consumed. On deny, no token is consumed but the refilled bucket state is
// still persisted. A deny is the designed outcome of admission control,
// not an error; errors mean the backing store itself failed.
func (l *Limiter) Check(ctx context.Context, clientKey string) (Result, error) {
	rate := float64(l.perMinute) / 60
	now := float64(l.now().UnixNano()) / float64(time.Second)

	keys := []string{
		fmt.Sprintf("rl:%s:tokens", clientKey),
		fmt.Sprintf("rl:%s:ts", clientKey),
	}

	raw, err := tokenBucket.Run(ctx, l.client, keys, l.burst, rate, now, 1).Result()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit check: %w", err)
	}

	reply, ok := raw.([]interface{})
	if !ok || len(reply) != 2 {
		return Result{}, fmt.Errorf("rate limit check: unexpected reply %T", raw)
	}

	allowed, ok := reply[0].(int64)
	if !ok {
		return Result{}, fmt.Errorf("rate limit check: unexpected allowed flag %T", reply[0])
	}

	remainingStr, ok := reply[1].(string)
	if !ok {
		return Result{}, fmt.Errorf("rate limit check: unexpected remaining value %T", reply[1])
	}
	remaining, err := strconv.ParseFloat(remainingStr, 64)
	if err != nil {
		return Result{}, fmt.Errorf("rate limit check: parse remaining %q: %w", remainingStr, err)
	}

	return Result{Allowed: allowed == 1, Remaining: remaining}, nil
}
