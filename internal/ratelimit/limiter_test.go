package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClock is a manually advanced time source shared by concurrent checks.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(t *testing.T, perMinute, burst int) (*Limiter, *testClock) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	clock := newTestClock()
	return NewLimiter(client, perMinute, burst, WithClock(clock.Now)), clock
}

func TestLimiter_AdmitsExactlyBurstInstantly(t *testing.T) {
	ctx := context.Background()
	// burst=5, 60/min = 1 token/s
	limiter, clock := newTestLimiter(t, 60, 5)

	for i := 0; i < 5; i++ {
		result, err := limiter.Check(ctx, "client-1")
		require.NoError(t, err)
		assert.True(t, result.Allowed, "call %d should be admitted", i+1)
	}

	result, err := limiter.Check(ctx, "client-1")
	require.NoError(t, err)
	assert.False(t, result.Allowed, "6th call should be denied")

	// One second of refill buys exactly one more admission.
	clock.Advance(time.Second)

	result, err = limiter.Check(ctx, "client-1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	result, err = limiter.Check(ctx, "client-1")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
}

func TestLimiter_RemainingDecreases(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, 60, 3)

	result, err := limiter.Check(ctx, "client-1")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, result.Remaining, 0.001)

	result, err = limiter.Check(ctx, "client-1")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.Remaining, 0.001)
}

func TestLimiter_ClientsAreIsolated(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, 60, 1)

	result, err := limiter.Check(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	result, err = limiter.Check(ctx, "client-a")
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	// A different client still has its own full bucket.
	result, err = limiter.Check(ctx, "client-b")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestLimiter_ConcurrentChecksNeverOverAdmit(t *testing.T) {
	ctx := context.Background()
	// burst=1 and a frozen clock: exactly one of N concurrent callers may win.
	limiter, _ := newTestLimiter(t, 60, 1)

	const callers = 16

	var wg sync.WaitGroup
	results := make([]bool, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := limiter.Check(ctx, "client-1")
			results[i] = result.Allowed
			errs[i] = err
		}(i)
	}
	wg.Wait()

	allowed := 0
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		if results[i] {
			allowed++
		}
	}

	assert.Equal(t, 1, allowed, "exactly one concurrent caller may be admitted")
}

func TestLimiter_DenyStillPersistsRefill(t *testing.T) {
	ctx := context.Background()
	limiter, clock := newTestLimiter(t, 60, 1)

	// Drain the bucket.
	result, err := limiter.Check(ctx, "client-1")
	require.NoError(t, err)
	require.True(t, result.Allowed)

	// Half a second refills half a token; the check is denied but the
	// refilled state is persisted.
	clock.Advance(500 * time.Millisecond)
	result, err = limiter.Check(ctx, "client-1")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.InDelta(t, 0.5, result.Remaining, 0.01)

	// The other half second completes the token.
	clock.Advance(500 * time.Millisecond)
	result, err = limiter.Check(ctx, "client-1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestLimiter_BucketNeverExceedsBurst(t *testing.T) {
	ctx := context.Background()
	limiter, clock := newTestLimiter(t, 60, 2)

	// A long idle period must not bank more than burst tokens.
	result, err := limiter.Check(ctx, "client-1")
	require.NoError(t, err)
	require.True(t, result.Allowed)

	clock.Advance(time.Hour)

	for i := 0; i < 2; i++ {
		result, err = limiter.Check(ctx, "client-1")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err = limiter.Check(ctx, "client-1")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
}
