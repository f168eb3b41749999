// Package retry wraps transient-failure-prone calls in exponential
// backoff. The core components never retry internally; callers that want
// retry semantics opt in through this helper.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	defaultInitialInterval = 100 * time.Millisecond
	defaultMaxInterval     = 2 * time.Second
)

// Do runs op with exponential backoff until it succeeds, attempts are
// exhausted, or ctx is cancelled. The last error is returned.
func Do[T any](ctx context.Context, attempts uint, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = defaultInitialInterval
	b.MaxInterval = defaultMaxInterval

	return backoff.Retry(ctx, backoff.Operation[T](op),
		backoff.WithBackOff(b),
		backoff.WithMaxTries(attempts),
	)
}
