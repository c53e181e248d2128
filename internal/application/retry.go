package application

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"printvault/internal/domain"
)

// RetryPolicy bounds how transient transport failures are retried.
type RetryPolicy struct {
	Retries  int
	Initial  time.Duration
	MaxDelay time.Duration
}

// DefaultRetryPolicy retries twice starting at half a second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Retries: 2, Initial: 500 * time.Millisecond, MaxDelay: 5 * time.Second}
}

// NoRetry runs an operation exactly once.
func NoRetry() RetryPolicy { return RetryPolicy{} }

// Do runs op until it succeeds, fails with an error that is not retryable,
// or the retries are spent. onRetry, if set, runs before each new attempt.
func (p RetryPolicy) Do(ctx context.Context, op func() error, onRetry func(err error, wait time.Duration)) error {
	b := backoff.NewExponentialBackOff()
	if p.Initial > 0 {
		b.InitialInterval = p.Initial
	}
	if p.MaxDelay > 0 {
		b.MaxInterval = p.MaxDelay
	}
	b.MaxElapsedTime = 0

	retries := p.Retries
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)

	return backoff.RetryNotify(func() error {
		err := op()
		if err != nil && !domain.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, onRetry)
}
