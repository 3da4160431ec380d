package shared

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy configures [Retry].
type RetryPolicy struct {
	Attempts  int                    // Total attempts including the first; values below 1 mean 1
	Backoff   func() backoff.BackOff // Builds a fresh schedule for each call; nil retries without delay
	Retryable func(err error) bool   // Reports whether err warrants another attempt; nil retries everything
}

// ExponentialBackoff returns a schedule of base, 2*base, 4*base... capped at max, without jitter.
func ExponentialBackoff(base, max time.Duration) func() backoff.BackOff {
	return func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = base
		b.MaxInterval = max
		b.Multiplier = 2
		b.RandomizationFactor = 0
		b.MaxElapsedTime = 0
		b.Reset()
		return b
	}
}

// Retry runs op until it succeeds, returns a non-retryable error, or the policy runs out of attempts.
//
// The last error is returned unchanged so callers can still match it with errors.Is/As.
// Waiting between attempts honors ctx.
func Retry(ctx context.Context, p RetryPolicy, op func(ctx context.Context) error) error {
	var schedule backoff.BackOff = &backoff.ZeroBackOff{}
	if p.Backoff != nil {
		schedule = p.Backoff()
	}
	retries := uint64(max(p.Attempts, 1) - 1)

	return backoff.Retry(func() error {
		err := op(ctx)
		if err != nil && p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(schedule, retries), ctx))
}

// RetryValue is [Retry] for operations that produce a value.
func RetryValue[T any](ctx context.Context, p RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := Retry(ctx, p, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
