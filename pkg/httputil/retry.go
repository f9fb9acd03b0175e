package httputil

import (
	"context"
	"errors"
	"time"
)

// RetryableError marks a transient failure, such as a dropped connection or
// a 5xx response. [Retry] only repeats calls that fail with one.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry calls fn until it succeeds, fails with a non-retryable error, or
// attempts calls were made. The wait between calls starts at delay and
// doubles each time. Cancelling ctx stops the wait and returns ctx.Err().
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var err error
	for i := range attempts {
		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
	return err
}

// IsRetryable reports whether err wraps a [RetryableError].
func IsRetryable(err error) bool {
	var r *RetryableError
	return errors.As(err, &r)
}
