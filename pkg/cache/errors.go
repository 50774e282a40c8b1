package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNetwork is returned for backend connection failures and timeouts.
var ErrNetwork = errors.New("network error")

// RetryableError marks an error as transient.
type RetryableError struct{ Err error }

// Retryable marks err as transient. Retryable(nil) is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err was marked with [Retryable].
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// Backoff is a capped exponential retry policy for shared backends.
type Backoff struct {
	Attempts int           // total calls, at least 1
	Delay    time.Duration // wait after the first failure
	Max      time.Duration // cap on a single wait; 0 means uncapped
}

// DefaultBackoff rides out a Redis or MongoDB failover of about a second
// without stalling a training loop for long.
var DefaultBackoff = Backoff{Attempts: 3, Delay: 200 * time.Millisecond, Max: 2 * time.Second}

// Retry calls fn until it succeeds, returns an error not marked with
// [Retryable], or the attempts run out. It returns ctx.Err() if ctx ends
// while waiting.
func (b Backoff) Retry(ctx context.Context, fn func() error) error {
	delay := b.Delay
	var err error
	for i := range max(b.Attempts, 1) {
		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
		if i == max(b.Attempts, 1)-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if b.Max > 0 && delay > b.Max {
			delay = b.Max
		}
	}
	return err
}

// RetryWithBackoff retries fn under [DefaultBackoff].
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return DefaultBackoff.Retry(ctx, fn)
}
