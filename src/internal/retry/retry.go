// Package retry implements bounded retries with capped exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrAttemptsExhausted marks a terminal failure after every attempt failed,
// distinguishable from success and from context cancellation.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Backoff is the delay before the given 1-based attempt:
// min(base * 2^(attempt-1), cap).
func Backoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	if d > cap {
		return cap
	}
	return d
}

// Do runs fn up to attempts times, sleeping Backoff between failures.
// The sleep is context-aware; a cancelled context surfaces ctx.Err().
func Do(ctx context.Context, attempts int, base, cap time.Duration, fn func(context.Context) error) error {
	if attempts < 1 {
		return fmt.Errorf("retry: attempts must be positive, got %d", attempts)
	}

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := fn(ctx); err == nil {
			return nil
		} else {
			last = err
		}

		if attempt == attempts {
			break
		}

		timer := time.NewTimer(Backoff(attempt, base, cap))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempts, last)
}
