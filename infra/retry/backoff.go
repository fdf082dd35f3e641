// Package retry implements bounded exponential backoff for transient
// collaborator failures (the balance oracle, chiefly).
package retry

import (
	"context"
	"time"
)

const (
	baseDelay = 200 * time.Millisecond
	maxDelay  = 5 * time.Second
)

// Backoff returns the exponential backoff duration for a given attempt.
// Logic: baseDelay * 2^attempt, capped at maxDelay. A negative attempt
// returns baseDelay.
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		return baseDelay
	}
	// 2^25 seconds is already far beyond maxDelay.
	if attempt > 25 {
		return maxDelay
	}
	d := baseDelay * time.Duration(1<<attempt)
	if d > maxDelay {
		return maxDelay
	}
	return d
}

// Do runs fn up to attempts times, sleeping Backoff(i) between failures.
// It returns nil on the first success, the last error once the budget is
// spent, or the context error if ctx ends first.
func Do(ctx context.Context, attempts int, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(Backoff(i)):
		}
	}
	return err
}
