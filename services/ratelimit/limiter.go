// Package ratelimit throttles repeated attempts per key using fixed windows.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrCapacityExceeded is returned when the in-memory limiter cannot track another key
var ErrCapacityExceeded = errors.New("rate limiter capacity exceeded")

// Decision is the outcome of a single Allow call
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long the caller should wait before the window resets
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed || d.ResetAt.IsZero() {
		return 0
	}
	wait := d.ResetAt.Sub(now)
	if wait < time.Second {
		return time.Second
	}
	return wait
}

// Limiter counts attempts for key and reports whether another is allowed
// within window. A non-positive limit disables throttling.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}
