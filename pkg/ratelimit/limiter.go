package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter blocks until the caller may issue its next request
type Limiter interface {
	Wait(ctx context.Context) error
}

// MinInterval admits one request per interval. Every caller sharing the
// same MinInterval sees admissions spaced at least interval apart, no
// matter how many goroutines are waiting.
type MinInterval struct {
	interval time.Duration
	limiter  *rate.Limiter
}

// NewMinInterval creates a limiter spacing requests interval apart. A
// non-positive interval admits every request at once.
func NewMinInterval(interval time.Duration) *MinInterval {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &MinInterval{
		interval: interval,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// Interval returns the configured spacing
func (m *MinInterval) Interval() time.Duration {
	return m.interval
}

// Wait blocks until the next slot opens. It fails at once when ctx ends
// before that slot, or would pass its deadline first.
func (m *MinInterval) Wait(ctx context.Context) error {
	return m.limiter.Wait(ctx)
}
