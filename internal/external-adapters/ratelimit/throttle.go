// Package ratelimit paces item dispatch so the batch stays under the
// upstream's informal rate limits.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval is the pause between items
const DefaultInterval = 100 * time.Millisecond

// SleepThrottle pauses a fixed interval between consecutive items.
// The first call returns immediately. Intended for a single worker.
type SleepThrottle struct {
	interval time.Duration

	mu      sync.Mutex
	started bool
}

// NewSleepThrottle creates a sequential throttle
func NewSleepThrottle(interval time.Duration) *SleepThrottle {
	return &SleepThrottle{interval: interval}
}

// Wait sleeps the interval unless this is the first item or ctx ends first
func (s *SleepThrottle) Wait(ctx context.Context) error {
	s.mu.Lock()
	first := !s.started
	s.started = true
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if first || s.interval <= 0 {
		return nil
	}

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RateThrottle is a limiter shared by all workers: one item per interval.
type RateThrottle struct {
	limiter *rate.Limiter
}

// NewRateThrottle creates a shared throttle with burst 1
func NewRateThrottle(interval time.Duration) *RateThrottle {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &RateThrottle{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the limiter grants a slot or ctx ends
func (r *RateThrottle) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
