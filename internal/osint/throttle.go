package osint

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle is a token bucket shared by every caller of a rate-limited source.
// Callers queue for at most maxQueue; beyond that Acquire fails fast.
type Throttle struct {
	limiter  *rate.Limiter
	maxQueue time.Duration
	clock    Clock
	wait     func(ctx context.Context, d time.Duration) error
}

func NewThrottle(interval time.Duration, burst int, maxQueue time.Duration, clock Clock) *Throttle {
	if burst < 1 {
		burst = 1
	}
	if clock == nil {
		clock = SystemClock
	}
	return &Throttle{
		limiter:  rate.NewLimiter(rate.Every(interval), burst),
		maxQueue: maxQueue,
		clock:    clock,
		wait:     sleepContext,
	}
}

// Acquire takes one token, waiting if the next token is due within maxQueue.
// Otherwise it returns a *RateLimitedError carrying the expected delay.
func (t *Throttle) Acquire(ctx context.Context) error {
	now := t.clock.Now()
	r := t.limiter.ReserveN(now, 1)
	if !r.OK() {
		return &RateLimitedError{RetryAfter: t.maxQueue}
	}
	delay := r.DelayFrom(now)
	if delay == 0 {
		return nil
	}
	if delay > t.maxQueue {
		r.CancelAt(now)
		return &RateLimitedError{RetryAfter: delay}
	}
	if err := t.wait(ctx, delay); err != nil {
		r.CancelAt(t.clock.Now())
		return err
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
