package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tradewire/exkit/clock"
)

type bucket interface {
	acquire(ctx context.Context) error
	tryAcquire() bool
}

func newBucket(s settings, clk clock.Clock) bucket {
	if s.algorithm == TokenBucket {
		return newTokenBucket(s.limit, s.window)
	}
	return newSlidingBucket(s.limit, s.window, clk)
}

// slidingBucket records the grant time of the last `limit` permits in a
// ring. A new permit is granted once a full window has elapsed since the
// oldest recorded grant, so no window of the configured length ever
// contains more than `limit` grants.
type slidingBucket struct {
	mu     sync.Mutex
	clk    clock.Clock
	window time.Duration
	grants []time.Time
	next   int
}

func newSlidingBucket(limit int, window time.Duration, clk clock.Clock) *slidingBucket {
	return &slidingBucket{
		clk:    clk,
		window: window,
		grants: make([]time.Time, limit),
	}
}

func (b *slidingBucket) acquire(ctx context.Context) error {
	for {
		wait := b.reserve()
		if wait <= 0 {
			return nil
		}

		timer := b.clk.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C():
			// Another waiter may have taken the freed slot; re-check.
		}
	}
}

func (b *slidingBucket) tryAcquire() bool {
	return b.reserve() <= 0
}

// reserve grants a permit and returns 0, or returns how long the caller
// must wait before the oldest grant leaves the window. Nothing is
// consumed on the wait path, so an abandoned wait strands no permit.
func (b *slidingBucket) reserve() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clk.Now()
	oldest := b.grants[b.next]
	if !oldest.IsZero() {
		if wait := b.window - now.Sub(oldest); wait > 0 {
			return wait
		}
	}

	b.grants[b.next] = now
	b.next = (b.next + 1) % len(b.grants)
	return 0
}

// tokenBucket delegates to x/time/rate: `limit` tokens, refilled
// continuously at limit/window, burst equal to the full limit.
type tokenBucket struct {
	lim *rate.Limiter
}

func newTokenBucket(limit int, window time.Duration) *tokenBucket {
	return &tokenBucket{
		lim: rate.NewLimiter(rate.Limit(float64(limit)/window.Seconds()), limit),
	}
}

func (b *tokenBucket) acquire(ctx context.Context) error {
	// Wait returns its reservation to the pool when ctx is cancelled.
	return b.lim.Wait(ctx)
}

func (b *tokenBucket) tryAcquire() bool {
	return b.lim.Allow()
}
