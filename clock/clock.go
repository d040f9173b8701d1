// Package clock abstracts the monotonic time source and timer primitive
// used by the rate limiter and the dispatcher's backoff sleep, so both
// can be exercised deterministically in tests.
package clock

import "time"

// Clock provides the current time and cancellable timers.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer mirrors the subset of time.Timer the library needs.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// System is the wall-clock implementation backed by the time package.
// time.Time carries a monotonic reading, so elapsed-time math is safe
// across wall-clock adjustments.
var System Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) NewTimer(d time.Duration) Timer {
	return systemTimer{t: time.NewTimer(d)}
}

type systemTimer struct {
	t *time.Timer
}

func (s systemTimer) C() <-chan time.Time { return s.t.C }
func (s systemTimer) Stop() bool          { return s.t.Stop() }
