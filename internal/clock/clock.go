// Package clock abstracts the timers used by autosave, notification expiry,
// auto-refresh and delayed navigation so tests can drive them deterministically.
package clock

import "time"

// Clock is the subset of the time package prizedesk depends on.
type Clock interface {
	Now() time.Time

	// AfterFunc calls f in its own goroutine (real) or synchronously during
	// Advance (fake) once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer

	// NewTicker delivers ticks on C every d. Panics if d <= 0.
	NewTicker(d time.Duration) *Ticker
}

// Timer is a pending AfterFunc call.
type Timer interface {
	// Stop cancels the call. Returns false if it already fired or was stopped.
	Stop() bool
}

// Ticker delivers periodic ticks. C has capacity 1; late ticks are dropped.
type Ticker struct {
	C    <-chan time.Time
	stop func()
}

// Stop turns off the ticker. C is not closed.
func (t *Ticker) Stop() { t.stop() }

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

func (realClock) NewTicker(d time.Duration) *Ticker {
	t := time.NewTicker(d)
	return &Ticker{C: t.C, stop: t.Stop}
}
