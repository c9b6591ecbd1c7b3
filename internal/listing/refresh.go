package listing

import (
	"sync"
	"time"

	"prizedesk/internal/clock"
)

// AutoRefresher re-runs a refresh function on an interval until stopped.
type AutoRefresher struct {
	clock clock.Clock
	fn    func()

	mu       sync.Mutex
	interval time.Duration
	ticker   *clock.Ticker
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewAutoRefresher creates a stopped refresher.
func NewAutoRefresher(c clock.Clock, fn func()) *AutoRefresher {
	return &AutoRefresher{clock: c, fn: fn}
}

// Start (re)starts ticking at interval, replacing any previous schedule.
func (a *AutoRefresher) Start(interval time.Duration) {
	a.Stop()
	if interval <= 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.interval = interval
	a.ticker = a.clock.NewTicker(interval)
	a.done = make(chan struct{})

	ticks, done := a.ticker.C, a.done
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for {
			select {
			case <-ticks:
				a.fn()
			case <-done:
				return
			}
		}
	}()
}

// Stop halts ticking and waits for an in-progress refresh to return.
func (a *AutoRefresher) Stop() {
	a.mu.Lock()
	if a.ticker == nil {
		a.mu.Unlock()
		return
	}
	a.ticker.Stop()
	close(a.done)
	a.ticker, a.done, a.interval = nil, nil, 0
	a.mu.Unlock()
	a.wg.Wait()
}

// Interval returns the active interval, or zero when stopped.
func (a *AutoRefresher) Interval() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.interval
}

// Enabled reports whether the refresher is ticking.
func (a *AutoRefresher) Enabled() bool { return a.Interval() > 0 }
