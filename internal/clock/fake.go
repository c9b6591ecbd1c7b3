package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually advanced Clock. AfterFunc callbacks run synchronously
// inside Advance in deadline order, so callbacks must not call Advance.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*waiter
}

type waiter struct {
	deadline time.Time
	fn       func()
	ch       chan time.Time
	interval time.Duration
	done     bool
}

// NewFake returns a Fake starting at the given instant.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// AfterFunc registers fn to run when the clock is advanced past d.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := &waiter{deadline: f.now.Add(d), fn: fn}
	f.waiters = append(f.waiters, w)
	return &fakeTimer{clock: f, w: w}
}

// NewTicker registers a periodic waiter.
func (f *Fake) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan time.Time, 1)
	w := &waiter{deadline: f.now.Add(d), ch: ch, interval: d}
	f.waiters = append(f.waiters, w)
	return &Ticker{C: ch, stop: func() {
		f.mu.Lock()
		w.done = true
		f.mu.Unlock()
	}}
}

// Advance moves the clock forward and fires everything that came due.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	target := f.now
	f.mu.Unlock()

	for {
		due := f.collect(target)
		if len(due) == 0 {
			return
		}
		for _, w := range due {
			if w.fn != nil {
				w.fn()
				continue
			}
			select {
			case w.ch <- target:
			default:
			}
		}
	}
}

func (f *Fake) collect(target time.Time) []*waiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	var due, keep []*waiter
	for _, w := range f.waiters {
		switch {
		case w.done:
		case w.deadline.After(target):
			keep = append(keep, w)
		default:
			due = append(due, w)
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })
	for _, w := range due {
		if w.interval > 0 {
			w.deadline = w.deadline.Add(w.interval)
			keep = append(keep, w)
		} else {
			w.done = true
		}
	}
	f.waiters = keep
	return due
}

// Pending returns the number of live timers and tickers.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, w := range f.waiters {
		if !w.done {
			n++
		}
	}
	return n
}

type fakeTimer struct {
	clock *Fake
	w     *waiter
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.w.done {
		return false
	}
	t.w.done = true
	return true
}
