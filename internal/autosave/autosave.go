// Package autosave debounces form edits into background saves.
//
// Edits restart a quiet-period timer. When it fires, the latest draft is
// saved. At most one save is in flight: a draft that comes due while a save
// is running waits in a one-slot queue and is sent as soon as the running
// save resolves, so intermediate drafts collapse into a single request.
package autosave

import (
	"context"
	"sync"
	"time"

	"prizedesk/internal/clock"
	"prizedesk/internal/logging"
)

// DefaultDelay is the quiet period before a save.
const DefaultDelay = 500 * time.Millisecond

// State summarizes the controller for the form header.
type State int

const (
	Clean   State = iota // nothing to save
	Dirty                // edits waiting for the quiet period
	Pending              // a save is in flight
	Failed               // the last save failed; the next edit retries
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	case Pending:
		return "pending"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// SaveFunc persists a draft and returns what the server stored.
type SaveFunc[T any] func(ctx context.Context, draft T) (T, error)

// Config wires a Controller. Hooks are optional and are called outside the
// controller's lock, from the goroutine running the save.
type Config[T any] struct {
	Delay   time.Duration
	Save    SaveFunc[T]
	Timeout time.Duration // per save; zero means no extra deadline

	OnSaving func()
	OnSaved  func(saved T)
	OnError  func(err error)
}

// Controller owns the debounce timer and the save lock for one form.
type Controller[T any] struct {
	cfg   Config[T]
	clock clock.Clock

	mu       sync.Mutex
	timer    clock.Timer
	timerSeq uint64 // identifies the armed timer; stale callbacks are ignored
	draft    T
	gen      uint64 // bumped by every Schedule
	savedGen uint64 // generation of the last successful save
	inFlight bool
	queued   bool
	idle     chan struct{} // closed when inFlight drops to false
	state    State
	lastErr  error
	stopped  bool

	wg sync.WaitGroup
}

// New creates a controller. A zero Delay uses DefaultDelay.
func New[T any](clk clock.Clock, cfg Config[T]) *Controller[T] {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	idle := make(chan struct{})
	close(idle)
	return &Controller[T]{cfg: cfg, clock: clk, idle: idle}
}

// Reset replaces the baseline without saving (a freshly loaded record).
func (c *Controller[T]) Reset(draft T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
	c.draft = draft
	c.savedGen = c.gen
	c.queued = false
	c.stopped = false
	c.lastErr = nil
	if !c.inFlight {
		c.state = Clean
	}
}

// Schedule records draft as the latest state and restarts the quiet period.
func (c *Controller[T]) Schedule(draft T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.draft = draft
	c.gen++
	c.stopTimerLocked()
	c.timerSeq++
	seq := c.timerSeq
	c.timer = c.clock.AfterFunc(c.cfg.Delay, func() { c.fire(seq) })
	if !c.inFlight {
		c.state = Dirty
	}
	logging.AutosaveDebug("edit %d scheduled", c.gen)
}

func (c *Controller[T]) fire(seq uint64) {
	c.mu.Lock()
	if c.timer == nil || seq != c.timerSeq {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	if c.stopped {
		c.mu.Unlock()
		return
	}
	if c.inFlight {
		c.queued = true
		c.mu.Unlock()
		logging.AutosaveDebug("save in flight, queued edit %d", c.gen)
		return
	}
	draft, gen := c.beginLocked()
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.loop(context.Background(), draft, gen)
	}()
}

func (c *Controller[T]) beginLocked() (T, uint64) {
	c.inFlight = true
	c.idle = make(chan struct{})
	c.state = Pending
	return c.draft, c.gen
}

// loop saves draft, then keeps draining the one-slot queue.
func (c *Controller[T]) loop(ctx context.Context, draft T, gen uint64) (T, error) {
	for {
		saved, err := c.saveOnce(ctx, draft)

		c.mu.Lock()
		if err != nil {
			c.lastErr = err
		} else {
			c.lastErr = nil
			if gen > c.savedGen {
				c.savedGen = gen
			}
		}
		if c.queued && !c.stopped {
			c.queued = false
			draft, gen = c.draft, c.gen
			c.mu.Unlock()
			continue
		}
		c.queued = false
		c.inFlight = false
		close(c.idle)
		c.settleLocked()
		c.mu.Unlock()
		return saved, err
	}
}

func (c *Controller[T]) saveOnce(ctx context.Context, draft T) (T, error) {
	if c.cfg.OnSaving != nil {
		c.cfg.OnSaving()
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	timer := logging.StartTimer(logging.CategoryAutosave, "save")
	saved, err := c.cfg.Save(ctx, draft)
	timer.Stop()

	if err != nil {
		logging.Get(logging.CategoryAutosave).Warn("save failed: %v", err)
		if c.cfg.OnError != nil {
			c.cfg.OnError(err)
		}
		return saved, err
	}
	logging.Autosave("saved")
	if c.cfg.OnSaved != nil {
		c.cfg.OnSaved(saved)
	}
	return saved, nil
}

func (c *Controller[T]) settleLocked() {
	switch {
	case c.timer != nil:
		c.state = Dirty
	case c.lastErr != nil:
		c.state = Failed
	case c.gen == c.savedGen:
		c.state = Clean
	default:
		c.state = Dirty
	}
}

// Flush cancels the quiet period, waits for any in-flight save and then
// saves the latest draft immediately, whether or not it changed.
func (c *Controller[T]) Flush(ctx context.Context) (T, error) {
	for {
		c.mu.Lock()
		c.stopTimerLocked()
		if !c.inFlight {
			draft, gen := c.beginLocked()
			c.mu.Unlock()
			return c.loop(ctx, draft, gen)
		}
		// The running loop would send the same draft again; Flush does it.
		c.queued = false
		idle := c.idle
		c.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Stop cancels the pending timer and drops queued drafts. A save already in
// flight runs to completion; Wait blocks until it does.
func (c *Controller[T]) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.queued = false
	c.stopTimerLocked()
}

// Wait blocks until background saves have finished.
func (c *Controller[T]) Wait() { c.wg.Wait() }

// State returns the current state.
func (c *Controller[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error of the last save, or nil.
func (c *Controller[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Draft returns the latest scheduled draft.
func (c *Controller[T]) Draft() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

func (c *Controller[T]) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
