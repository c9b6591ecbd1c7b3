// Package notify implements the per-view toast queue. Entries are either
// ephemeral (one per call, identified by a fresh id) or keyed (a later Put
// with the same key replaces the earlier entry in place). Every entry expires
// on its own timer.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"prizedesk/internal/clock"
)

// Severity drives the color and icon of a notification.
type Severity string

const (
	Success Severity = "success"
	Error   Severity = "error"
	Warning Severity = "warning"
	Info    Severity = "info"
)

// Kind tells ephemeral entries from keyed ones.
type Kind int

const (
	Ephemeral Kind = iota
	Keyed
)

// Notification is a snapshot of one queued message.
type Notification struct {
	ID       string // uuid for ephemeral entries, the key for keyed ones
	Kind     Kind
	Message  string
	Severity Severity
	Created  time.Time
}

type entry struct {
	Notification
	timer clock.Timer
}

// Queue holds the visible notifications of one view.
type Queue struct {
	mu      sync.Mutex
	clock   clock.Clock
	ttl     time.Duration
	ttlBy   map[Severity]time.Duration
	items   []*entry
	muted   bool
	changed chan struct{}
}

// NewQueue creates a queue whose entries expire after ttl.
func NewQueue(c clock.Clock, ttl time.Duration) *Queue {
	return &Queue{
		clock:   c,
		ttl:     ttl,
		ttlBy:   make(map[Severity]time.Duration),
		changed: make(chan struct{}, 1),
	}
}

// SetSeverityTTL overrides the lifetime for one severity. A zero duration
// keeps such entries until dismissed.
func (q *Queue) SetSeverityTTL(sev Severity, d time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ttlBy[sev] = d
}

// SetMuted drops every non-error notification while on.
func (q *Queue) SetMuted(muted bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.muted = muted
}

// Changed is signalled (non-blocking, coalesced) whenever the visible set changes.
func (q *Queue) Changed() <-chan struct{} { return q.changed }

// Push appends an ephemeral notification and returns its id.
func (q *Queue) Push(message string, sev Severity) string {
	id := uuid.NewString()
	q.add(id, Ephemeral, message, sev)
	return id
}

// Put shows message under key, replacing any entry with the same key and
// restarting its expiry.
func (q *Queue) Put(key, message string, sev Severity) {
	q.add(key, Keyed, message, sev)
}

func (q *Queue) add(id string, kind Kind, message string, sev Severity) {
	q.mu.Lock()
	if q.muted && sev != Error {
		q.mu.Unlock()
		return
	}

	e := &entry{Notification: Notification{
		ID:       id,
		Kind:     kind,
		Message:  message,
		Severity: sev,
		Created:  q.clock.Now(),
	}}

	replaced := false
	if kind == Keyed {
		for i, old := range q.items {
			if old.Kind == Keyed && old.ID == id {
				stopTimer(old)
				q.items[i] = e
				replaced = true
				break
			}
		}
	}
	if !replaced {
		q.items = append(q.items, e)
	}

	ttl := q.ttl
	if d, ok := q.ttlBy[sev]; ok {
		ttl = d
	}
	if ttl > 0 {
		e.timer = q.clock.AfterFunc(ttl, func() { q.expire(e) })
	}
	q.mu.Unlock()
	q.notify()
}

// expire removes e if it is still the live entry (a keyed replacement may
// have superseded it).
func (q *Queue) expire(e *entry) {
	q.mu.Lock()
	removed := false
	for i, cur := range q.items {
		if cur == e {
			q.items = append(q.items[:i], q.items[i+1:]...)
			removed = true
			break
		}
	}
	q.mu.Unlock()
	if removed {
		q.notify()
	}
}

// Dismiss removes the entry with id (or key) immediately.
func (q *Queue) Dismiss(id string) {
	q.mu.Lock()
	removed := false
	for i, cur := range q.items {
		if cur.ID == id {
			stopTimer(cur)
			q.items = append(q.items[:i], q.items[i+1:]...)
			removed = true
			break
		}
	}
	q.mu.Unlock()
	if removed {
		q.notify()
	}
}

// Clear removes everything and cancels pending expiries (view exit).
func (q *Queue) Clear() {
	q.mu.Lock()
	for _, e := range q.items {
		stopTimer(e)
	}
	had := len(q.items) > 0
	q.items = nil
	q.mu.Unlock()
	if had {
		q.notify()
	}
}

// Items returns the visible notifications, oldest first.
func (q *Queue) Items() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Notification, len(q.items))
	for i, e := range q.items {
		out[i] = e.Notification
	}
	return out
}

// Len returns the number of visible notifications.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) notify() {
	select {
	case q.changed <- struct{}{}:
	default:
	}
}

func stopTimer(e *entry) {
	if e.timer != nil {
		e.timer.Stop()
	}
}
