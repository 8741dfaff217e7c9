// Package budget enforces daily spend and usage windows. A window is the
// local calendar day: the counter resets lazily whenever the day string
// changes, checked on every call rather than by a background timer.
package budget

import (
	"sync"
	"time"
)

// Tracker is a daily-windowed usage counter with a fixed limit. Safe for
// concurrent use.
type Tracker struct {
	mu    sync.Mutex
	limit float64
	used  float64
	day   string
	now   func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a Tracker with the given daily limit. A limit of zero
// or less disables enforcement.
func NewTracker(limit float64, opts ...Option) *Tracker {
	t := &Tracker{limit: limit, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	t.day = dayKey(t.now())
	return t
}

func dayKey(ts time.Time) string {
	return ts.Format("2006-01-02")
}

// rollover resets the counter if the stored day is stale. Callers hold mu.
func (t *Tracker) rollover() {
	today := dayKey(t.now())
	if t.day != today {
		t.day = today
		t.used = 0
	}
}

// Allow reports whether any budget remains today.
func (t *Tracker) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	return t.limit <= 0 || t.used < t.limit
}

// TryConsume atomically checks and reserves amount against today's budget.
// It returns false without consuming when the reservation would exceed the
// limit.
func (t *Tracker) TryConsume(amount float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	if t.limit > 0 && t.used+amount > t.limit {
		return false
	}
	t.used += amount
	return true
}

// Record adds amount unconditionally. Used to account actual spend that was
// authorized before its exact size was known.
func (t *Tracker) Record(amount float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	t.used += amount
}

// Used returns today's consumed amount.
func (t *Tracker) Used() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	return t.used
}

// Remaining returns today's remaining budget, or -1 when unlimited.
func (t *Tracker) Remaining() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	if t.limit <= 0 {
		return -1
	}
	rem := t.limit - t.used
	if rem < 0 {
		rem = 0
	}
	return rem
}
