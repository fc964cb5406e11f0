package engine

import (
	"time"
)

// Timer is a wall-clock budget for one search. It is only consulted between
// iterative-deepening passes, so a pass in progress always finishes.
type Timer struct {
	start time.Time
	limit time.Duration
}

// NewTimer starts a budget of limit. A zero or negative limit never expires.
func NewTimer(limit time.Duration) *Timer {
	return &Timer{start: time.Now(), limit: limit}
}

// Elapsed is true once the budget is spent. A nil timer never elapses.
func (t *Timer) Elapsed() bool {
	if t == nil || t.limit <= 0 {
		return false
	}
	return time.Since(t.start) >= t.limit
}

// Remaining is the time left; zero once elapsed or when there is no limit.
func (t *Timer) Remaining() time.Duration {
	if t == nil || t.limit <= 0 {
		return 0
	}
	return Max(t.limit-time.Since(t.start), 0)
}

// Restarted is a timer with the same budget, starting now.
func (t *Timer) Restarted() *Timer {
	if t == nil {
		return nil
	}
	return NewTimer(t.limit)
}
