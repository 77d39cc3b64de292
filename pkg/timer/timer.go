// Package timer provides scoped, cancellable timers for hooks.
//
// Every timer belongs to a Scope. Closing the scope (a hook being
// destroyed) cancels all its pending timers. A timer that already expired
// but whose callback is still waiting in the event loop queue is dropped
// too: callbacks never run after Close.
package timer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// PostFunc schedules fn on the event loop.
type PostFunc func(fn func())

// Scope owns a set of timers.
type Scope struct {
	clock clockwork.Clock
	post  PostFunc

	mu      sync.Mutex
	pending map[*entry]struct{}
	closed  bool
}

type entry struct {
	timer     clockwork.Timer
	deadline  time.Time
	cancelled bool
}

// NewScope creates a scope. Expired callbacks are handed to post, which
// must queue them rather than run them inline. A nil post runs each
// callback on its own goroutine.
func NewScope(clock clockwork.Clock, post PostFunc) *Scope {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if post == nil {
		post = func(fn func()) { go fn() }
	}
	return &Scope{
		clock:   clock,
		post:    post,
		pending: make(map[*entry]struct{}),
	}
}

// AfterFunc runs fn after d on the event loop and returns a cancel
// function. Cancel is safe to call more than once and after expiry.
// On a closed scope AfterFunc does nothing.
func (s *Scope) AfterFunc(d time.Duration, fn func()) (cancel func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return func() {}
	}
	e := &entry{deadline: s.clock.Now().Add(d)}
	s.pending[e] = struct{}{}
	s.mu.Unlock()

	// The clock is called without s.mu held: a zero delay may expire
	// synchronously and the callback takes the lock itself.
	t := s.clock.AfterFunc(d, func() {
		s.expire(e, func() {
			if s.live(e) {
				fn()
			}
		})
	})

	s.mu.Lock()
	e.timer = t
	if e.cancelled {
		t.Stop()
	}
	s.mu.Unlock()
	return func() { s.cancel(e) }
}

// Pending returns the number of timers that have not expired or been cancelled.
func (s *Scope) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close cancels every pending timer. Further AfterFunc calls are no-ops.
func (s *Scope) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for e := range s.pending {
		e.cancelled = true
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	s.pending = nil
}

// Closed reports whether Close has been called.
func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Due returns the number of pending timers whose deadline has passed but
// whose callback has not been handed to the event loop yet.
func (s *Scope) Due() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for e := range s.pending {
		if !e.deadline.After(now) {
			n++
		}
	}
	return n
}

// expire removes e from the pending set and posts run. Both happen under
// the lock so Due never observes an expired timer that is neither pending
// nor queued.
func (s *Scope) expire(e *entry, run func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || e.cancelled {
		return
	}
	delete(s.pending, e)
	s.post(run)
}

// live is checked again on the event loop, after the callback was queued.
func (s *Scope) live(e *entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && !e.cancelled
}

func (s *Scope) cancel(e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.cancelled {
		return
	}
	e.cancelled = true
	if e.timer != nil {
		e.timer.Stop()
	}
	if s.pending != nil {
		delete(s.pending, e)
	}
}
