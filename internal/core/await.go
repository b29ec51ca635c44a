package core

import (
	"fmt"
	"time"
)

// Timer abstracts time.After so waits can be driven by tests.
type Timer interface {
	After(d time.Duration) <-chan time.Time
}

// Await blocks until exp has matched at least count calls, for code under test that calls
// mocks from other goroutines. It returns a *Violation of kind TooFewInvocations if timeout
// passes first. A timeout of zero or less waits indefinitely.
func (s *Session) Await(exp *Expectation, count int, timeout time.Duration) error {
	s.mu.Lock()

	if exp.Count() >= count {
		s.mu.Unlock()

		return nil
	}

	// Register before unlocking so a call landing in between is not missed.
	myWaiter := &waiter{exp: exp, count: count, done: make(chan struct{})}
	s.waiters = append(s.waiters, myWaiter)
	s.mu.Unlock()

	var timeoutChan <-chan time.Time
	if timeout > 0 {
		timeoutChan = s.timer.After(timeout)
	}

	select {
	case <-myWaiter.done:
		return nil
	case <-timeoutChan:
		s.mu.Lock()
		s.dropWaiterLocked(myWaiter)
		s.mu.Unlock()

		got := exp.Count()
		if got >= count {
			return nil
		}

		return &Violation{
			Kind:        TooFewInvocations,
			Expectation: exp,
			Count:       got,
			Detail:      fmt.Sprintf("waited %v for %d calls", timeout, count),
		}
	}
}

// WithTimer replaces the clock used by Await.
func WithTimer(timer Timer) Option {
	return func(s *Session) {
		s.timer = timer
	}
}

type realTimer struct{}

func (realTimer) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

type waiter struct {
	exp   *Expectation
	count int
	done  chan struct{}
}

func (s *Session) dropWaiterLocked(target *waiter) {
	for i, w := range s.waiters {
		if w == target {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)

			return
		}
	}
}

// wakeLocked releases the waiters exp's new count satisfies. Caller holds s.mu.
func (s *Session) wakeLocked(exp *Expectation, count int) {
	remaining := s.waiters[:0]

	for _, w := range s.waiters {
		if w.exp == exp && count >= w.count {
			close(w.done)

			continue
		}

		remaining = append(remaining, w)
	}

	s.waiters = remaining
}
