package core

import (
	"errors"
	"fmt"
)

// Scope is an open recording window. Expectations recorded through it become active for
// matching when End is called. Calls delivered to the Session while the scope is open are
// captured as patterns instead of being dispatched.
type Scope struct {
	session *Session
	strict  bool

	// guarded by session.mu
	open         bool
	expectations []*Expectation
	last         *Expectation // most recent Record, rejected ones included
	errs         []error
	cursor       int // strict scopes: position of the expectation currently being consumed
}

// End closes recording and activates the recorded expectations. It always finalizes, and
// returns every declaration error the scope collected. Calling End twice is harmless.
func (s *Scope) End() error {
	s.session.mu.Lock()
	defer s.session.mu.Unlock()

	s.endLocked()

	return errors.Join(s.errs...)
}

// Err returns the declaration errors collected so far.
func (s *Scope) Err() error {
	s.session.mu.Lock()
	defer s.session.mu.Unlock()

	return errors.Join(s.errs...)
}

// Last returns the expectation made by the most recent Record, or nil. When that record was
// rejected, Last returns its inert placeholder, so declarations chained onto it never reach an
// earlier expectation.
func (s *Scope) Last() *Expectation {
	s.session.mu.Lock()
	defer s.session.mu.Unlock()

	return s.last
}

// Record appends an expectation for a call to member on instance with the given argument
// patterns. Patterns are exact values, nil, or Matchers such as Any.
func (s *Scope) Record(instance any, member *Member, patterns ...any) *Expectation {
	s.session.mu.Lock()
	defer s.session.mu.Unlock()

	return s.recordLocked(instance, member, patterns)
}

// Strict reports whether the scope enforces recorded order.
func (s *Scope) Strict() bool {
	return s.strict
}

// UnmatchedPolicy reports what calls that match none of this scope's expectations, or any
// other, do once the scope has ended.
func (s *Scope) UnmatchedPolicy() UnmatchedPolicy {
	return s.session.policy
}

// admits reports whether a strict expectation may be consumed now: it is the current one, or
// every expectation between the current one and it has reached its minimum.
// Caller holds session.mu.
func (s *Scope) admits(exp *Expectation) bool {
	if exp.order < s.cursor {
		return false
	}

	for _, skipped := range s.expectations[s.cursor:exp.order] {
		if !skipped.satisfied() {
			return false
		}
	}

	return true
}

// advance moves the strict cursor to exp. Caller holds session.mu.
func (s *Scope) advance(exp *Expectation) {
	s.cursor = exp.order
}

func (s *Scope) endLocked() {
	if !s.open {
		return
	}

	s.open = false

	for _, exp := range s.expectations {
		if err := exp.finalize(); err != nil {
			s.errs = append(s.errs, err)
		}
	}

	if s.session.recording == s {
		s.session.recording = nil
	}

	s.session.debug("scope ended", "strict", s.strict, "expectations", len(s.expectations), "errors", len(s.errs))
}

// recordLocked creates the expectation. Caller holds session.mu.
func (s *Scope) recordLocked(instance any, member *Member, patterns []any) *Expectation {
	declared := member
	if declared == nil {
		declared = &Member{Owner: "<nil>", Name: "<nil>"}
	}

	exp := &Expectation{
		ID:       len(s.session.expectations),
		scope:    s,
		member:   declared,
		instance: instance,
		patterns: patterns,
		strict:   s.strict,
		order:    len(s.expectations),
	}

	if s.open {
		s.last = exp
	}

	switch {
	case !s.open:
		s.session.failures = append(s.session.failures,
			fmt.Errorf("%w: Record %v", ErrScopeClosed, member))

		return exp
	case member == nil:
		s.errs = append(s.errs, fmt.Errorf("%w: nil member", ErrPatternShape))

		return exp
	case len(patterns) != len(member.Params):
		s.errs = append(s.errs, fmt.Errorf("%w: %v takes %d args, recorded %d",
			ErrPatternShape, member, len(member.Params), len(patterns)))

		return exp
	}

	s.expectations = append(s.expectations, exp)
	s.session.expectations = append(s.session.expectations, exp)

	s.session.debug("recorded", "expectation", exp.String(), "strict", s.strict)

	return exp
}
