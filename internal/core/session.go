package core

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"sync"
)

// Option configures a Session.
type Option func(*Session)

// Session holds the expectations of one test: it records them through scopes, matches
// intercepted calls against them, produces results and verifies counts at the end.
//
// Delegate selection. A delegate is either a func, which is the one candidate, or a value
// whose exported methods are the candidates (all of them except MockMethods and methods
// promoted from embedded fields, or exactly the ones named by MockMethods when it implements
// Marked). A candidate may take *Invocation as its first parameter. It is usable when the rest
// of its parameters fit the member's exactly or by widening (assignable interface, wider
// numeric type), or when it takes no other parameters at all. A single usable candidate is used
// whatever its name. Among several marked candidates, those named after the member win, then
// those named GenericDelegateName, best fit first. Anything else is an error when the producer is attached.
type Session struct {
	t      TestReporter
	policy UnmatchedPolicy
	logger *slog.Logger
	timer  Timer

	mu           sync.Mutex // serializes recording, matching and counting
	expectations []*Expectation
	recording    *Scope
	failures     []error
	waiters      []*waiter
	finished     bool
}

// NewSession creates a Session reporting to t.
func NewSession(t TestReporter, opts ...Option) *Session {
	session := &Session{t: t, policy: UnmatchedFail, timer: realTimer{}}

	for _, opt := range opts {
		opt(session)
	}

	return session
}

// BeginScope opens a recording window. A scope that is still open is ended first.
func (s *Session) BeginScope(strict bool) *Scope {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recording != nil {
		s.endRecordingLocked()
	}

	scope := &Scope{session: s, strict: strict, open: true}
	s.recording = scope

	s.debug("scope begun", "strict", strict)

	return scope
}

// Call delivers an intercepted call and returns its result values. Engine failures and
// Thrown producers panic, so the caller sees them at the call site.
func (s *Session) Call(instance any, member *Member, args ...any) []any {
	outcome, err := s.Invoke(Event{Instance: instance, Member: member, Args: args})
	if err != nil {
		panic(err)
	}

	if outcome.Panicked {
		panic(outcome.PanicValue)
	}

	return outcome.Values
}

// Err returns every failure seen so far: late declaration errors, unmatched calls and
// verification violations.
func (s *Session) Err() error {
	s.mu.Lock()
	errs := slices.Clone(s.failures)
	s.mu.Unlock()

	for _, violation := range s.Verify() {
		errs = append(errs, violation)
	}

	return errors.Join(errs...)
}

// Expectations runs record inside a strict scope, ends it whatever happens, and fails the
// test on declaration errors.
func (s *Session) Expectations(record func(*Scope)) {
	s.t.Helper()
	s.runScope(true, record)
}

// Finish ends any open scope, verifies, and reports every problem through the TestReporter in
// one failure. Expectations are discarded afterwards. Only the first call has any effect.
func (s *Session) Finish() {
	s.t.Helper()

	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()

		return
	}

	s.finished = true

	if s.recording != nil {
		s.endRecordingLocked()
	}
	s.mu.Unlock()

	err := s.Err()

	s.mu.Lock()
	s.expectations = nil
	s.mu.Unlock()

	if err != nil {
		s.t.Fatalf("impmock: %s", indent(err.Error()))
	}
}

// Invoke matches an intercepted call and produces its outcome. The error is a *Violation
// for unmatched calls and calls past an expectation's maximum; the outcome is then empty.
// While a scope is open the call is recorded as a pattern and yields zero values.
func (s *Session) Invoke(event Event) (Outcome, error) {
	if event.Member == nil {
		return Outcome{}, fmt.Errorf("%w: event without member", ErrUnmatchedInvocation)
	}

	s.mu.Lock()

	if s.recording != nil {
		s.recording.recordLocked(event.Instance, event.Member, slices.Clone(event.Args))
		s.mu.Unlock()

		return defaultOutcome(event.Member, event.Instance), nil
	}

	exp, inv, violation := s.matchLocked(event)
	if violation != nil && violation.Kind == UnmatchedInvocation && s.policy == UnmatchedFail {
		s.failures = append(s.failures, violation)
	}
	s.mu.Unlock()

	if violation != nil {
		if violation.Kind == UnmatchedInvocation && s.policy == UnmatchedDefault {
			s.debug("unmatched, default behavior", "event", event.String())

			return defaultOutcome(event.Member, event.Instance), nil
		}

		s.debug("call failed", "violation", violation.Kind.String(), "event", event.String())

		return Outcome{}, violation
	}

	return exp.resolve(inv), nil
}

// LenientExpectations runs record inside a non-strict scope, ends it whatever happens, and
// fails the test on declaration errors.
func (s *Session) LenientExpectations(record func(*Scope)) {
	s.t.Helper()
	s.runScope(false, record)
}

// UnmatchedPolicy reports what happens to calls no expectation accepts.
func (s *Session) UnmatchedPolicy() UnmatchedPolicy {
	return s.policy
}

// Verify checks every active expectation's count against its bounds.
func (s *Session) Verify() []*Violation {
	s.mu.Lock()
	active := slices.DeleteFunc(slices.Clone(s.expectations), func(exp *Expectation) bool {
		return exp.scope.open
	})
	s.mu.Unlock()

	var violations []*Violation

	for _, exp := range active {
		count := exp.Count()

		if count < exp.MinTimes() {
			violations = append(violations, &Violation{Kind: TooFewInvocations, Expectation: exp, Count: count})
		}

		if maxTimes := exp.MaxTimes(); maxTimes != Unbounded && count > maxTimes {
			violations = append(violations, &Violation{Kind: TooManyInvocations, Expectation: exp, Count: count})
		}
	}

	return violations
}

// TestReporter is the minimal interface impmock needs from test frameworks.
type TestReporter interface {
	Helper()
	Fatalf(format string, args ...any)
}

// UnmatchedPolicy decides what a call that matches no expectation does.
type UnmatchedPolicy int

// UnmatchedPolicy values.
const (
	// UnmatchedFail fails the call and the test.
	UnmatchedFail UnmatchedPolicy = iota
	// UnmatchedDefault answers with the member's zero values.
	UnmatchedDefault
)

func (p UnmatchedPolicy) String() string {
	switch p {
	case UnmatchedFail:
		return "fail"
	case UnmatchedDefault:
		return "default"
	default:
		return fmt.Sprintf("UnmatchedPolicy(%d)", int(p))
	}
}

// WithLogger traces recording and matching at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithUnmatchedPolicy sets what unmatched calls do.
func WithUnmatchedPolicy(policy UnmatchedPolicy) Option {
	return func(s *Session) {
		s.policy = policy
	}
}

func (s *Session) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

// matchLocked selects the expectation for event and counts the call. Caller holds s.mu.
func (s *Session) matchLocked(event Event) (*Expectation, *Invocation, *Violation) {
	key := event.Member.Key()

	var (
		candidates []*Expectation
		mismatches []string
	)

	for _, exp := range s.expectations {
		if exp.scope.open || exp.member.Key() != key || !exp.sameInstance(event.Instance) {
			continue
		}

		if err := MatchArgs(exp.patterns, event.Args); err != nil {
			mismatches = append(mismatches, describeMismatch(exp, event.Args, err))

			continue
		}

		candidates = append(candidates, exp)
	}

	if len(candidates) == 0 {
		detail := "  no expectation recorded for " + event.Member.String()
		if len(mismatches) > 0 {
			detail = strings.Join(mismatches, "\n")
		}

		return nil, nil, &Violation{Kind: UnmatchedInvocation, Event: &event, Detail: detail}
	}

	var outOfOrder []string

	for _, exp := range candidates {
		if exp.exhausted() {
			continue
		}

		if exp.strict && !exp.scope.admits(exp) {
			outOfOrder = append(outOfOrder, fmt.Sprintf("  %v: called out of recorded order", exp))

			continue
		}

		if exp.strict {
			exp.scope.advance(exp)
		}

		count := exp.hit()
		s.wakeLocked(exp, count)
		s.debug("matched", "expectation", exp.String(), "count", count)

		return exp, newInvocation(exp, event, count), nil
	}

	if len(outOfOrder) > 0 {
		return nil, nil, &Violation{
			Kind:   UnmatchedInvocation,
			Event:  &event,
			Detail: strings.Join(outOfOrder, "\n"),
		}
	}

	exp := candidates[0]
	count := exp.hit()
	s.wakeLocked(exp, count)

	return exp, nil, &Violation{Kind: TooManyInvocations, Expectation: exp, Event: &event, Count: count}
}

func (s *Session) runScope(strict bool, record func(*Scope)) {
	s.t.Helper()

	scope := s.BeginScope(strict)

	var err error

	func() {
		defer func() { err = scope.End() }()

		record(scope)
	}()

	if err != nil {
		s.t.Fatalf("impmock: recording failed: %s", indent(err.Error()))
	}
}

// endRecordingLocked ends a scope its owner left open; its errors become session failures.
// Caller holds s.mu.
func (s *Session) endRecordingLocked() {
	scope := s.recording
	scope.endLocked()
	s.failures = append(s.failures, scope.errs...)
}

func indent(msg string) string {
	return strings.ReplaceAll(msg, "\n", "\n  ")
}

// sameValue compares instances by identity where the type allows it.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if reflect.TypeOf(a) != reflect.TypeOf(b) || !reflect.TypeOf(a).Comparable() {
		return false
	}

	return a == b
}
