// Package impmock provides the expectation-matching and dispatch engine for test doubles.
// Tests record expected calls in scopes, intercepted calls are matched against them and
// answered by fixed values, panics or delegates, and invocation counts are verified when
// the test ends.
//
// This is the public API entry point. Implementation lives in internal/core.
package impmock

import (
	"log/slog"

	"github.com/toejough/impmock/internal/core"
	"github.com/toejough/impmock/internal/policy"
)

// Bounds and names.
const (
	// GenericDelegateName is the delegate method name that stands in for any member.
	GenericDelegateName = core.GenericDelegateName
	// Unbounded is the maximum of an expectation with no upper limit.
	Unbounded = core.Unbounded
)

// Target kinds.
const (
	InstanceTarget    = core.InstanceTarget
	StaticTarget      = core.StaticTarget
	ConstructorTarget = core.ConstructorTarget
)

// Unmatched-call policies.
const (
	UnmatchedFail    = core.UnmatchedFail
	UnmatchedDefault = core.UnmatchedDefault
)

// Violation kinds.
const (
	TooFewInvocations   = core.TooFewInvocations
	TooManyInvocations  = core.TooManyInvocations
	UnmatchedInvocation = core.UnmatchedInvocation
)

// Errors re-exported from internal/core and internal/policy.
var (
	ErrAmbiguousDelegateMethod = core.ErrAmbiguousDelegateMethod
	ErrInvalidBounds           = core.ErrInvalidBounds
	ErrInvalidPolicy           = policy.ErrInvalid
	ErrNoUsableDelegateMethod  = core.ErrNoUsableDelegateMethod
	ErrPatternShape            = core.ErrPatternShape
	ErrResultShape             = core.ErrResultShape
	ErrScopeClosed             = core.ErrScopeClosed
	ErrTooFewInvocations       = core.ErrTooFewInvocations
	ErrTooManyInvocations      = core.ErrTooManyInvocations
	ErrUnmatchedInvocation     = core.ErrUnmatchedInvocation
)

// Event is one intercepted call.
type Event = core.Event

// Expectation is a recorded pattern with its producers and bounds.
type Expectation = core.Expectation

// Invocation is the per-call context a delegate may take as its first parameter.
type Invocation = core.Invocation

// Marked is implemented by delegates that name their replacement methods.
type Marked = core.Marked

// Matcher defines the interface for flexible value matching.
type Matcher = core.Matcher

// Member identifies a mocked method, static function or constructor.
type Member = core.Member

// Option configures a Session.
type Option = core.Option

// Outcome is what a matched call produces.
type Outcome = core.Outcome

// Policy is the suite-wide engine policy.
type Policy = policy.Policy

// Producer is one result-producing strategy.
type Producer = core.Producer

// Scope is an open recording window.
type Scope = core.Scope

// Session holds the expectations of one test.
type Session = core.Session

// TargetKind says what a member is bound to.
type TargetKind = core.TargetKind

// Timer abstracts time.After for Session.Await.
type Timer = core.Timer

// TestReporter is the minimal interface impmock needs from test frameworks.
type TestReporter = core.TestReporter

// UnmatchedPolicy decides what unmatched calls do.
type UnmatchedPolicy = core.UnmatchedPolicy

// Violation describes one failed invocation constraint.
type Violation = core.Violation

// ViolationKind classifies a Violation.
type ViolationKind = core.ViolationKind

// Any returns a wildcard matching any value, nil included.
func Any() Matcher {
	return core.Any()
}

// AnyOf returns a wildcard matching any value of type T.
func AnyOf[T any]() Matcher {
	return core.AnyOf[T]()
}

// Bind returns a func of type F that delivers its calls to s as events for member.
func Bind[F any](s *Session, instance any, member *Member) F {
	return core.Bind[F](s, instance, member)
}

// Constructor describes a constructor for owner.
func Constructor(owner string, signature any) *Member {
	return core.Constructor(owner, signature)
}

// Delegate returns a producer that runs d in place of the real member.
func Delegate(d any) Producer {
	return core.Delegate(d)
}

// InstanceMethod describes a method bound to instances of owner.
func InstanceMethod(owner, name string, signature any) *Member {
	return core.InstanceMethod(owner, name, signature)
}

// LoadPolicy reads and validates a YAML policy file.
func LoadPolicy(path string) (Policy, error) {
	return policy.Load(path)
}

// MatchArgs checks live arguments against recorded patterns.
func MatchArgs(patterns, args []any) error {
	return core.MatchArgs(patterns, args)
}

// MatchValue checks if actual matches expected.
func MatchValue(actual, expected any) (bool, string) {
	return core.MatchValue(actual, expected)
}

// NewSession creates a Session reporting to t.
func NewSession(t TestReporter, opts ...Option) *Session {
	return core.NewSession(t, opts...)
}

// ParsePolicy validates and decodes a YAML policy document.
func ParsePolicy(data []byte) (Policy, error) {
	return policy.Parse(data)
}

// Satisfies returns a matcher that uses a predicate function to check for a match.
func Satisfies[T any](predicate func(T) error) Matcher {
	return core.Satisfies(predicate)
}

// StaticMethod describes a function bound to owner rather than an instance.
func StaticMethod(owner, name string, signature any) *Member {
	return core.StaticMethod(owner, name, signature)
}

// Thrown returns a producer that panics with value at the call site.
func Thrown(value any) Producer {
	return core.Thrown(value)
}

// Value returns a producer that returns the given values.
func Value(values ...any) Producer {
	return core.Value(values...)
}

// WithLogger traces recording and matching at debug level.
func WithLogger(logger *slog.Logger) Option {
	return core.WithLogger(logger)
}

// WithPolicy applies a suite policy.
func WithPolicy(pol Policy) Option {
	return core.WithPolicy(pol)
}

// WithTimer replaces the clock used by Session.Await.
func WithTimer(timer Timer) Option {
	return core.WithTimer(timer)
}

// WithUnmatchedPolicy sets what unmatched calls do.
func WithUnmatchedPolicy(p UnmatchedPolicy) Option {
	return core.WithUnmatchedPolicy(p)
}
