package core

import (
	"errors"
	"fmt"
)

// Exported variables.
var (
	// ErrAmbiguousDelegateMethod is returned when more than one delegate method qualifies for a member.
	ErrAmbiguousDelegateMethod = errors.New("ambiguous delegate method")
	// ErrInvalidBounds is returned when invocation bounds are negative or inverted.
	ErrInvalidBounds = errors.New("invalid invocation bounds")
	// ErrNoUsableDelegateMethod is returned when no delegate method can stand in for a member.
	ErrNoUsableDelegateMethod = errors.New("no usable delegate method")
	// ErrPatternShape is returned when a recorded pattern does not fit the member's parameters.
	ErrPatternShape = errors.New("argument patterns do not fit member")
	// ErrResultShape is returned when fixed result values do not fit the member's results.
	ErrResultShape = errors.New("result values do not fit member")
	// ErrScopeClosed is returned when an expectation is changed after its recording scope ended.
	ErrScopeClosed = errors.New("recording scope is closed")
	// ErrTooFewInvocations marks an expectation left under its minimum at verification.
	ErrTooFewInvocations = errors.New("too few invocations")
	// ErrTooManyInvocations marks a call past an expectation's maximum.
	ErrTooManyInvocations = errors.New("too many invocations")
	// ErrUnmatchedInvocation marks a call no active expectation accepts.
	ErrUnmatchedInvocation = errors.New("unmatched invocation")
)

// Violation describes one failed invocation constraint.
type Violation struct {
	Kind        ViolationKind
	Expectation *Expectation // nil for unmatched invocations
	Event       *Event       // nil for verification-time violations
	Count       int
	Detail      string
}

// Error implements error.
func (v *Violation) Error() string {
	switch v.Kind {
	case TooFewInvocations:
		msg := fmt.Sprintf("%v: %v expected at least %d, got %d",
			ErrTooFewInvocations, v.Expectation, v.Expectation.MinTimes(), v.Count)
		if v.Detail != "" {
			msg += " (" + v.Detail + ")"
		}

		return msg
	case TooManyInvocations:
		return fmt.Sprintf("%v: %v expected at most %d, got %d",
			ErrTooManyInvocations, v.Expectation, v.Expectation.MaxTimes(), v.Count)
	case UnmatchedInvocation:
		if v.Detail == "" {
			return fmt.Sprintf("%v: %v", ErrUnmatchedInvocation, v.Event)
		}

		return fmt.Sprintf("%v: %v\n%s", ErrUnmatchedInvocation, v.Event, v.Detail)
	default:
		return "unknown violation"
	}
}

// Unwrap returns the sentinel error for the violation's kind.
func (v *Violation) Unwrap() error {
	switch v.Kind {
	case TooFewInvocations:
		return ErrTooFewInvocations
	case TooManyInvocations:
		return ErrTooManyInvocations
	case UnmatchedInvocation:
		return ErrUnmatchedInvocation
	default:
		return nil
	}
}

// ViolationKind classifies a Violation.
type ViolationKind int

// ViolationKind values.
const (
	TooFewInvocations ViolationKind = iota
	TooManyInvocations
	UnmatchedInvocation
)

func (k ViolationKind) String() string {
	switch k {
	case TooFewInvocations:
		return "TooFewInvocations"
	case TooManyInvocations:
		return "TooManyInvocations"
	case UnmatchedInvocation:
		return "UnmatchedInvocation"
	default:
		return fmt.Sprintf("ViolationKind(%d)", int(k))
	}
}
