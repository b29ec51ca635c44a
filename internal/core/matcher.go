package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/akedrou/textdiff"
)

// Matcher defines the interface for flexible value matching.
// Compatible with gomega.GomegaMatcher via duck typing - any type
// implementing Match and FailureMessage will work as an argument pattern.
type Matcher interface {
	Match(actual any) (success bool, err error)
	FailureMessage(actual any) string
}

// Any returns a wildcard that matches any value, nil included.
func Any() Matcher {
	return anyMatcher{}
}

// AnyOf returns a wildcard for a single parameter kind: it matches any value of type T,
// and nil when T can hold nil.
func AnyOf[T any]() Matcher {
	return anyOfMatcher{typ: reflect.TypeFor[T]()}
}

// MatchArgs checks live arguments against recorded patterns, position by position.
// Returns nil for a match, or an error describing the first mismatch.
func MatchArgs(patterns, args []any) error {
	if len(patterns) != len(args) {
		return fmt.Errorf("%w: expected %d args, got %d", errArgMismatch, len(patterns), len(args))
	}

	for index, pattern := range patterns {
		ok, msg := MatchValue(args[index], pattern)
		if !ok {
			return fmt.Errorf("%w: arg %d: %s", errArgMismatch, index, msg)
		}
	}

	return nil
}

// MatchValue checks if actual matches expected.
// If expected implements the Matcher interface, uses its Match method.
// A nil expected value matches only a nil actual value.
// Otherwise, uses reflect.DeepEqual for comparison.
// Returns (success, errorMessage). If success is true, errorMessage is empty.
func MatchValue(actual, expected any) (bool, string) {
	if matcher, ok := expected.(Matcher); ok {
		success, err := matcher.Match(actual)
		if err != nil {
			return false, err.Error()
		}

		if !success {
			return false, matcher.FailureMessage(actual)
		}

		return true, ""
	}

	if isNil(expected) {
		if isNil(actual) {
			return true, ""
		}

		return false, fmt.Sprintf("expected nil, got %#v", actual)
	}

	if reflect.DeepEqual(actual, expected) {
		return true, ""
	}

	return false, fmt.Sprintf("expected %#v, got %#v", expected, actual)
}

// Satisfies returns a matcher that uses a predicate function to check for a match.
// The predicate should return nil if the value matches, or an error describing
// the mismatch if it does not.
func Satisfies[T any](predicate func(T) error) Matcher {
	return &satisfiesMatcher[T]{predicate: predicate}
}

// unexported variables.
var (
	errArgMismatch  = errors.New("argument mismatch")
	errTypeMismatch = errors.New("type mismatch")
)

type anyMatcher struct{}

func (anyMatcher) FailureMessage(any) string {
	return ""
}

func (anyMatcher) Match(any) (bool, error) {
	return true, nil
}

func (anyMatcher) String() string {
	return "<any>"
}

type anyOfMatcher struct {
	typ reflect.Type
}

func (m anyOfMatcher) FailureMessage(actual any) string {
	return fmt.Sprintf("expected any %v, got %T", m.typ, actual)
}

func (m anyOfMatcher) Match(actual any) (bool, error) {
	if actual == nil {
		return nillable(m.typ), nil
	}

	return reflect.TypeOf(actual).AssignableTo(m.typ), nil
}

func (m anyOfMatcher) String() string {
	return fmt.Sprintf("<any %v>", m.typ)
}

type satisfiesMatcher[T any] struct {
	predicate func(T) error
	lastErr   error
}

func (m *satisfiesMatcher[T]) FailureMessage(actual any) string {
	if m.lastErr != nil {
		return fmt.Sprintf("value %v does not satisfy predicate: %v", actual, m.lastErr)
	}

	return fmt.Sprintf("value %v does not satisfy predicate", actual)
}

func (m *satisfiesMatcher[T]) Match(actual any) (bool, error) {
	val, ok := actual.(T)

	if !ok {
		return false, fmt.Errorf("%w: expected %T, got %T", errTypeMismatch, *new(T), actual)
	}

	m.lastErr = m.predicate(val)

	return m.lastErr == nil, nil
}

// describeMismatch renders recorded patterns against invoked args as a unified diff.
func describeMismatch(exp *Expectation, args []any, err error) string {
	recorded := make([]string, len(exp.patterns))
	for i, pattern := range exp.patterns {
		recorded[i] = describePattern(pattern)
	}

	invoked := make([]string, len(args))
	for i, arg := range args {
		invoked[i] = fmt.Sprintf("%#v", arg)
	}

	diff := textdiff.Unified(
		exp.String()+" (recorded)",
		exp.member.String()+" (invoked)",
		strings.Join(recorded, "\n")+"\n",
		strings.Join(invoked, "\n")+"\n",
	)

	return fmt.Sprintf("  #%d: %v\n%s", exp.ID, err, diff)
}

func describePattern(pattern any) string {
	if stringer, ok := pattern.(fmt.Stringer); ok {
		if _, isMatcher := pattern.(Matcher); isMatcher {
			return stringer.String()
		}
	}

	return fmt.Sprintf("%#v", pattern)
}

func isNil(value any) bool {
	if value == nil {
		return true
	}

	rv := reflect.ValueOf(value)
	if !nillable(rv.Type()) {
		return false
	}

	return rv.IsNil()
}

func nillable(typ reflect.Type) bool {
	switch typ.Kind() { //nolint:exhaustive // only nillable kinds matter
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer,
		reflect.Slice, reflect.UnsafePointer:
		return true
	default:
		return false
	}
}
