// Package match provides argument patterns for impmock expectations.
// This package is designed to be dot-imported alongside gomega matchers:
//
//	import (
//	    . "github.com/onsi/gomega"
//	    . "github.com/toejough/impmock/match"
//	)
//
//	scope.Record(nil, add, BeNumerically(">", 0), BeAny).Return(42)
package match

import (
	"github.com/toejough/impmock/internal/core"
)

// Matcher defines the interface for flexible value matching.
// Compatible with gomega.GomegaMatcher via duck typing - any type
// implementing Match and FailureMessage will work.
type Matcher = core.Matcher

// BeAny is a matcher that matches any value, nil included.
// Useful when you don't care about a particular argument.
//
//nolint:gochecknoglobals // Intentional exported constant-like value
var BeAny = core.Any()

// BeAnyOf returns a matcher for any value of type T, and for nil when T can hold nil.
func BeAnyOf[T any]() Matcher {
	return core.AnyOf[T]()
}

// Satisfies returns a matcher that uses a predicate function to check for a match.
// The predicate should return nil if the value matches, or an error describing
// the mismatch if it does not.
//
// Example:
//
//	scope.Record(nil, add, Satisfies(func(x int) error {
//	    if x < 0 { return fmt.Errorf("expected positive, got %d", x) }
//	    return nil
//	}), BeAny)
func Satisfies[T any](predicate func(T) error) Matcher {
	return core.Satisfies(predicate)
}
