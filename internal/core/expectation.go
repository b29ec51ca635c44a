package core

import (
	"fmt"
	"strings"
	"sync"
)

// Unbounded is the maximum of an expectation with no upper limit.
const Unbounded = -1

// Expectation is a recorded pattern for one member, with its result producers and
// invocation-count bounds. Expectations are created by a Scope and live in their Session's
// arena, identified by ID.
//
// The setters below are only valid while the recording scope is open; they return the
// expectation so declarations chain. Errors are collected by the scope.
type Expectation struct {
	ID int

	scope        *Scope
	member       *Member
	instance     any
	bindInstance bool
	patterns     []any
	producers    []Producer
	strict       bool
	order        int // position among the scope's expectations

	minTimes, maxTimes int
	minSet, maxSet     bool

	mu    sync.Mutex
	count int
}

// Count is the number of calls matched so far.
func (e *Expectation) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.count
}

// Do attaches a delegate producer. See Delegate.
func (e *Expectation) Do(delegate any) *Expectation {
	return e.Results(Delegate(delegate))
}

// MaxTimes is the effective maximum, Unbounded when there is none.
func (e *Expectation) MaxTimes() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.maxTimes
}

// Member is the member this expectation was recorded for.
func (e *Expectation) Member() *Member {
	return e.member
}

// MinTimes is the effective minimum.
func (e *Expectation) MinTimes() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.minTimes
}

// OnInstance restricts matching to calls on the instance the pattern was recorded with.
func (e *Expectation) OnInstance() *Expectation {
	return e.declare("OnInstance", func() {
		e.bindInstance = true
	})
}

// Panic attaches a producer that panics with value.
func (e *Expectation) Panic(value any) *Expectation {
	return e.Results(Thrown(value))
}

// Results attaches producers in order. Successive matching calls consume them front to back;
// the last one repeats once reached.
func (e *Expectation) Results(producers ...Producer) *Expectation {
	bound := make([]Producer, 0, len(producers))

	var errs []error

	for _, producer := range producers {
		ready, err := producer.bind(e.member)
		if err != nil {
			errs = append(errs, fmt.Errorf("%v: %w", e, err))

			continue
		}

		bound = append(bound, ready)
	}

	return e.declare("Results", func() {
		e.producers = append(e.producers, bound...)
		e.scope.errs = append(e.scope.errs, errs...)
	})
}

// Return attaches a producer returning values, one per member result.
func (e *Expectation) Return(values ...any) *Expectation {
	return e.Results(Value(values...))
}

// SetMaxTimes sets the maximum number of matching calls. Unbounded removes the limit.
func (e *Expectation) SetMaxTimes(maxTimes int) *Expectation {
	return e.declare("SetMaxTimes", func() {
		e.maxTimes, e.maxSet = maxTimes, true
	})
}

// SetMinTimes sets the minimum number of matching calls.
func (e *Expectation) SetMinTimes(minTimes int) *Expectation {
	return e.declare("SetMinTimes", func() {
		e.minTimes, e.minSet = minTimes, true
	})
}

func (e *Expectation) String() string {
	return fmt.Sprintf("#%d %s.%s(%s)", e.ID, e.member.Owner, e.member.Name, patternList(e.patterns))
}

// Strict reports whether the expectation takes part in ordered matching.
func (e *Expectation) Strict() bool {
	return e.strict
}

// Times sets both bounds to n.
func (e *Expectation) Times(n int) *Expectation {
	return e.SetMinTimes(n).SetMaxTimes(n)
}

// declare runs apply while the recording scope is open. The open check and apply share
// session.mu, so End cannot finalize in between.
func (e *Expectation) declare(what string, apply func()) *Expectation {
	session := e.scope.session

	session.mu.Lock()
	defer session.mu.Unlock()

	if !e.scope.open {
		session.failures = append(session.failures, fmt.Errorf("%w: %s on %v", ErrScopeClosed, what, e))

		return e
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	apply()

	return e
}

// exhausted reports whether another match would exceed the maximum. Caller holds the session lock.
func (e *Expectation) exhausted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.maxTimes != Unbounded && e.count >= e.maxTimes
}

// finalize fixes the bounds when the scope closes. Strict expectations default to
// exactly once, stretched to the number of attached producers; lenient ones to any number.
func (e *Expectation) finalize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.minSet && e.minTimes < 0 {
		return fmt.Errorf("%w: %v min %d", ErrInvalidBounds, e, e.minTimes)
	}

	if e.maxSet && e.maxTimes < Unbounded {
		return fmt.Errorf("%w: %v max %d", ErrInvalidBounds, e, e.maxTimes)
	}

	if e.minSet && e.maxSet && e.maxTimes != Unbounded && e.minTimes > e.maxTimes {
		return fmt.Errorf("%w: %v min %d > max %d", ErrInvalidBounds, e, e.minTimes, e.maxTimes)
	}

	if e.strict {
		e.finalizeStrict()

		return nil
	}

	if !e.minSet {
		e.minTimes = 0
	}

	if !e.maxSet {
		e.maxTimes = Unbounded
	}

	return nil
}

func (e *Expectation) finalizeStrict() {
	if !e.minSet {
		e.minTimes = 1
		if e.maxSet && e.maxTimes != Unbounded && e.maxTimes < 1 {
			e.minTimes = e.maxTimes
		}
	}

	if !e.maxSet {
		e.maxTimes = max(1, len(e.producers))
		if e.minTimes > e.maxTimes {
			e.maxTimes = Unbounded
		}
	}
}

// hit counts one matched call and returns the count including it. Caller holds the session lock.
func (e *Expectation) hit() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.count++

	return e.count
}

// resolve runs the producer for the inv.InvocationCount()-th call: producers are used in
// order and the last one is sticky.
func (e *Expectation) resolve(inv *Invocation) Outcome {
	e.mu.Lock()
	producers := e.producers
	e.mu.Unlock()

	if len(producers) == 0 {
		return defaultOutcome(inv.member, inv.instance)
	}

	index := min(inv.InvocationIndex(), len(producers)-1)

	return producers[index].produce(inv)
}

// satisfied reports whether the minimum has been reached.
func (e *Expectation) satisfied() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.count >= e.minTimes
}

func (e *Expectation) sameInstance(instance any) bool {
	if !e.bindInstance {
		return true
	}

	return sameValue(e.instance, instance)
}

func patternList(patterns []any) string {
	parts := make([]string, len(patterns))
	for i, pattern := range patterns {
		parts[i] = describePattern(pattern)
	}

	return strings.Join(parts, ", ")
}

