package core

import (
	"fmt"
	"math"
	"reflect"
)

// Outcome is what a call produces: result values, or a value to panic with at the call site.
type Outcome struct {
	Values     []any
	Panicked   bool
	PanicValue any
}

// Producer is one result-producing strategy attached to an expectation.
// Build one with Value, Thrown or Delegate.
type Producer struct {
	kind     producerKind
	values   []any
	thrown   any
	delegate any
	method   *delegateMethod
}

// Delegate returns a producer that runs d in place of the real member.
// d is either a func, or a value whose methods are candidate replacements; see the
// Session documentation for how the method is chosen. The choice is made, and any
// ambiguity reported, when the producer is attached.
func Delegate(d any) Producer {
	return Producer{kind: delegatedProducer, delegate: d}
}

// Thrown returns a producer that panics at the call site with value, unchanged.
// A nil value is rejected when the producer is attached, since panic(nil) does not reach a
// recover as nil.
func Thrown(value any) Producer {
	return Producer{kind: thrownProducer, thrown: value}
}

// Value returns a producer that returns the given values, one per member result.
func Value(values ...any) Producer {
	return Producer{kind: fixedProducer, values: values}
}

func (p Producer) String() string {
	switch p.kind {
	case fixedProducer:
		return fmt.Sprintf("Value(%s)", formatArgs(p.values))
	case thrownProducer:
		return fmt.Sprintf("Thrown(%#v)", p.thrown)
	case delegatedProducer:
		if p.method != nil {
			return fmt.Sprintf("Delegate(%s)", p.method)
		}

		return fmt.Sprintf("Delegate(%T)", p.delegate)
	default:
		return "Producer(?)"
	}
}

// bind checks the producer against the member and returns the ready-to-run copy.
func (p Producer) bind(member *Member) (Producer, error) {
	switch p.kind {
	case fixedProducer:
		values, err := fitValues(member, p.values)
		if err != nil {
			return p, err
		}

		p.values = values

		return p, nil
	case thrownProducer:
		if p.thrown == nil {
			return p, fmt.Errorf("%w: %v cannot panic with nil", ErrResultShape, member)
		}

		return p, nil
	case delegatedProducer:
		method, err := resolveDelegate(member, p.delegate)
		if err != nil {
			return p, err
		}

		p.method = method

		return p, nil
	default:
		return p, fmt.Errorf("%w: unknown producer", ErrResultShape)
	}
}

func (p Producer) produce(inv *Invocation) Outcome {
	switch p.kind {
	case fixedProducer:
		return Outcome{Values: p.values}
	case thrownProducer:
		return Outcome{Panicked: true, PanicValue: p.thrown}
	case delegatedProducer:
		return Outcome{Values: p.method.invoke(inv)}
	default:
		return defaultOutcome(inv.member, inv.instance)
	}
}

type producerKind int

const (
	fixedProducer producerKind = iota
	thrownProducer
	delegatedProducer
)

// defaultOutcome is the behavior of a member with no producers: zero values, except that a
// constructor yields the instance under construction when it fits the first result.
func defaultOutcome(member *Member, instance any) Outcome {
	values := zeroValues(member)

	if member.Kind == ConstructorTarget && instance != nil && len(member.Results) > 0 &&
		reflect.TypeOf(instance).AssignableTo(member.Results[0]) {
		values[0] = instance
	}

	return Outcome{Values: values}
}

// fitValue converts value to typ, accepting nil for nillable types and numeric conversions
// that keep the value intact.
func fitValue(value any, typ reflect.Type) (any, bool) {
	if value == nil {
		return nil, nillable(typ)
	}

	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(typ) {
		return value, true
	}

	if isNumeric(rv.Type()) && isNumeric(typ) {
		converted := rv.Convert(typ)
		if !convertsExactly(rv, converted) {
			return nil, false
		}

		return converted.Interface(), true
	}

	return nil, false
}

// convertsExactly reports whether converted holds the same number as original.
// A round trip alone misses wraparound between signed and unsigned integers, so signs are compared too.
func convertsExactly(original, converted reflect.Value) bool {
	if isNaN(original) {
		return isNaN(converted)
	}

	if negative(original) != negative(converted) {
		return false
	}

	return converted.Convert(original.Type()).Interface() == original.Interface()
}

func isNaN(v reflect.Value) bool {
	return isFloat(v.Kind()) && math.IsNaN(v.Float())
}

func negative(v reflect.Value) bool {
	switch {
	case isSigned(v.Kind()):
		return v.Int() < 0
	case isFloat(v.Kind()):
		return v.Float() < 0
	default:
		return false
	}
}

func fitValues(member *Member, values []any) ([]any, error) {
	if len(values) != len(member.Results) {
		return nil, fmt.Errorf("%w: %v returns %d values, got %d",
			ErrResultShape, member, len(member.Results), len(values))
	}

	fitted := make([]any, len(values))

	for i, value := range values {
		converted, ok := fitValue(value, member.Results[i])
		if !ok {
			return nil, fmt.Errorf("%w: %v result %d is %v, got %T",
				ErrResultShape, member, i, member.Results[i], value)
		}

		fitted[i] = converted
	}

	return fitted, nil
}

func zeroValues(member *Member) []any {
	values := make([]any, len(member.Results))
	for i, typ := range member.Results {
		values[i] = reflect.Zero(typ).Interface()
	}

	return values
}
