package core

import "slices"

// Invocation is the read-only view of one matched call that a delegate may take as its
// leading parameter. A fresh Invocation is built for every matched call.
type Invocation struct {
	instance any
	args     []any
	member   *Member
	count    int
	min      int
	max      int
}

// InvocationCount is the 1-based number of calls the expectation has matched, this one included.
func (inv *Invocation) InvocationCount() int {
	return inv.count
}

// InvocationIndex is the 0-based position of this call among the expectation's matches.
func (inv *Invocation) InvocationIndex() int {
	return inv.count - 1
}

// InvokedArguments returns a copy of the live arguments, nils preserved.
func (inv *Invocation) InvokedArguments() []any {
	return slices.Clone(inv.args)
}

// InvokedInstance is the receiver for instance calls, the instance under construction for
// constructors, the member's shared instance for statics that have one, and nil otherwise.
func (inv *Invocation) InvokedInstance() any {
	return inv.instance
}

// InvokedMember is the member the call was made on.
func (inv *Invocation) InvokedMember() *Member {
	return inv.member
}

// MaxInvocations is the expectation's maximum, or Unbounded.
func (inv *Invocation) MaxInvocations() int {
	return inv.max
}

// MinInvocations is the expectation's minimum.
func (inv *Invocation) MinInvocations() int {
	return inv.min
}

func newInvocation(exp *Expectation, event Event, count int) *Invocation {
	instance := event.Instance
	if instance == nil && event.Member.Kind == StaticTarget {
		instance = event.Member.Shared
	}

	args := event.Args
	if args == nil {
		args = []any{}
	}

	return &Invocation{
		instance: instance,
		args:     slices.Clone(args),
		member:   event.Member,
		count:    count,
		min:      exp.minTimes,
		max:      exp.maxTimes,
	}
}
