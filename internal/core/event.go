package core

import (
	"fmt"
	"reflect"
	"strings"
)

// Event is one intercepted call, as handed over by whatever redirects real calls into a Session.
type Event struct {
	Instance any // receiver, or the instance under construction; nil for statics
	Member   *Member
	Args     []any
}

// IsConstructor reports whether the event is a constructor call.
func (e Event) IsConstructor() bool {
	return e.Member != nil && e.Member.Kind == ConstructorTarget
}

func (e Event) String() string {
	if e.Member == nil {
		return fmt.Sprintf("<nil member>(%s)", formatArgs(e.Args))
	}

	return fmt.Sprintf("%s.%s(%s)", e.Member.Owner, e.Member.Name, formatArgs(e.Args))
}

// Member identifies a mocked method, static function or constructor and its declared shape.
type Member struct {
	Kind     TargetKind
	Owner    string // declaring type
	Name     string
	Params   []reflect.Type
	Results  []reflect.Type
	Variadic bool

	// Shared is reported as the invoked instance for static calls on well-known
	// utilities that have a canonical instance.
	Shared any
}

// Constructor describes a constructor for owner. The signature's results are the constructed values.
func Constructor(owner string, signature any) *Member {
	return newMember(ConstructorTarget, owner, "New"+owner, signature)
}

// InstanceMethod describes a method bound to instances of owner.
// The signature excludes the receiver.
func InstanceMethod(owner, name string, signature any) *Member {
	return newMember(InstanceTarget, owner, name, signature)
}

// StaticMethod describes a function bound to owner itself rather than an instance.
func StaticMethod(owner, name string, signature any) *Member {
	return newMember(StaticTarget, owner, name, signature)
}

// Key identifies the member for matching: kind, owner, name and parameter types.
func (m *Member) Key() string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "%d|%s|%s(", m.Kind, m.Owner, m.Name)

	for i, param := range m.Params {
		if i > 0 {
			builder.WriteString(",")
		}

		builder.WriteString(param.String())
	}

	builder.WriteString(")")

	return builder.String()
}

func (m *Member) String() string {
	params := make([]string, len(m.Params))
	for i, param := range m.Params {
		params[i] = param.String()
	}

	if m.Variadic && len(params) > 0 {
		last := len(params) - 1
		params[last] = "..." + m.Params[last].Elem().String()
	}

	return fmt.Sprintf("%s.%s(%s)", m.Owner, m.Name, strings.Join(params, ", "))
}

// TargetKind says what a member is bound to.
type TargetKind int

// TargetKind values.
const (
	InstanceTarget TargetKind = iota
	StaticTarget
	ConstructorTarget
)

func (k TargetKind) String() string {
	switch k {
	case InstanceTarget:
		return "instance"
	case StaticTarget:
		return "static"
	case ConstructorTarget:
		return "constructor"
	default:
		return fmt.Sprintf("TargetKind(%d)", int(k))
	}
}

func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = fmt.Sprintf("%#v", arg)
	}

	return strings.Join(parts, ", ")
}

func newMember(kind TargetKind, owner, name string, signature any) *Member {
	funcType := reflect.TypeOf(signature)
	if funcType == nil || funcType.Kind() != reflect.Func {
		panic(fmt.Sprintf("impmock: signature for %s.%s must be a func, got %T", owner, name, signature))
	}

	member := &Member{
		Kind:     kind,
		Owner:    owner,
		Name:     name,
		Params:   make([]reflect.Type, funcType.NumIn()),
		Results:  make([]reflect.Type, funcType.NumOut()),
		Variadic: funcType.IsVariadic(),
	}

	for i := range funcType.NumIn() {
		member.Params[i] = funcType.In(i)
	}

	for i := range funcType.NumOut() {
		member.Results[i] = funcType.Out(i)
	}

	return member
}
