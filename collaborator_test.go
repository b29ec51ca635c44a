package impmock_test

import (
	. "github.com/onsi/gomega"
	"github.com/toejough/impmock"
)

// Collaborator is a hand-written mock: every method hands its call to the session.
type Collaborator struct {
	session *impmock.Session
}

// NewCollaborator is the mocked constructor.
func NewCollaborator(session *impmock.Session, i int) *Collaborator {
	c := &Collaborator{session: session}

	return session.Call(c, newCollaborator, i)[0].(*Collaborator)
}

// StaticCheck is a mocked function with no receiver.
func StaticCheck(session *impmock.Session) bool {
	return session.Call(nil, staticCheck)[0].(bool)
}

// StaticCheckInt overloads StaticCheck by parameter list.
func StaticCheckInt(session *impmock.Session, i int) bool {
	return session.Call(nil, staticCheckInt, i)[0].(bool)
}

func (c *Collaborator) DoSomething(b bool, values []int, s *string) string {
	return c.session.Call(c, doSomething, b, values, s)[0].(string)
}

func (c *Collaborator) GetValue() int {
	return c.session.Call(c, getValue)[0].(int)
}

func (c *Collaborator) NativeMethod(b bool) int64 {
	return c.session.Call(c, nativeMethod, b)[0].(int64)
}

func (c *Collaborator) Ratio() float32 {
	return c.session.Call(c, ratio)[0].(float32)
}

// Process stands in for a started child process.
type Process struct{}

// Runtime has members called through a canonical shared instance.
type Runtime struct {
	session *impmock.Session
}

func (r *Runtime) Exec(command string, envp []string) *Process {
	return r.session.Call(r, execMember, command, envp)[0].(*Process)
}

// unexported variables.
var (
	doSomething = impmock.InstanceMethod("Collaborator", "DoSomething",
		func(bool, []int, *string) string { return "" })
	execMember      = impmock.InstanceMethod("Runtime", "Exec", func(string, []string) *Process { return nil })
	getValue        = impmock.InstanceMethod("Collaborator", "GetValue", func() int { return 0 })
	nativeMethod    = impmock.InstanceMethod("Collaborator", "NativeMethod", func(bool) int64 { return 0 })
	newCollaborator = impmock.Constructor("Collaborator", func(int) *Collaborator { return nil })
	ratio           = impmock.InstanceMethod("Collaborator", "Ratio", func() float32 { return 0 })
	staticCheck     = impmock.StaticMethod("Collaborator", "StaticCheck", func() bool { return false })
	staticCheckInt  = impmock.StaticMethod("Collaborator", "StaticCheck", func(int) bool { return false })
)

type constructorDelegate struct {
	captured int
	instance any
}

func (d *constructorDelegate) Init(inv *impmock.Invocation, i int) {
	d.instance = inv.InvokedInstance()
	d.captured = i + inv.InvocationCount()
}

type countingDelegate struct{}

func (countingDelegate) GetValue(inv *impmock.Invocation) int {
	return inv.InvocationCount()
}

//nolint:unused // unexported methods are never delegate candidates
func (countingDelegate) otherMethod(*impmock.Invocation) {
	panic("unexported methods must not be called")
}

type differentNameDelegate struct {
	count    int
	firstArg any
}

func (d *differentNameDelegate) DifferentName(inv *impmock.Invocation, _ bool) int64 {
	d.count = inv.InvocationCount()
	d.firstArg = inv.InvokedArguments()[0]

	return 3
}

type execDelegate struct {
	seen **impmock.Invocation
}

func (d execDelegate) Exec(inv *impmock.Invocation, _ string, _ []string) {
	*d.seen = inv
}

type inexactDelegate struct {
	g Gomega
}

func (inexactDelegate) MockMethods() []string {
	return []string{"StaticCheck"}
}

func (inexactDelegate) OtherMethod(int) bool {
	panic("unmarked methods must not be called")
}

func (d inexactDelegate) StaticCheck(inv *impmock.Invocation, n any) bool {
	d.g.Expect(inv.MinInvocations()).To(Equal(1))
	d.g.Expect(inv.MaxInvocations()).To(Equal(1))

	return n.(int) > 0
}

type noParamDelegate struct{}

func (noParamDelegate) NonMatchingDelegate() int64 {
	return 123
}

type twoMethodDelegate struct{}

func (twoMethodDelegate) Ratio(*impmock.Invocation) float32 {
	return 1
}

func (twoMethodDelegate) SomeOtherMethod() {}
