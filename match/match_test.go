package match_test

import (
	"errors"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/toejough/impmock"
	. "github.com/toejough/impmock/match"
)

func TestBeAny(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(impmock.MatchArgs([]any{BeAny, BeAny}, []any{nil, 42})).To(Succeed())
}

func TestBeAnyOf(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(impmock.MatchArgs([]any{BeAnyOf[string]()}, []any{"x"})).To(Succeed())
	g.Expect(impmock.MatchArgs([]any{BeAnyOf[string]()}, []any{1})).NotTo(Succeed())
	g.Expect(impmock.MatchArgs([]any{BeAnyOf[error]()}, []any{nil})).To(Succeed())
}

func TestGomegaBeNil(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	var nilMap map[string]int

	g.Expect(impmock.MatchArgs([]any{BeNil(), BeNil()}, []any{nil, nilMap})).To(Succeed())

	err := impmock.MatchArgs([]any{BeNil()}, []any{errors.New("set")})
	g.Expect(err).To(MatchError(ContainSubstring("to be nil")))
}

func TestSatisfies(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	even := Satisfies(func(n int) error {
		if n%2 != 0 {
			return errors.New("odd")
		}

		return nil
	})

	g.Expect(impmock.MatchArgs([]any{even}, []any{4})).To(Succeed())
	g.Expect(impmock.MatchArgs([]any{even}, []any{3})).To(MatchError(ContainSubstring("odd")))
}

func TestMixedWithGomega(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	session := impmock.NewSession(t)
	add := impmock.StaticMethod("Calc", "Add", func(int, int) int { return 0 })

	session.Expectations(func(scope *impmock.Scope) {
		scope.Record(nil, add, BeNumerically(">", 0), BeAny).Return(42)
	})

	g.Expect(impmock.Bind[func(int, int) int](session, nil, add)(1, -5)).To(Equal(42))

	session.Finish()
}
