package core_test

import (
	"errors"
	"fmt"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/toejough/impmock/internal/core"
	"pgregory.net/rapid"
)

func TestMatchValue(t *testing.T) {
	t.Parallel()

	t.Run("exact values use deep equality", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		ok, msg := core.MatchValue([]int{1, 2}, []int{1, 2})
		g.Expect(ok).To(BeTrue())
		g.Expect(msg).To(BeEmpty())

		ok, msg = core.MatchValue([]int{1, 2}, []int{2, 1})
		g.Expect(ok).To(BeFalse())
		g.Expect(msg).To(ContainSubstring("expected"))
	})

	t.Run("nil pattern matches only nil", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		var typedNil *int

		ok, _ := core.MatchValue(nil, nil)
		g.Expect(ok).To(BeTrue())

		ok, _ = core.MatchValue(typedNil, nil)
		g.Expect(ok).To(BeTrue())

		ok, msg := core.MatchValue(0, nil)
		g.Expect(ok).To(BeFalse())
		g.Expect(msg).To(ContainSubstring("expected nil"))
	})

	t.Run("gomega matchers are accepted as patterns", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		ok, _ := core.MatchValue(5, BeNumerically(">", 3))
		g.Expect(ok).To(BeTrue())

		ok, msg := core.MatchValue(2, BeNumerically(">", 3))
		g.Expect(ok).To(BeFalse())
		g.Expect(msg).NotTo(BeEmpty())
	})
}

func TestWildcards(t *testing.T) {
	t.Parallel()

	t.Run("Any matches everything including nil", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		for _, value := range []any{nil, 0, "", struct{}{}, errors.New("x")} {
			ok, _ := core.MatchValue(value, core.Any())
			g.Expect(ok).To(BeTrue(), "value %#v", value)
		}
	})

	t.Run("AnyOf checks the type", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		ok, _ := core.MatchValue(3, core.AnyOf[int]())
		g.Expect(ok).To(BeTrue())

		ok, msg := core.MatchValue("3", core.AnyOf[int]())
		g.Expect(ok).To(BeFalse())
		g.Expect(msg).To(ContainSubstring("int"))
	})

	t.Run("AnyOf accepts nil only for nillable types", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		ok, _ := core.MatchValue(nil, core.AnyOf[error]())
		g.Expect(ok).To(BeTrue())

		ok, _ = core.MatchValue(nil, core.AnyOf[int]())
		g.Expect(ok).To(BeFalse())
	})

	t.Run("AnyOf an interface accepts implementations", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		ok, _ := core.MatchValue(errors.New("boom"), core.AnyOf[error]())
		g.Expect(ok).To(BeTrue())
	})
}

func TestSatisfies(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	positive := core.Satisfies(func(x int) error {
		if x <= 0 {
			return fmt.Errorf("expected positive, got %d", x)
		}

		return nil
	})

	ok, _ := core.MatchValue(4, positive)
	g.Expect(ok).To(BeTrue())

	ok, msg := core.MatchValue(-1, positive)
	g.Expect(ok).To(BeFalse())
	g.Expect(msg).To(ContainSubstring("expected positive"))

	ok, msg = core.MatchValue("four", positive)
	g.Expect(ok).To(BeFalse())
	g.Expect(msg).To(ContainSubstring("type mismatch"))
}

func TestMatchArgs(t *testing.T) {
	t.Parallel()

	t.Run("length mismatch is no match", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		g.Expect(core.MatchArgs([]any{1}, []any{1, 2})).To(MatchError(ContainSubstring("expected 1 args, got 2")))
		g.Expect(core.MatchArgs(nil, nil)).To(Succeed())
	})

	t.Run("reports the first mismatching position", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		err := core.MatchArgs([]any{1, core.Any(), "c"}, []any{1, "anything", "d"})
		g.Expect(err).To(MatchError(ContainSubstring("arg 2")))
	})

	t.Run("equal argument lists always match", func(t *testing.T) {
		t.Parallel()

		rapid.Check(t, func(rt *rapid.T) {
			values := rapid.SliceOf(rapid.Int()).Draw(rt, "values")

			patterns := make([]any, len(values))
			args := make([]any, len(values))

			for i, value := range values {
				patterns[i] = value
				args[i] = value
			}

			if err := core.MatchArgs(patterns, args); err != nil {
				rt.Fatalf("expected match, got %v", err)
			}
		})
	})

	t.Run("any changed argument breaks the match", func(t *testing.T) {
		t.Parallel()

		rapid.Check(t, func(rt *rapid.T) {
			values := rapid.SliceOfN(rapid.Int(), 1, 10).Draw(rt, "values")
			changed := rapid.IntRange(0, len(values)-1).Draw(rt, "changed")

			patterns := make([]any, len(values))
			args := make([]any, len(values))

			for i, value := range values {
				patterns[i] = value
				args[i] = value
			}

			args[changed] = values[changed] + 1

			if err := core.MatchArgs(patterns, args); err == nil {
				rt.Fatalf("expected mismatch at %d", changed)
			}
		})
	})
}
