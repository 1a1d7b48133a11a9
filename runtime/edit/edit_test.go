package edit

import (
	"testing"

	"github.com/crosswire-dev/crosswire/core/ast"
)

func span(start, end int) ast.Span { return ast.Span{Start: start, End: end} }

func TestApplyNoEdits(t *testing.T) {
	src := "unchanged"
	if got := Apply(src, nil); got != src {
		t.Errorf("Apply with no edits = %q, want %q", got, src)
	}
}

func TestApplySingleReplace(t *testing.T) {
	got := Apply("abc def", []Edit{Replace(span(4, 7), "xyz")})
	if got != "abc xyz" {
		t.Errorf("got %q, want %q", got, "abc xyz")
	}
}

func TestApplyDelete(t *testing.T) {
	got := Apply("keep DROP keep", []Edit{Delete(span(4, 9))})
	if got != "keep keep" {
		t.Errorf("got %q, want %q", got, "keep keep")
	}
}

// Edits given in source order must still apply correctly: Apply sorts them
// into reverse order itself.
func TestApplyMultipleForwardOrder(t *testing.T) {
	src := "aa bb cc"
	got := Apply(src, []Edit{
		Replace(span(0, 2), "X"),
		Replace(span(3, 5), "Y"),
		Replace(span(6, 8), "Z"),
	})
	if got != "X Y Z" {
		t.Errorf("got %q, want %q", got, "X Y Z")
	}
}

func TestApplyAdjacentEdits(t *testing.T) {
	got := Apply("abcd", []Edit{
		Replace(span(0, 2), "1"),
		Replace(span(2, 4), "2"),
	})
	if got != "12" {
		t.Errorf("got %q, want %q", got, "12")
	}
}

func TestApplyOverlapPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on overlapping edits")
		}
	}()
	Apply("abcdef", []Edit{
		Replace(span(0, 3), "x"),
		Replace(span(2, 5), "y"),
	})
}

func TestApplyOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on out-of-range edit")
		}
	}()
	Apply("ab", []Edit{Replace(span(0, 5), "x")})
}
