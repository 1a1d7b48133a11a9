// Package edit applies span replacements to source text. The AST passes
// never print a tree back out; they record the byte ranges they want to
// change and splice replacements in, so every byte they did not explicitly
// touch survives unchanged. Edits are applied in reverse source order so
// earlier offsets stay valid while later ones are rewritten.
package edit

import (
	"sort"

	"github.com/crosswire-dev/crosswire/core/ast"
	"github.com/crosswire-dev/crosswire/core/invariant"
)

// Edit replaces the bytes in Span with Text.
type Edit struct {
	Span ast.Span
	Text string
}

// Replace builds an edit covering span.
func Replace(span ast.Span, text string) Edit {
	return Edit{Span: span, Text: text}
}

// Delete builds an edit that removes span entirely.
func Delete(span ast.Span) Edit {
	return Edit{Span: span}
}

// Apply splices all edits into source. Edits must lie within the source and
// must not overlap; both are programming errors in the pass that produced
// them, not input errors.
func Apply(source string, edits []Edit) string {
	if len(edits) == 0 {
		return source
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Span.Start > sorted[j].Span.Start
	})

	out := source
	prevStart := len(source) + 1
	for _, e := range sorted {
		invariant.Precondition(e.Span.Start >= 0 && e.Span.End <= len(source), "edit span [%d,%d) out of range for %d-byte source", e.Span.Start, e.Span.End, len(source))
		invariant.Precondition(e.Span.Start <= e.Span.End, "edit span [%d,%d) is inverted", e.Span.Start, e.Span.End)
		invariant.Invariant(e.Span.End <= prevStart, "edits overlap at offset %d", e.Span.End)
		out = out[:e.Span.Start] + e.Text + out[e.Span.End:]
		prevStart = e.Span.Start
	}
	return out
}
