// Package rewrite resolves dispatch calls at compile time. A call
// namespace.runOn(tag, action) either becomes an invocation of the action
// or the neutral literal undefined, depending on whether the build target
// accepts the tag. The replacement is always a single expression, so
// whatever surrounds the call (an await, a ?? chain, an assignment) keeps
// working.
package rewrite

import (
	"strings"

	"github.com/crosswire-dev/crosswire/core/ast"
	"github.com/crosswire-dev/crosswire/core/platform"
	"github.com/crosswire-dev/crosswire/runtime/edit"
	"github.com/crosswire-dev/crosswire/runtime/parser"
)

// Token is the skip-fast substring: a file that never mentions the method
// name cannot contain a dispatch call, and parsing it would be wasted work.
const Token = "runOn"

// Outcome is the compile-time resolution of one dispatch call.
type Outcome int

const (
	// OutcomeInline invokes the action in place: runOn("tag", cb) -> cb().
	OutcomeInline Outcome = iota
	// OutcomeNeutral replaces the call with undefined.
	OutcomeNeutral
)

// resolve maps a call's tag to its outcome for the target.
func resolve(target platform.Target, call ast.DispatchCall) Outcome {
	if platform.Accepts(target, call.Tag) {
		return OutcomeInline
	}
	return OutcomeNeutral
}

// render builds the replacement expression for an outcome.
func render(o Outcome, call ast.DispatchCall, source string) string {
	switch o {
	case OutcomeInline:
		action := call.Action.Text(source)
		if call.ActionIsIdent {
			return action + "()"
		}
		// An arrow or any compound expression is not a valid callee
		// unparenthesized.
		return "(" + action + ")()"
	default:
		return "undefined"
	}
}

// maxDepth bounds the re-scan loop for dispatch calls nested inside other
// dispatch calls' action expressions.
const maxDepth = 10

// Rewrite resolves every recognized dispatch call in source for target.
// Returns the rewritten source; a parse error is returned to the caller,
// which fails open for the file. The input is never modified on error.
func Rewrite(source string, target platform.Target, namespace string) (string, error) {
	out := source
	for i := 0; i < maxDepth; i++ {
		if !strings.Contains(out, Token) {
			return out, nil
		}
		calls, err := parser.DispatchCalls(out, namespace)
		if err != nil {
			return source, err
		}
		if len(calls) == 0 {
			return out, nil
		}

		edits := make([]edit.Edit, 0, len(calls))
		for _, call := range calls {
			edits = append(edits, edit.Replace(call.Span, render(resolve(target, call), call, out)))
		}
		out = edit.Apply(out, edits)
	}
	return out, nil
}
