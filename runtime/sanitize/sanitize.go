// Package sanitize strips server-only declarations before a module reaches
// a client bundle. State declarations are removed whole; action
// declarations keep their identity (the key, the argument shape) but lose
// their handler bodies. The pass runs for client-classified targets only -
// the orchestrator enforces that - and makes no distinction between client
// sub-targets.
package sanitize

import (
	"strings"

	"github.com/crosswire-dev/crosswire/core/ast"
	"github.com/crosswire-dev/crosswire/runtime/edit"
	"github.com/crosswire-dev/crosswire/runtime/parser"
)

// Tokens are the skip-fast substrings: a file mentioning neither cannot
// contain a server declaration. The singular names are prefixes of the
// plural ones, so two checks cover all four methods.
var Tokens = []string{ast.MethodServerState, ast.MethodServerAction}

// emptyHandler replaces the handler argument of a singular action
// declaration. Async so that call sites awaiting the action still work.
const emptyHandler = "async () => {}"

// Result reports what the pass removed, for diagnostics.
type Result struct {
	Output string
	// RemovedLits holds string literals that occurred inside removed state
	// declarations. Any of them still present in Output indicates a second
	// occurrence elsewhere in the file - worth a warning, since the file
	// author probably expected the value to be server-only.
	RemovedLits []string
}

// Leaked returns the removed literals that still occur in the output.
func (r *Result) Leaked() []string {
	var leaked []string
	for _, lit := range r.RemovedLits {
		if strings.Contains(r.Output, lit) {
			leaked = append(leaked, lit)
		}
	}
	return leaked
}

// Sanitize removes server-only declarations from source. On a parse error
// the input is returned unchanged alongside the error; the caller fails
// open for the file.
func Sanitize(source string) (*Result, error) {
	decls, err := parser.ServerDecls(source)
	if err != nil {
		return &Result{Output: source}, err
	}

	res := &Result{}
	var edits []edit.Edit
	for _, decl := range decls {
		switch {
		case decl.IsState():
			edits = append(edits, edit.Delete(decl.Span))
			res.RemovedLits = append(res.RemovedLits, decl.StringLits...)
		case decl.Method == ast.MethodServerAction:
			// Singular form: the handler is the last argument whether the
			// call had two or three; everything before it is identity and
			// stays.
			if len(decl.Args) >= 2 {
				edits = append(edits, edit.Replace(decl.Args[len(decl.Args)-1], emptyHandler))
			}
		case decl.Method == ast.MethodServerActions:
			for _, h := range decl.Handlers {
				edits = append(edits, edit.Replace(h.Body, "{}"))
			}
		}
	}

	res.Output = edit.Apply(source, dropNested(edits))
	return res, nil
}

// dropNested removes edits fully contained in another edit's span. A state
// declaration nested inside an action handler body would otherwise produce
// overlapping replacements.
func dropNested(edits []edit.Edit) []edit.Edit {
	kept := edits[:0:0]
	for i, e := range edits {
		contained := false
		for k, outer := range edits {
			if k == i {
				continue
			}
			if outer.Span.Start <= e.Span.Start && e.Span.End <= outer.Span.End &&
				outer.Span.Len() > e.Span.Len() {
				contained = true
				break
			}
		}
		if !contained {
			kept = append(kept, e)
		}
	}
	return kept
}
