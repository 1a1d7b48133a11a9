// Package invariant provides contract assertions for crosswire.
//
// Assertions express the contracts the transform pipeline relies on:
// Precondition/Postcondition at phase boundaries, Invariant for internal
// consistency (edit ordering, span arithmetic). Violations panic - they are
// programming errors in this repository, never user errors, and must never
// be reachable from malformed input (malformed input is handled by the
// fail-open policy, not by assertions).
package invariant

import "fmt"

// Precondition checks an input contract at function entry.
// Panics with PRECONDITION VIOLATION if condition is false.
func Precondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("PRECONDITION", format, args...)
	}
}

// Postcondition checks an output contract before function return.
// Panics with POSTCONDITION VIOLATION if condition is false.
func Postcondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("POSTCONDITION", format, args...)
	}
}

// Invariant checks an internal invariant during function execution.
// Panics with INVARIANT VIOLATION if condition is false.
func Invariant(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("INVARIANT", format, args...)
	}
}

// NotNil asserts that v is a non-nil interface value.
func NotNil(v interface{}, name string) {
	if v == nil {
		fail("PRECONDITION", "%s must not be nil", name)
	}
}

func fail(kind, format string, args ...interface{}) {
	panic(fmt.Sprintf("%s VIOLATION: %s", kind, fmt.Sprintf(format, args...)))
}
