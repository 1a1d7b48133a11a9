// Package ast defines the source constructs the compilation passes
// recognize. The passes are span-based: every node records the byte range it
// occupies in the original source, and code generation is expressed as span
// replacement rather than tree printing, so everything the pass does not
// understand survives byte-for-byte.
package ast

import "fmt"

// Pos is a source location.
type Pos struct {
	Line   int
	Column int
	Offset int // byte offset in source
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span is a half-open byte range [Start, End) in the original source.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes the span covers.
func (s Span) Len() int { return s.End - s.Start }

// Text returns the source text the span covers.
func (s Span) Text(source string) string { return source[s.Start:s.End] }

// FuncKind distinguishes the function forms the sanitizer can empty.
type FuncKind int

const (
	FuncArrow FuncKind = iota
	FuncExpr           // function keyword
)

// FuncLit is a function or arrow expression found as an action handler.
type FuncLit struct {
	Kind      FuncKind
	Async     bool
	Body      Span // the block including braces, or the bare expression of an expression-bodied arrow
	BlockBody bool
	Span      Span
}

// DispatchCall is a call expression of the exact shape
// ident.runOn(stringLiteral, expr). Anything looser (computed member,
// non-literal tag) is outside the recognition grammar and never produces a
// DispatchCall.
type DispatchCall struct {
	Namespace     string
	Tag           string
	Action        Span // the second argument expression
	ActionIsIdent bool // action is a bare identifier and can be invoked without parens
	Span          Span // the whole call expression
	Pos           Pos
}

// Server-API method names. These are part of the external contract and must
// match the framework verbatim.
const (
	MethodServerState   = "createServerState"
	MethodServerStates  = "createServerStates"
	MethodServerAction  = "createServerAction"
	MethodServerActions = "createServerActions"
)

// IsServerMethod reports whether name is one of the tracked server-API
// method names.
func IsServerMethod(name string) bool {
	switch name {
	case MethodServerState, MethodServerStates, MethodServerAction, MethodServerActions:
		return true
	}
	return false
}

// ServerDecl is a single-declarator variable statement whose initializer
// (optionally under one await) calls a server-API method, reached as
// obj.<method>(...) or obj.server.<method>(...).
type ServerDecl struct {
	Method     string // one of the Method* constants
	Namespaced bool   // reached through the extra .server. hop
	Await      bool
	Name       string   // the bound identifier
	Args       []Span   // top-level argument expressions, in order
	Handlers   []FuncLit // plural action form: function-valued object properties
	StringLits []string // string literal values inside the initializer, for leak checking
	Span       Span     // the whole statement including keyword and trailing semicolon
	Pos        Pos
}

// IsState reports whether the declaration is a StateDecl (the whole
// statement is a removal candidate) as opposed to an ActionDecl (only the
// handler bodies are).
func (d *ServerDecl) IsState() bool {
	return d.Method == MethodServerState || d.Method == MethodServerStates
}

// IsPlural reports whether the declaration uses the plural call form.
func (d *ServerDecl) IsPlural() bool {
	return d.Method == MethodServerStates || d.Method == MethodServerActions
}
