// Package parser recognizes the exact source shapes the compilation passes
// act on: dispatch calls (ident.runOn(tag, action)) and server declarations
// (const x = obj.createServerState(...) and friends).
//
// The recognition grammar is deliberately narrow and the error policy is
// two-sided: a construct that diverges from the expected shape before the
// parser commits to it is silently ignored (it is simply not ours), but a
// construct that matches and then cannot be completed - unbalanced
// brackets, EOF inside arguments - is a parse error, and the owning phase
// fails open for the whole file.
package parser

import (
	"strings"

	"github.com/crosswire-dev/crosswire/core/ast"
	"github.com/crosswire-dev/crosswire/runtime/lexer"
)

// scanner walks a token stream with its source text.
type scanner struct {
	src    string
	tokens []lexer.Token
}

func newScanner(source string) (*scanner, error) {
	tokens, err := lexer.Scan(source)
	if err != nil {
		return nil, err
	}
	return &scanner{src: source, tokens: tokens}, nil
}

// tok returns the token at i, or the EOF token when i is past the end.
func (s *scanner) tok(i int) lexer.Token {
	if i >= len(s.tokens) {
		return s.tokens[len(s.tokens)-1]
	}
	return s.tokens[i]
}

func (s *scanner) pos(i int) ast.Pos {
	t := s.tok(i)
	return ast.Pos{Line: t.Line, Column: t.Column, Offset: t.Start}
}

// ================================================================================================
// DISPATCH CALLS
// ================================================================================================

// DispatchCalls finds every call of the exact shape
// namespace.runOn(stringLiteral, expr). Nested matches are not returned:
// when a call appears inside another call's action expression, only the
// outer call is reported and the caller re-scans after rewriting.
func DispatchCalls(source, namespace string) ([]ast.DispatchCall, error) {
	s, err := newScanner(source)
	if err != nil {
		return nil, err
	}

	var calls []ast.DispatchCall
	i := 0
	for s.tok(i).Type != lexer.EOF {
		call, next, err := s.matchDispatch(i, namespace)
		if err != nil {
			return nil, err
		}
		if call != nil {
			calls = append(calls, *call)
			i = next
			continue
		}
		i++
	}
	return calls, nil
}

func (s *scanner) matchDispatch(i int, namespace string) (*ast.DispatchCall, int, error) {
	if s.tok(i).Type != lexer.IDENT || s.tok(i).Value != namespace {
		return nil, 0, nil
	}
	// The namespace must be a bare identifier, not the tail of a member
	// chain: foo.crosswire.runOn and foo?.crosswire.runOn are not ours.
	if i > 0 {
		prev := s.tok(i - 1)
		if prev.Type == lexer.DOT || (prev.Type == lexer.OP && prev.Value == "?.") {
			return nil, 0, nil
		}
	}
	if s.tok(i+1).Type != lexer.DOT ||
		s.tok(i+2).Type != lexer.IDENT || s.tok(i+2).Value != "runOn" ||
		s.tok(i+3).Type != lexer.LPAREN {
		return nil, 0, nil
	}

	// Candidate. A non-literal tag or a wrong arity is outside the
	// recognition grammar and skipped silently; broken syntax inside the
	// arguments is a parse error.
	j := i + 4
	tagTok := s.tok(j)
	if tagTok.Type != lexer.STRING {
		return nil, 0, nil
	}
	tag, ok := lexer.UnquoteString(tagTok.Value)
	if !ok {
		return nil, 0, nil
	}
	j++
	if s.tok(j).Type != lexer.COMMA {
		return nil, 0, nil
	}
	j++

	action, j, err := s.scanExpr(j, stopArgs, "dispatch call arguments")
	if err != nil {
		return nil, 0, err
	}
	actionIsIdent := action.end-action.start == 1 && s.tok(action.start).Type == lexer.IDENT

	// Tolerate one trailing comma before the close.
	if s.tok(j).Type == lexer.COMMA && s.tok(j+1).Type == lexer.RPAREN {
		j++
	}
	if s.tok(j).Type != lexer.RPAREN {
		return nil, 0, nil // third argument etc.: not the tracked shape
	}
	closeTok := s.tok(j)
	j++

	return &ast.DispatchCall{
		Namespace:     namespace,
		Tag:           tag,
		Action:        action.span(s),
		ActionIsIdent: actionIsIdent,
		Span:          ast.Span{Start: s.tok(i).Start, End: closeTok.End},
		Pos:           s.pos(i),
	}, j, nil
}

// ================================================================================================
// SERVER DECLARATIONS
// ================================================================================================

var declKeywords = map[string]bool{"const": true, "let": true, "var": true}

// ServerDecls finds every single-declarator variable statement whose
// initializer (optionally under one await) calls a server-API method as
// obj.<method>(...) or obj.server.<method>(...), at any nesting depth.
func ServerDecls(source string) ([]ast.ServerDecl, error) {
	s, err := newScanner(source)
	if err != nil {
		return nil, err
	}

	var decls []ast.ServerDecl
	i := 0
	for s.tok(i).Type != lexer.EOF {
		decl, next, err := s.matchServerDecl(i)
		if err != nil {
			return nil, err
		}
		if decl != nil {
			decls = append(decls, *decl)
			i = next
			continue
		}
		i++
	}
	return decls, nil
}

func (s *scanner) matchServerDecl(i int) (*ast.ServerDecl, int, error) {
	kw := s.tok(i)
	if kw.Type != lexer.IDENT || !declKeywords[kw.Value] {
		return nil, 0, nil
	}
	if i > 0 && s.tok(i-1).Type == lexer.DOT {
		return nil, 0, nil
	}

	// Binding: a plain identifier or a destructuring pattern.
	j := i + 1
	var name string
	switch s.tok(j).Type {
	case lexer.IDENT:
		name = s.tok(j).Value
		j++
	case lexer.LBRACE, lexer.LBRACKET:
		pattern, next, err := s.scanBalanced(j, "binding pattern")
		if err != nil {
			return nil, 0, nil // broken pattern: we never committed to this decl
		}
		name = pattern.span(s).Text(s.src)
		j = next
	default:
		return nil, 0, nil
	}

	// Optional TS type annotation: skip to the = at bracket depth zero.
	if s.tok(j).Type == lexer.COLON {
		j++
		depth := 0
		for {
			t := s.tok(j)
			if t.Type == lexer.EOF {
				return nil, 0, nil
			}
			if t.Type == lexer.ASSIGN && depth == 0 {
				break
			}
			switch t.Type {
			case lexer.LPAREN, lexer.LBRACE, lexer.LBRACKET:
				depth++
			case lexer.RPAREN, lexer.RBRACE, lexer.RBRACKET:
				if depth == 0 {
					return nil, 0, nil // annotation ran out of its statement
				}
				depth--
			case lexer.SEMICOLON:
				if depth == 0 {
					return nil, 0, nil // uninitialized declaration
				}
			}
			j++
		}
	}
	if s.tok(j).Type != lexer.ASSIGN {
		return nil, 0, nil
	}
	j++

	await := false
	if s.tok(j).Type == lexer.IDENT && s.tok(j).Value == "await" {
		await = true
		j++
	}

	// Callee chain: obj.<method> or obj.server.<method>, then the call.
	var chain []string
	if s.tok(j).Type != lexer.IDENT {
		return nil, 0, nil
	}
	chain = append(chain, s.tok(j).Value)
	j++
	for s.tok(j).Type == lexer.DOT && s.tok(j+1).Type == lexer.IDENT {
		chain = append(chain, s.tok(j+1).Value)
		j += 2
	}
	if s.tok(j).Type != lexer.LPAREN {
		return nil, 0, nil
	}

	var method string
	namespaced := false
	switch {
	case len(chain) == 2:
		method = chain[1]
	case len(chain) == 3 && chain[1] == "server":
		method = chain[2]
		namespaced = true
	default:
		return nil, 0, nil
	}
	if !ast.IsServerMethod(method) {
		return nil, 0, nil
	}

	// Committed: from here on, broken syntax is a parse error.
	openIdx := j
	j++
	var args []tokenRange
	if s.tok(j).Type != lexer.RPAREN {
		for {
			arg, next, err := s.scanExpr(j, stopArgs, "server declaration arguments")
			if err != nil {
				return nil, 0, err
			}
			args = append(args, arg)
			j = next
			if s.tok(j).Type == lexer.COMMA {
				j++
				if s.tok(j).Type == lexer.RPAREN {
					break // trailing comma
				}
				continue
			}
			break
		}
	}
	if s.tok(j).Type != lexer.RPAREN {
		return nil, 0, errorAt(s.tok(j), "server declaration arguments", "expected \")\", found %q", s.tok(j).Value)
	}
	closeIdx := j
	j++

	end := s.tok(closeIdx).End
	if s.tok(j).Type == lexer.SEMICOLON {
		end = s.tok(j).End
		j++
	} else {
		// The initializer must be exactly the call. A token that extends
		// the expression makes the call an inner node of a larger
		// initializer, on any line: ASI never breaks before a member
		// access, an operator, a tagged template, or an index/call
		// continuation. A comma is a multi-declarator statement. The rest
		// is a subexpression when it sits on the same line.
		next := s.tok(j)
		switch next.Type {
		case lexer.DOT, lexer.OP, lexer.TEMPLATE, lexer.ARROW, lexer.ASSIGN,
			lexer.COLON, lexer.LPAREN, lexer.LBRACKET, lexer.COMMA:
			return nil, 0, nil
		}
		if next.Type != lexer.EOF && next.Type != lexer.RBRACE && next.Line == s.tok(closeIdx).Line {
			return nil, 0, nil
		}
	}

	decl := &ast.ServerDecl{
		Method:     method,
		Namespaced: namespaced,
		Await:      await,
		Name:       name,
		Span:       ast.Span{Start: s.declStart(i), End: end},
		Pos:        s.pos(i),
	}
	for _, arg := range args {
		decl.Args = append(decl.Args, arg.span(s))
	}
	decl.StringLits = s.stringLits(openIdx+1, closeIdx)

	if method == ast.MethodServerActions && len(args) > 0 {
		handlers, err := s.actionHandlers(args[0])
		if err != nil {
			return nil, 0, err
		}
		decl.Handlers = handlers
	}

	return decl, j, nil
}

// declStart extends the statement span over a directly preceding export
// keyword, so deleting the declaration does not strand a dangling export.
func (s *scanner) declStart(i int) int {
	if i > 0 && s.tok(i-1).Type == lexer.IDENT && s.tok(i-1).Value == "export" {
		return s.tok(i - 1).Start
	}
	return s.tok(i).Start
}

// stringLits collects literal string values between two token indices, for
// the sanitizer's leak check.
func (s *scanner) stringLits(from, to int) []string {
	var lits []string
	for i := from; i < to; i++ {
		switch s.tok(i).Type {
		case lexer.STRING:
			if v, ok := lexer.UnquoteString(s.tok(i).Value); ok && v != "" {
				lits = append(lits, v)
			}
		case lexer.TEMPLATE:
			raw := strings.Trim(s.tok(i).Value, "`")
			if raw != "" {
				lits = append(lits, raw)
			}
		}
	}
	return lits
}

// actionHandlers parses the plural-action object literal and returns a
// FuncLit for every property whose value is a function or arrow expression.
// Properties with other values, shorthand methods and computed keys are
// skipped; they are outside the recognition grammar.
func (s *scanner) actionHandlers(arg tokenRange) ([]ast.FuncLit, error) {
	if s.tok(arg.start).Type != lexer.LBRACE {
		return nil, nil // first argument is not an object literal
	}

	var handlers []ast.FuncLit
	j := arg.start + 1
	for {
		if s.tok(j).Type == lexer.COMMA {
			j++
			continue
		}
		if s.tok(j).Type == lexer.RBRACE {
			break
		}
		if j >= arg.end {
			return nil, errorAt(s.tok(j), "server actions object", "unterminated object literal")
		}

		switch s.tok(j).Type {
		case lexer.IDENT, lexer.STRING, lexer.NUMBER:
			// plain key
		default:
			j = s.skipProperty(j, arg.end)
			continue
		}
		if s.tok(j+1).Type != lexer.COLON {
			j = s.skipProperty(j, arg.end)
			continue
		}
		j += 2

		value, next, err := s.scanExpr(j, stopObject, "server actions object")
		if err != nil {
			return nil, err
		}
		if fn := s.funcLit(value); fn != nil {
			handlers = append(handlers, *fn)
		}
		j = next
	}
	return handlers, nil
}

// skipProperty advances past an unrecognized object property: everything up
// to the next comma or closing brace at depth zero.
func (s *scanner) skipProperty(j, limit int) int {
	depth := 0
	for j < limit {
		switch s.tok(j).Type {
		case lexer.LPAREN, lexer.LBRACE, lexer.LBRACKET:
			depth++
		case lexer.RPAREN, lexer.RBRACKET:
			depth--
		case lexer.RBRACE:
			if depth == 0 {
				return j
			}
			depth--
		case lexer.COMMA:
			if depth == 0 {
				return j
			}
		}
		j++
	}
	return j
}

// funcLit decides whether a property value token range is exactly a
// function or arrow expression, and locates its body.
func (s *scanner) funcLit(value tokenRange) *ast.FuncLit {
	k := value.start
	async := false
	if s.tok(k).Type == lexer.IDENT && s.tok(k).Value == "async" && value.end-k > 1 {
		async = true
		k++
	}

	lit := &ast.FuncLit{Async: async, Span: value.span(s)}

	if s.tok(k).Type == lexer.IDENT && s.tok(k).Value == "function" {
		lit.Kind = ast.FuncExpr
		k++
		if s.tok(k).Type == lexer.IDENT {
			k++ // optional name
		}
		if s.tok(k).Type != lexer.LPAREN {
			return nil
		}
		_, next, err := s.scanBalanced(k, "function parameters")
		if err != nil {
			return nil
		}
		k = next
		// Skip an optional TS return type to the body brace.
		for s.tok(k).Type != lexer.LBRACE {
			if k >= value.end {
				return nil
			}
			k++
		}
		body, next, err := s.scanBalanced(k, "function body")
		if err != nil || next != value.end {
			return nil
		}
		lit.Body = body.span(s)
		lit.BlockBody = true
		return lit
	}

	// Arrow: single-ident parameter or parenthesized list, optional TS
	// return type, then =>.
	lit.Kind = ast.FuncArrow
	switch s.tok(k).Type {
	case lexer.IDENT:
		k++
	case lexer.LPAREN:
		_, next, err := s.scanBalanced(k, "arrow parameters")
		if err != nil {
			return nil
		}
		k = next
		if s.tok(k).Type == lexer.COLON {
			for s.tok(k).Type != lexer.ARROW {
				if k >= value.end {
					return nil
				}
				k++
			}
		}
	default:
		return nil
	}
	if s.tok(k).Type != lexer.ARROW {
		return nil
	}
	k++

	if s.tok(k).Type == lexer.LBRACE {
		body, next, err := s.scanBalanced(k, "arrow body")
		if err != nil || next != value.end {
			return nil
		}
		lit.Body = body.span(s)
		lit.BlockBody = true
		return lit
	}
	if k >= value.end {
		return nil
	}
	lit.Body = tokenRange{start: k, end: value.end}.span(s)
	lit.BlockBody = false
	return lit
}

// ================================================================================================
// BALANCED SCANNING
// ================================================================================================

// tokenRange is a half-open range of token indices.
type tokenRange struct {
	start, end int
}

func (r tokenRange) span(s *scanner) ast.Span {
	return ast.Span{Start: s.tok(r.start).Start, End: s.tok(r.end - 1).End}
}

// stop sets name which closers legitimately end an expression at depth zero.
type stop int

const (
	stopArgs   stop = iota // inside (...): comma or )
	stopObject             // inside {...}: comma or }
)

// scanExpr consumes one expression starting at j, ending at a comma or the
// context's closing bracket at depth zero (the terminator is not consumed).
// Structural breakage - EOF, bracket mismatch, a closer that cannot belong
// to the context - is a parse error.
func (s *scanner) scanExpr(j int, st stop, context string) (tokenRange, int, error) {
	start := j
	var bt bracketTracker
	for {
		t := s.tok(j)
		switch t.Type {
		case lexer.EOF:
			return tokenRange{}, 0, errorAt(t, context, "unexpected end of file")
		case lexer.LPAREN, lexer.LBRACE, lexer.LBRACKET:
			bt.push(t)
		case lexer.RPAREN, lexer.RBRACE, lexer.RBRACKET:
			if bt.depth() == 0 {
				legit := (st == stopArgs && t.Type == lexer.RPAREN) ||
					(st == stopObject && t.Type == lexer.RBRACE)
				if !legit {
					return tokenRange{}, 0, errorAt(t, context, "unexpected %q", t.Value)
				}
				if j == start {
					return tokenRange{}, 0, errorAt(t, context, "expected expression, found %q", t.Value)
				}
				return tokenRange{start: start, end: j}, j, nil
			}
			if err := bt.pop(t, context); err != nil {
				return tokenRange{}, 0, err
			}
		case lexer.COMMA:
			if bt.depth() == 0 {
				if j == start {
					return tokenRange{}, 0, errorAt(t, context, "expected expression, found \",\"")
				}
				return tokenRange{start: start, end: j}, j, nil
			}
		case lexer.SEMICOLON:
			if bt.depth() == 0 {
				return tokenRange{}, 0, errorAt(t, context, "unexpected \";\"")
			}
		}
		j++
	}
}

// scanBalanced consumes a bracketed region starting at the opener at j,
// through its matching closer. Returns the token range including both
// brackets and the index after the closer.
func (s *scanner) scanBalanced(j int, context string) (tokenRange, int, error) {
	open := s.tok(j)
	var bt bracketTracker
	bt.push(open)
	start := j
	j++
	for {
		t := s.tok(j)
		switch t.Type {
		case lexer.EOF:
			return tokenRange{}, 0, errorAt(open, context, "%q is never closed", open.Value)
		case lexer.LPAREN, lexer.LBRACE, lexer.LBRACKET:
			bt.push(t)
		case lexer.RPAREN, lexer.RBRACE, lexer.RBRACKET:
			if err := bt.pop(t, context); err != nil {
				return tokenRange{}, 0, err
			}
			if bt.depth() == 0 {
				return tokenRange{start: start, end: j + 1}, j + 1, nil
			}
		}
		j++
	}
}
