package parser

import (
	"fmt"

	"github.com/crosswire-dev/crosswire/runtime/lexer"
)

// ParseError is a parse failure with location and context. Reaching one
// means a candidate construct started to match and then could not be
// completed; the owning phase reacts by failing open for the whole file.
type ParseError struct {
	Message string
	Line    int
	Column  int
	Context string // what was being parsed, e.g. "dispatch call arguments"
}

func (e *ParseError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%d:%d: %s (in %s)", e.Line, e.Column, e.Message, e.Context)
	}
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

func errorAt(tok lexer.Token, context, format string, args ...interface{}) *ParseError {
	return &ParseError{
		Message: fmt.Sprintf(format, args...),
		Line:    tok.Line,
		Column:  tok.Column,
		Context: context,
	}
}

// bracketTracker pairs openers with closers while scanning a balanced
// expression, so a mismatch is reported against the token that opened it.
type bracketTracker struct {
	stack []lexer.Token
}

func (bt *bracketTracker) push(tok lexer.Token) {
	bt.stack = append(bt.stack, tok)
}

func (bt *bracketTracker) pop(closing lexer.Token, context string) error {
	if len(bt.stack) == 0 {
		return errorAt(closing, context, "unexpected %q with no matching opening bracket", closing.Value)
	}
	open := bt.stack[len(bt.stack)-1]
	bt.stack = bt.stack[:len(bt.stack)-1]
	if !matchingBracket(open.Type, closing.Type) {
		return errorAt(closing, context, "mismatched brackets: %q opened at %d:%d but %q found",
			open.Value, open.Line, open.Column, closing.Value)
	}
	return nil
}

func (bt *bracketTracker) depth() int { return len(bt.stack) }

func matchingBracket(open, close lexer.TokenType) bool {
	switch open {
	case lexer.LPAREN:
		return close == lexer.RPAREN
	case lexer.LBRACE:
		return close == lexer.RBRACE
	case lexer.LBRACKET:
		return close == lexer.RBRACKET
	}
	return false
}
