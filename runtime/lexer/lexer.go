// Package lexer scans JS/TS source into the token stream the shape parser
// works over. The scanner is tolerant by design: it must produce a usable
// stream for any file the bundler loads, including JSX where quote
// characters appear in plain text. Only constructs that make the rest of
// the file untrustworthy (an unterminated template or block comment running
// to EOF, a string running to EOF) are reported as errors; those errors
// make the AST phases fail open for the file.
package lexer

import (
	"fmt"
	"log/slog"
	"os"
)

// Lexer scans one source text. Zero value is not usable; call New.
type Lexer struct {
	input  string
	pos    int // current byte offset
	line   int
	column int

	tokens []Token
	errs   []error

	logger *slog.Logger
}

// New creates a Lexer. Debug logging is enabled when CROSSWIRE_DEBUG is set.
func New() *Lexer {
	logLevel := slog.LevelInfo
	if os.Getenv("CROSSWIRE_DEBUG") != "" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	return &Lexer{logger: logger}
}

// Init scans source and stores the token stream. It may be called again to
// reuse the Lexer for another source.
func (l *Lexer) Init(source []byte) {
	l.input = string(source)
	l.pos = 0
	l.line = 1
	l.column = 1
	l.tokens = l.tokens[:0]
	l.errs = l.errs[:0]
	l.run()
}

// Tokens returns the scanned tokens. The final token is always EOF.
func (l *Lexer) Tokens() []Token { return l.tokens }

// Err returns the first scan error, or nil.
func (l *Lexer) Err() error {
	if len(l.errs) == 0 {
		return nil
	}
	return l.errs[0]
}

// Scan is a convenience wrapper: one call, tokens plus first error.
func Scan(source string) ([]Token, error) {
	l := New()
	l.Init([]byte(source))
	return l.Tokens(), l.Err()
}

func (l *Lexer) run() {
	for l.pos < len(l.input) {
		start, startLine, startCol := l.pos, l.line, l.column
		c := l.input[l.pos]

		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '/' && l.peekAt(1) == '/':
			l.skipLineComment()
		case c == '/' && l.peekAt(1) == '*':
			l.skipBlockComment(startLine, startCol)
		case c == '\'' || c == '"':
			l.scanString(c, start, startLine, startCol)
		case c == '`':
			l.scanTemplate(start, startLine, startCol)
		case c == '/' && l.regexAllowed():
			l.scanRegex(start, startLine, startCol)
		case isIdentStart(c):
			l.scanIdent(start, startLine, startCol)
		case c >= '0' && c <= '9':
			l.scanNumber(start, startLine, startCol)
		default:
			l.scanPunct(start, startLine, startCol)
		}
	}
	l.emitAt(EOF, len(l.input), len(l.input), l.line, l.column)
}

// advance moves past the current byte, tracking line and column.
func (l *Lexer) advance() {
	if l.input[l.pos] == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
}

func (l *Lexer) peekAt(offset int) byte {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

func (l *Lexer) emit(t TokenType, start, startLine, startCol int) {
	l.emitAt(t, start, l.pos, startLine, startCol)
}

func (l *Lexer) emitAt(t TokenType, start, end, startLine, startCol int) {
	l.tokens = append(l.tokens, Token{
		Type:   t,
		Value:  l.input[start:end],
		Start:  start,
		End:    end,
		Line:   startLine,
		Column: startCol,
	})
}

func (l *Lexer) errorf(line, col int, format string, args ...interface{}) {
	err := fmt.Errorf("%d:%d: %s", line, col, fmt.Sprintf(format, args...))
	l.errs = append(l.errs, err)
	l.logger.Debug("lex error", "error", err)
}

func (l *Lexer) skipLineComment() {
	for l.pos < len(l.input) && l.input[l.pos] != '\n' {
		l.advance()
	}
}

func (l *Lexer) skipBlockComment(startLine, startCol int) {
	l.advance() // /
	l.advance() // *
	for l.pos < len(l.input) {
		if l.input[l.pos] == '*' && l.peekAt(1) == '/' {
			l.advance()
			l.advance()
			return
		}
		l.advance()
	}
	l.errorf(startLine, startCol, "unterminated block comment")
}

// scanString scans a single- or double-quoted string. A raw newline ends
// the token without an error: in JSX text an apostrophe often starts what
// looks like a string, and poisoning the whole file over it would make the
// AST phases fail open far too often. Running to EOF is an error.
func (l *Lexer) scanString(quote byte, start, startLine, startCol int) {
	l.advance() // opening quote
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == '\\' && l.pos+1 < len(l.input) {
			l.advance()
			l.advance()
			continue
		}
		if c == '\n' {
			l.emit(STRING, start, startLine, startCol)
			return
		}
		l.advance()
		if c == quote {
			l.emit(STRING, start, startLine, startCol)
			return
		}
	}
	l.errorf(startLine, startCol, "unterminated string literal")
	l.emit(STRING, start, startLine, startCol)
}

// scanTemplate scans a template literal including nested ${...}
// substitutions, which may themselves contain strings, templates and
// brackets. The whole literal becomes one TEMPLATE token.
func (l *Lexer) scanTemplate(start, startLine, startCol int) {
	l.advance() // opening backtick
	if !l.scanTemplateBody(startLine, startCol) {
		l.errorf(startLine, startCol, "unterminated template literal")
	}
	l.emit(TEMPLATE, start, startLine, startCol)
}

// scanTemplateBody consumes up to and including the closing backtick.
// Returns false on EOF.
func (l *Lexer) scanTemplateBody(startLine, startCol int) bool {
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == '\\' && l.pos+1 < len(l.input) {
			l.advance()
			l.advance()
			continue
		}
		if c == '`' {
			l.advance()
			return true
		}
		if c == '$' && l.peekAt(1) == '{' {
			l.advance()
			l.advance()
			if !l.scanSubstitution(startLine, startCol) {
				return false
			}
			continue
		}
		l.advance()
	}
	return false
}

// scanSubstitution consumes a ${...} body up to its closing brace, tracking
// nested braces, strings and templates.
func (l *Lexer) scanSubstitution(startLine, startCol int) bool {
	depth := 1
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch c {
		case '{':
			depth++
			l.advance()
		case '}':
			depth--
			l.advance()
			if depth == 0 {
				return true
			}
		case '\'', '"':
			// Nested string: reuse the string scanner but drop the token.
			before := len(l.tokens)
			l.scanString(c, l.pos, l.line, l.column)
			l.tokens = l.tokens[:before]
		case '`':
			l.advance()
			if !l.scanTemplateBody(startLine, startCol) {
				return false
			}
		default:
			l.advance()
		}
	}
	return false
}

// scanRegex scans a regex literal. If no closing slash appears on the same
// line the slash was not a regex after all; rewind and emit it as an
// operator.
func (l *Lexer) scanRegex(start, startLine, startCol int) {
	savedPos, savedLine, savedCol := l.pos, l.line, l.column
	l.advance() // opening slash
	inClass := false
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == '\\' && l.pos+1 < len(l.input) {
			l.advance()
			l.advance()
			continue
		}
		if c == '\n' {
			break
		}
		switch c {
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '/':
			if !inClass {
				l.advance()
				for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
					l.advance() // flags
				}
				l.emit(REGEX, start, startLine, startCol)
				return
			}
		}
		l.advance()
	}
	// Not a regex. Rewind and emit the slash as an operator.
	l.pos, l.line, l.column = savedPos, savedLine, savedCol
	l.advance()
	l.emit(OP, start, startLine, startCol)
}

func (l *Lexer) scanIdent(start, startLine, startCol int) {
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.advance()
	}
	l.emit(IDENT, start, startLine, startCol)
}

// scanNumber scans tolerantly: digits plus any trailing alphanumerics,
// dots and exponent signs. The passes never inspect numeric values.
func (l *Lexer) scanNumber(start, startLine, startCol int) {
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if isIdentPart(c) || c == '.' {
			l.advance()
			continue
		}
		if (c == '+' || c == '-') && l.pos > start {
			prev := l.input[l.pos-1]
			if prev == 'e' || prev == 'E' {
				l.advance()
				continue
			}
		}
		break
	}
	l.emit(NUMBER, start, startLine, startCol)
}

// Multi-byte operators, longest first. Everything here becomes OP except
// the arrow, which the shape parser needs to see.
var multiOps = []string{
	">>>=",
	"===", "!==", "**=", "...", "<<=", ">>=", "&&=", "||=", "??=", ">>>",
	"=>", "==", "!=", "<=", ">=", "&&", "||", "??", "?.", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<", ">>", "**",
}

func (l *Lexer) scanPunct(start, startLine, startCol int) {
	c := l.input[l.pos]

	single := map[byte]TokenType{
		'(': LPAREN, ')': RPAREN,
		'{': LBRACE, '}': RBRACE,
		'[': LBRACKET, ']': RBRACKET,
		',': COMMA, ';': SEMICOLON, ':': COLON, '.': DOT,
	}

	for _, op := range multiOps {
		if l.hasPrefix(op) {
			t := OP
			if op == "=>" {
				t = ARROW
			}
			for range op {
				l.advance()
			}
			l.emit(t, start, startLine, startCol)
			return
		}
	}

	if t, ok := single[c]; ok {
		l.advance()
		l.emit(t, start, startLine, startCol)
		return
	}
	if c == '=' {
		l.advance()
		l.emit(ASSIGN, start, startLine, startCol)
		return
	}

	l.advance()
	l.emit(OP, start, startLine, startCol)
}

func (l *Lexer) hasPrefix(s string) bool {
	return l.pos+len(s) <= len(l.input) && l.input[l.pos:l.pos+len(s)] == s
}

// regexPrecederKeywords are identifiers after which a slash starts a regex,
// not a division.
var regexPrecederKeywords = map[string]bool{
	"return": true, "typeof": true, "instanceof": true, "in": true,
	"of": true, "new": true, "delete": true, "void": true, "throw": true,
	"case": true, "do": true, "else": true, "yield": true, "await": true,
}

// regexAllowed reports whether a slash at the current position starts a
// regex literal, based on the previous significant token.
func (l *Lexer) regexAllowed() bool {
	if len(l.tokens) == 0 {
		return true
	}
	prev := l.tokens[len(l.tokens)-1]
	switch prev.Type {
	case IDENT:
		return regexPrecederKeywords[prev.Value]
	case NUMBER, STRING, TEMPLATE, REGEX, RPAREN, RBRACKET:
		return false
	}
	return true
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
