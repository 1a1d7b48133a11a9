package lexer

import "fmt"

// TokenType classifies scanned tokens. The scanner covers the full JS/TS
// lexical grammar but only distinguishes the types the passes care about;
// every operator that is not structurally significant to shape matching is
// lumped into OP.
type TokenType int

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Literals and names
	IDENT    // identifiers and keywords
	NUMBER   // numeric literal
	STRING   // 'string' or "string"
	TEMPLATE // `template`, including any ${...} substitutions
	REGEX    // /pattern/flags

	// Brackets
	LPAREN   // (
	RPAREN   // )
	LBRACE   // {
	RBRACE   // }
	LBRACKET // [
	RBRACKET // ]

	// Structure
	COMMA     // ,
	SEMICOLON // ;
	COLON     // :
	DOT       // .
	ARROW     // =>
	ASSIGN    // =

	// Everything else
	OP
)

var tokenNames = map[TokenType]string{
	EOF:       "EOF",
	ILLEGAL:   "ILLEGAL",
	IDENT:     "IDENT",
	NUMBER:    "NUMBER",
	STRING:    "STRING",
	TEMPLATE:  "TEMPLATE",
	REGEX:     "REGEX",
	LPAREN:    "LPAREN",
	RPAREN:    "RPAREN",
	LBRACE:    "LBRACE",
	RBRACE:    "RBRACE",
	LBRACKET:  "LBRACKET",
	RBRACKET:  "RBRACKET",
	COMMA:     "COMMA",
	SEMICOLON: "SEMICOLON",
	COLON:     "COLON",
	DOT:       "DOT",
	ARROW:     "ARROW",
	ASSIGN:    "ASSIGN",
	OP:        "OP",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is a single scanned token. Value is the raw lexeme; Start and End
// are byte offsets into the source ([Start, End)).
type Token struct {
	Type   TokenType
	Value  string
	Start  int
	End    int
	Line   int
	Column int
}

// IsBracket reports whether the token opens or closes a bracket pair.
func (t Token) IsBracket() bool {
	switch t.Type {
	case LPAREN, RPAREN, LBRACE, RBRACE, LBRACKET, RBRACKET:
		return true
	}
	return false
}

// UnquoteString decodes a STRING token's raw lexeme into its value.
// Handles the escapes that occur in platform tags and action keys; anything
// it cannot decode is returned raw with ok=false so the caller can treat the
// token as outside the recognition grammar.
func UnquoteString(raw string) (string, bool) {
	if len(raw) < 2 {
		return raw, false
	}
	quote := raw[0]
	if (quote != '\'' && quote != '"') || raw[len(raw)-1] != quote {
		return raw, false
	}
	body := raw[1 : len(raw)-1]

	var out []byte
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		i++
		if i >= len(body) {
			return raw, false
		}
		switch body[i] {
		case '\\', '\'', '"', '`':
			out = append(out, body[i])
		case 'n':
			out = append(out, '\n')
		case 't':
			out = append(out, '\t')
		case 'r':
			out = append(out, '\r')
		case '0':
			out = append(out, 0)
		default:
			// Unicode and hex escapes never occur in tags or keys; give up
			// rather than decode them wrong.
			return raw, false
		}
	}
	return string(out), true
}
