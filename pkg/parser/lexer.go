package parser

import (
	"fmt"

	"github.com/alexshafranov/derplanner-sub000/pkg/diag"
)

// TokenType is the kind of a lexical token.
type TokenType int

const (
	EOF TokenType = iota
	ILLEGAL

	IDENT
	INT
	FLOAT

	LROUND   // (
	RROUND   // )
	LCURLY   // {
	RCURLY   // }
	LSQUARE  // [
	RSQUARE  // ]
	COMMA    // ,
	AT       // @
	ARROW    // ->
	NOT      // ~
	AND      // &
	OR       // |
	EQ       // ==
	NEQ      // !=
	LESS     // <
	LESS_EQ  // <=
	GREATER  // >
	GREATER_EQ
	ASSIGN // =
	PLUS
	MINUS
	MULT
	DIV
)

var tokenNames = map[TokenType]string{
	EOF:        "end of file",
	ILLEGAL:    "illegal character",
	IDENT:      "identifier",
	INT:        "integer",
	FLOAT:      "float",
	LROUND:     "'('",
	RROUND:     "')'",
	LCURLY:     "'{'",
	RCURLY:     "'}'",
	LSQUARE:    "'['",
	RSQUARE:    "']'",
	COMMA:      "','",
	AT:         "'@'",
	ARROW:      "'->'",
	NOT:        "'~'",
	AND:        "'&'",
	OR:         "'|'",
	EQ:         "'=='",
	NEQ:        "'!='",
	LESS:       "'<'",
	LESS_EQ:    "'<='",
	GREATER:    "'>'",
	GREATER_EQ: "'>='",
	ASSIGN:     "'='",
	PLUS:       "'+'",
	MINUS:      "'-'",
	MULT:       "'*'",
	DIV:        "'/'",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token is one lexeme with its position.
type Token struct {
	Type   TokenType
	Lexeme string
	Line   int
	Col    int
}

func (t Token) String() string {
	switch t.Type {
	case IDENT, INT, FLOAT:
		return fmt.Sprintf("%q", t.Lexeme)
	case ILLEGAL:
		return fmt.Sprintf("illegal character %q", t.Lexeme)
	}
	return t.Type.String()
}

// Lexer turns source text into tokens on demand.
type Lexer struct {
	src  string
	cur  int
	line int // 1-based
	col  int // 1-based
}

// NewLexer creates a lexer over src.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

func (l *Lexer) isAtEnd() bool { return l.cur >= len(l.src) }

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.src[l.cur]
}

func (l *Lexer) peekN(n int) byte {
	if l.cur+n >= len(l.src) {
		return 0
	}
	return l.src[l.cur+n]
}

func (l *Lexer) advance() byte {
	ch := l.src[l.cur]
	l.cur++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

func (l *Lexer) skipWhitespace() {
	for !l.isAtEnd() {
		switch ch := l.peek(); {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			l.advance()
		case ch == '/' && l.peekN(1) == '/':
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func isDigit(b byte) bool    { return b >= '0' && b <= '9' }
func isAlpha(b byte) bool    { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_' }
func isAlphaNum(b byte) bool { return isAlpha(b) || isDigit(b) }

// Next scans the next token. At the end of input it keeps returning EOF.
func (l *Lexer) Next() Token {
	l.skipWhitespace()
	start, line, col := l.cur, l.line, l.col
	tok := func(tt TokenType) Token {
		return Token{Type: tt, Lexeme: l.src[start:l.cur], Line: line, Col: col}
	}
	if l.isAtEnd() {
		return tok(EOF)
	}

	ch := l.advance()
	switch {
	case isAlpha(ch):
		for isAlphaNum(l.peek()) {
			l.advance()
		}
		return tok(IDENT)
	case isDigit(ch):
		return l.scanNumber(tok)
	}

	two := func(next byte, yes, no TokenType) Token {
		if l.peek() == next {
			l.advance()
			return tok(yes)
		}
		return tok(no)
	}

	switch ch {
	case '(':
		return tok(LROUND)
	case ')':
		return tok(RROUND)
	case '{':
		return tok(LCURLY)
	case '}':
		return tok(RCURLY)
	case '[':
		return tok(LSQUARE)
	case ']':
		return tok(RSQUARE)
	case ',':
		return tok(COMMA)
	case '@':
		return tok(AT)
	case '~':
		return tok(NOT)
	case '&':
		return tok(AND)
	case '|':
		return tok(OR)
	case '+':
		return tok(PLUS)
	case '*':
		return tok(MULT)
	case '/':
		return tok(DIV)
	case '-':
		return two('>', ARROW, MINUS)
	case '=':
		return two('=', EQ, ASSIGN)
	case '<':
		return two('=', LESS_EQ, LESS)
	case '>':
		return two('=', GREATER_EQ, GREATER)
	case '!':
		return two('=', NEQ, ILLEGAL)
	}
	return tok(ILLEGAL)
}

// scanNumber reads digits with an optional fraction and exponent. The first
// digit is already consumed.
func (l *Lexer) scanNumber(tok func(TokenType) Token) Token {
	for isDigit(l.peek()) {
		l.advance()
	}
	tt := INT
	if l.peek() == '.' && isDigit(l.peekN(1)) {
		tt = FLOAT
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	if e := l.peek(); e == 'e' || e == 'E' {
		n := 1
		if s := l.peekN(1); s == '+' || s == '-' {
			n = 2
		}
		if isDigit(l.peekN(n)) {
			tt = FLOAT
			for ; n > 0; n-- {
				l.advance()
			}
			for isDigit(l.peek()) {
				l.advance()
			}
		}
	}
	return tok(tt)
}

// Scan tokenizes all of src, EOF included.
func Scan(src string) []Token {
	l := NewLexer(src)
	var toks []Token
	for {
		t := l.Next()
		toks = append(toks, t)
		if t.Type == EOF {
			return toks
		}
	}
}

func (t Token) loc(filename string) diag.Location {
	return diag.Location{Filename: filename, Line: t.Line, Column: t.Col}
}
