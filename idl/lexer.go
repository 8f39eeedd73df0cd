package idl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Token types for lexical analysis
type tokenType int

const (
	tokenIdentifier tokenType = iota
	tokenInteger
	tokenFloat
	tokenChar
	tokenWChar
	tokenString
	tokenWString
	tokenOperator
	tokenOpenBrace
	tokenCloseBrace
	tokenOpenParen
	tokenCloseParen
	tokenOpenBracket
	tokenCloseBracket
	tokenSemicolon
	tokenColon
	tokenScope
	tokenComma
	tokenPreprocessor
	tokenEOF
)

// Token represents a lexical token
type token struct {
	typ   tokenType
	value string
	pos   Position
}

func (t *token) String() string {
	if t.typ == tokenEOF {
		return "end of file"
	}
	return strconv.Quote(t.value)
}

// Lexer performs lexical analysis of preprocessed IDL
type lexer struct {
	reader  *bufio.Reader
	current rune
	eof     bool
	pos     Position
}

var lineMarker = regexp.MustCompile(`^#line\s+(\d+)\s+"([^"]*)"`)

// newLexer creates a new lexer
func newLexer(file string, r io.Reader) *lexer {
	lex := &lexer{
		reader: bufio.NewReader(r),
		pos:    Position{File: file, Line: 1},
	}
	lex.readChar()
	return lex
}

// readChar reads the next character
func (l *lexer) readChar() {
	if l.current == '\n' {
		l.pos.Line++
	}
	var err error
	l.current, _, err = l.reader.ReadRune()
	if err != nil {
		l.eof = true
		l.current = 0
	}
}

func (l *lexer) peek() rune {
	b, err := l.reader.Peek(1)
	if err != nil || len(b) == 0 {
		return 0
	}
	return rune(b[0])
}

// skipWhitespace skips whitespace characters
func (l *lexer) skipWhitespace() {
	for !l.eof && (l.current == ' ' || l.current == '\t' || l.current == '\n' || l.current == '\r' || l.current == '\f') {
		l.readChar()
	}
}

// skipComment skips a comment starting at the current '/', and reports whether there was one
func (l *lexer) skipComment() (bool, error) {
	switch l.peek() {
	case '/':
		for !l.eof && l.current != '\n' {
			l.readChar()
		}
		return true, nil
	case '*':
		start := l.pos
		l.readChar()
		l.readChar()
		for {
			if l.eof {
				return false, fmt.Errorf("unterminated comment starting at %s", start)
			}
			if l.current == '*' && l.peek() == '/' {
				l.readChar()
				l.readChar()
				return true, nil
			}
			l.readChar()
		}
	}
	return false, nil
}

// nextToken returns the next token
func (l *lexer) nextToken() (*token, error) {
	for {
		l.skipWhitespace()
		if l.eof || l.current != '/' {
			break
		}
		skipped, err := l.skipComment()
		if err != nil {
			return nil, err
		}
		if !skipped {
			break
		}
	}

	if l.eof {
		return &token{typ: tokenEOF, pos: l.pos}, nil
	}

	pos := l.pos
	single := func(typ tokenType) (*token, error) {
		value := string(l.current)
		l.readChar()
		return &token{typ: typ, value: value, pos: pos}, nil
	}

	switch {
	case l.current == '{':
		return single(tokenOpenBrace)
	case l.current == '}':
		return single(tokenCloseBrace)
	case l.current == '(':
		return single(tokenOpenParen)
	case l.current == ')':
		return single(tokenCloseParen)
	case l.current == '[':
		return single(tokenOpenBracket)
	case l.current == ']':
		return single(tokenCloseBracket)
	case l.current == ';':
		return single(tokenSemicolon)
	case l.current == ',':
		return single(tokenComma)
	case l.current == ':':
		if l.peek() == ':' {
			l.readChar()
			l.readChar()
			return &token{typ: tokenScope, value: "::", pos: pos}, nil
		}
		return single(tokenColon)
	case l.current == '#':
		tok := l.readPreprocessor(pos)
		if m := lineMarker.FindStringSubmatch(tok.value); m != nil {
			// the marker names the line that follows it
			line, _ := strconv.Atoi(m[1])
			l.pos = Position{File: m[2], Line: line - 1}
			return l.nextToken()
		}
		return tok, nil
	case isLetter(l.current) || l.current == '_':
		return l.readIdentifier(pos)
	case isDigit(l.current) || (l.current == '.' && isDigit(l.peek())):
		return l.readNumber(pos)
	case l.current == '"':
		return l.readString(pos, tokenString)
	case l.current == '\'':
		return l.readCharLiteral(pos, tokenChar)
	case isOperator(l.current):
		return l.readOperator(pos)
	default:
		return nil, fmt.Errorf("unexpected character: %c", l.current)
	}
}

// readPreprocessor reads a directive line left by the preprocessor
func (l *lexer) readPreprocessor(pos Position) *token {
	var directive strings.Builder
	for !l.eof && l.current != '\n' {
		directive.WriteRune(l.current)
		l.readChar()
	}
	return &token{typ: tokenPreprocessor, value: strings.TrimSpace(directive.String()), pos: pos}
}

// readIdentifier reads an identifier, or a wide literal introduced by L
func (l *lexer) readIdentifier(pos Position) (*token, error) {
	var ident strings.Builder
	ident.WriteRune(l.current)
	l.readChar()

	for !l.eof && (isLetter(l.current) || isDigit(l.current) || l.current == '_') {
		ident.WriteRune(l.current)
		l.readChar()
	}

	if ident.String() == "L" {
		switch l.current {
		case '"':
			return l.readString(pos, tokenWString)
		case '\'':
			return l.readCharLiteral(pos, tokenWChar)
		}
	}
	return &token{typ: tokenIdentifier, value: ident.String(), pos: pos}, nil
}

// readNumber reads an integer or floating point literal
func (l *lexer) readNumber(pos Position) (*token, error) {
	var num strings.Builder
	accept := func(ok func(rune) bool) {
		for !l.eof && ok(l.current) {
			num.WriteRune(l.current)
			l.readChar()
		}
	}

	if l.current == '0' && (l.peek() == 'x' || l.peek() == 'X') {
		num.WriteRune(l.current)
		l.readChar()
		num.WriteRune(l.current)
		l.readChar()
		accept(isHexDigit)
		return &token{typ: tokenInteger, value: num.String(), pos: pos}, nil
	}

	typ := tokenInteger
	accept(isDigit)
	if !l.eof && l.current == '.' {
		typ = tokenFloat
		num.WriteRune(l.current)
		l.readChar()
		accept(isDigit)
	}
	if !l.eof && (l.current == 'e' || l.current == 'E') {
		typ = tokenFloat
		num.WriteRune(l.current)
		l.readChar()
		if l.current == '+' || l.current == '-' {
			num.WriteRune(l.current)
			l.readChar()
		}
		if !isDigit(l.current) {
			return nil, fmt.Errorf("malformed exponent in %s", num.String())
		}
		accept(isDigit)
	}
	if !l.eof && (l.current == 'd' || l.current == 'D') {
		return nil, fmt.Errorf("fixed point literals are not supported: %s", num.String())
	}
	return &token{typ: typ, value: num.String(), pos: pos}, nil
}

// readString reads a string literal, keeping escape sequences
func (l *lexer) readString(pos Position, typ tokenType) (*token, error) {
	var str strings.Builder
	l.readChar()

	for !l.eof && l.current != '"' && l.current != '\n' {
		if l.current == '\\' {
			str.WriteRune(l.current)
			l.readChar()
			if l.eof {
				break
			}
		}
		str.WriteRune(l.current)
		l.readChar()
	}

	if l.eof || l.current != '"' {
		return nil, errors.New("unterminated string literal")
	}
	l.readChar()

	return &token{typ: typ, value: str.String(), pos: pos}, nil
}

// readCharLiteral reads a character literal, keeping escape sequences
func (l *lexer) readCharLiteral(pos Position, typ tokenType) (*token, error) {
	var ch strings.Builder
	l.readChar()

	for !l.eof && l.current != '\'' && l.current != '\n' {
		if l.current == '\\' {
			ch.WriteRune(l.current)
			l.readChar()
			if l.eof {
				break
			}
		}
		ch.WriteRune(l.current)
		l.readChar()
	}

	if l.eof || l.current != '\'' {
		return nil, errors.New("unterminated character literal")
	}
	l.readChar()

	return &token{typ: typ, value: ch.String(), pos: pos}, nil
}

// readOperator reads an operator; only << and >> are two characters long
func (l *lexer) readOperator(pos Position) (*token, error) {
	first := l.current
	l.readChar()
	if (first == '<' || first == '>') && l.current == first {
		l.readChar()
		return &token{typ: tokenOperator, value: string([]rune{first, first}), pos: pos}, nil
	}
	return &token{typ: tokenOperator, value: string(first), pos: pos}, nil
}

// isLetter checks if a rune is a letter
func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// isDigit checks if a rune is a digit
func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// isOperator checks if a rune is an operator
func isOperator(r rune) bool {
	return strings.ContainsRune("+-*/%|^&~=<>", r)
}
