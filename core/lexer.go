package core

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// TokenType identifies the kind of a Token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenComment
	TokenKeyword // true, obj, stream, xref, trailer, ...
	TokenInteger
	TokenReal
	TokenString    // literal string, escapes already resolved
	TokenHexString // hex digits only, whitespace removed
	TokenName      // without the leading slash, #xx resolved
	TokenArrayStart
	TokenArrayEnd
	TokenDictStart
	TokenDictEnd
	TokenIndirectRef // the R keyword
)

// Token is one lexical unit. Pos is the absolute offset of its first byte.
type Token struct {
	Type  TokenType
	Value []byte
	Pos   int64
}

// Is reports whether the token is the given keyword
func (t *Token) Is(keyword string) bool {
	return t != nil && t.Type == TokenKeyword && string(t.Value) == keyword
}

// IsRef reports whether the token is the R of an indirect reference
func (t *Token) IsRef() bool {
	return t != nil && t.Type == TokenIndirectRef
}

type charClass uint8

const (
	classRegular charClass = iota
	classWhite
	classDelim
)

var charClasses = func() (t [256]charClass) {
	for _, c := range []byte(" \t\n\r\f\x00") {
		t[c] = classWhite
	}
	for _, c := range []byte("()<>[]{}/%") {
		t[c] = classDelim
	}
	return t
}()

var literalEscapes = map[byte]byte{
	'n': '\n',
	'r': '\r',
	't': '\t',
	'b': '\b',
	'f': '\f',
}

// Lexer splits PDF syntax into tokens.
//
// The first read error other than io.EOF sticks: every later call returns
// it, so a failed read is never taken for the end of input.
type Lexer struct {
	r   *bufio.Reader
	pos int64
	err error
}

// NewLexer returns a lexer over r starting at offset zero
func NewLexer(r io.Reader) *Lexer {
	return &Lexer{r: bufio.NewReader(r)}
}

// NewLexerAt returns a lexer over r between offset and size. Token positions
// stay absolute.
func NewLexerAt(r io.ReaderAt, offset, size int64) *Lexer {
	offset = min(offset, size)
	return &Lexer{
		r:   bufio.NewReader(io.NewSectionReader(r, offset, size-offset)),
		pos: offset,
	}
}

// Pos returns the offset of the next unread byte
func (l *Lexer) Pos() int64 { return l.pos }

// Err returns the sticky read error
func (l *Lexer) Err() error { return l.err }

func (l *Lexer) record(err error) error {
	if l.err == nil && !errors.Is(err, io.EOF) {
		l.err = err
	}
	return err
}

func (l *Lexer) next() (byte, error) {
	if l.err != nil {
		return 0, l.err
	}
	c, err := l.r.ReadByte()
	if err != nil {
		return 0, l.record(err)
	}
	l.pos++
	return c, nil
}

// lookahead returns up to n unread bytes. Fewer come back only together
// with an error.
func (l *Lexer) lookahead(n int) ([]byte, error) {
	if l.err != nil {
		return nil, l.err
	}
	b, err := l.r.Peek(n)
	if err != nil {
		return b, l.record(err)
	}
	return b, nil
}

func (l *Lexer) peek() (byte, error) {
	b, err := l.lookahead(1)
	if len(b) == 0 {
		return 0, err
	}
	return b[0], nil
}

// consumeWhile reads bytes while keep accepts them, appending them to dst
// when dst is non-nil. Reaching the end of input is not an error.
func (l *Lexer) consumeWhile(dst []byte, keep func(byte) bool) ([]byte, error) {
	for {
		c, err := l.peek()
		if errors.Is(err, io.EOF) {
			return dst, nil
		}
		if err != nil {
			return dst, err
		}
		if !keep(c) {
			return dst, nil
		}
		l.next()
		if dst != nil {
			dst = append(dst, c)
		}
	}
}

// NextToken returns the next token, or a TokenEOF token at the end of input
func (l *Lexer) NextToken() (*Token, error) {
	if l.err != nil {
		return nil, l.err
	}
	if _, err := l.consumeWhile(nil, isWhitespace); err != nil {
		return nil, err
	}

	start := l.pos
	c, err := l.peek()
	if errors.Is(err, io.EOF) {
		return &Token{Type: TokenEOF, Pos: start}, nil
	}
	if err != nil {
		return nil, err
	}

	single := func(typ TokenType) (*Token, error) {
		l.next()
		return &Token{Type: typ, Value: []byte{c}, Pos: start}, nil
	}

	switch {
	case c == '%':
		return l.comment(start)
	case c == '[':
		return single(TokenArrayStart)
	case c == ']':
		return single(TokenArrayEnd)
	case c == '(':
		return l.literalString(start)
	case c == '<' || c == '>':
		pair, err := l.lookahead(2)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if len(pair) == 2 && pair[1] == c {
			l.next()
			l.next()
			typ := TokenDictStart
			if c == '>' {
				typ = TokenDictEnd
			}
			return &Token{Type: typ, Value: []byte{c, c}, Pos: start}, nil
		}
		if c == '<' {
			return l.hexString(start)
		}
		return nil, fmt.Errorf("unexpected '>' at position %d", start)
	case c == '/':
		return l.name(start)
	case isDigit(c) || c == '-' || c == '+' || c == '.':
		return l.number(start)
	case isRegular(c):
		return l.keyword(start)
	}
	return nil, fmt.Errorf("unexpected character '%c' at position %d", c, start)
}

func (l *Lexer) comment(start int64) (*Token, error) {
	value, err := l.consumeWhile([]byte{}, func(c byte) bool { return c != '\r' && c != '\n' })
	if err != nil {
		return nil, err
	}
	if c, err := l.peek(); err == nil {
		l.next()
		if c == '\r' {
			if c, err := l.peek(); err == nil && c == '\n' {
				l.next()
			}
		}
	}
	if l.err != nil {
		return nil, l.err
	}
	return &Token{Type: TokenComment, Value: value, Pos: start}, nil
}

func (l *Lexer) literalString(start int64) (*Token, error) {
	l.next()

	var value []byte
	for depth := 1; ; {
		c, err := l.next()
		if err != nil {
			return nil, fmt.Errorf("unterminated string at position %d: %w", start, err)
		}

		switch c {
		case '(':
			depth++
		case ')':
			if depth--; depth == 0 {
				return &Token{Type: TokenString, Value: value, Pos: start}, nil
			}
		case '\\':
			if value, err = l.escape(value); err != nil {
				return nil, err
			}
			continue
		}
		value = append(value, c)
	}
}

// escape resolves the sequence after a backslash in a literal string
func (l *Lexer) escape(value []byte) ([]byte, error) {
	c, err := l.next()
	if err != nil {
		return nil, err
	}

	if r, ok := literalEscapes[c]; ok {
		return append(value, r), nil
	}
	switch {
	case c == '\n':
		return value, nil
	case c == '\r':
		if n, err := l.peek(); err == nil && n == '\n' {
			l.next()
		}
		return value, nil
	case isOctalDigit(c):
		v := c - '0'
		for i := 0; i < 2; i++ {
			n, err := l.peek()
			if err != nil || !isOctalDigit(n) {
				break
			}
			l.next()
			v = v<<3 | (n - '0')
		}
		return append(value, v), nil
	}
	return append(value, c), nil
}

func (l *Lexer) hexString(start int64) (*Token, error) {
	l.next()

	var digits []byte
	for {
		c, err := l.next()
		if err != nil {
			return nil, fmt.Errorf("unterminated hex string at position %d: %w", start, err)
		}
		switch {
		case c == '>':
			return &Token{Type: TokenHexString, Value: digits, Pos: start}, nil
		case isWhitespace(c):
		case isHexDigit(c):
			digits = append(digits, c)
		default:
			return nil, fmt.Errorf("invalid hex digit '%c' at position %d", c, l.pos-1)
		}
	}
}

func (l *Lexer) name(start int64) (*Token, error) {
	l.next()

	value := []byte{}
	for {
		c, err := l.peek()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if !isRegular(c) {
			break
		}
		l.next()

		if c == '#' {
			hex, err := l.lookahead(2)
			if err != nil && !errors.Is(err, io.EOF) {
				return nil, err
			}
			if len(hex) == 2 && isHexDigit(hex[0]) && isHexDigit(hex[1]) {
				c = hexValue(hex[0])<<4 | hexValue(hex[1])
				l.next()
				l.next()
			}
		}
		value = append(value, c)
	}
	return &Token{Type: TokenName, Value: value, Pos: start}, nil
}

func (l *Lexer) number(start int64) (*Token, error) {
	fraction := false
	value, err := l.consumeWhile([]byte{}, func(c byte) bool {
		// a sign only leads, a second point ends the number
		switch {
		case isDigit(c):
		case c == '.' && !fraction:
			fraction = true
		case (c == '-' || c == '+') && l.pos == start:
		default:
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	typ := TokenInteger
	if fraction {
		typ = TokenReal
	}
	return &Token{Type: typ, Value: value, Pos: start}, nil
}

func (l *Lexer) keyword(start int64) (*Token, error) {
	value, err := l.consumeWhile([]byte{}, isRegular)
	if err != nil {
		return nil, err
	}
	if string(value) == "R" {
		return &Token{Type: TokenIndirectRef, Value: value, Pos: start}, nil
	}
	return &Token{Type: TokenKeyword, Value: value, Pos: start}, nil
}

// SkipStreamEOL consumes the end of line after the stream keyword. CRLF and
// LF are standard; a lone CR and leading blanks are tolerated.
func (l *Lexer) SkipStreamEOL() error {
	if _, err := l.consumeWhile(nil, func(c byte) bool { return c == ' ' || c == '\t' }); err != nil {
		return err
	}

	c, err := l.peek()
	if err != nil {
		return err
	}
	if c != '\r' && c != '\n' {
		return nil
	}
	l.next()
	if c == '\r' {
		n, err := l.peek()
		if err == nil && n == '\n' {
			l.next()
		} else if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
	}
	return nil
}

// ReadBytes reads exactly n raw bytes. Running out of input is a plain error,
// a failed read is sticky.
func (l *Lexer) ReadBytes(n int) ([]byte, error) {
	if l.err != nil {
		return nil, l.err
	}
	data := make([]byte, n)
	got, err := io.ReadFull(l.r, data)
	l.pos += int64(got)
	switch {
	case err == nil:
		return data, nil
	case errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF):
		return data[:got], fmt.Errorf("unexpected EOF: expected %d bytes, got %d", n, got)
	}
	return data[:got], l.record(err)
}

func isWhitespace(c byte) bool { return charClasses[c] == classWhite }
func isRegular(c byte) bool    { return charClasses[c] == classRegular }
func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isOctalDigit(c byte) bool { return c >= '0' && c <= '7' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c|0x20 >= 'a' && c|0x20 <= 'f')
}

func hexValue(c byte) byte {
	if isDigit(c) {
		return c - '0'
	}
	return c|0x20 - 'a' + 10
}
