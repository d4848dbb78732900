package core

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
)

// ReferenceResolver resolves indirect references. The parser only needs it
// for stream lengths written as references.
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

var keywordObjects = map[string]Object{
	"null":  Null{},
	"true":  Bool(true),
	"false": Bool(false),
}

// Parser builds objects from the token stream of a Lexer, with one token of
// lookahead.
type Parser struct {
	lex      *Lexer
	tok      *Token
	ahead    *Token
	resolver ReferenceResolver
	err      error
}

// NewParser returns a parser over r starting at offset zero
func NewParser(r io.Reader) *Parser {
	return newParser(NewLexer(r))
}

// NewParserAt returns a parser over r between offset and size
func NewParserAt(r io.ReaderAt, offset, size int64) *Parser {
	return newParser(NewLexerAt(r, offset, size))
}

func newParser(l *Lexer) *Parser {
	p := &Parser{lex: l}
	p.advance()
	p.advance()
	return p
}

// SetReferenceResolver sets the resolver for indirect stream lengths
func (p *Parser) SetReferenceResolver(resolver ReferenceResolver) {
	p.resolver = resolver
}

// Err returns the first read error seen, if any
func (p *Parser) Err() error {
	if p.err != nil {
		return p.err
	}
	return p.lex.Err()
}

// fail prefers a read error over err. Syntax errors that follow a failed
// read say nothing about the input.
func (p *Parser) fail(err error) error {
	if readErr := p.Err(); readErr != nil {
		return readErr
	}
	return err
}

func (p *Parser) advance() {
	p.tok = p.ahead
	p.ahead = nil

	// stream data is binary, the stream reader takes over from here
	if p.tok.Is("stream") {
		return
	}

	token, err := p.lex.NextToken()
	if err != nil {
		if p.err == nil {
			p.err = err
		}
		return
	}
	p.ahead = token
}

func (p *Parser) at(typ TokenType) bool {
	return p.tok != nil && p.tok.Type == typ
}

func (p *Parser) skipComments() {
	for p.at(TokenComment) {
		p.advance()
	}
}

// ParseObject parses the next object, returning io.EOF at the end of input
func (p *Parser) ParseObject() (Object, error) {
	p.skipComments()
	if p.tok == nil {
		return nil, p.fail(fmt.Errorf("unexpected end of input"))
	}

	tok := p.tok
	switch tok.Type {
	case TokenEOF:
		return nil, io.EOF
	case TokenArrayStart:
		return p.parseArray()
	case TokenDictStart:
		return p.parseDict()
	case TokenInteger:
		return p.parseInteger()
	}

	var obj Object
	switch tok.Type {
	case TokenKeyword:
		v, ok := keywordObjects[string(tok.Value)]
		if !ok {
			return nil, p.fail(fmt.Errorf("unexpected keyword %q at position %d", tok.Value, tok.Pos))
		}
		obj = v
	case TokenReal:
		f, err := strconv.ParseFloat(string(tok.Value), 64)
		if err != nil {
			return nil, p.fail(fmt.Errorf("invalid real number: %w", err))
		}
		obj = Real(f)
	case TokenString:
		obj = String(tok.Value)
	case TokenHexString:
		obj = decodeHexString(tok.Value)
	case TokenName:
		obj = Name(tok.Value)
	default:
		return nil, p.fail(fmt.Errorf("unexpected token type %v at position %d", tok.Type, tok.Pos))
	}
	p.advance()
	return obj, nil
}

// decodeHexString pads an odd digit count with a trailing zero
func decodeHexString(digits []byte) String {
	if len(digits)%2 == 1 {
		digits = append(digits[:len(digits):len(digits)], '0')
	}
	out := make([]byte, len(digits)/2)
	hex.Decode(out, digits)
	return String(out)
}

// parseInteger parses an integer, or an indirect reference when the
// integer is followed by another one and R.
func (p *Parser) parseInteger() (Object, error) {
	text := string(p.tok.Value)
	num, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		// out of int64 range
		f, ferr := strconv.ParseFloat(text, 64)
		if ferr != nil {
			return nil, p.fail(fmt.Errorf("invalid number: %s", text))
		}
		p.advance()
		return Real(f), nil
	}

	if p.ahead == nil || p.ahead.Type != TokenInteger {
		p.advance()
		return Int(num), nil
	}
	gen, err := strconv.ParseInt(string(p.ahead.Value), 10, 64)
	p.advance()
	if err != nil || !p.ahead.IsRef() {
		return Int(num), nil
	}
	p.advance()
	p.advance()
	return IndirectRef{Number: int(num), Generation: int(gen)}, nil
}

// container parses elements with each until the closing token
func (p *Parser) container(closing TokenType, what string, each func() error) error {
	p.advance()
	for {
		p.skipComments()
		switch {
		case p.tok == nil:
			return p.fail(fmt.Errorf("unexpected end of input in %s", what))
		case p.at(closing):
			p.advance()
			return nil
		case p.at(TokenEOF):
			return p.fail(fmt.Errorf("unexpected EOF in %s", what))
		}
		if err := each(); err != nil {
			return err
		}
	}
}

func (p *Parser) parseArray() (Object, error) {
	arr := Array{}
	err := p.container(TokenArrayEnd, "array", func() error {
		obj, err := p.ParseObject()
		if err != nil {
			return p.fail(fmt.Errorf("error parsing array element: %w", err))
		}
		arr = append(arr, obj)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return arr, nil
}

func (p *Parser) parseDict() (Object, error) {
	dict := Dict{}
	err := p.container(TokenDictEnd, "dictionary", func() error {
		if !p.at(TokenName) {
			return p.fail(fmt.Errorf("expected name for dictionary key at position %d, got %v", p.tok.Pos, p.tok.Type))
		}
		key := string(p.tok.Value)
		p.advance()

		value, err := p.ParseObject()
		if err != nil {
			return p.fail(fmt.Errorf("error parsing dictionary value for key '%s': %w", key, err))
		}
		// null is the same as an absent entry
		if _, null := value.(Null); !null {
			dict[key] = value
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dict, nil
}

func (p *Parser) integer(what string) (int, error) {
	if !p.at(TokenInteger) {
		return 0, p.fail(fmt.Errorf("expected %s", what))
	}
	n, err := strconv.Atoi(string(p.tok.Value))
	if err != nil {
		return 0, p.fail(fmt.Errorf("invalid %s: %w", what, err))
	}
	p.advance()
	return n, nil
}

// ParseIndirectObject parses "num gen obj ... endobj". The body may be a
// stream; a missing endobj is tolerated.
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	p.skipComments()

	num, err := p.integer("object number")
	if err != nil {
		return nil, err
	}
	gen, err := p.integer("generation number")
	if err != nil {
		return nil, err
	}
	if !p.tok.Is("obj") {
		return nil, p.fail(fmt.Errorf("expected 'obj' keyword for object %d", num))
	}
	p.advance()

	obj, err := p.ParseObject()
	if err != nil {
		return nil, p.fail(fmt.Errorf("error parsing object %d: %w", num, err))
	}

	if p.tok.Is("stream") {
		dict, ok := obj.(Dict)
		if !ok {
			return nil, fmt.Errorf("stream must follow a dictionary")
		}
		if obj, err = p.parseStream(dict); err != nil {
			return nil, p.fail(fmt.Errorf("error parsing stream of object %d: %w", num, err))
		}
	}
	if p.tok.Is("endobj") {
		p.advance()
	}

	return &IndirectObject{Ref: IndirectRef{Number: num, Generation: gen}, Object: obj}, nil
}

func (p *Parser) streamLength(dict Dict) (int64, error) {
	switch v := dict.Get("Length").(type) {
	case nil:
		return 0, fmt.Errorf("stream dictionary missing 'Length' entry")
	case Int:
		return int64(v), nil
	case IndirectRef:
		if p.resolver == nil {
			return 0, fmt.Errorf("indirect reference for stream length requires a reference resolver")
		}
		resolved, err := p.resolver.ResolveReference(v)
		if err != nil {
			return 0, fmt.Errorf("failed to resolve stream length reference: %w", err)
		}
		n, ok := resolved.(Int)
		if !ok {
			return 0, fmt.Errorf("stream length reference resolved to %T, expected Int", resolved)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("invalid type for stream length: %T", v)
	}
}

// parseStream reads the raw data after the stream keyword and the endstream
// that closes it.
func (p *Parser) parseStream(dict Dict) (*Stream, error) {
	length, err := p.streamLength(dict)
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, fmt.Errorf("invalid stream length: %d", length)
	}

	if err := p.lex.SkipStreamEOL(); err != nil {
		return nil, fmt.Errorf("failed to skip EOL after stream keyword: %w", err)
	}
	offset := p.lex.Pos()
	data, err := p.lex.ReadBytes(int(length))
	if err != nil {
		return nil, fmt.Errorf("failed to read stream data: %w", err)
	}

	end, err := p.lex.NextToken()
	if err != nil {
		return nil, fmt.Errorf("failed to read token after stream data: %w", err)
	}
	if !end.Is("endstream") {
		return nil, fmt.Errorf("expected 'endstream' keyword at position %d", end.Pos)
	}

	p.tok, p.ahead = nil, nil
	p.advance()
	p.advance()
	return &Stream{Dict: dict, Data: data, Offset: offset}, nil
}
