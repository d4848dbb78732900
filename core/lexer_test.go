package core

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestLexerTokens(t *testing.T) {
	input := "<< /Type /Page /Count 3 /Ratio -1.5 >> [ (a\\(b\\)) <414243> ] 12 0 R % note\ntrue"
	lexer := NewLexer(strings.NewReader(input))

	want := []struct {
		typ   TokenType
		value string
	}{
		{TokenDictStart, "<<"},
		{TokenName, "Type"},
		{TokenName, "Page"},
		{TokenName, "Count"},
		{TokenInteger, "3"},
		{TokenName, "Ratio"},
		{TokenReal, "-1.5"},
		{TokenDictEnd, ">>"},
		{TokenArrayStart, "["},
		{TokenString, "a(b)"},
		{TokenHexString, "414243"},
		{TokenArrayEnd, "]"},
		{TokenInteger, "12"},
		{TokenInteger, "0"},
		{TokenIndirectRef, "R"},
		{TokenComment, "% note"},
		{TokenKeyword, "true"},
		{TokenEOF, ""},
	}

	for i, w := range want {
		token, err := lexer.NextToken()
		if err != nil {
			t.Fatalf("token %d: unexpected error: %v", i, err)
		}
		if token.Type != w.typ || string(token.Value) != w.value {
			t.Errorf("token %d = (%v, %q), want (%v, %q)", i, token.Type, token.Value, w.typ, w.value)
		}
	}
}

func TestLexerEscapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"newline", `(a\nb)`, "a\nb"},
		{"octal", `(\101\102)`, "AB"},
		{"short octal", `(\7x)`, "\x07x"},
		{"continuation", "(ab\\\ncd)", "abcd"},
		{"nested", `(a(b)c)`, "a(b)c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := NewLexer(strings.NewReader(tt.input)).NextToken()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(token.Value) != tt.want {
				t.Errorf("got %q, want %q", token.Value, tt.want)
			}
		})
	}
}

func TestLexerNameEscape(t *testing.T) {
	token, err := NewLexer(strings.NewReader("/A#20B")).NextToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(token.Value) != "A B" {
		t.Errorf("got %q, want %q", token.Value, "A B")
	}
}

func TestLexerAtPositions(t *testing.T) {
	data := []byte("garbage 1 0 obj")
	lexer := NewLexerAt(bytes.NewReader(data), 8, int64(len(data)))

	token, err := lexer.NextToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.Pos != 8 || string(token.Value) != "1" {
		t.Errorf("got %q at %d, want \"1\" at 8", token.Value, token.Pos)
	}
}

// failingReaderAt returns data up to limit and errFault beyond it
type failingReaderAt struct {
	data  []byte
	limit int64
}

var errFault = errors.New("bytes not available")

func (r *failingReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off+int64(len(p)) > r.limit {
		return 0, errFault
	}
	return copy(p, r.data[off:]), nil
}

func TestLexerStickyError(t *testing.T) {
	data := []byte("<< /Type /Catalog >>")
	lexer := NewLexerAt(&failingReaderAt{data: data, limit: 5}, 0, int64(len(data)))

	if _, err := lexer.NextToken(); !errors.Is(err, errFault) {
		t.Fatalf("expected read error, got %v", err)
	}
	if _, err := lexer.NextToken(); !errors.Is(err, errFault) {
		t.Errorf("expected sticky read error, got %v", err)
	}
	if !errors.Is(lexer.Err(), errFault) {
		t.Errorf("Err() = %v, want read error", lexer.Err())
	}
}

func TestLexerReadBytes(t *testing.T) {
	lexer := NewLexer(strings.NewReader("stream\r\nABCDEF"))
	token, _ := lexer.NextToken()
	if !token.Is("stream") {
		t.Fatalf("expected stream keyword, got %q", token.Value)
	}
	if err := lexer.SkipStreamEOL(); err != nil {
		t.Fatalf("SkipStreamEOL: %v", err)
	}
	if lexer.Pos() != 8 {
		t.Errorf("Pos() = %d, want 8", lexer.Pos())
	}

	data, err := lexer.ReadBytes(4)
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if string(data) != "ABCD" {
		t.Errorf("ReadBytes = %q, want ABCD", data)
	}

	if _, err := lexer.ReadBytes(10); err == nil || errors.Is(err, io.EOF) {
		t.Errorf("expected short read error, got %v", err)
	}
}
