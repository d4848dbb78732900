package core

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestParserObjects(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"null", "null"},
		{"true", "true"},
		{"42", "42"},
		{"-3.25", "-3.25"},
		{"(hello)", "hello"},
		{"<48656C6C6F>", "Hello"},
		{"<4>", "@"},
		{"/Name", "/Name"},
		{"[1 2 3]", "[1 2 3]"},
		{"[1 0 R 2]", "[1 0 R 2]"},
		{"<< /B 2 /A 1 >>", "<</A 1 /B 2>>"},
		{"<< /A null >>", "<<>>"},
		{"5 0 R", "5 0 R"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			obj, err := NewParser(strings.NewReader(tt.input)).ParseObject()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if obj.String() != tt.want {
				t.Errorf("got %s, want %s", obj.String(), tt.want)
			}
		})
	}
}

func TestParserTwoIntegers(t *testing.T) {
	parser := NewParser(strings.NewReader("1 2"))

	first, err := parser.ParseObject()
	if err != nil || first != Int(1) {
		t.Fatalf("first = %v, %v", first, err)
	}
	second, err := parser.ParseObject()
	if err != nil || second != Int(2) {
		t.Fatalf("second = %v, %v", second, err)
	}
}

func TestParserIndirectObject(t *testing.T) {
	input := "% comment\n7 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj"
	indObj, err := NewParser(strings.NewReader(input)).ParseIndirectObject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if indObj.Ref.Number != 7 || indObj.Ref.Generation != 0 {
		t.Errorf("ref = %v, want 7 0 R", indObj.Ref)
	}
	dict, ok := indObj.Object.(Dict)
	if !ok {
		t.Fatalf("expected Dict, got %T", indObj.Object)
	}
	if pages, ok := dict.GetIndirectRef("Pages"); !ok || pages.Number != 2 {
		t.Errorf("expected Pages=2 0 R")
	}
}

type mockResolver struct {
	objects map[int]Object
}

func (m *mockResolver) ResolveReference(ref IndirectRef) (Object, error) {
	if obj, ok := m.objects[ref.Number]; ok {
		return obj, nil
	}
	return nil, fmt.Errorf("object %d not found", ref.Number)
}

func TestParserStream(t *testing.T) {
	input := "1 0 obj\n<< /Length 5 >>\nstream\r\nHello\nendstream\nendobj"
	indObj, err := NewParser(strings.NewReader(input)).ParseIndirectObject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stream, ok := indObj.Object.(*Stream)
	if !ok {
		t.Fatalf("expected *Stream, got %T", indObj.Object)
	}
	if string(stream.Data) != "Hello" {
		t.Errorf("data = %q, want Hello", stream.Data)
	}
	if stream.Offset != int64(strings.Index(input, "Hello")) {
		t.Errorf("offset = %d", stream.Offset)
	}
}

func TestParserStreamIndirectLength(t *testing.T) {
	input := "1 0 obj\n<< /Length 5 0 R >>\nstream\nHello\nendstream\nendobj"

	parser := NewParser(strings.NewReader(input))
	if _, err := parser.ParseIndirectObject(); err == nil {
		t.Fatal("expected error without a resolver")
	}

	parser = NewParser(strings.NewReader(input))
	parser.SetReferenceResolver(&mockResolver{objects: map[int]Object{5: Int(6)}})
	indObj, err := parser.ParseIndirectObject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data := indObj.Object.(*Stream).Data; string(data) != "Hello\n" {
		t.Errorf("data = %q, want %q", data, "Hello\n")
	}
}

func TestParserErrors(t *testing.T) {
	for _, input := range []string{"[1 2", "<< /A >>", "<< 1 2 >>", "endobj", ")"} {
		t.Run(input, func(t *testing.T) {
			if _, err := NewParser(strings.NewReader(input)).ParseObject(); err == nil {
				t.Errorf("expected error for %q", input)
			}
		})
	}
}

func TestParserReportsReadErrorOverSyntaxError(t *testing.T) {
	data := []byte("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj")
	r := &failingReaderAt{data: data, limit: 20}

	// reads are issued for the whole buffer, so even the first token fails
	_, err := NewParserAt(r, 0, int64(len(data))).ParseIndirectObject()
	if !errors.Is(err, errFault) {
		t.Errorf("expected read error in chain, got %v", err)
	}

	_, err = NewParserAt(bytes.NewReader(data), 0, int64(len(data))).ParseIndirectObject()
	if err != nil {
		t.Errorf("unexpected error with a complete reader: %v", err)
	}
}
