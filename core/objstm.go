package core

import (
	"bytes"
	"fmt"
)

// ObjectStream is a decoded /Type /ObjStm stream (PDF 1.5). It stores
// several non-stream objects in one compressed stream.
type ObjectStream struct {
	n       int
	first   int
	extends *IndirectRef
	offsets []objectStreamOffset
	decoded []byte
}

type objectStreamOffset struct {
	ObjNum int
	Offset int // relative to First
}

// NewObjectStream decodes stream and parses its header of object number and
// offset pairs.
func NewObjectStream(stream *Stream) (*ObjectStream, error) {
	if stream == nil {
		return nil, fmt.Errorf("stream is nil")
	}

	if typeName, _ := stream.Dict.GetName("Type"); typeName != "ObjStm" {
		return nil, fmt.Errorf("stream is not an object stream, got type: %v", stream.Dict.Get("Type"))
	}

	n, ok := stream.Dict.GetInt("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("object stream has invalid /N: %v", stream.Dict.Get("N"))
	}
	first, ok := stream.Dict.GetInt("First")
	if !ok || first < 0 {
		return nil, fmt.Errorf("object stream has invalid /First: %v", stream.Dict.Get("First"))
	}

	os := &ObjectStream{
		n:     int(n),
		first: int(first),
	}
	if ref, ok := stream.Dict.GetIndirectRef("Extends"); ok {
		os.extends = &ref
	}

	decoded, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode object stream: %w", err)
	}
	os.decoded = decoded

	if err := os.parseHeader(); err != nil {
		return nil, fmt.Errorf("failed to parse object stream header: %w", err)
	}
	return os, nil
}

// N returns the number of objects stored in the stream
func (os *ObjectStream) N() int {
	return os.n
}

// Extends returns the object stream this one extends, or nil
func (os *ObjectStream) Extends() *IndirectRef {
	return os.extends
}

func (os *ObjectStream) parseHeader() error {
	if os.first > len(os.decoded) {
		return fmt.Errorf("First offset (%d) exceeds decoded data length (%d)", os.first, len(os.decoded))
	}

	parser := NewParser(bytes.NewReader(os.decoded[:os.first]))
	os.offsets = make([]objectStreamOffset, 0, os.n)

	for i := 0; i < os.n; i++ {
		objNum, err := parser.ParseObject()
		if err != nil {
			return fmt.Errorf("failed to parse object number %d: %w", i, err)
		}
		offset, err := parser.ParseObject()
		if err != nil {
			return fmt.Errorf("failed to parse offset %d: %w", i, err)
		}

		num, ok1 := objNum.(Int)
		off, ok2 := offset.(Int)
		if !ok1 || !ok2 {
			return fmt.Errorf("header pair %d is not two integers", i)
		}
		os.offsets = append(os.offsets, objectStreamOffset{ObjNum: int(num), Offset: int(off)})
	}
	return nil
}

// ObjectAt parses the object at header position index and returns it with
// its object number.
func (os *ObjectStream) ObjectAt(index int) (Object, int, error) {
	if index < 0 || index >= len(os.offsets) {
		return nil, 0, fmt.Errorf("index %d out of range [0, %d)", index, len(os.offsets))
	}

	offset := os.first + os.offsets[index].Offset
	end := len(os.decoded)
	if index+1 < len(os.offsets) {
		if next := os.first + os.offsets[index+1].Offset; next < end && next >= offset {
			end = next
		}
	}
	if offset >= len(os.decoded) {
		return nil, 0, fmt.Errorf("object offset %d exceeds decoded data length %d", offset, len(os.decoded))
	}

	obj, err := NewParser(bytes.NewReader(os.decoded[offset:end])).ParseObject()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse object at index %d: %w", index, err)
	}
	return obj, os.offsets[index].ObjNum, nil
}

// Object finds an object by number. index is a hint taken from the xref
// entry; the header is searched when the hint does not match.
func (os *ObjectStream) Object(objNum, index int) (Object, error) {
	if index >= 0 && index < len(os.offsets) && os.offsets[index].ObjNum == objNum {
		obj, _, err := os.ObjectAt(index)
		return obj, err
	}
	for i, entry := range os.offsets {
		if entry.ObjNum == objNum {
			obj, _, err := os.ObjectAt(i)
			return obj, err
		}
	}
	return nil, fmt.Errorf("object %d not found in object stream", objNum)
}

// ObjectNumbers returns the object numbers stored in this stream
func (os *ObjectStream) ObjectNumbers() []int {
	nums := make([]int, len(os.offsets))
	for i, entry := range os.offsets {
		nums[i] = entry.ObjNum
	}
	return nums
}
