package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Object is any PDF object. The set of implementations is closed: Null,
// Bool, Int, Real, String, Name, Array, Dict, *Stream and IndirectRef.
type Object interface {
	String() string
	pdfObject()
}

type (
	// Null is the null object. A missing dictionary value or free xref
	// entry also resolves to Null.
	Null struct{}

	Bool bool
	Int  int64
	Real float64

	// String holds the raw bytes of a literal or hex string, already
	// unescaped but not decrypted or text-decoded.
	String string

	// Name is a name object without its leading slash.
	Name string

	Array []Object

	// Dict maps name keys, without the slash, to values.
	Dict map[string]Object
)

// Stream is a stream object. Data is still encoded; Offset is the absolute
// position of its first byte in the file.
type Stream struct {
	Dict   Dict
	Data   []byte
	Offset int64
}

// IndirectRef is an "num gen R" reference.
type IndirectRef struct {
	Number     int
	Generation int
}

// IndirectObject is the body of a "num gen obj ... endobj" block.
type IndirectObject struct {
	Ref    IndirectRef
	Object Object
}

func (Null) pdfObject()        {}
func (Bool) pdfObject()        {}
func (Int) pdfObject()         {}
func (Real) pdfObject()        {}
func (String) pdfObject()      {}
func (Name) pdfObject()        {}
func (Array) pdfObject()       {}
func (Dict) pdfObject()        {}
func (*Stream) pdfObject()     {}
func (IndirectRef) pdfObject() {}

func (Null) String() string     { return "null" }
func (b Bool) String() string   { return strconv.FormatBool(bool(b)) }
func (i Int) String() string    { return strconv.FormatInt(int64(i), 10) }
func (r Real) String() string   { return strconv.FormatFloat(float64(r), 'f', -1, 64) }
func (s String) String() string { return string(s) }
func (n Name) String() string   { return "/" + string(n) }

func (r IndirectRef) String() string {
	return fmt.Sprintf("%d %d R", r.Number, r.Generation)
}

func (a Array) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, obj := range a {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(obj.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

func (d Dict) String() string {
	var sb strings.Builder
	sb.WriteString("<<")
	for i, key := range d.Keys() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString("/" + key + " " + d[key].String())
	}
	sb.WriteString(">>")
	return sb.String()
}

func (s *Stream) String() string {
	return fmt.Sprintf("stream %s (%d bytes)", s.Dict, len(s.Data))
}

// as converts obj to T, reporting false for nil or another type.
func as[T Object](obj Object) (T, bool) {
	v, ok := obj.(T)
	return v, ok
}

// Number returns the value of an Int or Real.
func Number(obj Object) (float64, bool) {
	switch v := obj.(type) {
	case Int:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}

func (a Array) Len() int { return len(a) }

// Get returns the element at index, or nil when out of range.
func (a Array) Get(index int) Object {
	if index < 0 || index >= len(a) {
		return nil
	}
	return a[index]
}

func (a Array) GetInt(index int) (Int, bool)         { return as[Int](a.Get(index)) }
func (a Array) GetName(index int) (Name, bool)       { return as[Name](a.Get(index)) }
func (a Array) GetNumber(index int) (float64, bool) { return Number(a.Get(index)) }

// Get returns the value for key, or nil when absent.
func (d Dict) Get(key string) Object { return d[key] }

func (d Dict) Has(key string) bool {
	_, ok := d[key]
	return ok
}

func (d Dict) Set(key string, value Object) { d[key] = value }

// Keys returns the keys in sorted order.
func (d Dict) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (d Dict) GetName(key string) (Name, bool)                { return as[Name](d[key]) }
func (d Dict) GetInt(key string) (Int, bool)                  { return as[Int](d[key]) }
func (d Dict) GetBool(key string) (Bool, bool)                { return as[Bool](d[key]) }
func (d Dict) GetString(key string) (String, bool)            { return as[String](d[key]) }
func (d Dict) GetDict(key string) (Dict, bool)                { return as[Dict](d[key]) }
func (d Dict) GetArray(key string) (Array, bool)              { return as[Array](d[key]) }
func (d Dict) GetIndirectRef(key string) (IndirectRef, bool) { return as[IndirectRef](d[key]) }
func (d Dict) GetNumber(key string) (float64, bool)           { return Number(d[key]) }
