package document

import (
	"fmt"
	"io"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tsawler/lazypdf/core"
)

// maxResolveDepth bounds chains of references and nested object streams
const maxResolveDepth = 32

// XRef resolves indirect objects through the merged cross-reference table.
// Parsed objects are kept in an LRU cache that Cleanup purges.
type XRef struct {
	table  *core.XRefTable
	src    io.ReaderAt
	length int64

	crypt      *securityHandler
	encryptRef *core.IndirectRef

	objects *lru.Cache[int, core.Object]
	objStms *lru.Cache[int, *core.ObjectStream]
}

func newXRef(table *core.XRefTable, src io.ReaderAt, length int64, cacheSize int) (*XRef, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultObjectCacheSize
	}

	objects, err := lru.New[int, core.Object](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create object cache: %w", err)
	}
	objStms, err := lru.New[int, *core.ObjectStream](max(cacheSize/16, 8))
	if err != nil {
		return nil, fmt.Errorf("failed to create object stream cache: %w", err)
	}

	return &XRef{
		table:   table,
		src:     src,
		length:  length,
		objects: objects,
		objStms: objStms,
	}, nil
}

// Trailer returns the merged trailer dictionary
func (x *XRef) Trailer() core.Dict {
	return x.table.Trailer
}

// Size returns the number of cross-reference entries
func (x *XRef) Size() int {
	return x.table.Size()
}

// Entry returns the cross-reference entry of an object
func (x *XRef) Entry(objNum int) (*core.XRefEntry, bool) {
	return x.table.Get(objNum)
}

// Encrypted reports whether the document uses a security handler
func (x *XRef) Encrypted() bool {
	return x.crypt != nil
}

// Fetch loads an indirect object. A reference to a free or unknown object
// yields the null object.
func (x *XRef) Fetch(ref core.IndirectRef) (core.Object, error) {
	rec := newFaultRecorder(x.src)
	obj, err := x.fetch(rec, ref, 0)
	return obj, rec.result(err)
}

// Resolve follows obj if it is an indirect reference
func (x *XRef) Resolve(obj core.Object) (core.Object, error) {
	rec := newFaultRecorder(x.src)
	resolved, err := x.resolve(rec, obj)
	return resolved, rec.result(err)
}

// CacheLen returns the number of cached objects
func (x *XRef) CacheLen() int {
	return x.objects.Len()
}

func (x *XRef) purge() {
	x.objects.Purge()
	x.objStms.Purge()
}

func (x *XRef) resolve(r io.ReaderAt, obj core.Object) (core.Object, error) {
	for depth := 0; depth < maxResolveDepth; depth++ {
		ref, ok := obj.(core.IndirectRef)
		if !ok {
			return obj, nil
		}
		var err error
		obj, err = x.fetch(r, ref, depth)
		if err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("reference chain longer than %d", maxResolveDepth)
}

func (x *XRef) fetch(r io.ReaderAt, ref core.IndirectRef, depth int) (core.Object, error) {
	if depth > maxResolveDepth {
		return nil, fmt.Errorf("object %d: nesting deeper than %d", ref.Number, maxResolveDepth)
	}

	if obj, ok := x.objects.Get(ref.Number); ok {
		return obj, nil
	}

	entry, ok := x.table.Get(ref.Number)
	if !ok || !entry.InUse() {
		return core.Null{}, nil
	}

	var (
		obj core.Object
		err error
	)
	switch entry.Type {
	case core.XRefInUse:
		obj, err = x.fetchUncompressed(r, ref, entry, depth)
	case core.XRefCompressed:
		obj, err = x.fetchCompressed(r, ref, entry, depth)
	}
	if err != nil {
		return nil, err
	}

	x.objects.Add(ref.Number, obj)
	return obj, nil
}

func (x *XRef) fetchUncompressed(r io.ReaderAt, ref core.IndirectRef, entry *core.XRefEntry, depth int) (core.Object, error) {
	if entry.Offset < 0 || entry.Offset >= x.length {
		return nil, fmt.Errorf("object %d: offset %d outside file", ref.Number, entry.Offset)
	}

	parser := core.NewParserAt(r, entry.Offset, x.length)
	parser.SetReferenceResolver(lengthResolver{x: x, r: r, depth: depth + 1})

	indObj, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse object %d: %w", ref.Number, err)
	}
	if indObj.Ref.Number != ref.Number {
		return nil, fmt.Errorf("object number mismatch: expected %d, got %d", ref.Number, indObj.Ref.Number)
	}

	obj := indObj.Object
	if x.crypt != nil && !x.isEncryptDict(ref) {
		obj, err = x.crypt.decryptObject(obj, indObj.Ref)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt object %d: %w", ref.Number, err)
		}
	}
	return obj, nil
}

func (x *XRef) fetchCompressed(r io.ReaderAt, ref core.IndirectRef, entry *core.XRefEntry, depth int) (core.Object, error) {
	os, err := x.objectStream(r, entry.StreamObj, depth+1)
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", ref.Number, err)
	}
	obj, err := os.Object(ref.Number, entry.Index)
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", ref.Number, err)
	}
	return obj, nil
}

func (x *XRef) objectStream(r io.ReaderAt, num, depth int) (*core.ObjectStream, error) {
	if os, ok := x.objStms.Get(num); ok {
		return os, nil
	}

	obj, err := x.fetch(r, core.IndirectRef{Number: num}, depth)
	if err != nil {
		return nil, err
	}
	stream, ok := obj.(*core.Stream)
	if !ok {
		return nil, fmt.Errorf("object stream %d is %T, not a stream", num, obj)
	}

	os, err := core.NewObjectStream(stream)
	if err != nil {
		return nil, fmt.Errorf("object stream %d: %w", num, err)
	}
	x.objStms.Add(num, os)
	return os, nil
}

func (x *XRef) isEncryptDict(ref core.IndirectRef) bool {
	return x.encryptRef != nil && x.encryptRef.Number == ref.Number
}

// lengthResolver lets the parser resolve indirect /Length values through
// the same reader as the object being parsed.
type lengthResolver struct {
	x     *XRef
	r     io.ReaderAt
	depth int
}

func (l lengthResolver) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return l.x.fetch(l.r, ref, l.depth)
}
