package core

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// startXRefWindow is how far from the end of the file startxref is searched
const startXRefWindow = 1024

// XRefEntryType distinguishes the three kinds of cross-reference entries
type XRefEntryType int

const (
	XRefFree XRefEntryType = iota
	XRefInUse
	XRefCompressed
)

// XRefEntry represents a single cross-reference entry
type XRefEntry struct {
	Type       XRefEntryType
	Offset     int64 // byte offset of an in-use object
	Generation int
	StreamObj  int // object stream holding a compressed object
	Index      int // position of a compressed object inside its stream
}

// InUse reports whether the entry points at an object
func (e *XRefEntry) InUse() bool {
	return e.Type != XRefFree
}

// XRefTable maps object numbers to their locations
type XRefTable struct {
	Entries map[int]*XRefEntry
	Trailer Dict
}

// NewXRefTable creates a new empty XRef table
func NewXRefTable() *XRefTable {
	return &XRefTable{
		Entries: make(map[int]*XRefEntry),
		Trailer: make(Dict),
	}
}

// Get retrieves an XRef entry by object number
func (x *XRefTable) Get(objNum int) (*XRefEntry, bool) {
	entry, ok := x.Entries[objNum]
	return entry, ok
}

// Set adds or updates an XRef entry
func (x *XRefTable) Set(objNum int, entry *XRefEntry) {
	x.Entries[objNum] = entry
}

// setIfAbsent keeps entries of newer sections over older ones
func (x *XRefTable) setIfAbsent(objNum int, entry *XRefEntry) {
	if _, ok := x.Entries[objNum]; !ok {
		x.Entries[objNum] = entry
	}
}

// Size returns the number of entries in the table
func (x *XRefTable) Size() int {
	return len(x.Entries)
}

// MergeXRefTables merges tables ordered oldest first. Later entries override
// earlier ones and the newest trailer wins.
func MergeXRefTables(tables ...*XRefTable) *XRefTable {
	merged := NewXRefTable()
	for _, table := range tables {
		for objNum, entry := range table.Entries {
			merged.Set(objNum, entry)
		}
		merged.Trailer = table.Trailer
	}
	return merged
}

// XRefParser reads the cross-reference sections of a document through an
// io.ReaderAt. Every read error is returned unchanged in the error chain.
type XRefParser struct {
	r    io.ReaderAt
	size int64
}

// NewXRefParser creates a parser for a document of the given size
func NewXRefParser(r io.ReaderAt, size int64) *XRefParser {
	return &XRefParser{r: r, size: size}
}

// FindStartXRef returns the offset recorded after the last startxref keyword
// near the end of the file.
func (x *XRefParser) FindStartXRef() (int64, error) {
	window := int64(startXRefWindow)
	if x.size < window {
		window = x.size
	}
	if window == 0 {
		return 0, fmt.Errorf("startxref not found in PDF: empty file")
	}

	buf := make([]byte, window)
	n, err := x.r.ReadAt(buf, x.size-window)
	if err != nil && !(err == io.EOF && int64(n) == window) {
		return 0, fmt.Errorf("failed to read startxref area: %w", err)
	}

	idx := bytes.LastIndex(buf, []byte("startxref"))
	if idx == -1 {
		return 0, fmt.Errorf("startxref not found in PDF")
	}

	fields := bytes.Fields(buf[idx+len("startxref"):])
	if len(fields) == 0 {
		return 0, fmt.Errorf("invalid startxref format")
	}

	offset, err := strconv.ParseInt(string(fields[0]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid xref offset: %w", err)
	}
	if offset < 0 || offset >= x.size {
		return 0, fmt.Errorf("xref offset %d outside file of size %d", offset, x.size)
	}
	return offset, nil
}

// ParseAt parses the cross-reference section at offset. Both classic tables
// and xref streams are recognised; a hybrid file's /XRefStm is folded in.
func (x *XRefParser) ParseAt(offset int64) (*XRefTable, error) {
	lexer := NewLexerAt(x.r, offset, x.size)
	token, err := lexer.NextToken()
	if err != nil {
		return nil, fmt.Errorf("failed to read xref at %d: %w", offset, err)
	}

	switch {
	case token.Is("xref"):
		table, err := x.parseTable(lexer)
		if err != nil {
			return nil, err
		}
		if stmOffset, ok := table.Trailer.GetInt("XRefStm"); ok {
			stm, err := x.parseStream(int64(stmOffset))
			if err != nil {
				return nil, fmt.Errorf("failed to parse hybrid xref stream: %w", err)
			}
			for objNum, entry := range stm.Entries {
				table.setIfAbsent(objNum, entry)
			}
		}
		return table, nil

	case token.Type == TokenInteger:
		return x.parseStream(offset)
	}

	return nil, fmt.Errorf("no xref section at offset %d", offset)
}

// parseTable parses a classic table; the xref keyword is already consumed.
func (x *XRefParser) parseTable(lexer *Lexer) (*XRefTable, error) {
	table := NewXRefTable()

	for {
		token, err := lexer.NextToken()
		if err != nil {
			return nil, fmt.Errorf("failed to read xref subsection: %w", err)
		}

		if token.Is("trailer") {
			parser := newParser(lexer)
			obj, err := parser.ParseObject()
			if err != nil {
				return nil, fmt.Errorf("failed to parse trailer: %w", err)
			}
			trailer, ok := obj.(Dict)
			if !ok {
				return nil, fmt.Errorf("trailer is not a dictionary, got %T", obj)
			}
			table.Trailer = trailer
			return table, nil
		}

		if token.Type != TokenInteger {
			return nil, fmt.Errorf("invalid xref subsection header at position %d", token.Pos)
		}
		first, err := strconv.Atoi(string(token.Value))
		if err != nil {
			return nil, fmt.Errorf("invalid first object number: %w", err)
		}

		token, err = lexer.NextToken()
		if err != nil {
			return nil, fmt.Errorf("failed to read xref subsection: %w", err)
		}
		count, err := strconv.Atoi(string(token.Value))
		if token.Type != TokenInteger || err != nil || count < 0 {
			return nil, fmt.Errorf("invalid xref subsection count at position %d", token.Pos)
		}

		for i := 0; i < count; i++ {
			entry, err := parseTableEntry(lexer)
			if err != nil {
				return nil, fmt.Errorf("failed to parse xref entry %d: %w", first+i, err)
			}
			table.setIfAbsent(first+i, entry)
		}
	}
}

// parseTableEntry parses "nnnnnnnnnn ggggg n|f"
func parseTableEntry(lexer *Lexer) (*XRefEntry, error) {
	var fields [3]*Token
	for i := range fields {
		token, err := lexer.NextToken()
		if err != nil {
			return nil, err
		}
		fields[i] = token
	}

	offset, err := strconv.ParseInt(string(fields[0].Value), 10, 64)
	if err != nil || fields[0].Type != TokenInteger {
		return nil, fmt.Errorf("invalid offset %q", fields[0].Value)
	}
	generation, err := strconv.Atoi(string(fields[1].Value))
	if err != nil || fields[1].Type != TokenInteger {
		return nil, fmt.Errorf("invalid generation %q", fields[1].Value)
	}

	switch {
	case fields[2].Is("n"):
		return &XRefEntry{Type: XRefInUse, Offset: offset, Generation: generation}, nil
	case fields[2].Is("f"):
		return &XRefEntry{Type: XRefFree, Generation: generation}, nil
	}
	return nil, fmt.Errorf("invalid in-use flag: %q", fields[2].Value)
}

// ParseAll parses the section at startxref and every older section reached
// through /Prev, and merges them.
func (x *XRefParser) ParseAll() (*XRefTable, error) {
	offset, err := x.FindStartXRef()
	if err != nil {
		return nil, err
	}

	var tables []*XRefTable
	visited := make(map[int64]bool)

	for {
		if visited[offset] {
			break
		}
		visited[offset] = true

		table, err := x.ParseAt(offset)
		if err != nil {
			return nil, err
		}
		tables = append([]*XRefTable{table}, tables...)

		prev, ok := table.Trailer.GetInt("Prev")
		if !ok {
			break
		}
		offset = int64(prev)
	}

	merged := MergeXRefTables(tables...)
	// the newest trailer wins, but entries like /Root may only be in older ones
	for i := len(tables) - 2; i >= 0; i-- {
		for key, value := range tables[i].Trailer {
			if !merged.Trailer.Has(key) {
				merged.Trailer[key] = value
			}
		}
	}
	return merged, nil
}
