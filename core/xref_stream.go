package core

import (
	"fmt"
)

// parseStream parses the xref stream object at offset (PDF 1.5).
func (x *XRefParser) parseStream(offset int64) (*XRefTable, error) {
	indObj, err := NewParserAt(x.r, offset, x.size).ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse xref stream at %d: %w", offset, err)
	}

	stream, ok := indObj.Object.(*Stream)
	if !ok {
		return nil, fmt.Errorf("object at %d is not an xref stream", offset)
	}
	if typeName, _ := stream.Dict.GetName("Type"); typeName != "XRef" {
		return nil, fmt.Errorf("object at %d is not an xref stream, got type %v", offset, stream.Dict.Get("Type"))
	}

	return ParseXRefStream(stream)
}

// ParseXRefStream decodes the entries of an xref stream. The stream
// dictionary doubles as the trailer.
func ParseXRefStream(stream *Stream) (*XRefTable, error) {
	w, ok := stream.Dict.GetArray("W")
	if !ok || len(w) != 3 {
		return nil, fmt.Errorf("xref stream has invalid /W: %v", stream.Dict.Get("W"))
	}
	var widths [3]int
	for i := range widths {
		v, ok := w.GetInt(i)
		if !ok || v < 0 || v > 8 {
			return nil, fmt.Errorf("xref stream has invalid /W width %v", w.Get(i))
		}
		widths[i] = int(v)
	}
	entrySize := widths[0] + widths[1] + widths[2]
	if entrySize == 0 {
		return nil, fmt.Errorf("xref stream has zero entry size")
	}

	size, ok := stream.Dict.GetInt("Size")
	if !ok {
		return nil, fmt.Errorf("xref stream missing /Size")
	}

	index := []int{0, int(size)}
	if arr, ok := stream.Dict.GetArray("Index"); ok {
		if len(arr)%2 != 0 {
			return nil, fmt.Errorf("xref stream /Index has odd length %d", len(arr))
		}
		index = index[:0]
		for i := range arr {
			v, ok := arr.GetInt(i)
			if !ok || v < 0 {
				return nil, fmt.Errorf("xref stream has invalid /Index entry %v", arr.Get(i))
			}
			index = append(index, int(v))
		}
	}

	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode xref stream: %w", err)
	}

	table := NewXRefTable()
	table.Trailer = stream.Dict

	pos := 0
	for i := 0; i < len(index); i += 2 {
		first, count := index[i], index[i+1]
		for j := 0; j < count; j++ {
			if pos+entrySize > len(data) {
				return nil, fmt.Errorf("xref stream truncated at entry %d", first+j)
			}
			if entry := parseXRefStreamEntry(data[pos:pos+entrySize], widths); entry != nil {
				table.setIfAbsent(first+j, entry)
			}
			pos += entrySize
		}
	}

	return table, nil
}

// parseXRefStreamEntry decodes one binary entry. Unknown types are treated
// as references to the null object and yield nil.
func parseXRefStreamEntry(data []byte, widths [3]int) *XRefEntry {
	f1 := data[:widths[0]]
	f2 := data[widths[0] : widths[0]+widths[1]]
	f3 := data[widths[0]+widths[1]:]

	entryType := int64(1)
	if widths[0] > 0 {
		entryType = readBigEndianInt(f1)
	}

	switch entryType {
	case 0:
		return &XRefEntry{Type: XRefFree, Generation: int(readBigEndianInt(f3))}
	case 1:
		return &XRefEntry{Type: XRefInUse, Offset: readBigEndianInt(f2), Generation: int(readBigEndianInt(f3))}
	case 2:
		return &XRefEntry{Type: XRefCompressed, StreamObj: int(readBigEndianInt(f2)), Index: int(readBigEndianInt(f3))}
	}
	return nil
}

// readBigEndianInt reads an unsigned big-endian integer of up to 8 bytes
func readBigEndianInt(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}
