// Package pdftest builds small, well-formed PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Builder assembles a PDF with a correct cross-reference section.
type Builder struct {
	version string
	objects []object
	trailer string
	pending int
}

type object struct {
	num  int
	body string
	pad  int
}

// New returns a builder for a PDF 1.7 file whose catalog is object 1
func New() *Builder {
	return &Builder{version: "1.7", trailer: "/Root 1 0 R"}
}

// Version sets the header version
func (b *Builder) Version(v string) *Builder {
	b.version = v
	return b
}

// Padding inserts n filler bytes before the next object
func (b *Builder) Padding(n int) *Builder {
	b.pending += n
	return b
}

// Object adds "num 0 obj body endobj"
func (b *Builder) Object(num int, body string) *Builder {
	b.objects = append(b.objects, object{num: num, body: body, pad: b.pending})
	b.pending = 0
	return b
}

// Stream adds a stream object; /Length is filled in
func (b *Builder) Stream(num int, dict string, data []byte) *Builder {
	body := fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(data), data)
	return b.Object(num, body)
}

// Trailer replaces the trailer entries other than /Size
func (b *Builder) Trailer(entries string) *Builder {
	b.trailer = entries
	return b
}

func (b *Builder) writeBody(buf *bytes.Buffer) (map[int]int, int) {
	fmt.Fprintf(buf, "%%PDF-%s\n%%\xe2\xe3\xcf\xd3\n", b.version)

	offsets := make(map[int]int)
	maxNum := 0
	for _, obj := range b.objects {
		writePadding(buf, obj.pad)
		offsets[obj.num] = buf.Len()
		fmt.Fprintf(buf, "%d 0 obj\n%s\nendobj\n", obj.num, obj.body)
		if obj.num > maxNum {
			maxNum = obj.num
		}
	}
	writePadding(buf, b.pending)
	return offsets, maxNum
}

func writePadding(buf *bytes.Buffer, n int) {
	if n <= 0 {
		return
	}
	if n == 1 {
		buf.WriteByte('\n')
		return
	}
	buf.WriteByte('%')
	buf.WriteString(strings.Repeat("x", n-2))
	buf.WriteByte('\n')
}

// Bytes returns the file with a classic xref table
func (b *Builder) Bytes() []byte {
	var buf bytes.Buffer
	offsets, maxNum := b.writeBody(&buf)

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", maxNum+1)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num <= maxNum; num++ {
		if off, ok := offsets[num]; ok {
			fmt.Fprintf(&buf, "%010d 00000 n \n", off)
		} else {
			buf.WriteString("0000000000 00000 f \n")
		}
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d %s >>\nstartxref\n%d\n%%%%EOF\n", maxNum+1, b.trailer, xrefOffset)

	return buf.Bytes()
}

// BytesWithXRefStream returns the file with an uncompressed xref stream
// (W [1 4 2]) in place of the table.
func (b *Builder) BytesWithXRefStream() []byte {
	var buf bytes.Buffer
	offsets, maxNum := b.writeBody(&buf)

	xrefNum := maxNum + 1
	xrefOffset := buf.Len()
	offsets[xrefNum] = xrefOffset

	var data bytes.Buffer
	data.Write([]byte{0, 0, 0, 0, 0, 0xff, 0xff})
	for num := 1; num <= xrefNum; num++ {
		off, ok := offsets[num]
		if !ok {
			data.Write([]byte{0, 0, 0, 0, 0, 0, 0})
			continue
		}
		data.Write([]byte{1, byte(off >> 24), byte(off >> 16), byte(off >> 8), byte(off), 0, 0})
	}

	fmt.Fprintf(&buf, "%d 0 obj\n<< /Type /XRef /Size %d /W [1 4 2] %s /Length %d >>\nstream\n",
		xrefNum, xrefNum+1, b.trailer, data.Len())
	buf.Write(data.Bytes())
	fmt.Fprintf(&buf, "\nendstream\nendobj\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	return buf.Bytes()
}

// SimpleDocument returns a document with the given number of pages, an
// info dictionary with a title, and padding between objects.
func SimpleDocument(pages, padding int) []byte {
	b := New().Trailer("/Root 1 0 R /Info 3 0 R")

	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+4)
	}

	b.Object(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.Padding(padding)
	b.Object(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>", strings.Join(kids, " "), pages))
	b.Padding(padding)
	b.Object(3, "<< /Title (Test Document) /Producer (pdftest) >>")
	for i := 0; i < pages; i++ {
		b.Padding(padding)
		b.Object(i+4, "<< /Type /Page /Parent 2 0 R >>")
	}

	return b.Bytes()
}
