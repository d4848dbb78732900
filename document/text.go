package document

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
)

// DecodeTextString converts a PDF text string to UTF-8. Strings with a
// UTF-16 or UTF-8 byte order mark are decoded accordingly; anything else is
// taken as PDFDocEncoding, which agrees with Latin-1 for printable text.
func DecodeTextString(s string) string {
	raw := []byte(s)

	var dec *encoding.Decoder
	switch {
	case bytes.HasPrefix(raw, bomUTF16BE):
		dec = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
	case bytes.HasPrefix(raw, bomUTF16LE):
		dec = unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
	case bytes.HasPrefix(raw, bomUTF8):
		return strings.TrimRight(string(raw[len(bomUTF8):]), "\x00")
	default:
		dec = charmap.ISO8859_1.NewDecoder()
	}

	out, err := dec.Bytes(raw)
	if err != nil {
		return s
	}
	return strings.TrimRight(string(out), "\x00")
}
