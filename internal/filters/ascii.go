package filters

import (
	"encoding/ascii85"
	"encoding/hex"
	"fmt"
)

// ASCIIHexDecode decodes hex digits up to the > end marker. Whitespace is
// skipped and an odd final digit is padded with zero.
func ASCIIHexDecode(data []byte) ([]byte, error) {
	digits := make([]byte, 0, len(data))
	for i, b := range data {
		if b == '>' {
			break
		}
		if isWhitespace(b) {
			continue
		}
		if !isHexDigit(b) {
			return nil, fmt.Errorf("asciihex: invalid character %q at %d", b, i)
		}
		digits = append(digits, b)
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}

	out := make([]byte, len(digits)/2)
	if _, err := hex.Decode(out, digits); err != nil {
		return nil, fmt.Errorf("asciihex: %w", err)
	}
	return out, nil
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

// ASCII85Decode decodes base-85 data up to the ~> end marker. An optional
// <~ prefix and whitespace are ignored.
func ASCII85Decode(data []byte) ([]byte, error) {
	src := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		b := data[i]
		if b == '~' {
			break
		}
		if b == '<' && i+1 < len(data) && data[i+1] == '~' && len(src) == 0 {
			i++
			continue
		}
		if isWhitespace(b) {
			continue
		}
		if (b < '!' || b > 'u') && b != 'z' {
			return nil, fmt.Errorf("ascii85: invalid character %q at %d", b, i)
		}
		src = append(src, b)
	}

	out := make([]byte, 4*len(src)+4)
	n, _, err := ascii85.Decode(out, src, true)
	if err != nil {
		return nil, fmt.Errorf("ascii85: %w", err)
	}
	return out[:n], nil
}
