package filters

import "errors"

// MaxDecodedSize bounds the output of a single decode
const MaxDecodedSize = 256 << 20

// ErrTooLarge is returned when decoded data would exceed MaxDecodedSize
var ErrTooLarge = errors.New("decoded data exceeds size limit")

// Params are the /DecodeParms entries the decoders understand. Zero values
// mean the entry was absent.
type Params struct {
	Predictor        int
	Colors           int
	BitsPerComponent int
	Columns          int
}

func (p Params) withDefaults() Params {
	if p.Predictor == 0 {
		p.Predictor = 1
	}
	if p.Colors == 0 {
		p.Colors = 1
	}
	if p.BitsPerComponent == 0 {
		p.BitsPerComponent = 8
	}
	if p.Columns == 0 {
		p.Columns = 1
	}
	return p
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == 0
}
