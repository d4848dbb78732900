package filters

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
)

// FlateDecode inflates zlib data and undoes the predictor named in p. A
// stream that ends early still yields the bytes inflated so far, as many
// producers write truncated streams.
func FlateDecode(data []byte, p Params) ([]byte, error) {
	out, err := inflate(data)
	if err != nil {
		return nil, err
	}

	p = p.withDefaults()
	switch {
	case p.Predictor == 1:
		return out, nil
	case p.Predictor == 2:
		return unpredictTIFF(out, p)
	case p.Predictor >= 10 && p.Predictor <= 15:
		return unpredictPNG(out, p)
	}
	return nil, fmt.Errorf("unsupported predictor: %d", p.Predictor)
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	defer zr.Close()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(zr, MaxDecodedSize+1))
	if n > MaxDecodedSize {
		return nil, ErrTooLarge
	}
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) && buf.Len() > 0 {
			return buf.Bytes(), nil
		}
		return nil, fmt.Errorf("zlib: %w", err)
	}
	return buf.Bytes(), nil
}

// rowGeometry returns the bytes per pixel (at least one) and per row
func rowGeometry(p Params) (bpp, rowLen int) {
	bitsPerPixel := p.Colors * p.BitsPerComponent
	bpp = (bitsPerPixel + 7) / 8
	if bpp < 1 {
		bpp = 1
	}
	rowLen = (bitsPerPixel*p.Columns + 7) / 8
	return bpp, rowLen
}

// unpredictPNG reverses PNG row filters. Every row carries its own filter
// type byte, so predictors 10 to 15 all decode the same way.
func unpredictPNG(data []byte, p Params) ([]byte, error) {
	bpp, rowLen := rowGeometry(p)
	if rowLen == 0 {
		return nil, fmt.Errorf("png predictor: empty rows")
	}
	stride := rowLen + 1
	if len(data)%stride != 0 {
		// a short final row is dropped
		data = data[:len(data)-len(data)%stride]
	}

	out := make([]byte, 0, len(data)/stride*rowLen)
	prev := make([]byte, rowLen)
	for off := 0; off < len(data); off += stride {
		filter := data[off]
		cur := append([]byte(nil), data[off+1:off+stride]...)

		switch filter {
		case 0:
		case 1:
			for i := bpp; i < rowLen; i++ {
				cur[i] += cur[i-bpp]
			}
		case 2:
			for i := range cur {
				cur[i] += prev[i]
			}
		case 3:
			for i := range cur {
				var left byte
				if i >= bpp {
					left = cur[i-bpp]
				}
				cur[i] += byte((int(left) + int(prev[i])) / 2)
			}
		case 4:
			for i := range cur {
				var left, upLeft byte
				if i >= bpp {
					left, upLeft = cur[i-bpp], prev[i-bpp]
				}
				cur[i] += paeth(left, prev[i], upLeft)
			}
		default:
			return nil, fmt.Errorf("png predictor: invalid filter type %d in row %d", filter, off/stride)
		}

		out = append(out, cur...)
		prev = cur
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// unpredictTIFF reverses TIFF predictor 2 for 8 bit components
func unpredictTIFF(data []byte, p Params) ([]byte, error) {
	if p.BitsPerComponent != 8 {
		return nil, fmt.Errorf("tiff predictor: %d bits per component not supported", p.BitsPerComponent)
	}
	_, rowLen := rowGeometry(p)

	out := append([]byte(nil), data...)
	for row := 0; row+rowLen <= len(out); row += rowLen {
		for i := row + p.Colors; i < row+rowLen; i++ {
			out[i] += out[i-p.Colors]
		}
	}
	return out, nil
}
