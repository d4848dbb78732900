package filters

import (
	"bytes"
	"compress/zlib"
	"testing"
)

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFlateDecode(t *testing.T) {
	plain := bytes.Repeat([]byte("partial content "), 64)
	got, err := FlateDecode(deflate(t, plain), Params{})
	if err != nil {
		t.Fatalf("FlateDecode: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("got %d bytes, want %d", len(got), len(plain))
	}
}

func TestFlateDecodeTruncated(t *testing.T) {
	plain := bytes.Repeat([]byte("0123456789"), 500)
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.NoCompression)
	if err != nil {
		t.Fatal(err)
	}
	w.Write(plain)
	w.Close()
	z := buf.Bytes()

	got, err := FlateDecode(z[:len(z)-100], Params{})
	if err != nil {
		t.Fatalf("FlateDecode truncated: %v", err)
	}
	if len(got) == 0 || !bytes.HasPrefix(plain, got) {
		t.Errorf("truncated output is not a prefix of the input")
	}
}

func TestFlateDecodeInvalid(t *testing.T) {
	if _, err := FlateDecode([]byte("not zlib"), Params{}); err == nil {
		t.Error("expected error for invalid zlib data")
	}
	if _, err := FlateDecode(deflate(t, []byte{0}), Params{Predictor: 7}); err == nil {
		t.Error("expected error for unknown predictor")
	}
}

func TestPNGPredictors(t *testing.T) {
	// two rows of three bytes each, one byte per pixel
	prev := []byte{10, 20, 30}
	want := append(append([]byte{}, prev...), 15, 25, 40)

	tests := []struct {
		name string
		row  []byte
	}{
		{"none", []byte{0, 15, 25, 40}},
		{"sub", []byte{1, 15, 10, 15}},
		{"up", []byte{2, 5, 5, 10}},
		{"average", []byte{3, 10, 8, 13}},
		{"paeth", []byte{4, 5, 5, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := append([]byte{0, 10, 20, 30}, tt.row...)
			got, err := unpredictPNG(raw, Params{Predictor: 12, Colors: 1, BitsPerComponent: 8, Columns: 3}.withDefaults())
			if err != nil {
				t.Fatalf("unpredictPNG: %v", err)
			}
			if !bytes.Equal(got, want) {
				t.Errorf("got %v, want %v", got, want)
			}
		})
	}
}

func TestPNGPredictorXRefStreamRows(t *testing.T) {
	// Columns 4 with the up filter, as written by most xref stream producers
	raw := []byte{
		2, 1, 0, 0, 15,
		2, 0, 0, 1, 3,
	}
	got, err := FlateDecode(deflate(t, raw), Params{Predictor: 12, Columns: 4})
	if err != nil {
		t.Fatalf("FlateDecode: %v", err)
	}
	want := []byte{1, 0, 0, 15, 1, 0, 1, 18}
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPNGPredictorBadFilter(t *testing.T) {
	if _, err := unpredictPNG([]byte{9, 1, 2}, Params{Columns: 2}.withDefaults()); err == nil {
		t.Error("expected error for invalid row filter")
	}
}

func TestPNGPredictorShortRowDropped(t *testing.T) {
	got, err := unpredictPNG([]byte{0, 1, 2, 0, 3}, Params{Columns: 2}.withDefaults())
	if err != nil {
		t.Fatalf("unpredictPNG: %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2}) {
		t.Errorf("got %v", got)
	}
}

func TestTIFFPredictor(t *testing.T) {
	raw := []byte{10, 1, 1, 20, 2, 2}
	got, err := unpredictTIFF(raw, Params{Predictor: 2, Colors: 1, BitsPerComponent: 8, Columns: 3})
	if err != nil {
		t.Fatalf("unpredictTIFF: %v", err)
	}
	want := []byte{10, 11, 12, 20, 22, 24}
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if _, err := unpredictTIFF(raw, Params{Colors: 1, BitsPerComponent: 4, Columns: 3}); err == nil {
		t.Error("expected error for 4 bit components")
	}
}

func TestRowGeometry(t *testing.T) {
	tests := []struct {
		p           Params
		bpp, rowLen int
	}{
		{Params{Colors: 1, BitsPerComponent: 8, Columns: 5}, 1, 5},
		{Params{Colors: 3, BitsPerComponent: 8, Columns: 2}, 3, 6},
		{Params{Colors: 1, BitsPerComponent: 1, Columns: 10}, 1, 2},
		{Params{Colors: 4, BitsPerComponent: 16, Columns: 1}, 8, 8},
	}
	for _, tt := range tests {
		bpp, rowLen := rowGeometry(tt.p)
		if bpp != tt.bpp || rowLen != tt.rowLen {
			t.Errorf("rowGeometry(%+v) = %d, %d; want %d, %d", tt.p, bpp, rowLen, tt.bpp, tt.rowLen)
		}
	}
}
