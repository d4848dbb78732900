package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/lazypdf/internal/pdftest"
)

// nestedTree has pages a b | c | d e spread over three intermediate nodes
func nestedTree() *pdftest.Builder {
	return pdftest.New().
		Object(1, "<< /Type /Catalog /Pages 2 0 R /Version /2.0 >>").
		Object(2, "<< /Type /Pages /Kids [3 0 R 4 0 R 5 0 R] /Count 5 /MediaBox [0 0 500 500] /Rotate 90 >>").
		Object(3, "<< /Type /Pages /Parent 2 0 R /Kids [6 0 R 7 0 R] /Count 2 /CropBox [10 10 490 490] >>").
		Object(4, "<< /Type /Pages /Parent 2 0 R /Kids [8 0 R] /Count 1 /MediaBox [0 0 300 400] >>").
		Object(5, "<< /Type /Pages /Parent 2 0 R /Kids [9 0 R 10 0 R] /Count 2 /Resources 11 0 R >>").
		Object(6, "<< /Type /Page /Parent 3 0 R /Title (a) >>").
		Object(7, "<< /Type /Page /Parent 3 0 R /Rotate 0 /Title (b) >>").
		Object(8, "<< /Type /Page /Parent 4 0 R /Title (c) >>").
		Object(9, "<< /Type /Page /Parent 5 0 R /Title (d) >>").
		Object(10, "<< /Type /Page /Parent 5 0 R /MediaBox [612 792 0 0] /Title (e) >>").
		Object(11, "<< /Font << >> >>")
}

func TestCatalog_NestedPages(t *testing.T) {
	doc := openBytes(t, nestedTree().Bytes(), DefaultEvaluatorOptions())

	catalog, err := doc.Catalog()
	require.NoError(t, err)
	assert.Equal(t, "2.0", catalog.Version())

	n, err := catalog.NumPages()
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	tests := []struct {
		index    int
		title    string
		mediaBox Rect
		cropBox  Rect
		rotate   int
	}{
		{0, "a", Rect{0, 0, 500, 500}, Rect{10, 10, 490, 490}, 90},
		{1, "b", Rect{0, 0, 500, 500}, Rect{10, 10, 490, 490}, 0},
		{2, "c", Rect{0, 0, 300, 400}, Rect{0, 0, 300, 400}, 90},
		{3, "d", Rect{0, 0, 500, 500}, Rect{0, 0, 500, 500}, 90},
		{4, "e", Rect{0, 0, 612, 792}, Rect{0, 0, 612, 792}, 90},
	}
	for _, tt := range tests {
		page, err := catalog.Page(tt.index)
		require.NoError(t, err, "page %d", tt.index)

		title, _ := page.Dict.GetString("Title")
		assert.Equal(t, tt.title, string(title), "page %d", tt.index)
		assert.Equal(t, tt.mediaBox, page.MediaBox, "page %d", tt.index)
		assert.Equal(t, tt.cropBox, page.CropBox, "page %d", tt.index)
		assert.Equal(t, tt.rotate, page.Rotate, "page %d", tt.index)
	}

	page, err := catalog.Page(3)
	require.NoError(t, err)
	assert.NotNil(t, page.Resources)
}

func TestCatalog_PageIsCached(t *testing.T) {
	doc := openBytes(t, nestedTree().Bytes(), DefaultEvaluatorOptions())
	catalog, err := doc.Catalog()
	require.NoError(t, err)

	first, err := catalog.Page(2)
	require.NoError(t, err)
	second, err := catalog.Page(2)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func brokenTree() []byte {
	return pdftest.New().
		Object(1, "<< /Type /Catalog /Pages 2 0 R >>").
		Object(2, "<< /Type /Pages /Kids [3 0 R 4 0 R 5 0 R] >>").
		Object(3, "<< /Type /Page /Title (a) >>").
		Object(4, "(not a dictionary)").
		Object(5, "<< /Type /Page /Title (b) >>").
		Bytes()
}

func TestCatalog_BrokenTreeFails(t *testing.T) {
	doc := openBytes(t, brokenTree(), DefaultEvaluatorOptions())

	_, err := doc.NumPages()
	assert.Error(t, err)
}

func TestCatalog_IgnoreErrorsSkipsBrokenKids(t *testing.T) {
	doc := openBytes(t, brokenTree(), EvaluatorOptions{IgnoreErrors: true})

	n, err := doc.NumPages()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	page, err := doc.Page(1)
	require.NoError(t, err)
	title, _ := page.Dict.GetString("Title")
	assert.Equal(t, "b", string(title))
}

func TestCatalog_Cycle(t *testing.T) {
	data := pdftest.New().
		Object(1, "<< /Type /Catalog /Pages 2 0 R >>").
		Object(2, "<< /Type /Pages /Kids [3 0 R] /Count 2 >>").
		Object(3, "<< /Type /Pages /Kids [3 0 R 4 0 R] /Count 2 >>").
		Object(4, "<< /Type /Page >>").
		Bytes()

	doc := openBytes(t, data, DefaultEvaluatorOptions())
	_, err := doc.Page(1)
	assert.Error(t, err)
}

func TestRect_Normalize(t *testing.T) {
	assert.Equal(t, Rect{0, 0, 10, 20}, Rect{10, 20, 0, 0}.Normalize())
	assert.Equal(t, 10.0, Rect{0, 0, 10, 20}.Width())
	assert.Equal(t, 20.0, Rect{0, 0, 10, 20}.Height())
}
