package document

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/lazypdf/chunked"
	"github.com/tsawler/lazypdf/internal/pdftest"
)

func openBytes(t *testing.T, data []byte, opts EvaluatorOptions) *Document {
	t.Helper()

	doc := New(bytes.NewReader(data), int64(len(data)), opts)
	require.NoError(t, doc.CheckHeader())
	require.NoError(t, doc.ParseStartXRef())
	require.NoError(t, doc.Parse(nil))
	return doc
}

// untilResident runs op, loading the chunks of every fault it reports, and
// returns the number of faults seen before op succeeded.
func untilResident(t *testing.T, s *chunked.Stream, data []byte, op func() error) int {
	t.Helper()

	faults := 0
	for {
		err := op()
		missing, ok := chunked.AsMissingData(err)
		if !ok {
			require.NoError(t, err)
			return faults
		}
		require.Less(t, missing.Begin, missing.End)
		require.False(t, s.HasRange(missing.Begin, missing.End), "fault for resident range %v", missing)

		first, last := s.ChunksFor(missing.Begin, missing.End)
		begin, end := s.ChunkBounds(first, last)
		require.NoError(t, s.OnReceiveData(begin, data[begin:end]))

		faults++
		require.Less(t, faults, 1000, "faults do not converge")
	}
}

func TestDocument_OpenSimple(t *testing.T) {
	doc := openBytes(t, pdftest.SimpleDocument(3, 0), DefaultEvaluatorOptions())

	assert.Equal(t, "1.7", doc.Version())

	offset, ok := doc.StartXRef()
	assert.True(t, ok)
	assert.Greater(t, offset, int64(0))

	n, err := doc.NumPages()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	catalog, err := doc.Catalog()
	require.NoError(t, err)
	assert.Equal(t, "Catalog", catalog.Type())

	page, err := doc.Page(2)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Index)
	require.NotNil(t, page.Ref)
	assert.Equal(t, 6, page.Ref.Number)
	assert.Equal(t, LetterSize, page.MediaBox)
	assert.Equal(t, page.MediaBox, page.CropBox)
	assert.Equal(t, 612.0, page.Width())
	assert.Equal(t, 792.0, page.Height())
}

func TestDocument_NotParsed(t *testing.T) {
	data := pdftest.SimpleDocument(1, 0)
	doc := New(bytes.NewReader(data), int64(len(data)), EvaluatorOptions{})

	_, err := doc.Catalog()
	assert.ErrorIs(t, err, ErrNotParsed)
	_, err = doc.NumPages()
	assert.ErrorIs(t, err, ErrNotParsed)
	_, err = doc.Info()
	assert.ErrorIs(t, err, ErrNotParsed)
}

func TestDocument_PageOutOfRange(t *testing.T) {
	doc := openBytes(t, pdftest.SimpleDocument(2, 0), DefaultEvaluatorOptions())

	for _, index := range []int{-1, 2, 100} {
		_, err := doc.Page(index)
		assert.ErrorIs(t, err, ErrPageOutOfRange, "index %d", index)
	}
}

func TestDocument_MissingHeaderTolerated(t *testing.T) {
	data := pdftest.SimpleDocument(1, 0)
	data = bytes.Replace(data, []byte("%PDF-1.7"), []byte("%XXX-1.7"), 1)

	doc := New(bytes.NewReader(data), int64(len(data)), DefaultEvaluatorOptions())
	require.NoError(t, doc.CheckHeader())
	assert.Equal(t, "", doc.Version())
}

func TestDocument_Info(t *testing.T) {
	doc := openBytes(t, pdftest.SimpleDocument(1, 0), DefaultEvaluatorOptions())

	info, err := doc.Info()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Title":    "Test Document",
		"Producer": "pdftest",
	}, info)
}

func TestDocument_InfoUTF16(t *testing.T) {
	data := pdftest.New().
		Trailer("/Root 1 0 R /Info 3 0 R").
		Object(1, "<< /Type /Catalog /Pages 2 0 R >>").
		Object(2, "<< /Type /Pages /Kids [] /Count 0 >>").
		Object(3, "<< /Title <FEFF00480069> /Pages 3 >>").
		Bytes()

	info, err := openBytes(t, data, DefaultEvaluatorOptions()).Info()
	require.NoError(t, err)
	assert.Equal(t, "Hi", info["Title"])
	assert.Equal(t, "3", info["Pages"])
}

func TestDocument_NoInfo(t *testing.T) {
	data := pdftest.New().
		Object(1, "<< /Type /Catalog /Pages 2 0 R >>").
		Object(2, "<< /Type /Pages /Kids [] /Count 0 >>").
		Bytes()

	info, err := openBytes(t, data, DefaultEvaluatorOptions()).Info()
	require.NoError(t, err)
	assert.Empty(t, info)
}

func TestDocument_Fingerprint(t *testing.T) {
	t.Run("from ID", func(t *testing.T) {
		data := pdftest.New().
			Trailer("/Root 1 0 R /ID [<0123456789ABCDEF> <00>]").
			Object(1, "<< /Type /Catalog /Pages 2 0 R >>").
			Object(2, "<< /Type /Pages /Kids [] /Count 0 >>").
			Bytes()

		fp, err := openBytes(t, data, DefaultEvaluatorOptions()).Fingerprint()
		require.NoError(t, err)
		assert.Equal(t, "0123456789abcdef", fp)
	})

	t.Run("hashed prefix", func(t *testing.T) {
		data := pdftest.SimpleDocument(1, 0)
		doc := openBytes(t, data, DefaultEvaluatorOptions())

		fp, err := doc.Fingerprint()
		require.NoError(t, err)
		assert.Len(t, fp, 16)

		again, err := doc.Fingerprint()
		require.NoError(t, err)
		assert.Equal(t, fp, again)

		other, err := openBytes(t, pdftest.SimpleDocument(2, 0), DefaultEvaluatorOptions()).Fingerprint()
		require.NoError(t, err)
		assert.NotEqual(t, fp, other)
	})
}

func TestDocument_Cleanup(t *testing.T) {
	doc := openBytes(t, pdftest.SimpleDocument(2, 0), DefaultEvaluatorOptions())

	_, err := doc.Page(1)
	require.NoError(t, err)
	xref, err := doc.XRef()
	require.NoError(t, err)
	assert.Greater(t, xref.CacheLen(), 0)

	doc.Cleanup()
	assert.Equal(t, 0, xref.CacheLen())

	page, err := doc.Page(1)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Index)
}

func TestDocument_XRefStream(t *testing.T) {
	data := pdftest.New().
		Trailer("/Root 1 0 R").
		Object(1, "<< /Type /Catalog /Pages 2 0 R >>").
		Object(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>").
		Object(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 100] /Rotate -90 >>").
		BytesWithXRefStream()

	page, err := openBytes(t, data, DefaultEvaluatorOptions()).Page(0)
	require.NoError(t, err)
	assert.Equal(t, Rect{0, 0, 200, 100}, page.MediaBox)
	assert.Equal(t, 270, page.Rotate)
}

func TestDocument_FaultsOnPartialData(t *testing.T) {
	data := pdftest.SimpleDocument(4, 10000)
	s := chunked.NewStream(int64(len(data)), 1024)
	doc := New(s, s.Length(), DefaultEvaluatorOptions())

	var faults int
	faults += untilResident(t, s, data, doc.CheckHeader)
	faults += untilResident(t, s, data, doc.ParseStartXRef)
	faults += untilResident(t, s, data, func() error { return doc.Parse(nil) })
	assert.Greater(t, faults, 0)

	var pages int
	untilResident(t, s, data, func() error {
		var err error
		pages, err = doc.NumPages()
		return err
	})
	assert.Equal(t, 4, pages)

	var page *Page
	untilResident(t, s, data, func() error {
		var err error
		page, err = doc.Page(3)
		return err
	})
	assert.Equal(t, 3, page.Index)
	assert.False(t, s.IsComplete(), "page lookup should not need the whole file")

	var info map[string]string
	untilResident(t, s, data, func() error {
		var err error
		info, err = doc.Info()
		return err
	})
	assert.Equal(t, "Test Document", info["Title"])
}

func TestDocument_FaultPreferredOverParseError(t *testing.T) {
	data := pdftest.SimpleDocument(1, 0)
	s := chunked.NewStream(int64(len(data)), 16)
	doc := New(s, s.Length(), DefaultEvaluatorOptions())

	err := doc.ParseStartXRef()
	missing, ok := chunked.AsMissingData(err)
	require.True(t, ok, "got %v", err)
	assert.LessOrEqual(t, missing.End, s.Length())

	_, err = doc.Catalog()
	assert.True(t, errors.Is(err, ErrNotParsed))
}
