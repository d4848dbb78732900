package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/lazypdf"
	"github.com/tsawler/lazypdf/internal/pdftest"
)

func TestPrintInfo(t *testing.T) {
	m, err := lazypdf.OpenBytes(pdftest.SimpleDocument(3, 0), lazypdf.WithDocID("doc-7"))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, printInfo(context.Background(), &out, m))

	text := out.String()
	assert.Contains(t, text, "Document ID:  doc-7")
	assert.Contains(t, text, "PDF version:  1.7")
	assert.Contains(t, text, "Pages:        3")
	assert.Contains(t, text, "Title:        Test Document")
	assert.Contains(t, text, "Producer:     pdftest")
	assert.NotContains(t, text, "Resident:")
}

func TestPrintPages(t *testing.T) {
	m, err := lazypdf.OpenBytes(pdftest.SimpleDocument(3, 0))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, printPages(context.Background(), &out, m, 2, 0))

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), "612.0 x 792.0")
}

func TestFetchTo(t *testing.T) {
	data := pdftest.SimpleDocument(1, 0)
	m, err := lazypdf.OpenBytes(data)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.pdf")
	n, err := fetchTo(context.Background(), m, path)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, written)
}

func TestIsURL(t *testing.T) {
	assert.True(t, isURL("https://example.com/a.pdf"))
	assert.True(t, isURL("http://example.com/a.pdf"))
	assert.False(t, isURL("/tmp/a.pdf"))
	assert.False(t, isURL("ftp://example.com/a.pdf"))
}
