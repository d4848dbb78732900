package lazypdf

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/lazypdf/document"
	"github.com/tsawler/lazypdf/internal/pdftest"
	"github.com/tsawler/lazypdf/manager"
	"github.com/tsawler/lazypdf/transport"
)

func fastClient() transport.ClientOptions {
	return transport.ClientOptions{
		MaxRetries:        1,
		RequestsPerSecond: 1000,
		Burst:             100,
		Retrier: transport.RetrierOptions{
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
			Multiplier:      2,
		},
	}
}

// pdfServer serves data with range support and counts range requests
func pdfServer(t *testing.T, data []byte, ranges bool) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var rangeRequests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ranges {
			r.Header.Del("Range")
			w.Header().Set("Content-Type", "application/pdf")
			if r.Method == http.MethodHead {
				return
			}
			_, _ = w.Write(data)
			return
		}
		if r.Header.Get("Range") != "" {
			rangeRequests.Add(1)
		}
		http.ServeContent(w, r, "doc.pdf", time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(server.Close)
	return server, &rangeRequests
}

func numPages(t *testing.T, m manager.Manager) int {
	t.Helper()

	n, err := manager.EnsureDocument(context.Background(), m, func(d *document.Document) (int, error) {
		return d.NumPages()
	})
	require.NoError(t, err)
	return n
}

func TestOpenBytes(t *testing.T) {
	m, err := OpenBytes(pdftest.SimpleDocument(4, 0), WithDocID("bytes"), WithPassword("pw"))
	require.NoError(t, err)
	defer m.Terminate(nil)

	assert.IsType(t, &manager.LocalManager{}, m)
	assert.Equal(t, "bytes", m.DocID())
	assert.Equal(t, []byte("pw"), m.Password())
	assert.Equal(t, 4, numPages(t, m))
}

func TestOpenBytes_Invalid(t *testing.T) {
	_, err := OpenBytes([]byte("definitely not a pdf"))
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, pdftest.SimpleDocument(2, 0), 0o644))

	m, err := Open(path, WithDocBaseURL("https://example.com/doc.pdf"))
	require.NoError(t, err)
	defer m.Terminate(nil)

	assert.Equal(t, 2, numPages(t, m))
	require.NotNil(t, m.DocBaseURL())
	assert.Equal(t, "example.com", m.DocBaseURL().Host)

	_, err = Open(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

func TestOpenURL_RangeRequests(t *testing.T) {
	data := pdftest.SimpleDocument(3, 10000)
	server, rangeRequests := pdfServer(t, data, true)

	m, err := OpenURL(context.Background(), server.URL+"/doc.pdf",
		WithChunkSize(1024),
		WithoutAutoFetch(),
		WithoutStreaming(),
		WithClientOptions(fastClient()),
	)
	require.NoError(t, err)
	defer m.Terminate(nil)

	nm, ok := m.(*manager.NetworkManager)
	require.True(t, ok, "got %T", m)
	assert.Equal(t, 3, numPages(t, m))
	assert.Greater(t, rangeRequests.Load(), int32(0))
	assert.False(t, nm.Stream().IsComplete())

	page, err := m.Page(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Index)
}

func TestOpenURL_Streaming(t *testing.T) {
	data := pdftest.SimpleDocument(3, 10000)
	server, _ := pdfServer(t, data, true)

	m, err := OpenURL(context.Background(), server.URL+"/doc.pdf",
		WithChunkSize(1024),
		WithClientOptions(fastClient()),
	)
	require.NoError(t, err)
	defer m.Terminate(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	loaded, err := m.LoadedStream(ctx)
	require.NoError(t, err)
	assert.Equal(t, data, loaded)
}

func TestOpenURL_TerminateStopsStreaming(t *testing.T) {
	data := pdftest.SimpleDocument(3, 10000)
	started := make(chan struct{})
	closed := make(chan struct{})

	// ranges are served normally; the full GET stalls after its first bytes
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead || r.Header.Get("Range") != "" {
			http.ServeContent(w, r, "doc.pdf", time.Time{}, bytes.NewReader(data))
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data[:100])
		w.(http.Flusher).Flush()
		close(started)

		<-r.Context().Done()
		close(closed)
	}))
	defer server.Close()

	m, err := OpenURL(context.Background(), server.URL+"/doc.pdf",
		WithChunkSize(1024),
		WithoutAutoFetch(),
		WithClientOptions(fastClient()),
	)
	require.NoError(t, err)
	require.IsType(t, &manager.NetworkManager{}, m)

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("streaming GET never started")
	}

	m.Terminate(nil)

	select {
	case <-closed:
	case <-time.After(3 * time.Second):
		t.Fatal("streaming GET still open after Terminate")
	}
}

func TestOpenURL_SmallDocumentDownloaded(t *testing.T) {
	data := pdftest.SimpleDocument(1, 0)
	server, rangeRequests := pdfServer(t, data, true)

	m, err := OpenURL(context.Background(), server.URL+"/doc.pdf", WithClientOptions(fastClient()))
	require.NoError(t, err)
	defer m.Terminate(nil)

	assert.IsType(t, &manager.LocalManager{}, m)
	assert.Equal(t, int32(0), rangeRequests.Load())
	assert.Equal(t, 1, numPages(t, m))
}

func TestOpenURL_NoRangeSupport(t *testing.T) {
	data := pdftest.SimpleDocument(3, 10000)
	server, _ := pdfServer(t, data, false)

	m, err := OpenURL(context.Background(), server.URL+"/doc.pdf",
		WithChunkSize(1024),
		WithClientOptions(fastClient()),
	)
	require.NoError(t, err)
	defer m.Terminate(nil)

	assert.IsType(t, &manager.LocalManager{}, m)
	assert.Equal(t, 3, numPages(t, m))
}

func TestOpenURL_InvalidURL(t *testing.T) {
	_, err := OpenURL(context.Background(), "not a url")
	assert.ErrorIs(t, err, transport.ErrInvalidURL)
}

func TestMust(t *testing.T) {
	assert.Equal(t, 3, Must(3, nil))
	assert.Panics(t, func() { Must(0, assert.AnError) })
}
