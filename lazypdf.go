// Package lazypdf opens PDF documents from files, memory or URLs and gives
// access to them through an access manager that fetches byte ranges on
// demand.
//
// Basic usage:
//
//	m, err := lazypdf.OpenURL(ctx, "https://example.com/report.pdf")
//	if err != nil {
//	    // handle error
//	}
//	defer m.Terminate(nil)
//
//	page, err := m.Page(ctx, 0)
//
// Documents served with range support and larger than two chunks are read
// range by range; everything else is downloaded first. For the lower-level
// pieces see the manager, document and chunked packages.
package lazypdf

import (
	"context"
	"fmt"
	"os"

	"github.com/tsawler/lazypdf/manager"
	"github.com/tsawler/lazypdf/transport"
)

// Open reads a PDF file and loads it
func Open(filename string, opts ...Option) (manager.Manager, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return OpenBytes(data, opts...)
}

// OpenBytes loads a PDF held in memory
func OpenBytes(data []byte, opts ...Option) (manager.Manager, error) {
	o := newOptions(opts)
	m := manager.NewLocal(data, o.config)
	if err := load(context.Background(), m); err != nil {
		return nil, err
	}
	return m, nil
}

// OpenURL loads a PDF over HTTP. When the server supports range requests
// and the document spans more than two chunks, a network manager is
// returned and, unless WithoutStreaming is given, the whole body is
// streamed in the background as well. Otherwise the body is downloaded and
// served from memory.
func OpenURL(ctx context.Context, rawURL string, opts ...Option) (manager.Manager, error) {
	o := newOptions(opts)
	log := o.logger().WithComponent("lazypdf")

	client, err := transport.NewClient(rawURL, o.clientOptions)
	if err != nil {
		return nil, err
	}

	if !o.disableRanges {
		info, err := client.Probe(ctx)
		if err != nil {
			log.Debug().Err(err).Msg("Probe failed, downloading whole document")
		} else if info.SupportsRanges() && info.Length > 2*int64(o.chunkSize) {
			return openNetwork(ctx, client, info, o)
		}
	}

	data, err := client.Download(ctx)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("bytes", len(data)).Msg("Document downloaded")

	m := manager.NewLocal(data, o.config)
	if err := load(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func openNetwork(ctx context.Context, client *transport.Client, info transport.Info, o *options) (manager.Manager, error) {
	m, err := manager.NewNetwork(ctx, manager.NetworkConfig{
		Config:           o.config,
		URL:              client.URL(),
		Length:           info.Length,
		DisableAutoFetch: o.disableAutoFetch,
		RangeChunkSize:   o.chunkSize,
		Fetcher:          client,
	})
	if err != nil {
		return nil, err
	}

	if !o.disableStreaming {
		log := o.logger().WithComponent("lazypdf")
		go func() {
			// Terminate cancels the context, which closes the body
			err := client.Stream(m.Context(), m.SendProgressiveData)
			if err != nil {
				log.Debug().Err(err).Msg("Progressive download stopped")
			}
		}()
	}

	if err := load(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func load(ctx context.Context, m manager.Manager) error {
	if err := manager.Load(ctx, m); err != nil {
		m.Terminate(err)
		return err
	}
	return nil
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	m := lazypdf.Must(lazypdf.Open("document.pdf"))
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
