package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tsawler/lazypdf/document"
	"github.com/tsawler/lazypdf/manager"
)

var infoCmd = &cobra.Command{
	Use:   "info <file|url>",
	Short: "Show version, page count, metadata and fingerprint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		m, err := open(ctx, cfg, args[0])
		if err != nil {
			return err
		}
		defer m.Terminate(nil)

		return printInfo(ctx, cmd.OutOrStdout(), m)
	},
}

type docSummary struct {
	version     string
	numPages    int
	fingerprint string
	info        map[string]string
}

func printInfo(ctx context.Context, w io.Writer, m manager.Manager) error {
	summary, err := manager.EnsureDocument(ctx, m, func(d *document.Document) (docSummary, error) {
		var s docSummary
		var err error

		s.version = d.Version()
		if catalog, err := d.Catalog(); err != nil {
			return s, err
		} else if v := catalog.Version(); v > s.version {
			s.version = v
		}
		if s.numPages, err = d.NumPages(); err != nil {
			return s, err
		}
		if s.fingerprint, err = d.Fingerprint(); err != nil {
			return s, err
		}
		if s.info, err = d.Info(); err != nil {
			return s, err
		}
		return s, nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Document ID:  %s\n", m.DocID())
	fmt.Fprintf(w, "PDF version:  %s\n", summary.version)
	fmt.Fprintf(w, "Pages:        %d\n", summary.numPages)
	fmt.Fprintf(w, "Fingerprint:  %s\n", summary.fingerprint)
	if u := m.DocBaseURL(); u != nil {
		fmt.Fprintf(w, "Base URL:     %s\n", u)
	}

	keys := make([]string, 0, len(summary.info))
	for key := range summary.info {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(w, "%-13s %s\n", key+":", summary.info[key])
	}

	if nm, ok := m.(*manager.NetworkManager); ok {
		s := nm.Stream()
		fmt.Fprintf(w, "Resident:     %d of %d chunks (%d bytes each)\n", s.NumLoadedChunks(), s.NumChunks(), s.ChunkSize())
	}
	return nil
}
