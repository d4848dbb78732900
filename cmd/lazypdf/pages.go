package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tsawler/lazypdf/document"
	"github.com/tsawler/lazypdf/manager"
)

var pagesCmd = &cobra.Command{
	Use:   "pages <file|url>",
	Short: "List page sizes and rotation",
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

		first, _ := cmd.Flags().GetInt("first")
		last, _ := cmd.Flags().GetInt("last")
		return printPages(ctx, cmd.OutOrStdout(), m, first, last)
	},
}

func init() {
	pagesCmd.Flags().Int("first", 1, "First page to list (1-based)")
	pagesCmd.Flags().Int("last", 0, "Last page to list (0 = last page of the document)")
}

func printPages(ctx context.Context, w io.Writer, m manager.Manager, first, last int) error {
	n, err := manager.EnsureDocument(ctx, m, func(d *document.Document) (int, error) {
		return d.NumPages()
	})
	if err != nil {
		return err
	}

	if first < 1 {
		first = 1
	}
	if last <= 0 || last > n {
		last = n
	}

	for i := first; i <= last; i++ {
		page, err := m.Page(ctx, i-1)
		if err != nil {
			return fmt.Errorf("page %d: %w", i, err)
		}
		fmt.Fprintf(w, "%4d  %7.1f x %-7.1f  rotate %3d  media %v\n",
			i, page.Width(), page.Height(), page.Rotate, [4]float64(page.MediaBox))
	}
	return nil
}
