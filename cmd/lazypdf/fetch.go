package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tsawler/lazypdf"
	"github.com/tsawler/lazypdf/manager"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Download a document through the range manager",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		if !isURL(args[0]) {
			return fmt.Errorf("not an http(s) URL: %s", args[0])
		}
		output, _ := cmd.Flags().GetString("output")

		ctx, cancel := signalContext()
		defer cancel()

		m, err := lazypdf.OpenURL(ctx, args[0], openOptions(cfg)...)
		if err != nil {
			return err
		}
		defer m.Terminate(nil)

		n, err := fetchTo(ctx, m, output)
		if err != nil {
			return err
		}
		log.Info().Str("output", output).Int("bytes", n).Msg("Document saved")
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringP("output", "o", "document.pdf", "Output file")
}

// fetchTo waits for the whole document and writes it to path
func fetchTo(ctx context.Context, m manager.Manager, path string) (int, error) {
	m.RequestFullStream()
	data, err := m.LoadedStream(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load document: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return len(data), nil
}
