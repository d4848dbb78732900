package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tsawler/lazypdf"
	"github.com/tsawler/lazypdf/document"
	"github.com/tsawler/lazypdf/internal/config"
	"github.com/tsawler/lazypdf/internal/logger"
	"github.com/tsawler/lazypdf/manager"
	"github.com/tsawler/lazypdf/transport"
)

var (
	cfgFile  string
	password string
	verbose  bool
	log      *logger.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lazypdf",
	Short: "Inspect PDF files, local or remote, reading only what is needed",
	Long: `lazypdf opens PDF documents from disk or over HTTP. Remote documents
served with range support are read range by range, so looking at the page
count or a single page of a large file does not download all of it.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.lazypdf/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&password, "password", "p", "", "Password for encrypted documents")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().Int("chunk-size", config.DefaultRangeChunkSize, "Range request size in bytes")
	rootCmd.PersistentFlags().Bool("no-auto-fetch", false, "Only fetch ranges that are needed")
	rootCmd.PersistentFlags().Bool("no-stream", false, "Do not stream the whole document in the background")
	rootCmd.PersistentFlags().Bool("no-range", false, "Download remote documents whole")
	rootCmd.PersistentFlags().Duration("timeout", config.DefaultTimeout, "Request timeout")
	rootCmd.PersistentFlags().Bool("ignore-errors", false, "Skip broken parts of the page tree")

	_ = viper.BindPFlag("network.range_chunk_size", rootCmd.PersistentFlags().Lookup("chunk-size"))
	_ = viper.BindPFlag("network.disable_auto_fetch", rootCmd.PersistentFlags().Lookup("no-auto-fetch"))
	_ = viper.BindPFlag("network.disable_stream", rootCmd.PersistentFlags().Lookup("no-stream"))
	_ = viper.BindPFlag("network.disable_range", rootCmd.PersistentFlags().Lookup("no-range"))
	_ = viper.BindPFlag("network.timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	_ = viper.BindPFlag("document.ignore_errors", rootCmd.PersistentFlags().Lookup("ignore-errors"))

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(pagesCmd)
	rootCmd.AddCommand(fetchCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// setup loads the configuration and the logger
func setup() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	log = logger.New(logger.LoggerOptions{
		Level:  level,
		Format: cfg.Logging.Format,
	})
	return cfg, nil
}

// signalContext is canceled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func openOptions(cfg *config.Config) []lazypdf.Option {
	opts := []lazypdf.Option{
		lazypdf.WithLogger(log.Logger),
		lazypdf.WithChunkSize(cfg.Network.RangeChunkSize),
		lazypdf.WithEvaluatorOptions(document.EvaluatorOptions{
			IgnoreErrors:    cfg.Document.IgnoreErrors,
			ObjectCacheSize: cfg.Document.ObjectCacheSize,
		}),
		lazypdf.WithClientOptions(transport.ClientOptions{
			Timeout:           cfg.Network.Timeout,
			MaxRetries:        cfg.Network.MaxRetries,
			RequestsPerSecond: cfg.Network.RequestsPerSecond,
			Burst:             cfg.Network.Burst,
			Logger:            log,
		}),
	}
	if password != "" {
		opts = append(opts, lazypdf.WithPassword(password))
	}
	if cfg.Network.DisableAutoFetch {
		opts = append(opts, lazypdf.WithoutAutoFetch())
	}
	if cfg.Network.DisableStream {
		opts = append(opts, lazypdf.WithoutStreaming())
	}
	if cfg.Network.DisableRange {
		opts = append(opts, lazypdf.WithoutRanges())
	}
	return opts
}

func isURL(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}

// open opens target as a URL or a file path
func open(ctx context.Context, cfg *config.Config, target string) (manager.Manager, error) {
	opts := openOptions(cfg)
	if isURL(target) {
		return lazypdf.OpenURL(ctx, target, append(opts, lazypdf.WithDocBaseURL(target))...)
	}
	return lazypdf.Open(target, opts...)
}
