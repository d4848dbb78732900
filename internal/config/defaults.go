package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default values
const (
	// Network defaults
	DefaultRangeChunkSize    = 65536
	DefaultDisableAutoFetch  = false
	DefaultDisableStream     = false
	DefaultDisableRange      = false
	DefaultTimeout           = 30 * time.Second
	DefaultMaxRetries        = 3
	DefaultRequestsPerSecond = 20.0
	DefaultBurst             = 10

	// Document defaults
	DefaultIgnoreErrors    = false
	DefaultObjectCacheSize = 1024

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "pretty"
)

// ConfigDir returns the config directory path
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lazypdf"
	}
	return filepath.Join(home, ".lazypdf")
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Network: NetworkConfig{
			RangeChunkSize:    DefaultRangeChunkSize,
			DisableAutoFetch:  DefaultDisableAutoFetch,
			DisableStream:     DefaultDisableStream,
			DisableRange:      DefaultDisableRange,
			Timeout:           DefaultTimeout,
			MaxRetries:        DefaultMaxRetries,
			RequestsPerSecond: DefaultRequestsPerSecond,
			Burst:             DefaultBurst,
		},
		Document: DocumentConfig{
			IgnoreErrors:    DefaultIgnoreErrors,
			ObjectCacheSize: DefaultObjectCacheSize,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
