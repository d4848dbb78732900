// Package config holds the settings of the lazypdf command line tool.
package config

import (
	"fmt"
	"time"
)

// Config is the complete tool configuration
type Config struct {
	Network  NetworkConfig  `mapstructure:"network"`
	Document DocumentConfig `mapstructure:"document"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// NetworkConfig controls how remote documents are fetched
type NetworkConfig struct {
	RangeChunkSize    int           `mapstructure:"range_chunk_size"`
	DisableAutoFetch  bool          `mapstructure:"disable_auto_fetch"`
	DisableStream     bool          `mapstructure:"disable_stream"`
	DisableRange      bool          `mapstructure:"disable_range"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// DocumentConfig is handed to the document parser untouched
type DocumentConfig struct {
	IgnoreErrors    bool `mapstructure:"ignore_errors"`
	ObjectCacheSize int  `mapstructure:"object_cache_size"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate checks values that cannot be repaired and resets the ones that
// can to their defaults.
func (c *Config) Validate() error {
	if c.Network.RangeChunkSize < 1024 {
		return fmt.Errorf("network.range_chunk_size must be at least 1024, got %d", c.Network.RangeChunkSize)
	}
	if c.Network.Timeout <= 0 {
		c.Network.Timeout = DefaultTimeout
	}
	if c.Network.MaxRetries < 0 {
		c.Network.MaxRetries = DefaultMaxRetries
	}
	if c.Network.RequestsPerSecond <= 0 {
		c.Network.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.Network.Burst <= 0 {
		c.Network.Burst = DefaultBurst
	}
	if c.Document.ObjectCacheSize <= 0 {
		c.Document.ObjectCacheSize = DefaultObjectCacheSize
	}

	switch c.Logging.Format {
	case "pretty", "json":
	default:
		c.Logging.Format = DefaultLogFormat
	}

	return nil
}
