package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from file, environment, and defaults into v.
// Flags bound to v by the caller take precedence over all of them.
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	if v.ConfigFileUsed() == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	// Environment variables (LAZYPDF_*)
	v.SetEnvPrefix("LAZYPDF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("network.range_chunk_size", d.Network.RangeChunkSize)
	v.SetDefault("network.disable_auto_fetch", d.Network.DisableAutoFetch)
	v.SetDefault("network.disable_stream", d.Network.DisableStream)
	v.SetDefault("network.disable_range", d.Network.DisableRange)
	v.SetDefault("network.timeout", d.Network.Timeout)
	v.SetDefault("network.max_retries", d.Network.MaxRetries)
	v.SetDefault("network.requests_per_second", d.Network.RequestsPerSecond)
	v.SetDefault("network.burst", d.Network.Burst)

	v.SetDefault("document.ignore_errors", d.Document.IgnoreErrors)
	v.SetDefault("document.object_cache_size", d.Document.ObjectCacheSize)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}
