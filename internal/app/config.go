// Package app wires the adapters and services into a runnable application.
package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the runtime configuration of the application.
type Config struct {
	// DataDir is the root directory for all durable state.
	DataDir string `mapstructure:"data_dir"`

	// BlobDir is the blob store directory. Defaults to <data_dir>/blobs.
	BlobDir string `mapstructure:"blob_dir"`

	// CatalogPath is the catalog document path. Defaults to <data_dir>/catalog.json.
	CatalogPath string `mapstructure:"catalog_path"`

	// FlushDebounce is the catalog flush quiescence window.
	FlushDebounce time.Duration `mapstructure:"flush_debounce"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `mapstructure:"log_format"`

	// SearchBaseURL overrides the search endpoint; empty means the public one.
	SearchBaseURL string `mapstructure:"search_base_url"`

	// SearchLimit caps search result counts.
	SearchLimit int `mapstructure:"search_limit"`

	// DownloadTimeout bounds each remote audio fetch.
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
}

// LoadConfig reads configuration from an optional melodix.yaml (in the current
// directory or the user config dir) and MELODIX_* environment variables, with
// sensible defaults for everything.
func LoadConfig() (Config, error) {
	v := viper.New()

	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("flush_debounce", 500*time.Millisecond)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("search_limit", 25)
	v.SetDefault("download_timeout", 2*time.Minute)

	v.SetConfigName("melodix")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "melodix"))
	}

	v.SetEnvPrefix("MELODIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.BlobDir == "" {
		cfg.BlobDir = filepath.Join(cfg.DataDir, "blobs")
	}
	if cfg.CatalogPath == "" {
		cfg.CatalogPath = filepath.Join(cfg.DataDir, "catalog.json")
	}
	return cfg, nil
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "melodix")
	}
	return ".melodix"
}
