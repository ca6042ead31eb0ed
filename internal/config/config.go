package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the optional tally configuration file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
	Scan     ScanConfig     `toml:"scan"`
	Report   ReportConfig   `toml:"report"`
}

// DefaultsConfig holds persistent flag defaults shared by all commands.
type DefaultsConfig struct {
	Workers   *int    `toml:"workers"`
	LogFormat *string `toml:"log_format"`
	Ledger    *string `toml:"ledger"`
}

// ScanConfig holds scan-specific defaults.
type ScanConfig struct {
	Compress *bool   `toml:"compress"`
	MinFree  *string `toml:"min_free"`
}

// ReportConfig holds report-specific defaults.
type ReportConfig struct {
	Ignore []string `toml:"ignore"`
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "tally", "config.toml")
}

// Load reads the config file from the XDG path. Returns a zero Config
// (no error) if the file does not exist. Config is always optional.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}

	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}
	return cfg, nil
}
