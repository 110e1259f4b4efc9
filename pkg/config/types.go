package config

import (
	"time"

	"github.com/docker/go-units"
)

// Config represents the complete scanner-bridge configuration
type Config struct {
	LogLevel  string        `yaml:"log_level"`
	LogFormat string        `yaml:"log_format"` // json or text
	Scanner   ScannerConfig `yaml:"scanner"`
	Server    ServerConfig  `yaml:"server"`
}

// ScannerConfig holds settings for the external scanner executable
type ScannerConfig struct {
	// CLIPath is the scanner executable; bare names are looked up on PATH
	CLIPath string `yaml:"cli_path"`

	// ReportsDir is where the scanner writes reports, relative to the workspace root unless absolute
	ReportsDir string `yaml:"reports_dir"`

	// MaxOutputSize bounds the output forwarded per stream, e.g. "10MiB". "0" disables the bound.
	MaxOutputSize string `yaml:"max_output_size"`
}

// ServerConfig holds settings for the local HTTP bridge
type ServerConfig struct {
	Address         string `yaml:"address"`
	ReadTimeout     string `yaml:"read_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	MaxRequestSize  int64  `yaml:"max_request_size"`

	// Token enables bearer authentication when set; supports ${FILE:/path}
	Token string `yaml:"token"`
}

// MaxOutputBytes parses MaxOutputSize into a byte count. Zero means unbounded.
func (s ScannerConfig) MaxOutputBytes() (int64, error) {
	if s.MaxOutputSize == "" {
		return 0, nil
	}
	return units.RAMInBytes(s.MaxOutputSize)
}

// ParseDuration converts string duration to time.Duration
func (c *Config) ParseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
