package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultCLIPath is the scanner executable used when none is configured
	DefaultCLIPath = "scanner"

	// DefaultReportsDir is resolved against the workspace root
	DefaultReportsDir = "reports"

	// DefaultMaxOutputSize matches the buffer the VS Code extension allowed
	DefaultMaxOutputSize = "10MiB"

	// WorkspaceConfigName is looked up in the workspace root when no config is given
	WorkspaceConfigName = ".scanner-bridge.yaml"
)

// Default returns a configuration with all defaults applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the YAML configuration file
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables, leaving ${FILE:...} references for InjectSecrets
	expanded := os.Expand(string(data), func(key string) string {
		if strings.HasPrefix(key, "FILE:") {
			return "${" + key + "}"
		}
		return os.Getenv(key)
	})

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := InjectSecrets(&cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Discover returns the config file to load. An explicit path wins, then
// SCANNER_BRIDGE_CONFIG, then .scanner-bridge.yaml in the workspace root.
// An empty result means defaults should be used.
func Discover(explicit, workspaceRoot string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv("SCANNER_BRIDGE_CONFIG"); env != "" {
		return env
	}
	if workspaceRoot == "" {
		return ""
	}
	candidate := filepath.Join(workspaceRoot, WorkspaceConfigName)
	if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
		return candidate
	}
	return ""
}

// LoadOrDefault loads path when set, otherwise returns defaults.
// Environment overrides are applied in both cases.
func LoadOrDefault(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		var err error
		cfg, err = Load(path)
		if err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnv(LoadFromEnv())
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyDefaults sets default values for unspecified configuration options
func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}

	// Scanner defaults
	if c.Scanner.CLIPath == "" {
		c.Scanner.CLIPath = DefaultCLIPath
	}
	if c.Scanner.ReportsDir == "" {
		c.Scanner.ReportsDir = DefaultReportsDir
	}
	if c.Scanner.MaxOutputSize == "" {
		c.Scanner.MaxOutputSize = DefaultMaxOutputSize
	}

	// Server defaults
	if c.Server.Address == "" {
		c.Server.Address = "127.0.0.1:7733"
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "30s"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "30s"
	}
	if c.Server.MaxRequestSize == 0 {
		c.Server.MaxRequestSize = 1 << 20 // 1MB
	}
}

// Validate checks the configuration for required fields and valid values
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Scanner.CLIPath) == "" {
		return errors.New("scanner.cli_path is required")
	}

	if _, err := c.Scanner.MaxOutputBytes(); err != nil {
		return fmt.Errorf("invalid scanner.max_output_size: %w", err)
	}

	if err := validateChoice("log_level", c.LogLevel, "debug", "info", "warn", "error"); err != nil {
		return err
	}
	if err := validateChoice("log_format", c.LogFormat, "json", "text"); err != nil {
		return err
	}

	durations := map[string]string{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
	}
	for name, value := range durations {
		if _, err := c.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	if c.Server.MaxRequestSize < 0 {
		return fmt.Errorf("server.max_request_size must not be negative")
	}

	return nil
}

func validateChoice(field, value string, valid ...string) error {
	for _, v := range valid {
		if value == v {
			return nil
		}
	}
	return fmt.Errorf("invalid %s '%s', must be one of: %s", field, value, strings.Join(valid, ", "))
}
