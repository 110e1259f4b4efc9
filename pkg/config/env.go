package config

import (
	"os"
)

// EnvConfig holds environment variable-based overrides
type EnvConfig struct {
	LogLevel   string
	CLIPath    string
	ReportsDir string
}

// LoadFromEnv reads configuration overrides from environment variables
func LoadFromEnv() *EnvConfig {
	return &EnvConfig{
		LogLevel:   getEnv("LOG_LEVEL", ""),
		CLIPath:    getEnv("SCANNER_CLI_PATH", ""),
		ReportsDir: getEnv("SCANNER_REPORTS_DIR", ""),
	}
}

// ApplyEnv overrides file values with any non-empty environment values
func (c *Config) ApplyEnv(env *EnvConfig) {
	if env == nil {
		return
	}
	if env.LogLevel != "" {
		c.LogLevel = env.LogLevel
	}
	if env.CLIPath != "" {
		c.Scanner.CLIPath = env.CLIPath
	}
	if env.ReportsDir != "" {
		c.Scanner.ReportsDir = env.ReportsDir
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
