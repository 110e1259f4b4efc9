package config

import (
	"fmt"
	"os"
	"strings"
)

// InjectSecrets replaces ${FILE:<path>} placeholders with the trimmed file content
func InjectSecrets(cfg *Config) error {
	token, err := resolveSecret(cfg.Server.Token)
	if err != nil {
		return fmt.Errorf("server.token: %w", err)
	}
	cfg.Server.Token = token
	return nil
}

// resolveSecret reads the file named by a ${FILE:<path>} reference.
// Any other value is returned unchanged.
func resolveSecret(value string) (string, error) {
	prefix := "${FILE:"
	suffix := "}"

	if !strings.HasPrefix(value, prefix) || !strings.HasSuffix(value, suffix) {
		return value, nil
	}

	path := strings.TrimSuffix(strings.TrimPrefix(value, prefix), suffix)
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", path, err)
	}
	return strings.TrimSpace(string(content)), nil
}
