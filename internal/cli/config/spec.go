package config

import (
	"os"
	"path/filepath"
)

// CLIConfig is the configuration for the snapdist CLI.
type CLIConfig struct {
	// Output is the default output format: table or json.
	Output string `koanf:"output"`

	// CatalogDir is where the snapshot catalog database lives.
	CatalogDir string `koanf:"catalog_dir"`

	// Passphrase decrypts encrypted archives. Usually supplied via
	// SNAPDIST_PASSPHRASE rather than the config file.
	Passphrase string `koanf:"passphrase"`

	// Logging settings.
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"` // text or json
}

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".snapdist", "cli.yaml")
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	homeDir, _ := os.UserHomeDir()
	return &CLIConfig{
		Output:     "table",
		CatalogDir: filepath.Join(homeDir, ".snapdist", "catalog"),
		LogLevel:   "info",
		LogFormat:  "text",
	}
}
