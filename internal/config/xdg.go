// Package config provides XDG path helpers.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const appName = "pagepace"

// Environment overrides for the default paths.
const (
	EnvDB     = "PAGEPACE_DB"
	EnvConfig = "PAGEPACE_CONFIG"
)

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// LoadEnv reads .env files into the process environment. Missing files are
// skipped and variables already set are kept.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
	}
	return nil
}

// DefaultDBPath returns the path of the SQLite database.
func DefaultDBPath() string {
	if v := os.Getenv(EnvDB); v != "" {
		return v
	}
	return filepath.Join(XDGDataHome(), appName, appName+".db")
}

// DefaultConfigPath returns the TOML config path.
func DefaultConfigPath() string {
	if v := os.Getenv(EnvConfig); v != "" {
		return v
	}
	return filepath.Join(XDGConfigHome(), appName, "config.toml")
}

// DefaultExportDir returns the directory for exported reports.
func DefaultExportDir() string {
	return filepath.Join(XDGDataHome(), appName, "reports")
}
