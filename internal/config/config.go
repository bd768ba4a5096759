// ABOUTME: TOML configuration for the decode CLI and server
// ABOUTME: Loads defaults, overlays an optional file and expands paths
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Server contains decode service settings.
type Server struct {
	Port int    `toml:"port"`
	Name string `toml:"name"`
	MDNS bool   `toml:"mdns"`
	TUI  bool   `toml:"tui"` // only honored when stdout is a terminal
}

// Staging contains byte store settings. An empty Dir stages in memory.
type Staging struct {
	Dir string `toml:"dir"`
}

// Fetch contains settings for resolving request hrefs.
type Fetch struct {
	MaxBytes       int64  `toml:"max_bytes"`
	CacheDir       string `toml:"cache_dir"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging contains log output settings.
type Logging struct {
	File  string `toml:"file"`
	Debug bool   `toml:"debug"`
}

// Config is the full configuration.
type Config struct {
	Server  Server  `toml:"server"`
	Staging Staging `toml:"staging"`
	Fetch   Fetch   `toml:"fetch"`
	Logging Logging `toml:"logging"`
}

// Default returns the built-in configuration.
func Default() Config {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "resonate-decode"
	}

	return Config{
		Server: Server{
			Port: 8928,
			Name: hostname + "-decode",
			MDNS: true,
			TUI:  true,
		},
		Fetch: Fetch{
			MaxBytes:       512 << 20,
			TimeoutSeconds: 30,
		},
		Logging: Logging{
			File: "resonate-decode.log",
		},
	}
}

// DefaultConfigPath returns the per-user config location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/resonate-decode/config.toml")
}

// Load parses the file at path over the defaults and validates the result.
// An empty path uses DefaultConfigPath; a missing default file is not an error.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Encode renders cfg as TOML.
func Encode(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			return "", false, fmt.Errorf("config file %s: %w", expanded, err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(defaultPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return defaultPath, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	return defaultPath, true, nil
}

func (c *Config) normalize() error {
	var err error
	c.Server.Name = strings.TrimSpace(c.Server.Name)
	if c.Staging.Dir, err = expandPath(c.Staging.Dir); err != nil {
		return fmt.Errorf("staging.dir: %w", err)
	}
	if c.Fetch.CacheDir, err = expandPath(c.Fetch.CacheDir); err != nil {
		return fmt.Errorf("fetch.cache_dir: %w", err)
	}
	if c.Logging.File, err = expandPath(c.Logging.File); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
