// ABOUTME: Tests for configuration loading
// ABOUTME: Covers defaults, file overlay, path expansion and validation
package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/Resonate-Protocol/resonate-decode/internal/config"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if !strings.HasSuffix(resolved, filepath.Join("resonate-decode", "config.toml")) {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Server.Port != 8928 {
		t.Fatalf("unexpected default port: %d", cfg.Server.Port)
	}
	if cfg.Staging.Dir != "" {
		t.Fatalf("expected memory staging by default, got %q", cfg.Staging.Dir)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
port = 9000
name = "studio"
mdns = false

[staging]
dir = "~/staging"

[fetch]
max_bytes = 1024
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config to exist")
	}
	if cfg.Server.Port != 9000 || cfg.Server.Name != "studio" || cfg.Server.MDNS {
		t.Fatalf("server section not applied: %+v", cfg.Server)
	}
	if cfg.Staging.Dir != filepath.Join(home, "staging") {
		t.Fatalf("staging dir not expanded: %q", cfg.Staging.Dir)
	}
	if cfg.Fetch.MaxBytes != 1024 {
		t.Fatalf("unexpected max bytes: %d", cfg.Fetch.MaxBytes)
	}
	if cfg.Fetch.TimeoutSeconds != config.Default().Fetch.TimeoutSeconds {
		t.Fatalf("unset field lost its default: %d", cfg.Fetch.TimeoutSeconds)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server]\nport = 70000\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "server.port") {
		t.Fatalf("expected port validation error, got %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server]\nbogus = 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, _, _, err := config.Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	data, err := config.Encode(config.Default())
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}

	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal encoded config: %v", err)
	}
	if decoded.Server.Port != config.Default().Server.Port {
		t.Fatalf("port lost in encoding: %d", decoded.Server.Port)
	}
}
