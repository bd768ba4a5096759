// ABOUTME: Package documentation for config
// ABOUTME: Describes file location and section layout
// Package config loads resonate-decode settings from TOML.
//
// The default file lives at ~/.config/resonate-decode/config.toml and is
// optional. Sections:
//
//	[server]   port, name, mdns, tui
//	[staging]  dir (empty stages in memory)
//	[fetch]    max_bytes, cache_dir, timeout_seconds
//	[logging]  file, debug
package config
