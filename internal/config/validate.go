// ABOUTME: Configuration validation
// ABOUTME: Rejects values the server and fetcher cannot run with
package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Name == "" {
		return errors.New("server.name must be set")
	}
	if c.Fetch.MaxBytes < 0 {
		return errors.New("fetch.max_bytes must not be negative")
	}
	if c.Fetch.TimeoutSeconds < 0 {
		return errors.New("fetch.timeout_seconds must not be negative")
	}
	return nil
}
