package config

import (
	"fmt"
	"slices"
)

var tlsMinVersions = []string{"", "1.2", "1.3"}

// ValidateTLSConfig checks the server TLS block. An empty mode means
// disabled.
func (c *Config) ValidateTLSConfig() error {
	t := c.Server.TLS
	if t.Mode == "" || t.Mode == "disabled" {
		return nil
	}
	if t.Mode != "server" {
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled' or 'server')", t.Mode)
	}
	if t.CertFile == "" || t.KeyFile == "" {
		return fmt.Errorf("TLS certFile and keyFile are required for server mode")
	}
	if !slices.Contains(tlsMinVersions, t.MinVersion) {
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", t.MinVersion)
	}
	return nil
}
