package server

import (
	"crypto/tls"
	"fmt"
	"net/http"
)

// configureTLS attaches the server certificate when TLS mode is "server"
func (s *Server) configureTLS(srv *http.Server) error {
	switch s.TLSConfig.Mode {
	case "", "disabled":
		return nil
	case "server":
		tlsCfg, err := s.buildTLSConfig()
		if err != nil {
			return fmt.Errorf("failed to set up TLS: %w", err)
		}
		srv.TLSConfig = tlsCfg
		return nil
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled' or 'server')", s.TLSConfig.Mode)
	}
}

func (s *Server) buildTLSConfig() (*tls.Config, error) {
	files := s.TLSConfig
	if files.CertFile == "" || files.KeyFile == "" {
		return nil, fmt.Errorf("TLS certificate and key files are required")
	}
	pair, err := tls.LoadX509KeyPair(files.CertFile, files.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load server cert/key from files: %w", err)
	}

	minVersion := uint16(tls.VersionTLS12)
	if files.MinVersion == "1.3" {
		minVersion = tls.VersionTLS13
	}
	return &tls.Config{Certificates: []tls.Certificate{pair}, MinVersion: minVersion}, nil
}
