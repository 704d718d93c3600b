// Package gcp resolves Google Cloud credentials once for every client the
// service builds.
package gcp

import (
	"context"
	"fmt"

	"airecruiter/internal/config"

	"cloud.google.com/go/auth"
	"cloud.google.com/go/auth/credentials"
	"google.golang.org/api/option"
)

// CloudPlatformScope is requested for every credential built here
const CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Credentials returns explicit credentials when a file or inline JSON is
// configured. It returns nil when neither is set so clients fall back to
// Application Default Credentials on their own.
func Credentials(ctx context.Context, cfg config.GCPConfig) (*auth.Credentials, error) {
	if cfg.CredentialsFile == "" && cfg.CredentialsJSON == "" {
		return nil, nil
	}

	opts := &credentials.DetectOptions{Scopes: []string{CloudPlatformScope}}
	if cfg.CredentialsJSON != "" {
		opts.CredentialsJSON = []byte(cfg.CredentialsJSON)
	} else {
		opts.CredentialsFile = cfg.CredentialsFile
	}

	creds, err := credentials.DetectDefault(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load GCP credentials: %w", err)
	}
	return creds, nil
}

// ClientOptions returns the options shared by the storage, warehouse and
// search clients, followed by any extra options.
func ClientOptions(ctx context.Context, cfg config.GCPConfig, extra ...option.ClientOption) ([]option.ClientOption, error) {
	creds, err := Credentials(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var opts []option.ClientOption
	if creds != nil {
		opts = append(opts, option.WithAuthCredentials(creds))
	}
	return append(opts, extra...), nil
}
