package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"airecruiter/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets holds KVv2 read paths. An empty path skips that secret.
type VaultSecrets struct {
	APIKeys        string `mapstructure:"apiKeys"`        // field "keys", comma separated
	GeminiKey      string `mapstructure:"geminiKey"`      // field "api_key"
	GCPCredentials string `mapstructure:"gcpCredentials"` // field "credentials_json"
	RedisPassword  string `mapstructure:"redisPassword"`  // field "password"
}

// VaultClient reads recruiter secrets from a KVv2 mount
type VaultClient struct {
	api    *api.Client
	logger *errors.Logger
}

// VaultSecret is one KVv2 entry
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// NewVaultClient connects to Vault and checks its health. It returns nil
// when Vault is disabled.
func NewVaultClient(cfg VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	apiCfg := api.DefaultConfig()
	if cfg.Address != "" {
		apiCfg.Address = cfg.Address
	}
	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	token, err := resolveVaultToken(cfg, logger)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vault at %s: %w", apiCfg.Address, err)
	}
	if logger != nil {
		logger.Info("Connected to Vault",
			"address", apiCfg.Address,
			"version", health.Version,
			"sealed", health.Sealed)
	}

	return &VaultClient{api: client, logger: logger}, nil
}

// resolveVaultToken prefers the inline token over the token file
func resolveVaultToken(cfg VaultConfig, logger *errors.Logger) (string, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" && cfg.TokenFile != "" {
		raw, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(raw))
		if logger != nil {
			logger.Debug("Vault token read from file", "file", cfg.TokenFile)
		}
	}
	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

// GetSecretV2 reads a KVv2 entry. path includes the "data/" segment.
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}

	raw, err := vc.api.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if raw == nil || raw.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}

	data, err := kvData(raw, path)
	if err != nil {
		return nil, err
	}
	version, err := kvVersion(raw, path)
	if err != nil {
		return nil, err
	}
	return &VaultSecret{Data: data, Version: version}, nil
}

func kvData(raw *api.Secret, path string) (map[string]any, error) {
	data, ok := raw.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	return data, nil
}

func kvVersion(raw *api.Secret, path string) (int64, error) {
	metadata, ok := raw.Data["metadata"].(map[string]any)
	if !ok {
		return 0, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	v, ok := metadata["version"]
	if !ok {
		return 0, fmt.Errorf("secret metadata at %s is missing 'version' field", path)
	}
	return parseVersionValue(v, path)
}

// parseVersionValue accepts the shapes the JSON decoder and tests produce
func parseVersionValue(v any, path string) (int64, error) {
	var (
		n   int64
		err error
	)
	switch t := v.(type) {
	case int64:
		n = t
	case int:
		n = int64(t)
	case float64:
		n = int64(t)
	case json.Number:
		n, err = t.Int64()
	case string:
		n, err = strconv.ParseInt(t, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, v)
	}
	if err != nil {
		return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
	}
	return n, nil
}

// GetStringSecret returns one string field of a KVv2 entry
func (vc *VaultClient) GetStringSecret(path, key string) (string, error) {
	secret, err := vc.GetSecretV2(path)
	if err != nil {
		return "", err
	}
	raw, ok := secret.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string in secret %s", key, path)
	}
	if vc.logger != nil {
		vc.logger.Debug("Secret read from Vault",
			"path", path, "key", key, "version", secret.Version, "value", maskSecret(value))
	}
	return value, nil
}

// GetStringSliceSecret splits a comma separated field, dropping blanks
func (vc *VaultClient) GetStringSliceSecret(path, key string) ([]string, error) {
	value, err := vc.GetStringSecret(path, key)
	if err != nil {
		return nil, err
	}
	return splitList(value), nil
}

func splitList(value string) []string {
	out := []string{}
	for part := range strings.SplitSeq(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func maskSecret(s string) string {
	switch {
	case len(s) > 8:
		return s[:4] + "****" + s[len(s)-4:]
	case s != "":
		return "****"
	default:
		return ""
	}
}

// secretBinding maps one Vault field onto the config
type secretBinding struct {
	name  string
	path  string
	key   string
	apply func(value string)
}

func secretBindings(cfg *Config) []secretBinding {
	paths := cfg.Vault.Secrets
	return []secretBinding{
		{name: "API keys", path: paths.APIKeys, key: "keys", apply: func(v string) {
			if keys := splitList(v); len(keys) > 0 {
				cfg.Server.APIKeys = keys
			}
		}},
		{name: "Gemini API key", path: paths.GeminiKey, key: "api_key", apply: func(v string) {
			applyGeminiKeyToConfig(cfg, v)
		}},
		{name: "GCP credentials", path: paths.GCPCredentials, key: "credentials_json", apply: func(v string) {
			cfg.GCP.CredentialsJSON = v
		}},
		{name: "Redis password", path: paths.RedisPassword, key: "password", apply: func(v string) {
			cfg.Session.Redis.Password = v
		}},
	}
}

// applyGeminiKeyToConfig sets the global key and fills operations that
// have none of their own
func applyGeminiKeyToConfig(cfg *Config, key string) {
	cfg.AI.APIKey = key
	for _, op := range cfg.operations() {
		if op.APIKey == "" {
			op.APIKey = key
		}
	}
}

// ApplyVaultSecrets overlays the configured Vault secrets onto cfg. An
// empty value leaves the current setting in place.
func ApplyVaultSecrets(cfg *Config, logger *errors.Logger) error {
	if !cfg.Vault.Enabled {
		return nil
	}

	client, err := NewVaultClient(cfg.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}

	applied := 0
	for _, b := range secretBindings(cfg) {
		if b.path == "" {
			continue
		}
		value, err := client.GetStringSecret(b.path, b.key)
		if err != nil {
			return fmt.Errorf("failed to load %s from vault: %w", b.name, err)
		}
		if strings.TrimSpace(value) == "" {
			if logger != nil {
				logger.Warn("Empty secret in Vault, keeping configured value", "secret", b.name, "path", b.path)
			}
			continue
		}
		b.apply(value)
		applied++
	}

	if logger != nil {
		logger.Info("Vault secrets applied", "count", applied)
	}
	return nil
}
