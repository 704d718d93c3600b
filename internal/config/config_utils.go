package config

import (
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
)

// trackedEnv are the variables echoed in the startup summary
var trackedEnv = []string{
	"AIRECRUITER_AI_APIKEY",
	"AIRECRUITER_AI_PROVIDER",
	"AIRECRUITER_AI_MODEL",
	"AIRECRUITER_GCP_PROJECTID",
	"AIRECRUITER_STORAGE_BACKEND",
	"AIRECRUITER_WAREHOUSE_BACKEND",
	"AIRECRUITER_SESSION_BACKEND",
	"AIRECRUITER_SERVER_PORT",
	"AIRECRUITER_APP_LOGLEVEL",
	"AIRECRUITER_VAULT_ENABLED",
	"GEMINI_API_KEY",
	"GOOGLE_APPLICATION_CREDENTIALS_JSON",
}

// applyFallbacks fills values that viper cannot bind directly
func (c *Config) applyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		c.Server.APIKeys = splitAndTrim(os.Getenv("AIRECRUITER_SERVER_APIKEYS"))
	}
	// conventional variables used by Google tooling
	if c.GCP.CredentialsJSON == "" {
		c.GCP.CredentialsJSON = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON")
	}
	if c.AI.APIKey == "" {
		c.AI.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if c.Server.TLS.Mode != "disabled" && c.Server.TLS.MinVersion == "" {
		c.Server.TLS.MinVersion = "1.2"
	}

	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = instanceID(c.Observability.ServiceName)
	}
	if c.App.LogLevel == "debug" {
		c.Observability.ConsoleOutput = true
	}
}

func instanceID(service string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return service + "-1"
	}
	return service + "-" + host
}

func splitAndTrim(value string) []string {
	var out []string
	for part := range strings.SplitSeq(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isSensitiveEnv(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range []string{"key", "credentials", "password", "token"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// summary lists the effective settings, secrets reduced to set/unset
func (c *Config) summary(configFile string) [][2]string {
	if configFile == "" {
		configFile = "none, defaults and environment only"
	}
	secret := func(v string) string {
		if v == "" {
			return "not set"
		}
		return "set"
	}

	rows := [][2]string{
		{"config file", configFile},
		{"ai", fmt.Sprintf("%s %s (api key %s)", c.AI.Provider, c.AI.Model, secret(c.AI.APIKey))},
		{"gcp project", c.GCP.ProjectID},
		{"storage", fmt.Sprintf("%s %s", c.Storage.Backend, c.Storage.Bucket)},
		{"warehouse", fmt.Sprintf("%s %s.%s", c.Warehouse.Backend, c.Warehouse.Dataset, c.Warehouse.Table)},
		{"knowledge search", fmt.Sprint(c.Knowledge.Enabled)},
		{"sessions", c.Session.Backend},
		{"server", fmt.Sprintf("%s:%s tls=%s", c.Server.Host, c.Server.Port, c.Server.TLS.Mode)},
		{"log level", c.App.LogLevel},
		{"vault", fmt.Sprint(c.Vault.Enabled)},
		{"observability", fmt.Sprint(c.Observability.Enabled)},
	}

	ops := c.operations()
	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		rows = append(rows, [2]string{"ai." + name, ops[name].Provider + " " + ops[name].Model})
	}

	for _, name := range trackedEnv {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		if isSensitiveEnv(name) {
			v = "***"
		}
		rows = append(rows, [2]string{"env " + name, v})
	}
	return rows
}

func (c *Config) logConfigurationSources(configFile string) {
	for _, row := range c.summary(configFile) {
		log.Printf("[CONFIG] %-18s %s", row[0], row[1])
	}
}
