package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
// Secret Precedence Order:
// 1. Vault (if configured) - Highest priority
// 2. Config File values
// 3. Environment Variables (AIRECRUITER_AI_APIKEY, etc.), .env included
// 4. Default values - Lowest priority
type Config struct {
	AI             AIConfig             `mapstructure:"ai"`
	GCP            GCPConfig            `mapstructure:"gcp"`
	Storage        StorageConfig        `mapstructure:"storage"`
	Warehouse      WarehouseConfig      `mapstructure:"warehouse"`
	Knowledge      KnowledgeConfig      `mapstructure:"knowledge"`
	Conversation   ConversationConfig   `mapstructure:"conversation"`
	Session        SessionConfig        `mapstructure:"session"`
	JobDescription JobDescriptionConfig `mapstructure:"jobDescription"`
	Server         ServerConfig         `mapstructure:"server"`
	App            AppConfig            `mapstructure:"app"`
	Vault          VaultConfig          `mapstructure:"vault"`
	Observability  ObservabilityConfig  `mapstructure:"observability"`
}

// AIConfig holds generative model configuration
type AIConfig struct {
	// Global values, used when an operation does not override them
	Provider        string        `mapstructure:"provider"` // "gemini" (API key) or "vertex"
	Model           string        `mapstructure:"model"`
	Timeout         time.Duration `mapstructure:"timeout"`
	APIKey          string        `mapstructure:"apiKey"`
	Temperature     float32       `mapstructure:"temperature"`
	MaxOutputTokens int32         `mapstructure:"maxOutputTokens"`

	Analyze      OperationAIConfig `mapstructure:"analyze"`
	Conversation OperationAIConfig `mapstructure:"conversation"`
	Evaluate     OperationAIConfig `mapstructure:"evaluate"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Open state duration
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// OperationAIConfig holds model configuration for one call site
type OperationAIConfig struct {
	Provider        string               `mapstructure:"provider"`
	Model           string               `mapstructure:"model"`
	Timeout         *time.Duration       `mapstructure:"timeout"`
	APIKey          string               `mapstructure:"apiKey"`
	Temperature     *float32             `mapstructure:"temperature"`
	MaxOutputTokens *int32               `mapstructure:"maxOutputTokens"`
	CircuitBreaker  CircuitBreakerConfig `mapstructure:"circuitBreaker"`

	// Prompt template overrides. A file wins over inline text.
	Prompt     string `mapstructure:"prompt"`
	PromptFile string `mapstructure:"promptFile"`

	// LoadedPrompt holds PromptFile content after LoadConfig.
	LoadedPrompt string `mapstructure:"-"`
}

// GCPConfig holds the Google Cloud project shared by every cloud client
type GCPConfig struct {
	ProjectID       string `mapstructure:"projectId"`
	Location        string `mapstructure:"location"` // Vertex AI region
	CredentialsFile string `mapstructure:"credentialsFile"`
	CredentialsJSON string `mapstructure:"credentialsJson"`
}

// StorageConfig selects where uploaded résumés are written
type StorageConfig struct {
	Backend  string `mapstructure:"backend"` // "gcs" or "local"
	Bucket   string `mapstructure:"bucket"`
	LocalDir string `mapstructure:"localDir"`
}

// WarehouseConfig selects the candidate event log
type WarehouseConfig struct {
	Backend   string `mapstructure:"backend"` // "bigquery" or "memory"
	Dataset   string `mapstructure:"dataset"`
	Table     string `mapstructure:"table"`
	ListLimit int    `mapstructure:"listLimit"`
}

// KnowledgeConfig holds the managed search index settings
type KnowledgeConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Location      string        `mapstructure:"location"`
	DataStoreID   string        `mapstructure:"dataStoreId"`
	ServingConfig string        `mapstructure:"servingConfig"`
	PageSize      int32         `mapstructure:"pageSize"`
	Separator     string        `mapstructure:"separator"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// ConversationConfig holds the interview policy
type ConversationConfig struct {
	Sentinel                string   `mapstructure:"sentinel"`
	ClosingPhrases          []string `mapstructure:"closingPhrases"`
	Language                string   `mapstructure:"language"`
	JobQueryMode            string   `mapstructure:"jobQueryMode"` // "firstLine" or "prefix"
	ApologyReply            string   `mapstructure:"apologyReply"`
	NoContextPlaceholder    string   `mapstructure:"noContextPlaceholder"`
	NoTranscriptPlaceholder string   `mapstructure:"noTranscriptPlaceholder"`
}

// SessionConfig selects where in-flight interviews are kept
type SessionConfig struct {
	Backend string        `mapstructure:"backend"` // "memory" or "redis"
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// RedisConfig holds the Redis connection for the session store
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"keyPrefix"`
}

// JobDescriptionConfig holds the active job posting source
type JobDescriptionConfig struct {
	File          string        `mapstructure:"file"`
	Watch         bool          `mapstructure:"watch"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`

	TLS TLSConfig `mapstructure:"tls"`

	// API Authentication
	APIKeys []string `mapstructure:"apiKeys"`

	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// TLSConfig holds server TLS configuration
type TLSConfig struct {
	Mode       string `mapstructure:"mode"` // "disabled" or "server"
	CertFile   string `mapstructure:"certFile"`
	KeyFile    string `mapstructure:"keyFile"`
	MinVersion string `mapstructure:"minVersion"` // "1.2" or "1.3"
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	RequestsPerMin int  `mapstructure:"requestsPerMin"`
	BurstCapacity  int  `mapstructure:"burstCapacity"`
	ByIP           bool `mapstructure:"byIP"`
	ByAPIKey       bool `mapstructure:"byAPIKey"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Tracing         TracingConfig       `mapstructure:"tracing"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
	HealthCheck     HealthCheckConfig   `mapstructure:"healthCheck"`
}

type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

type ConsoleConfig struct {
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig holds fine-grained custom metrics configuration
type CustomMetricsConfig struct {
	AIOperations    AIOperationsMetricsConfig   `mapstructure:"aiOperations"`
	BusinessMetrics BusinessMetricsConfig       `mapstructure:"businessMetrics"`
	Infrastructure  InfrastructureMetricsConfig `mapstructure:"infrastructure"`
}

type AIOperationsMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackDuration   bool `mapstructure:"trackDuration"`
	TrackTokenUsage bool `mapstructure:"trackTokenUsage"`
}

type BusinessMetricsConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	TrackSuccessRates bool `mapstructure:"trackSuccessRates"`
}

type InfrastructureMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackRateLimits bool `mapstructure:"trackRateLimits"`
}

type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

type HealthCheckConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	AIModelCheckTimeout time.Duration `mapstructure:"aiModelCheckTimeout"`
}

// LoadConfig loads configuration from .env, environment variables and a config file
func LoadConfig() (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	if err := godotenv.Load(); err == nil {
		log.Println("[CONFIG] Loaded environment overrides from .env")
	}

	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/airecruiter/")
	v.AddConfigPath("$HOME/.airecruiter")
	v.AddConfigPath(".")
	log.Println("[CONFIG] Configured config file search paths: /etc/airecruiter/, $HOME/.airecruiter, .")

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	config, err := loadFromViper(v)
	if err != nil {
		return nil, err
	}
	config.logConfigurationSources(configFileUsed)

	log.Println("[CONFIG] Configuration loading completed successfully")
	return config, nil
}

// newViper returns a viper instance with defaults and env handling applied
func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("AIRECRUITER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func loadFromViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()

	if err := config.validatePromptFiles(); err != nil {
		return nil, fmt.Errorf("prompt file validation failed: %w", err)
	}
	if err := config.loadPromptsFromFiles(); err != nil {
		return nil, fmt.Errorf("failed to load custom prompts from files: %w", err)
	}

	if err := ApplyVaultSecrets(&config, nil); err != nil {
		return nil, fmt.Errorf("failed to load secrets from vault: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.AI.Provider {
	case "gemini":
		if c.AI.APIKey == "" {
			return fmt.Errorf("AI API key is required for the gemini provider (set AIRECRUITER_AI_APIKEY)")
		}
	case "vertex":
		if c.GCP.ProjectID == "" || c.GCP.Location == "" {
			return fmt.Errorf("gcp.projectId and gcp.location are required for the vertex provider")
		}
	default:
		return fmt.Errorf("unsupported AI provider: %s", c.AI.Provider)
	}

	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}

	if err := c.validateBackends(); err != nil {
		return err
	}

	if c.Conversation.Sentinel == "" {
		return fmt.Errorf("conversation sentinel must not be empty")
	}
	switch c.Conversation.JobQueryMode {
	case "firstLine", "prefix":
	default:
		return fmt.Errorf("invalid conversation jobQueryMode: %s (must be 'firstLine' or 'prefix')", c.Conversation.JobQueryMode)
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	validFormats := make(map[string]bool)
	for _, format := range c.App.SupportedFormats {
		validFormats[format] = true
	}
	if !validFormats[c.App.DefaultFormat] {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}

func (c *Config) validateBackends() error {
	switch c.Storage.Backend {
	case "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the gcs backend")
		}
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.localDir is required for the local backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s (must be 'gcs' or 'local')", c.Storage.Backend)
	}

	switch c.Warehouse.Backend {
	case "bigquery":
		if c.GCP.ProjectID == "" || c.Warehouse.Dataset == "" || c.Warehouse.Table == "" {
			return fmt.Errorf("gcp.projectId, warehouse.dataset and warehouse.table are required for the bigquery backend")
		}
	case "memory":
	default:
		return fmt.Errorf("invalid warehouse backend: %s (must be 'bigquery' or 'memory')", c.Warehouse.Backend)
	}
	if c.Warehouse.ListLimit <= 0 {
		return fmt.Errorf("warehouse.listLimit must be positive")
	}

	if c.Knowledge.Enabled && (c.GCP.ProjectID == "" || c.Knowledge.DataStoreID == "") {
		return fmt.Errorf("gcp.projectId and knowledge.dataStoreId are required when knowledge search is enabled")
	}

	switch c.Session.Backend {
	case "memory":
	case "redis":
		if c.Session.Redis.Addr == "" {
			return fmt.Errorf("session.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid session backend: %s (must be 'memory' or 'redis')", c.Session.Backend)
	}

	return nil
}
