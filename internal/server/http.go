package server

import (
	"context"
	"io"
	"os"
	"time"

	"airecruiter/internal/ai"
	"airecruiter/internal/config"
	"airecruiter/internal/errors"
	"airecruiter/internal/observability"
	"airecruiter/internal/types"
)

// JobDescriptionRequest is the body of PUT /job-description and the
// optional body of POST /candidates/{id}/report
type JobDescriptionRequest struct {
	JobDescription string `json:"jobDescription"`
}

// JobDescriptionResponse returns the active job description
type JobDescriptionResponse struct {
	JobDescription string `json:"jobDescription"`
}

// MessageRequest is one candidate message
type MessageRequest struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Recruiter is the application behind the routes
type Recruiter interface {
	StartApplication(ctx context.Context, fileName string, data []byte) (types.Application, error)
	Session(ctx context.Context, sessionID string) (types.Session, error)
	Reply(ctx context.Context, sessionID, message string) (types.TurnResult, error)
	SaveTranscript(ctx context.Context, sessionID string) (types.Session, error)
	ListCandidates(ctx context.Context) (types.CandidateList, error)
	Report(ctx context.Context, candidateID, jobDescriptionOverride string) (types.FitReport, error)
	SetJobDescription(text string) error
	JobDescription() string
}

// ModelChecker reports one model's health
type ModelChecker interface {
	Operation() string
	GetModelInfo(ctx context.Context) *ai.ModelInfo
	GetCircuitBreakerStats() map[string]any
}

// ServerConfig holds the listener settings and request limits
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// Server exposes the recruiter over HTTP
type Server struct {
	ServerConfig

	AppConfig   *config.Config
	RateLimiter *RateLimiter
	Recruiter   Recruiter
	Models      []ModelChecker
	Observer    *observability.ObservabilityManager
	Logger      *errors.Logger
	// Out receives the startup banner; nil silences it
	Out io.Writer

	apiKeys map[string]bool
}

// NewServer wires the recruiter and model checks behind the API routes.
// A nil observer disables tracing and metrics.
func NewServer(appCfg *config.Config, cfg ServerConfig, recruiter Recruiter, models []ModelChecker, om *observability.ObservabilityManager, logger *errors.Logger) *Server {
	s := &Server{
		ServerConfig: cfg,
		AppConfig:    appCfg,
		Recruiter:    recruiter,
		Models:       models,
		Observer:     om,
		Logger:       logger,
		Out:          os.Stdout,
		apiKeys:      make(map[string]bool, len(cfg.APIKeys)),
	}
	for _, key := range cfg.APIKeys {
		if key != "" {
			s.apiKeys[key] = true
		}
	}
	if rl := cfg.RateLimit; rl != nil && rl.Enabled {
		s.RateLimiter = NewRateLimiter(rl.RequestsPerMin, rl.BurstCapacity, logger)
	}
	return s
}
