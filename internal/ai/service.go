package ai

import (
	"context"
	"fmt"

	"airecruiter/internal/config"
	"airecruiter/internal/errors"
	"airecruiter/internal/observability"
)

// Service is the instrumented model entry point for one operation
type Service struct {
	Provider  Provider // nil when initialization failed
	operation string
	initErr   error
	obs       *observability.ObservabilityManager
	logger    *errors.Logger
}

// Ensure Service can be injected wherever a Generator is expected
var _ Generator = (*Service)(nil)

// NewService creates the provider configured for one operation
func NewService(ctx context.Context, cfg *config.OperationAIConfig, gcpConfig config.GCPConfig, operation string, obs *observability.ObservabilityManager, logger *errors.Logger) (*Service, error) {
	logger.Debug("Initializing AI service",
		"provider", cfg.Provider,
		"operation", operation,
		"model", cfg.Model)

	var provider Provider
	var err error

	switch cfg.Provider {
	case "gemini", "vertex":
		provider, err = NewGeminiProvider(ctx, cfg, gcpConfig, operation, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}

	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to create AI provider", err)
	}

	return NewServiceWithProvider(provider, operation, obs, logger), nil
}

// NewServiceWithProvider wraps an existing provider
func NewServiceWithProvider(provider Provider, operation string, obs *observability.ObservabilityManager, logger *errors.Logger) *Service {
	return &Service{
		Provider:  provider,
		operation: operation,
		obs:       obs,
		logger:    logger,
	}
}

// UnavailableService stands in for a provider that failed to initialize.
// Every call fails fast with an unavailable error.
func UnavailableService(operation string, cause error, logger *errors.Logger) *Service {
	logger.LogError(cause, "AI service unavailable", "operation", operation)
	return &Service{
		operation: operation,
		initErr:   cause,
		logger:    logger,
	}
}

// Generate runs one instrumented model call
func (s *Service) Generate(ctx context.Context, prompt string) (string, *TokenUsage, error) {
	if s.Provider == nil {
		return "", nil, errors.NewUnavailableError(errors.ErrCodeServiceUnavailable,
			"AI service for "+s.operation+" is not available", s.initErr)
	}

	var text string
	var usage *TokenUsage
	err := s.obs.GetMetrics().TrackAIOperationWithTokens(ctx, s.operation, func(ctx context.Context) *observability.AIOperationResult {
		var genErr error
		text, usage, genErr = s.Provider.Generate(ctx, prompt)
		return &observability.AIOperationResult{Error: genErr, TokenUsage: usage}
	}, s.obs)
	if err != nil {
		return "", nil, err
	}
	return text, usage, nil
}

// Operation names the call site this service serves
func (s *Service) Operation() string {
	return s.operation
}

// GetModelInfo returns information about the AI model for health checks
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	if s.Provider == nil {
		info := &ModelInfo{Name: s.operation}
		if s.initErr != nil {
			info.Error = s.initErr.Error()
		}
		return info
	}
	return s.Provider.GetModelInfo(ctx)
}

// GetCircuitBreakerStats returns breaker state, or a disabled marker
func (s *Service) GetCircuitBreakerStats() map[string]any {
	if s.Provider == nil {
		return map[string]any{"operation": s.operation, "enabled": false}
	}
	return s.Provider.GetCircuitBreakerStats()
}

// Close releases the provider
func (s *Service) Close() error {
	if s.Provider == nil {
		return nil
	}
	return s.Provider.Close()
}
