package ai

import (
	"context"

	"airecruiter/internal/observability"
)

// TokenUsage is the token accounting reported by a model call
type TokenUsage = observability.TokenUsage

// Generator turns one flattened prompt into one model reply.
// Every call is attempted exactly once.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, *TokenUsage, error)
}

// Provider is a Generator backed by a concrete model API
type Provider interface {
	Generator
	GetModelInfo(ctx context.Context) *ModelInfo
	GetCircuitBreakerStats() map[string]any
	Close() error
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}
