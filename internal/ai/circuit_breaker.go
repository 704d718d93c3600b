package ai

import (
	"fmt"

	"airecruiter/internal/config"
	"airecruiter/internal/errors"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

// Breaker wraps calls of one result type with the circuit breaker pattern.
// A nil Breaker runs calls directly.
type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// NewGenerationBreaker guards content generation for one operation
func NewGenerationBreaker(operation string, cfg config.CircuitBreakerConfig, logger *errors.Logger) *Breaker[*genai.GenerateContentResponse] {
	return newBreaker[*genai.GenerateContentResponse](fmt.Sprintf("AI-%s", operation), operation, cfg, func(counts gobreaker.Counts) bool {
		return counts.Requests >= cfg.MinRequests && failureRatio(counts) >= cfg.FailureThreshold
	}, logger)
}

// NewModelBreaker guards model availability checks for one operation
func NewModelBreaker(operation string, cfg config.CircuitBreakerConfig, logger *errors.Logger) *Breaker[*genai.Model] {
	// Model info is less critical, so it trips later.
	return newBreaker[*genai.Model](fmt.Sprintf("AI-Model-%s", operation), operation, cfg, func(counts gobreaker.Counts) bool {
		return counts.Requests >= 5 && failureRatio(counts) >= 0.8
	}, logger)
}

func newBreaker[T any](name, operation string, cfg config.CircuitBreakerConfig, readyToTrip func(gobreaker.Counts) bool, logger *errors.Logger) *Breaker[T] {
	if !cfg.Enabled {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: readyToTrip,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger == nil {
				return
			}
			logger.Info("Circuit breaker state changed",
				"name", name,
				"operation", operation,
				"from", from.String(),
				"to", to.String(),
				"max_requests", cfg.MaxRequests,
				"failure_threshold", cfg.FailureThreshold)
		},
	}

	return &Breaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

func failureRatio(counts gobreaker.Counts) float64 {
	if counts.Requests == 0 {
		return 0
	}
	return float64(counts.TotalFailures) / float64(counts.Requests)
}

// Execute runs fn under the breaker. An open breaker rejects the call
// without invoking fn.
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	if b == nil || b.cb == nil {
		return fn()
	}
	return b.cb.Execute(fn)
}

// GetStats returns circuit breaker statistics
func (b *Breaker[T]) GetStats() map[string]any {
	if b == nil || b.cb == nil {
		return map[string]any{
			"enabled": false,
		}
	}

	return map[string]any{
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts":  b.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy returns true if the breaker is closed or absent
func (b *Breaker[T]) IsHealthy() bool {
	if b == nil || b.cb == nil {
		return true
	}
	return b.cb.State() == gobreaker.StateClosed
}
