package ai

import (
	"context"
	"fmt"
	"time"

	"airecruiter/internal/config"
	apperrors "airecruiter/internal/errors"
	"airecruiter/internal/gcp"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"
)

// modelCheckTimeout bounds a model lookup when the caller sets no deadline
const modelCheckTimeout = 10 * time.Second

// GeminiProvider serves one recruiting operation from Gemini, reached
// through the Gemini API with a key or through Vertex AI with GCP
// credentials. Generation and model lookups trip separate breakers.
type GeminiProvider struct {
	client       *genai.Client
	config       *config.OperationAIConfig
	operation    string
	breaker      *Breaker[*genai.GenerateContentResponse]
	modelBreaker *Breaker[*genai.Model]
	logger       *apperrors.Logger
}

var _ Provider = (*GeminiProvider)(nil)

func NewGeminiProvider(ctx context.Context, cfg *config.OperationAIConfig, gcpConfig config.GCPConfig, operation string, logger *apperrors.Logger) (*GeminiProvider, error) {
	cc, err := buildClientConfig(ctx, cfg, gcpConfig)
	if err != nil {
		return nil, err
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, apperrors.NewAIError(apperrors.ErrCodeAIServiceFailed, "Failed to create Gemini client", err)
	}

	return &GeminiProvider{
		client:       client,
		config:       cfg,
		operation:    operation,
		breaker:      NewGenerationBreaker(operation, cfg.CircuitBreaker, logger),
		modelBreaker: NewModelBreaker(operation, cfg.CircuitBreaker, logger),
		logger:       logger.With("operation", operation, "model", cfg.Model),
	}, nil
}

func buildClientConfig(ctx context.Context, cfg *config.OperationAIConfig, gcpConfig config.GCPConfig) (*genai.ClientConfig, error) {
	if cfg.Provider == "gemini" {
		if cfg.APIKey == "" {
			return nil, apperrors.NewConfigError(apperrors.ErrCodeMissingAPIKey, "Gemini API key is required", nil)
		}
		return &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}, nil
	}
	if cfg.Provider != "vertex" {
		return nil, apperrors.NewConfigError(apperrors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}

	creds, err := gcp.Credentials(ctx, gcpConfig)
	if err != nil {
		return nil, apperrors.NewConfigError(apperrors.ErrCodeInvalidConfig, "Failed to load Vertex AI credentials", err)
	}
	return &genai.ClientConfig{
		Backend:     genai.BackendVertexAI,
		Project:     gcpConfig.ProjectID,
		Location:    gcpConfig.Location,
		Credentials: creds,
	}, nil
}

// Generate sends one prompt and returns the reply text. An empty reply is
// an error.
func (g *GeminiProvider) Generate(ctx context.Context, prompt string) (string, *TokenUsage, error) {
	gen := g.generateConfig()

	ctx, span := otel.Tracer("airecruiter.ai.gemini").Start(ctx, "gemini."+g.operation)
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.provider", g.config.Provider),
		attribute.String("ai.model", g.config.Model),
		attribute.Int("ai.max_output_tokens", int(gen.MaxOutputTokens)),
		attribute.Int("input.prompt_length", len(prompt)),
	)

	if d := g.config.Timeout; d != nil && *d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *d)
		defer cancel()
	}

	resp, err := g.breaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(prompt), gen)
	})
	var text string
	if err == nil {
		text = resp.Text()
		if text == "" {
			err = fmt.Errorf("empty response")
		}
	}
	span.SetAttributes(attribute.Bool("success", err == nil))
	if err != nil {
		span.RecordError(err)
		return "", nil, apperrors.NewAIError(apperrors.ErrCodeAIServiceFailed, "Gemini generation failed for "+g.operation, err)
	}

	usage := extractTokenUsage(resp)
	if usage != nil {
		span.SetAttributes(attribute.Int64("ai.tokens.total", usage.TotalTokens))
	}
	span.SetAttributes(attribute.Int("output.length", len(text)))
	return text, usage, nil
}

// generateConfig carries only the knobs that are set
func (g *GeminiProvider) generateConfig() *genai.GenerateContentConfig {
	out := &genai.GenerateContentConfig{}
	if t := g.config.Temperature; t != nil && *t > 0 {
		out.Temperature = t
	}
	if n := g.config.MaxOutputTokens; n != nil && *n > 0 {
		out.MaxOutputTokens = *n
	}
	return out
}

// GetModelInfo looks the configured model up. A failed lookup is reported
// in the result rather than returned.
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, modelCheckTimeout)
		defer cancel()
	}

	info := &ModelInfo{Name: g.config.Model}
	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.client.Models.Get(ctx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model lookup failed", "provider", g.config.Provider, "error", err.Error())
		return info
	}

	info.Available = true
	info.DisplayName = model.DisplayName
	info.Version = model.Version
	return info
}

func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"operation": g.operation,
		"generate":  g.breaker.GetStats(),
		"model":     g.modelBreaker.GetStats(),
		"healthy":   g.breaker.IsHealthy(),
	}
}

// Close is a no-op; the genai client holds no connections of its own
func (g *GeminiProvider) Close() error {
	return nil
}

func extractTokenUsage(resp *genai.GenerateContentResponse) *TokenUsage {
	if resp == nil || resp.UsageMetadata == nil {
		return nil
	}
	u := resp.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(u.PromptTokenCount),
		OutputTokens: int64(u.CandidatesTokenCount),
		TotalTokens:  int64(u.TotalTokenCount),
	}
}
