package observability

import (
	"context"
	"fmt"
	"time"

	"airecruiter/internal/config"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Business metric names accepted by RecordBusinessMetric
const (
	MetricCVUploaded            = "cv_uploaded"
	MetricConversationCompleted = "conversation_completed"
	MetricTranscriptSaved       = "transcript_saved"
	MetricReportGenerated       = "report_generated"
	MetricKnowledgeMiss         = "knowledge_miss"
	MetricRateLimitHit          = "rate_limit_hit"
)

// Metrics holds the recruiting instruments. A zero Metrics is usable and
// records nothing.
type Metrics struct {
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	CVsUploaded            metric.Int64Counter
	ConversationsCompleted metric.Int64Counter
	TranscriptsSaved       metric.Int64Counter
	ReportsGenerated       metric.Int64Counter
	KnowledgeMisses        metric.Int64Counter

	RateLimitHits metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.AIProcessingTime, err = meter.Float64Histogram("airecruiter_ai_processing_duration_seconds",
		metric.WithDescription("Latency of generative model calls"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("ai duration histogram: %w", err)
	}
	if m.AITokenUsage, err = meter.Int64Histogram("airecruiter_ai_token_usage_total",
		metric.WithDescription("Tokens per model call by token_type"), metric.WithUnit("tokens")); err != nil {
		return nil, fmt.Errorf("ai token histogram: %w", err)
	}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		help string
	}{
		{&m.AIRequestCount, "airecruiter_ai_requests_total", "Generative model calls"},
		{&m.AIErrorCount, "airecruiter_ai_errors_total", "Generative model calls that failed"},
		{&m.CVsUploaded, "airecruiter_cv_uploaded_total", "Résumé uploads by outcome"},
		{&m.ConversationsCompleted, "airecruiter_conversations_completed_total", "Interviews that reached an end"},
		{&m.TranscriptsSaved, "airecruiter_transcripts_saved_total", "Transcript save attempts by outcome"},
		{&m.ReportsGenerated, "airecruiter_reports_generated_total", "Fit report requests by outcome"},
		{&m.KnowledgeMisses, "airecruiter_knowledge_misses_total", "Knowledge lookups with no usable result"},
		{&m.RateLimitHits, "airecruiter_rate_limit_hits_total", "Requests rejected by the rate limiter"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.help)); err != nil {
			return nil, fmt.Errorf("%s: %w", c.name, err)
		}
	}
	return m, nil
}

// AIOperationResult is what an instrumented model call reports back
type AIOperationResult struct {
	Error      error
	TokenUsage *TokenUsage
}

// TokenUsage is the token accounting of one model response
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// TrackAIOperationWithTokens runs fn inside an "ai.<operation>" span and
// records latency, outcome and token usage. fn always runs.
func (m *Metrics) TrackAIOperationWithTokens(ctx context.Context, operation string, fn func(context.Context) *AIOperationResult, om *ObservabilityManager) error {
	if m.AIRequestCount == nil {
		return resultErr(fn(ctx))
	}

	ctx, span := om.Tracer("airecruiter.ai").Start(ctx, "ai."+operation)
	defer span.End()

	began := time.Now()
	result := fn(ctx)
	elapsed := time.Since(began).Seconds()
	err := resultErr(result)

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	}
	span.SetAttributes(attrs...)
	if err != nil {
		span.RecordError(err)
	}

	sw := om.switches().AIOperations
	if !sw.Enabled {
		return err
	}
	opt := metric.WithAttributes(attrs...)
	m.AIRequestCount.Add(ctx, 1, opt)
	if err != nil {
		m.AIErrorCount.Add(ctx, 1, opt)
	}
	if sw.TrackDuration {
		m.AIProcessingTime.Record(ctx, elapsed, opt)
	}

	if result == nil || result.TokenUsage == nil {
		return err
	}
	u := result.TokenUsage
	span.SetAttributes(
		attribute.Int64("ai.tokens.input", u.InputTokens),
		attribute.Int64("ai.tokens.output", u.OutputTokens),
		attribute.Int64("ai.tokens.total", u.TotalTokens),
	)
	if sw.TrackTokenUsage {
		for kind, n := range map[string]int64{"input": u.InputTokens, "output": u.OutputTokens, "total": u.TotalTokens} {
			kv := append(append([]attribute.KeyValue(nil), attrs...), attribute.String("token_type", kind))
			m.AITokenUsage.Record(ctx, n, metric.WithAttributes(kv...))
		}
	}
	return err
}

func resultErr(r *AIOperationResult) error {
	if r == nil {
		return nil
	}
	return r.Error
}

// RecordBusinessMetric counts one recruiting event. Unknown names are
// ignored.
func (m *Metrics) RecordBusinessMetric(ctx context.Context, metricType string, success bool, om *ObservabilityManager, attributes ...attribute.KeyValue) {
	sw := om.switches()

	var counter metric.Int64Counter
	switch metricType {
	case MetricRateLimitHit:
		if !sw.Infrastructure.Enabled || !sw.Infrastructure.TrackRateLimits {
			return
		}
		counter = m.RateLimitHits
	case MetricCVUploaded:
		counter = m.CVsUploaded
	case MetricConversationCompleted:
		counter = m.ConversationsCompleted
	case MetricTranscriptSaved:
		counter = m.TranscriptsSaved
	case MetricReportGenerated:
		counter = m.ReportsGenerated
	case MetricKnowledgeMiss:
		counter = m.KnowledgeMisses
	default:
		return
	}
	if counter == nil {
		return
	}
	if metricType != MetricRateLimitHit && !sw.BusinessMetrics.Enabled {
		return
	}

	attrs := attributes
	if sw.BusinessMetrics.TrackSuccessRates {
		attrs = append([]attribute.KeyValue{attribute.Bool("success", success)}, attributes...)
	}
	counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (om *ObservabilityManager) switches() config.CustomMetricsConfig {
	if om == nil {
		return ObservabilityConfig{}.switches()
	}
	return om.config.switches()
}
