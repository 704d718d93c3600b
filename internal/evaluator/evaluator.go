// Package evaluator writes the recruiter fit report for one candidate.
package evaluator

import (
	"context"
	"strings"

	"airecruiter/internal/ai"
	"airecruiter/internal/errors"
	"airecruiter/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Labels is the closed set the final recommendation chooses from
var Labels = []string{"Strongly recommended", "Recommended", "Consider", "Not recommended"}

// DefaultNoTranscript stands in for a candidate who never finished the interview
const DefaultNoTranscript = "No interview transcript is available for this candidate."

// RecordReader loads the evaluator's inputs
type RecordReader interface {
	CandidateRecord(ctx context.Context, candidateID string) (types.CandidateRecord, error)
}

type promptData struct {
	JobDescription string
	Summary        string
	Transcript     string
	Labels         []string
	Language       string
}

// Evaluator produces a fit report with one model call
type Evaluator struct {
	generator    ai.Generator
	records      RecordReader
	prompt       *ai.Prompt
	language     string
	noTranscript string
	logger       *errors.Logger
}

// Options tune the report wording
type Options struct {
	Language     string
	NoTranscript string
}

// New creates an evaluator. A nil prompt uses the built-in template.
func New(generator ai.Generator, records RecordReader, prompt *ai.Prompt, opts Options, logger *errors.Logger) *Evaluator {
	if prompt == nil {
		prompt = ai.MustParsePrompt("evaluate", ai.DefaultEvaluatePrompt)
	}
	if opts.NoTranscript == "" {
		opts.NoTranscript = DefaultNoTranscript
	}
	return &Evaluator{
		generator:    generator,
		records:      records,
		prompt:       prompt,
		language:     opts.Language,
		noTranscript: opts.NoTranscript,
		logger:       logger.With("component", "evaluator"),
	}
}

// Evaluate returns the model's report verbatim. A candidate without an
// upload is a not-found error and costs no model call.
func (e *Evaluator) Evaluate(ctx context.Context, candidateID, jobDescription string) (string, error) {
	ctx, span := otel.Tracer("airecruiter.evaluator").Start(ctx, "evaluator.evaluate")
	defer span.End()
	span.SetAttributes(attribute.String("candidate.id", candidateID))

	candidateID = strings.TrimSpace(candidateID)
	if candidateID == "" {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest, "candidate ID is required", nil)
	}

	record, err := e.records.CandidateRecord(ctx, candidateID)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	transcript := e.noTranscript
	if record.HasTranscript && len(record.Transcript) > 0 {
		transcript = types.FlattenTranscript(record.Transcript)
	}
	span.SetAttributes(attribute.Bool("candidate.has_transcript", record.HasTranscript))

	prompt, err := e.prompt.Render(promptData{
		JobDescription: jobDescription,
		Summary:        record.Summary,
		Transcript:     transcript,
		Labels:         Labels,
		Language:       e.language,
	})
	if err != nil {
		return "", errors.NewInternalError(errors.ErrCodeInvalidConfig, "Failed to build evaluation prompt", err)
	}

	report, _, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		e.logger.LogError(err, "Fit evaluation failed", "candidate_id", candidateID)
		return "", err
	}
	return report, nil
}
