// Package analyzer extracts the candidate's identity and a structured
// summary from résumé text.
package analyzer

import (
	"context"
	"fmt"
	"strings"

	"airecruiter/internal/ai"
	"airecruiter/internal/errors"
	"airecruiter/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Labels the model is asked to emit, one per line
const (
	NameLabel    = "Name:"
	TitleLabel   = "Title:"
	CompanyLabel = "Company:"
)

// EmptyResumeSummary is the summary given to a résumé with no text
const EmptyResumeSummary = "Error: no text to analyze."

type promptData struct {
	ResumeText   string
	NameLabel    string
	TitleLabel   string
	CompanyLabel string
	Language     string
}

// Analyzer produces a CandidateProfile with one model call
type Analyzer struct {
	generator ai.Generator
	prompt    *ai.Prompt
	language  string
	logger    *errors.Logger
}

// New creates an analyzer. A nil prompt uses the built-in template.
func New(generator ai.Generator, prompt *ai.Prompt, language string, logger *errors.Logger) *Analyzer {
	if prompt == nil {
		prompt = ai.MustParsePrompt("analyze", ai.DefaultAnalyzePrompt)
	}
	return &Analyzer{
		generator: generator,
		prompt:    prompt,
		language:  language,
		logger:    logger.With("component", "analyzer"),
	}
}

// Analyze never fails. Problems are reported in the summary and leave the
// identity fields empty.
func (a *Analyzer) Analyze(ctx context.Context, resumeText string) types.CandidateProfile {
	ctx, span := otel.Tracer("airecruiter.analyzer").Start(ctx, "analyzer.analyze")
	defer span.End()
	span.SetAttributes(attribute.Int("input.resume_length", len(resumeText)))

	if strings.TrimSpace(resumeText) == "" {
		return types.CandidateProfile{Summary: EmptyResumeSummary}
	}

	prompt, err := a.prompt.Render(promptData{
		ResumeText:   resumeText,
		NameLabel:    NameLabel,
		TitleLabel:   TitleLabel,
		CompanyLabel: CompanyLabel,
		Language:     a.language,
	})
	if err != nil {
		a.logger.LogError(err, "Failed to build analysis prompt")
		return failedProfile(err)
	}

	response, _, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		a.logger.LogError(err, "Résumé analysis failed")
		return failedProfile(err)
	}

	profile := ParseProfile(response)
	span.SetAttributes(
		attribute.Bool("profile.has_name", profile.CandidateName != ""),
		attribute.Bool("profile.has_title", profile.LastJobTitle != ""),
		attribute.Bool("profile.has_company", profile.LastCompany != ""),
	)
	return profile
}

func failedProfile(err error) types.CandidateProfile {
	return types.CandidateProfile{Summary: fmt.Sprintf("Error: AI analysis failed: %v", err)}
}

// ParseProfile scans every line for a label prefix, ignoring case. A later
// line with the same label overrides an earlier one. The summary is the
// whole response.
func ParseProfile(response string) types.CandidateProfile {
	profile := types.CandidateProfile{Summary: response}

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimLeft(strings.TrimSpace(line), "*-• ")

		if value, ok := labelValue(line, NameLabel); ok {
			profile.CandidateName = value
		}
		if value, ok := labelValue(line, TitleLabel); ok {
			profile.LastJobTitle = value
		}
		if value, ok := labelValue(line, CompanyLabel); ok {
			profile.LastCompany = value
		}
	}
	return profile
}

func labelValue(line, label string) (string, bool) {
	if len(line) < len(label) || !strings.EqualFold(line[:len(label)], label) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimLeft(line[len(label):], "* ")), true
}
