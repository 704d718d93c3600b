package ai

import (
	"fmt"
	"strings"
	"text/template"

	"airecruiter/internal/config"
)

// DefaultAnalyzePrompt asks for three labelled identity lines followed by a
// sectioned summary.
const DefaultAnalyzePrompt = `You are an HR analyst. Read the CV below and complete two tasks.
1. **Extract information:** Identify the candidate's first name, their most recent job title and the name of their most recent employer. Return them exactly in this format:
   {{.NameLabel}} [candidate name]
   {{.TitleLabel}} [job title]
   {{.CompanyLabel}} [company name]
2. **Write a summary:** Summarize the CV in these sections: Key Technical Skills, Professional Experience, Education.
Write in {{.Language}}.
CV: {{.ResumeText}}`

// DefaultConversationPrompt is the instruction block placed before the
// conversation history.
const DefaultConversationPrompt = `You are a professional and helpful IT recruiter.{{if .JobDescription}} You are interviewing for the position described in this posting:
---JOB POSTING---
{{.JobDescription}}
----------------{{end}}

Your task has two priorities:
1. **RESPOND TO THE CANDIDATE:** If the candidate's latest message is a question (for example it starts with "what is", "what are" or "can I"), answer it first using the information in the "COMBINED KNOWLEDGE BASE CONTEXT" section. If the answer is not there, say so.
2. **LEAD THE INTERVIEW:** After answering, or if the latest message was not a question, continue the interview. Ask one relevant follow-up question to learn more about the candidate's experience.

**COMBINED KNOWLEDGE BASE CONTEXT:**
{{.Context}}

At the end of the conversation (when you have gathered enough information or the candidate wants to finish), thank the candidate and append the phrase {{.Sentinel}}. Respond in {{.Language}}.
**Conversation history:**`

// DefaultEvaluatePrompt produces the three-section fit report.
const DefaultEvaluatePrompt = `You are a senior IT recruiter preparing a candidate fit report for a hiring manager.

JOB DESCRIPTION:
{{.JobDescription}}

CV SUMMARY:
{{.Summary}}

INTERVIEW TRANSCRIPT:
{{.Transcript}}

Write the report in three sections:
1. **CV fit:** Compare the candidate's skills and experience with the job requirements. Include an employment history that lists every position with its duration.
2. **Interview fit:** Assess the candidate's answers in the interview against the role, noting any gaps or contradictions with the CV.
3. **Final recommendation:** Give a percentage match (0-100%) and exactly one of these labels: {{range $i, $label := .Labels}}{{if $i}}, {{end}}"{{$label}}"{{end}}.
Write in {{.Language}}.`

// Prompt is a parsed prompt template
type Prompt struct {
	tmpl *template.Template
}

// ParsePrompt parses a template. Missing fields are errors at render time.
func ParsePrompt(name, text string) (*Prompt, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s prompt: %w", name, err)
	}
	return &Prompt{tmpl: tmpl}, nil
}

// OperationPrompt resolves an operation's template (file, then config,
// then fallback) and parses it.
func OperationPrompt(operation string, cfg config.OperationAIConfig, fallback string) (*Prompt, error) {
	return ParsePrompt(operation, cfg.PromptTemplate(fallback))
}

// MustParsePrompt is ParsePrompt for the built-in templates
func MustParsePrompt(name, text string) *Prompt {
	p, err := ParsePrompt(name, text)
	if err != nil {
		panic(err)
	}
	return p
}

// Render executes the template with data
func (p *Prompt) Render(data any) (string, error) {
	var sb strings.Builder
	if err := p.tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", p.tmpl.Name(), err)
	}
	return sb.String(), nil
}
