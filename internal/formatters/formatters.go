package formatters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"airecruiter/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// GlobalRegistry is used by the CLI output handler.
var GlobalRegistry = NewFormatterRegistry()

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "CandidateProfile", &ProfileTextFormatter{})
	registry.RegisterFormatter("markdown", "CandidateProfile", &ProfileMarkdownFormatter{})
	registry.RegisterFormatter("text", "CandidateList", &CandidateListTextFormatter{})
	registry.RegisterFormatter("markdown", "CandidateList", &CandidateListMarkdownFormatter{})
	registry.RegisterFormatter("text", "FitReport", &ReportTextFormatter{})
	registry.RegisterFormatter("markdown", "FitReport", &ReportMarkdownFormatter{})
	registry.RegisterFormatter("text", "Session", &SessionTextFormatter{})
	registry.RegisterFormatter("markdown", "Session", &SessionMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.CandidateProfile:
		return "CandidateProfile"
	case types.CandidateList:
		return "CandidateList"
	case types.FitReport:
		return "FitReport"
	case types.Session:
		return "Session"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(not reported)"
	}
	return s
}

// ProfileTextFormatter renders a candidate profile as plain text
type ProfileTextFormatter struct{}

func (f *ProfileTextFormatter) Format(data any) (string, error) {
	p, ok := data.(types.CandidateProfile)
	if !ok {
		return "", fmt.Errorf("expected CandidateProfile, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== CANDIDATE PROFILE ===\n")
	fmt.Fprintf(&output, "Name:        %s\n", orUnknown(p.CandidateName))
	fmt.Fprintf(&output, "Last role:   %s\n", orUnknown(p.LastJobTitle))
	fmt.Fprintf(&output, "Last company: %s\n\n", orUnknown(p.LastCompany))
	output.WriteString("=== SUMMARY ===\n")
	output.WriteString(p.Summary)
	output.WriteString("\n")
	return output.String(), nil
}

func (f *ProfileTextFormatter) SupportedType() string { return "CandidateProfile" }

// ProfileMarkdownFormatter renders a candidate profile as markdown
type ProfileMarkdownFormatter struct{}

func (f *ProfileMarkdownFormatter) Format(data any) (string, error) {
	p, ok := data.(types.CandidateProfile)
	if !ok {
		return "", fmt.Errorf("expected CandidateProfile, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Candidate Profile\n\n")
	fmt.Fprintf(&output, "- **Name:** %s\n", orUnknown(p.CandidateName))
	fmt.Fprintf(&output, "- **Last role:** %s\n", orUnknown(p.LastJobTitle))
	fmt.Fprintf(&output, "- **Last company:** %s\n\n", orUnknown(p.LastCompany))
	output.WriteString("## Summary\n\n")
	output.WriteString(p.Summary)
	output.WriteString("\n")
	return output.String(), nil
}

func (f *ProfileMarkdownFormatter) SupportedType() string { return "CandidateProfile" }

const timeLayout = "2006-01-02 15:04"

// CandidateListTextFormatter renders recent uploads one per line
type CandidateListTextFormatter struct{}

func (f *CandidateListTextFormatter) Format(data any) (string, error) {
	list, ok := data.(types.CandidateList)
	if !ok {
		return "", fmt.Errorf("expected CandidateList, got %T", data)
	}
	if len(list.Candidates) == 0 {
		return "No candidates yet.\n", nil
	}

	var output strings.Builder
	fmt.Fprintf(&output, "=== CANDIDATES (%d) ===\n", len(list.Candidates))
	for _, c := range list.Candidates {
		fmt.Fprintf(&output, "%s  %s  %s  [%s]\n",
			c.AppliedAt.UTC().Format(timeLayout), c.CandidateID, c.FileName, c.Status)
	}
	return output.String(), nil
}

func (f *CandidateListTextFormatter) SupportedType() string { return "CandidateList" }

// CandidateListMarkdownFormatter renders recent uploads as a table
type CandidateListMarkdownFormatter struct{}

func (f *CandidateListMarkdownFormatter) Format(data any) (string, error) {
	list, ok := data.(types.CandidateList)
	if !ok {
		return "", fmt.Errorf("expected CandidateList, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Candidates\n\n")
	if len(list.Candidates) == 0 {
		output.WriteString("_No candidates yet._\n")
		return output.String(), nil
	}
	output.WriteString("| Applied | Candidate ID | File | Status |\n")
	output.WriteString("|---|---|---|---|\n")
	for _, c := range list.Candidates {
		fmt.Fprintf(&output, "| %s | `%s` | %s | %s |\n",
			c.AppliedAt.UTC().Format(timeLayout), c.CandidateID, escapeCell(c.FileName), escapeCell(c.Status))
	}
	return output.String(), nil
}

func (f *CandidateListMarkdownFormatter) SupportedType() string { return "CandidateList" }

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// ReportTextFormatter prints the fit report body under a header
type ReportTextFormatter struct{}

func (f *ReportTextFormatter) Format(data any) (string, error) {
	r, ok := data.(types.FitReport)
	if !ok {
		return "", fmt.Errorf("expected FitReport, got %T", data)
	}

	var output strings.Builder
	fmt.Fprintf(&output, "=== FIT REPORT: %s ===\n\n", r.CandidateID)
	output.WriteString(r.Report)
	output.WriteString("\n")
	return output.String(), nil
}

func (f *ReportTextFormatter) SupportedType() string { return "FitReport" }

// ReportMarkdownFormatter keeps the model's markdown as-is
type ReportMarkdownFormatter struct{}

func (f *ReportMarkdownFormatter) Format(data any) (string, error) {
	r, ok := data.(types.FitReport)
	if !ok {
		return "", fmt.Errorf("expected FitReport, got %T", data)
	}

	var output strings.Builder
	fmt.Fprintf(&output, "# Fit Report `%s`\n\n", r.CandidateID)
	output.WriteString(r.Report)
	output.WriteString("\n")
	return output.String(), nil
}

func (f *ReportMarkdownFormatter) SupportedType() string { return "FitReport" }

func sessionState(s types.Session) string {
	switch {
	case s.Ended && s.TranscriptSaved:
		return "ended, transcript saved"
	case s.Ended:
		return "ended, transcript not saved"
	default:
		return "in progress"
	}
}

// SessionTextFormatter prints the interview transcript
type SessionTextFormatter struct{}

func (f *SessionTextFormatter) Format(data any) (string, error) {
	s, ok := data.(types.Session)
	if !ok {
		return "", fmt.Errorf("expected Session, got %T", data)
	}

	var output strings.Builder
	fmt.Fprintf(&output, "=== SESSION %s ===\n", s.ID)
	fmt.Fprintf(&output, "Candidate: %s\n", s.CandidateID)
	fmt.Fprintf(&output, "State:     %s\n\n", sessionState(s))
	output.WriteString(types.FlattenTranscript(s.Messages))
	output.WriteString("\n")
	return output.String(), nil
}

func (f *SessionTextFormatter) SupportedType() string { return "Session" }

// SessionMarkdownFormatter renders each message as a quoted block
type SessionMarkdownFormatter struct{}

func (f *SessionMarkdownFormatter) Format(data any) (string, error) {
	s, ok := data.(types.Session)
	if !ok {
		return "", fmt.Errorf("expected Session, got %T", data)
	}

	var output strings.Builder
	fmt.Fprintf(&output, "# Interview `%s`\n\n", s.ID)
	fmt.Fprintf(&output, "- **Candidate:** `%s`\n", s.CandidateID)
	fmt.Fprintf(&output, "- **State:** %s\n\n", sessionState(s))
	for _, m := range s.Messages {
		fmt.Fprintf(&output, "**%s**\n\n", m.Role)
		for line := range strings.SplitSeq(m.Content, "\n") {
			output.WriteString("> ")
			output.WriteString(line)
			output.WriteString("\n")
		}
		output.WriteString("\n")
	}
	return output.String(), nil
}

func (f *SessionMarkdownFormatter) SupportedType() string { return "Session" }
