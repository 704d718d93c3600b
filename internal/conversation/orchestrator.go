// Package conversation runs one interview turn: it gathers knowledge,
// assembles the prompt, calls the model and decides whether the interview
// is over.
package conversation

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"airecruiter/internal/ai"
	"airecruiter/internal/config"
	"airecruiter/internal/errors"
	"airecruiter/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Context block labels
const (
	JobContextLabel      = "General information about the position:"
	QuestionContextLabel = "Information related to the candidate's question:"
)

// Job query modes
const (
	JobQueryFirstLine = "firstLine"
	JobQueryPrefix    = "prefix"
)

const jobQueryPrefixLength = 50

// DefaultSentinel marks the end of the interview in model output
const DefaultSentinel = "[END OF CONVERSATION]"

// Retriever supplies knowledge snippets. It returns "" when nothing is found.
type Retriever interface {
	Retrieve(ctx context.Context, query string) string
}

// Turn is the outcome of one orchestrated model call
type Turn struct {
	Reply string
	Ended bool
	// ModelFailed is set when Reply is the fixed apology
	ModelFailed bool
}

type promptData struct {
	JobDescription string
	Context        string
	Sentinel       string
	Language       string
}

// Orchestrator holds the interview policy
type Orchestrator struct {
	generator ai.Generator
	retriever Retriever
	prompt    *ai.Prompt
	cfg       config.ConversationConfig
	sentinel  *regexp.Regexp
	closings  []string
	logger    *errors.Logger
}

// New creates an orchestrator. A nil prompt uses the built-in template.
func New(generator ai.Generator, retriever Retriever, prompt *ai.Prompt, cfg config.ConversationConfig, logger *errors.Logger) *Orchestrator {
	if prompt == nil {
		prompt = ai.MustParsePrompt("conversation", ai.DefaultConversationPrompt)
	}
	if cfg.Sentinel == "" {
		cfg.Sentinel = DefaultSentinel
	}

	closings := make([]string, 0, len(cfg.ClosingPhrases))
	for _, phrase := range cfg.ClosingPhrases {
		if phrase = strings.ToLower(strings.TrimSpace(phrase)); phrase != "" {
			closings = append(closings, phrase)
		}
	}

	return &Orchestrator{
		generator: generator,
		retriever: retriever,
		prompt:    prompt,
		cfg:       cfg,
		sentinel:  regexp.MustCompile(`(?i)` + regexp.QuoteMeta(cfg.Sentinel)),
		closings:  closings,
		logger:    logger.With("component", "conversation"),
	}
}

// TakeTurn produces the assistant reply to the last user message.
// history must be non-empty and end with a user message.
func (o *Orchestrator) TakeTurn(ctx context.Context, history []types.ConversationMessage, jobDescription string) (Turn, error) {
	if len(history) == 0 {
		return Turn{}, errors.NewValidationError(errors.ErrCodeEmptyHistory, "Conversation history is empty", nil)
	}
	last := history[len(history)-1]
	if last.Role != types.RoleUser {
		return Turn{}, errors.NewValidationError(errors.ErrCodeInvalidRequest, "Last message must come from the user", nil)
	}

	if strings.TrimSpace(jobDescription) == "" {
		jobDescription = ""
	}

	ctx, span := otel.Tracer("airecruiter.conversation").Start(ctx, "conversation.take_turn")
	defer span.End()
	span.SetAttributes(
		attribute.Int("history.length", len(history)),
		attribute.Bool("job_description.present", jobDescription != ""),
	)

	questionContext := o.retriever.Retrieve(ctx, last.Content)
	jobContext := ""
	if jobDescription != "" {
		jobContext = o.retriever.Retrieve(ctx, JobQuery(jobDescription, o.cfg.JobQueryMode))
	}

	instructions, err := o.prompt.Render(promptData{
		JobDescription: jobDescription,
		Context:        o.combineContext(jobContext, questionContext),
		Sentinel:       o.cfg.Sentinel,
		Language:       o.cfg.Language,
	})
	if err != nil {
		o.logger.LogError(err, "Failed to build conversation prompt")
		return o.apology(), nil
	}

	raw, _, err := o.generator.Generate(ctx, BuildPrompt(instructions, history))
	if err != nil {
		span.RecordError(err)
		o.logger.LogError(err, "Conversation model call failed")
		return o.apology(), nil
	}

	sentinelSeen := o.sentinel.MatchString(raw)
	userClosing := o.IsClosing(last.Content)
	turn := Turn{
		Reply: strings.TrimSpace(o.sentinel.ReplaceAllString(raw, "")),
		Ended: sentinelSeen || userClosing,
	}

	span.SetAttributes(
		attribute.Bool("ended", turn.Ended),
		attribute.Bool("ended.sentinel", sentinelSeen),
		attribute.Bool("ended.closing_phrase", userClosing),
	)
	return turn, nil
}

// IsClosing reports whether the lowercased message contains a closing
// phrase anywhere, including inside a longer word
func (o *Orchestrator) IsClosing(message string) bool {
	message = strings.ToLower(message)
	for _, phrase := range o.closings {
		if strings.Contains(message, phrase) {
			return true
		}
	}
	return false
}

func (o *Orchestrator) apology() Turn {
	return Turn{Reply: o.cfg.ApologyReply, Ended: true, ModelFailed: true}
}

func (o *Orchestrator) combineContext(jobContext, questionContext string) string {
	var sb strings.Builder
	if jobContext != "" {
		sb.WriteString(JobContextLabel + "\n" + jobContext + "\n\n")
	}
	if questionContext != "" {
		sb.WriteString(QuestionContextLabel + "\n" + questionContext)
	}
	if sb.Len() == 0 {
		return o.cfg.NoContextPlaceholder
	}
	return sb.String()
}

// BuildPrompt appends the history as "role: content" lines after the
// instruction block and leaves the assistant line open.
func BuildPrompt(instructions string, history []types.ConversationMessage) string {
	return instructions + "\n" + types.FlattenTranscript(history) + "\nassistant: "
}

// JobQuery derives the knowledge query for the active job description
func JobQuery(jobDescription, mode string) string {
	if mode == JobQueryPrefix {
		text := strings.TrimSpace(jobDescription)
		if utf8.RuneCountInString(text) > jobQueryPrefixLength {
			text = string([]rune(text)[:jobQueryPrefixLength])
		}
		return strings.TrimSpace(text)
	}

	for _, line := range strings.Split(jobDescription, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
