package types

import (
	"strings"
	"time"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Candidate event types
const (
	EventCVUploaded      = "cv_uploaded"
	EventTranscriptSaved = "transcript_saved"
)

// Recruitment status values written alongside events
const (
	StatusCVSubmitted       = "CV przesłane"
	StatusInterviewFinished = "Rozmowa AI zakończona"
)

// ConversationMessage is one entry of an ordered, append-only history.
type ConversationMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FlattenTranscript renders messages as "role: content" lines.
func FlattenTranscript(messages []ConversationMessage) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, m.Role+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

// CandidateProfile is produced once per résumé. Empty identity fields mean
// the model did not report them.
type CandidateProfile struct {
	CandidateName string `json:"candidateName,omitempty"`
	LastJobTitle  string `json:"lastJobTitle,omitempty"`
	LastCompany   string `json:"lastCompany,omitempty"`
	Summary       string `json:"summary"`
}

// UploadEvent is the cv_uploaded row.
type UploadEvent struct {
	CandidateID string    `json:"candidateId"`
	FileName    string    `json:"fileName"`
	StorageURL  string    `json:"storageUrl"`
	AppliedAt   time.Time `json:"appliedAt"`
	ResumeText  string    `json:"resumeText"`
	Summary     string    `json:"summary"`
	Status      string    `json:"status"`
}

// TranscriptEvent is the transcript_saved row.
type TranscriptEvent struct {
	CandidateID string                `json:"candidateId"`
	SavedAt     time.Time             `json:"savedAt"`
	Messages    []ConversationMessage `json:"messages"`
	Status      string                `json:"status"`
}

// CandidateSummary is one row of the recruiter list.
type CandidateSummary struct {
	CandidateID string    `json:"candidateId"`
	FileName    string    `json:"fileName"`
	AppliedAt   time.Time `json:"appliedAt"`
	Status      string    `json:"status"`
}

// CandidateList wraps the recruiter list for output formatting.
type CandidateList struct {
	Candidates []CandidateSummary `json:"candidates"`
}

// FitReport is the evaluator output for one candidate.
type FitReport struct {
	CandidateID string `json:"candidateId"`
	Report      string `json:"report"`
}

// Application is the result of submitting a résumé.
type Application struct {
	CandidateID string           `json:"candidateId"`
	SessionID   string           `json:"sessionId"`
	StorageURL  string           `json:"storageUrl"`
	Profile     CandidateProfile `json:"profile"`
	Greeting    string           `json:"greeting"`
}

// TurnResult is the outcome of one candidate message.
type TurnResult struct {
	Reply           string `json:"reply"`
	Ended           bool   `json:"ended"`
	TranscriptSaved bool   `json:"transcriptSaved"`
}

// CandidateRecord joins a candidate's upload with their latest transcript.
type CandidateRecord struct {
	CandidateID   string                `json:"candidateId"`
	Summary       string                `json:"summary"`
	Transcript    []ConversationMessage `json:"transcript,omitempty"`
	HasTranscript bool                  `json:"hasTranscript"`
}

// Session is one in-flight interview.
type Session struct {
	ID              string                `json:"id"`
	CandidateID     string                `json:"candidateId"`
	Messages        []ConversationMessage `json:"messages"`
	Ended           bool                  `json:"ended"`
	TranscriptSaved bool                  `json:"transcriptSaved"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}
