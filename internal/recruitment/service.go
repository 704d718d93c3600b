// Package recruitment composes résumé intake, the interview and recruiter
// reports into the operations the surfaces call.
package recruitment

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	"airecruiter/internal/conversation"
	"airecruiter/internal/errors"
	"airecruiter/internal/jobdesc"
	"airecruiter/internal/observability"
	"airecruiter/internal/resume"
	"airecruiter/internal/session"
	"airecruiter/internal/storage"
	"airecruiter/internal/store"
	"airecruiter/internal/types"
	"airecruiter/internal/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultListLimit caps the recruiter list
const DefaultListLimit = 100

// ProfileAnalyzer turns résumé text into a profile
type ProfileAnalyzer interface {
	Analyze(ctx context.Context, resumeText string) types.CandidateProfile
}

// TurnTaker produces the assistant's next interview message
type TurnTaker interface {
	TakeTurn(ctx context.Context, history []types.ConversationMessage, jobDescription string) (conversation.Turn, error)
}

// ReportWriter produces a fit report
type ReportWriter interface {
	Evaluate(ctx context.Context, candidateID, jobDescription string) (string, error)
}

// Greeter picks the first interview message
type Greeter func(types.CandidateProfile) string

// Deps are the components a Service composes
type Deps struct {
	Extractor    *resume.Extractor
	Objects      storage.ObjectStore
	Analyzer     ProfileAnalyzer
	Greeter      Greeter
	Conversation TurnTaker
	Evaluator    ReportWriter
	Records      store.Store
	Sessions     session.Store
	JobDesc      *jobdesc.Holder
	Observer     *observability.ObservabilityManager
	ListLimit    int
}

// Service implements the candidate and recruiter operations
type Service struct {
	deps   Deps
	locks  *keyedMutex
	now    func() time.Time
	newID  func() string
	logger *errors.Logger
}

// New creates the service
func New(deps Deps, logger *errors.Logger) *Service {
	if deps.ListLimit <= 0 {
		deps.ListLimit = DefaultListLimit
	}
	return &Service{
		deps:   deps,
		locks:  newKeyedMutex(),
		now:    time.Now,
		newID:  uuid.NewString,
		logger: logger.With("component", "recruitment"),
	}
}

// StartApplication stores the résumé, records the upload and opens the
// interview session. Nothing is recorded when storage fails.
func (s *Service) StartApplication(ctx context.Context, fileName string, data []byte) (types.Application, error) {
	name, err := utils.SanitizeFileName(fileName)
	if err != nil {
		return types.Application{}, errors.NewValidationError(errors.ErrCodeInvalidRequest, "Invalid résumé file name", err)
	}

	text, err := s.deps.Extractor.Extract(name, data)
	if err != nil {
		s.recordMetric(ctx, observability.MetricCVUploaded, false)
		return types.Application{}, err
	}

	url, err := s.deps.Objects.Upload(ctx, name, bytes.NewReader(data), resume.ContentType(name))
	if err != nil {
		s.recordMetric(ctx, observability.MetricCVUploaded, false)
		s.logger.LogError(err, "Résumé upload failed", "file_name", name)
		return types.Application{}, err
	}

	profile := s.deps.Analyzer.Analyze(ctx, text)

	now := s.now().UTC()
	candidateID := s.newID()
	if err := s.deps.Records.RecordUpload(ctx, types.UploadEvent{
		CandidateID: candidateID,
		FileName:    name,
		StorageURL:  url,
		AppliedAt:   now,
		ResumeText:  text,
		Summary:     profile.Summary,
		Status:      types.StatusCVSubmitted,
	}); err != nil {
		s.recordMetric(ctx, observability.MetricCVUploaded, false)
		s.logger.LogError(err, "Failed to record upload", "candidate_id", candidateID)
		return types.Application{}, err
	}
	s.recordMetric(ctx, observability.MetricCVUploaded, true)

	greeting := s.deps.Greeter(profile)
	sess := types.Session{
		ID:          s.newID(),
		CandidateID: candidateID,
		Messages:    []types.ConversationMessage{{Role: types.RoleAssistant, Content: greeting}},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.deps.Sessions.Save(ctx, sess); err != nil {
		return types.Application{}, err
	}

	s.logger.Info("Application started", "candidate_id", candidateID, "session_id", sess.ID, "file_name", name)
	return types.Application{
		CandidateID: candidateID,
		SessionID:   sess.ID,
		StorageURL:  url,
		Profile:     profile,
		Greeting:    greeting,
	}, nil
}

// Session returns the stored interview
func (s *Service) Session(ctx context.Context, sessionID string) (types.Session, error) {
	return s.deps.Sessions.Get(ctx, sessionID)
}

// Reply runs one interview turn. When the interview ends the transcript is
// saved; a failed save leaves the session flagged unsaved.
func (s *Service) Reply(ctx context.Context, sessionID, message string) (types.TurnResult, error) {
	if strings.TrimSpace(message) == "" {
		return types.TurnResult{}, errors.NewValidationError(errors.ErrCodeInvalidRequest, "message is required", nil)
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	sess, err := s.deps.Sessions.Get(ctx, sessionID)
	if err != nil {
		return types.TurnResult{}, err
	}
	if sess.Ended {
		return types.TurnResult{}, errors.NewValidationError(errors.ErrCodeSessionEnded,
			"The interview has already ended", nil).WithContext("session_id", sessionID)
	}

	history := append(sess.Messages, types.ConversationMessage{Role: types.RoleUser, Content: message})
	turn, err := s.deps.Conversation.TakeTurn(ctx, history, s.deps.JobDesc.Get())
	if err != nil {
		return types.TurnResult{}, err
	}

	sess.Messages = append(history, types.ConversationMessage{Role: types.RoleAssistant, Content: turn.Reply})
	sess.UpdatedAt = s.now().UTC()

	sess.Ended = turn.Ended
	if err := s.deps.Sessions.Save(ctx, sess); err != nil {
		return types.TurnResult{}, err
	}

	// the ended session is stored before its transcript row
	if turn.Ended {
		s.recordMetric(ctx, observability.MetricConversationCompleted, !turn.ModelFailed)
		if s.saveTranscript(ctx, sess) == nil {
			sess.TranscriptSaved = true
			if err := s.deps.Sessions.Save(ctx, sess); err != nil {
				s.logger.Warn("Transcript saved but session flag not updated",
					"session_id", sess.ID, "error", err)
			}
		}
	}

	return types.TurnResult{
		Reply:           turn.Reply,
		Ended:           turn.Ended,
		TranscriptSaved: sess.TranscriptSaved,
	}, nil
}

// SaveTranscript retries the transcript write of an ended interview.
// Saving an already saved transcript is a no-op.
func (s *Service) SaveTranscript(ctx context.Context, sessionID string) (types.Session, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	sess, err := s.deps.Sessions.Get(ctx, sessionID)
	if err != nil {
		return types.Session{}, err
	}
	if !sess.Ended {
		return types.Session{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"The interview is still in progress", nil).WithContext("session_id", sessionID)
	}
	if sess.TranscriptSaved {
		return sess, nil
	}

	if err := s.saveTranscript(ctx, sess); err != nil {
		return types.Session{}, err
	}
	sess.TranscriptSaved = true
	sess.UpdatedAt = s.now().UTC()
	if err := s.deps.Sessions.Save(ctx, sess); err != nil {
		return types.Session{}, err
	}
	return sess, nil
}

func (s *Service) saveTranscript(ctx context.Context, sess types.Session) error {
	err := s.deps.Records.RecordTranscript(ctx, types.TranscriptEvent{
		CandidateID: sess.CandidateID,
		SavedAt:     s.now().UTC(),
		Messages:    sess.Messages,
		Status:      types.StatusInterviewFinished,
	})
	s.recordMetric(ctx, observability.MetricTranscriptSaved, err == nil)
	if err != nil {
		s.logger.LogError(err, "Failed to save transcript",
			"candidate_id", sess.CandidateID, "session_id", sess.ID)
	}
	return err
}

// ListCandidates returns recent uploads. A failed read yields an empty
// list; only an unavailable warehouse is reported.
func (s *Service) ListCandidates(ctx context.Context) (types.CandidateList, error) {
	candidates, err := s.deps.Records.ListCandidates(ctx, s.deps.ListLimit)
	if err != nil {
		if errors.IsUnavailable(err) {
			return types.CandidateList{}, err
		}
		s.logger.Warn("Candidate list read failed, returning empty list", "error", err)
		return types.CandidateList{Candidates: []types.CandidateSummary{}}, nil
	}
	if candidates == nil {
		candidates = []types.CandidateSummary{}
	}
	return types.CandidateList{Candidates: candidates}, nil
}

// Report evaluates a candidate. A non-blank override replaces the active
// job description for this report only.
func (s *Service) Report(ctx context.Context, candidateID, jobDescriptionOverride string) (types.FitReport, error) {
	jobDescription := strings.TrimSpace(jobDescriptionOverride)
	if jobDescription == "" {
		jobDescription = s.deps.JobDesc.Get()
	}
	if jobDescription == "" {
		// an unknown candidate reports not found before the missing description
		if _, err := s.deps.Records.CandidateRecord(ctx, strings.TrimSpace(candidateID)); errors.IsNotFound(err) {
			return types.FitReport{}, err
		}
		return types.FitReport{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"No job description is set", nil)
	}

	report, err := s.deps.Evaluator.Evaluate(ctx, candidateID, jobDescription)
	if errors.IsNotFound(err) {
		s.logger.Warn("Report requested for unknown candidate", "candidate_id", candidateID)
		return types.FitReport{}, err
	}
	s.recordMetric(ctx, observability.MetricReportGenerated, err == nil)
	if err != nil {
		return types.FitReport{}, err
	}
	return types.FitReport{CandidateID: candidateID, Report: report}, nil
}

// SetJobDescription replaces the active job description
func (s *Service) SetJobDescription(text string) error {
	return s.deps.JobDesc.Set(text)
}

// JobDescription returns the active job description
func (s *Service) JobDescription() string {
	return s.deps.JobDesc.Get()
}

func (s *Service) recordMetric(ctx context.Context, metric string, success bool) {
	s.deps.Observer.GetMetrics().RecordBusinessMetric(ctx, metric, success, s.deps.Observer,
		attribute.String("component", "recruitment"))
}

// keyedMutex serializes turns per session
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
