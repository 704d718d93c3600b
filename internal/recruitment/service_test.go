package recruitment

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"airecruiter/internal/ai"
	"airecruiter/internal/analyzer"
	"airecruiter/internal/config"
	"airecruiter/internal/conversation"
	"airecruiter/internal/errors"
	"airecruiter/internal/evaluator"
	"airecruiter/internal/jobdesc"
	"airecruiter/internal/resume"
	"airecruiter/internal/session"
	"airecruiter/internal/storage"
	"airecruiter/internal/store"
	"airecruiter/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedGenerator answers by operation, told apart by prompt content
type scriptedGenerator struct {
	mu         sync.Mutex
	analysis   string
	replies    []string
	report     string
	replyErr   error
	calls      int
	lastPrompt string
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, *ai.TokenUsage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.lastPrompt = prompt

	switch {
	case strings.Contains(prompt, "Conversation history"):
		if g.replyErr != nil {
			return "", nil, g.replyErr
		}
		if len(g.replies) == 0 {
			return "Tell me more.", nil, nil
		}
		reply := g.replies[0]
		g.replies = g.replies[1:]
		return reply, nil, nil
	case strings.Contains(prompt, "fit report"):
		return g.report, nil, nil
	default:
		return g.analysis, nil, nil
	}
}

type noKnowledge struct{}

func (noKnowledge) Retrieve(context.Context, string) string { return "" }

// failingRecords wraps a store and fails transcript writes on demand
type failingRecords struct {
	store.Store
	failTranscript bool
}

func (f *failingRecords) RecordTranscript(ctx context.Context, event types.TranscriptEvent) error {
	if f.failTranscript {
		return errors.NewNetworkError(errors.ErrCodeWarehouseWriteFailed, "insert failed", stderrors.New("503"))
	}
	return f.Store.RecordTranscript(ctx, event)
}

func (f *failingRecords) ListCandidates(ctx context.Context, limit int) ([]types.CandidateSummary, error) {
	if f.failTranscript {
		return nil, errors.NewNetworkError(errors.ErrCodeWarehouseReadFailed, "query failed", nil)
	}
	return f.Store.ListCandidates(ctx, limit)
}

// failingSessions rejects saves of ended sessions on demand
type failingSessions struct {
	session.Store
	failEnded bool
}

func (f *failingSessions) Save(ctx context.Context, sess types.Session) error {
	if f.failEnded && sess.Ended {
		return errors.NewUnavailableError(errors.ErrCodeServiceUnavailable, "session store down", nil)
	}
	return f.Store.Save(ctx, sess)
}

type harness struct {
	svc      *Service
	gen      *scriptedGenerator
	records  *failingRecords
	sessions *session.MemoryStore
	dir      string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := errors.Discard()

	dir := t.TempDir()
	objects, err := storage.NewLocalStore(dir)
	require.NoError(t, err)

	holder, err := jobdesc.NewHolder("", logger)
	require.NoError(t, err)

	gen := &scriptedGenerator{
		analysis: "Name: Anna Nowak\nTitle: Backend Developer\nCompany: Acme\nSkills: Go",
		report:   "1. CV fit\n2. Interview fit\n3. 80% Recommended",
	}
	records := &failingRecords{Store: store.NewMemoryStore()}
	sessions := session.NewMemoryStore(0)

	convCfg := config.ConversationConfig{
		ClosingPhrases:       []string{"thank you", "goodbye"},
		Language:             "English",
		ApologyReply:         "Sorry, something went wrong.",
		NoContextPlaceholder: "No additional information.",
	}

	svc := New(Deps{
		Extractor:    resume.NewExtractor(0),
		Objects:      objects,
		Analyzer:     analyzer.New(gen, nil, "English", logger),
		Greeter:      analyzer.Greeting,
		Conversation: conversation.New(gen, noKnowledge{}, nil, convCfg, logger),
		Evaluator:    evaluator.New(gen, records, nil, evaluator.Options{Language: "English"}, logger),
		Records:      records,
		Sessions:     sessions,
		JobDesc:      holder,
	}, logger)

	ids := 0
	svc.newID = func() string {
		ids++
		return fmt.Sprintf("id-%d", ids)
	}
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }

	return &harness{svc: svc, gen: gen, records: records, sessions: sessions, dir: dir}
}

func TestStartApplication(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	app, err := h.svc.StartApplication(ctx, "C:\\Users\\anna\\cv.txt", []byte("Anna Nowak\nGo developer at Acme"))
	require.NoError(t, err)

	assert.Equal(t, "id-1", app.CandidateID)
	assert.Equal(t, "id-2", app.SessionID)
	assert.True(t, strings.HasPrefix(app.StorageURL, "file://"))
	assert.True(t, strings.HasSuffix(app.StorageURL, "/cv.txt"))
	assert.Equal(t, "Anna Nowak", app.Profile.CandidateName)
	assert.Contains(t, app.Greeting, "Backend Developer at Acme")

	list, err := h.svc.ListCandidates(ctx)
	require.NoError(t, err)
	require.Len(t, list.Candidates, 1)
	assert.Equal(t, "cv.txt", list.Candidates[0].FileName)
	assert.Equal(t, types.StatusCVSubmitted, list.Candidates[0].Status)

	sess, err := h.svc.Session(ctx, app.SessionID)
	require.NoError(t, err)
	assert.Equal(t, []types.ConversationMessage{{Role: types.RoleAssistant, Content: app.Greeting}}, sess.Messages)
	assert.False(t, sess.Ended)
}

func TestStartApplicationUploadFailureCreatesNothing(t *testing.T) {
	h := newHarness(t)
	h.svc.deps.Objects = storage.NewUnavailable(stderrors.New("bucket missing"), errors.Discard())

	_, err := h.svc.StartApplication(context.Background(), "cv.txt", []byte("text"))
	require.Error(t, err)
	assert.True(t, errors.IsUnavailable(err))
	assert.Zero(t, h.gen.calls, "analysis runs after a successful upload")

	list, err := h.svc.ListCandidates(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list.Candidates)
}

func TestStartApplicationRejectsUnsupportedFile(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.StartApplication(context.Background(), "cv.exe", []byte("MZ"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeValidation, errors.TypeOf(err))

	_, err = h.svc.StartApplication(context.Background(), "..", []byte("x"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeValidation, errors.TypeOf(err))
}

func TestInterviewToReport(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.svc.SetJobDescription("Backend Engineer, Warsaw"))

	app, err := h.svc.StartApplication(ctx, "cv.txt", []byte("Anna Nowak"))
	require.NoError(t, err)

	h.gen.replies = []string{
		"What was your biggest project?",
		"Thanks, we will be in touch. [END OF CONVERSATION]",
	}

	turn, err := h.svc.Reply(ctx, app.SessionID, "I built payment systems in Go.")
	require.NoError(t, err)
	assert.False(t, turn.Ended)
	assert.Equal(t, "What was your biggest project?", turn.Reply)
	assert.Contains(t, h.gen.lastPrompt, "Backend Engineer, Warsaw")

	turn, err = h.svc.Reply(ctx, app.SessionID, "A billing platform for 2M users.")
	require.NoError(t, err)
	assert.True(t, turn.Ended)
	assert.True(t, turn.TranscriptSaved)
	assert.Equal(t, "Thanks, we will be in touch.", turn.Reply)

	_, err = h.svc.Reply(ctx, app.SessionID, "one more thing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), errors.ErrCodeSessionEnded)

	sess, err := h.svc.Session(ctx, app.SessionID)
	require.NoError(t, err)
	assert.Len(t, sess.Messages, 5)

	record, err := h.records.CandidateRecord(ctx, app.CandidateID)
	require.NoError(t, err)
	assert.Equal(t, sess.Messages, record.Transcript)

	report, err := h.svc.Report(ctx, app.CandidateID, "")
	require.NoError(t, err)
	assert.Equal(t, "1. CV fit\n2. Interview fit\n3. 80% Recommended", report.Report)
	assert.Contains(t, h.gen.lastPrompt, "Backend Engineer, Warsaw")
	assert.Contains(t, h.gen.lastPrompt, "user: A billing platform for 2M users.")

	_, err = h.svc.Report(ctx, app.CandidateID, "Data Engineer, Kraków")
	require.NoError(t, err)
	assert.Contains(t, h.gen.lastPrompt, "Data Engineer, Kraków")
	assert.Equal(t, "Backend Engineer, Warsaw", h.svc.JobDescription())
}

func TestClosingPhraseEndsInterview(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	app, err := h.svc.StartApplication(ctx, "cv.txt", []byte("Anna"))
	require.NoError(t, err)

	turn, err := h.svc.Reply(ctx, app.SessionID, "That's all, thank you!")
	require.NoError(t, err)
	assert.True(t, turn.Ended)
	assert.True(t, turn.TranscriptSaved)
}

func TestModelFailureEndsWithApologyAndSavesTranscript(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	app, err := h.svc.StartApplication(ctx, "cv.txt", []byte("Anna"))
	require.NoError(t, err)

	h.gen.replyErr = stderrors.New("model overloaded")
	turn, err := h.svc.Reply(ctx, app.SessionID, "I like Go.")
	require.NoError(t, err)
	assert.True(t, turn.Ended)
	assert.Equal(t, "Sorry, something went wrong.", turn.Reply)
	assert.True(t, turn.TranscriptSaved)
}

func TestTranscriptSaveFailureCanBeRetried(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	app, err := h.svc.StartApplication(ctx, "cv.txt", []byte("Anna"))
	require.NoError(t, err)

	_, err = h.svc.SaveTranscript(ctx, app.SessionID)
	require.Error(t, err, "an interview in progress has nothing to save")
	assert.Equal(t, errors.ErrorTypeValidation, errors.TypeOf(err))

	h.records.failTranscript = true
	turn, err := h.svc.Reply(ctx, app.SessionID, "goodbye")
	require.NoError(t, err)
	assert.True(t, turn.Ended)
	assert.False(t, turn.TranscriptSaved)

	sess, err := h.svc.Session(ctx, app.SessionID)
	require.NoError(t, err)
	assert.True(t, sess.Ended)
	assert.False(t, sess.TranscriptSaved)
	assert.Len(t, sess.Messages, 3)

	_, err = h.svc.SaveTranscript(ctx, app.SessionID)
	require.Error(t, err)

	h.records.failTranscript = false
	sess, err = h.svc.SaveTranscript(ctx, app.SessionID)
	require.NoError(t, err)
	assert.True(t, sess.TranscriptSaved)

	record, err := h.records.CandidateRecord(ctx, app.CandidateID)
	require.NoError(t, err)
	assert.Equal(t, sess.Messages, record.Transcript)

	again, err := h.svc.SaveTranscript(ctx, app.SessionID)
	require.NoError(t, err)
	assert.Equal(t, sess, again)
}

func TestReplyValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Reply(ctx, "missing", "hello")
	assert.True(t, errors.IsNotFound(err))

	_, err = h.svc.Reply(ctx, "missing", "   ")
	assert.Equal(t, errors.ErrorTypeValidation, errors.TypeOf(err))
}

func TestListCandidatesSafeDefault(t *testing.T) {
	h := newHarness(t)
	h.records.failTranscript = true

	list, err := h.svc.ListCandidates(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list.Candidates)
	assert.Empty(t, list.Candidates)

	h.svc.deps.Records = store.NewUnavailable(stderrors.New("no credentials"), errors.Discard())
	_, err = h.svc.ListCandidates(context.Background())
	assert.True(t, errors.IsUnavailable(err))
}

func TestReportPreconditions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	app, err := h.svc.StartApplication(ctx, "cv.txt", []byte("Anna"))
	require.NoError(t, err)
	calls := h.gen.calls

	_, err = h.svc.Report(ctx, app.CandidateID, "")
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeValidation, errors.TypeOf(err))

	_, err = h.svc.Report(ctx, "missing", "")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err), "unknown candidate wins over a missing job description")

	_, err = h.svc.Report(ctx, "missing", "QA Engineer")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, calls, h.gen.calls)
}

func TestEndedSessionStoredBeforeTranscript(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	app, err := h.svc.StartApplication(ctx, "cv.txt", []byte("Anna"))
	require.NoError(t, err)

	sessions := &failingSessions{Store: h.sessions, failEnded: true}
	h.svc.deps.Sessions = sessions

	_, err = h.svc.Reply(ctx, app.SessionID, "goodbye")
	require.Error(t, err)
	record, err := h.records.CandidateRecord(ctx, app.CandidateID)
	require.NoError(t, err)
	assert.False(t, record.HasTranscript, "no transcript row without a stored ended session")

	sessions.failEnded = false
	turn, err := h.svc.Reply(ctx, app.SessionID, "goodbye")
	require.NoError(t, err)
	assert.True(t, turn.Ended)
	assert.True(t, turn.TranscriptSaved)

	_, err = h.svc.Reply(ctx, app.SessionID, "goodbye")
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeValidation, errors.TypeOf(err))

	sess, err := h.svc.Session(ctx, app.SessionID)
	require.NoError(t, err)
	assert.True(t, sess.TranscriptSaved)
}

func TestKeyedMutexSerializesAndCleansUp(t *testing.T) {
	k := newKeyedMutex()
	counter := 0

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("s-1")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Empty(t, k.locks)
}
