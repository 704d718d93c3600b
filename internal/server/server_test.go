package server

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"airecruiter/internal/ai"
	"airecruiter/internal/config"
	"airecruiter/internal/errors"
	"airecruiter/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecruiter struct {
	jobDescription string
	uploadedName   string
	uploadedData   []byte
	lastMessage    string
	lastOverride   string
	err            error
}

func (f *fakeRecruiter) StartApplication(_ context.Context, fileName string, data []byte) (types.Application, error) {
	f.uploadedName, f.uploadedData = fileName, data
	if f.err != nil {
		return types.Application{}, f.err
	}
	return types.Application{CandidateID: "c-1", SessionID: "s-1", Greeting: "Hello!"}, nil
}

func (f *fakeRecruiter) Session(_ context.Context, id string) (types.Session, error) {
	if id != "s-1" {
		return types.Session{}, errors.NewNotFoundError(errors.ErrCodeSessionNotFound, "Session not found", nil)
	}
	return types.Session{ID: "s-1", CandidateID: "c-1"}, nil
}

func (f *fakeRecruiter) Reply(_ context.Context, id, message string) (types.TurnResult, error) {
	f.lastMessage = message
	if f.err != nil {
		return types.TurnResult{}, f.err
	}
	return types.TurnResult{Reply: "Tell me more.", Ended: false}, nil
}

func (f *fakeRecruiter) SaveTranscript(_ context.Context, id string) (types.Session, error) {
	if f.err != nil {
		return types.Session{}, f.err
	}
	return types.Session{ID: id, Ended: true, TranscriptSaved: true}, nil
}

func (f *fakeRecruiter) ListCandidates(context.Context) (types.CandidateList, error) {
	if f.err != nil {
		return types.CandidateList{}, f.err
	}
	return types.CandidateList{Candidates: []types.CandidateSummary{{CandidateID: "c-1", FileName: "cv.pdf"}}}, nil
}

func (f *fakeRecruiter) Report(_ context.Context, id, override string) (types.FitReport, error) {
	f.lastOverride = override
	if f.err != nil {
		return types.FitReport{}, f.err
	}
	return types.FitReport{CandidateID: id, Report: "80% Recommended"}, nil
}

func (f *fakeRecruiter) SetJobDescription(text string) error {
	f.jobDescription = strings.TrimSpace(text)
	return nil
}

func (f *fakeRecruiter) JobDescription() string { return f.jobDescription }

type fakeModel struct {
	operation string
	available bool
}

func (m fakeModel) Operation() string { return m.operation }

func (m fakeModel) GetModelInfo(context.Context) *ai.ModelInfo {
	return &ai.ModelInfo{Name: "gemini-2.5-flash", Available: m.available}
}

func (m fakeModel) GetCircuitBreakerStats() map[string]any {
	return map[string]any{"operation": m.operation, "healthy": m.available}
}

func newTestServer(rec Recruiter, cfg ServerConfig, models ...ModelChecker) *Server {
	return NewServer(&config.Config{}, cfg, rec, models, nil, errors.Discard())
}

func do(t *testing.T, h http.Handler, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var jsonHeader = map[string]string{"Content-Type": "application/json"}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func multipartCV(t *testing.T, field, name string, content []byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		models     []ModelChecker
		wantStatus int
		wantState  string
	}{
		{"all available", []ModelChecker{fakeModel{"analyze", true}, fakeModel{"conversation", true}}, http.StatusOK, "healthy"},
		{"one down", []ModelChecker{fakeModel{"analyze", true}, fakeModel{"evaluate", false}}, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeRecruiter{}, ServerConfig{APIKeys: []string{"secret-key-123"}}, tt.models...)
			rec := do(t, s.Handler(), http.MethodGet, "/health", nil, nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode[map[string]any](t, rec)
			assert.Equal(t, tt.wantState, body["status"])
			assert.Len(t, body["ai_models"], len(tt.models))
			assert.Len(t, body["circuit_breakers"], len(tt.models))
		})
	}
}

func TestStatsIsPublic(t *testing.T) {
	s := newTestServer(&fakeRecruiter{}, ServerConfig{
		APIKeys:   []string{"secret-key-123"},
		RateLimit: &config.RateLimitConfig{Enabled: true, RequestsPerMin: 60, BurstCapacity: 5, ByIP: true},
	})
	defer s.RateLimiter.Close()

	rec := do(t, s.Handler(), http.MethodGet, "/stats", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Contains(t, body, "rate_limiting")
	assert.Contains(t, body, "rate_limit_config")
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(&fakeRecruiter{}, ServerConfig{APIKeys: []string{"secret-key-123"}})
	h := s.Handler()

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"missing key", nil, http.StatusUnauthorized},
		{"wrong key", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"header key", map[string]string{"X-API-Key": "secret-key-123"}, http.StatusOK},
		{"bearer token", map[string]string{"Authorization": "Bearer secret-key-123"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/candidates", nil, tt.headers)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				body := decode[ErrorResponse](t, rec)
				assert.NotEmpty(t, body.Error)
			}
		})
	}
}

func TestJobDescriptionRoutes(t *testing.T) {
	fake := &fakeRecruiter{}
	h := newTestServer(fake, ServerConfig{}).Handler()

	rec := do(t, h, http.MethodPut, "/job-description", []byte(`{"jobDescription":"  Backend Engineer, Warsaw "}`), jsonHeader)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Backend Engineer, Warsaw", decode[JobDescriptionResponse](t, rec).JobDescription)

	rec = do(t, h, http.MethodGet, "/job-description", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Backend Engineer, Warsaw", decode[JobDescriptionResponse](t, rec).JobDescription)

	rec = do(t, h, http.MethodPut, "/job-description", []byte(`not json`), jsonHeader)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/job-description", []byte(`{}`), map[string]string{"Content-Type": "text/plain"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodDelete, "/job-description", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestApplicationUpload(t *testing.T) {
	fake := &fakeRecruiter{}
	h := newTestServer(fake, ServerConfig{MaxRequestSize: 1 << 20}).Handler()

	body, contentType := multipartCV(t, "cv", "anna.pdf", []byte("%PDF-1.4"))
	rec := do(t, h, http.MethodPost, "/applications", body, map[string]string{"Content-Type": contentType})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	app := decode[types.Application](t, rec)
	assert.Equal(t, "s-1", app.SessionID)
	assert.Equal(t, "anna.pdf", fake.uploadedName)
	assert.Equal(t, []byte("%PDF-1.4"), fake.uploadedData)
}

func TestApplicationUploadErrors(t *testing.T) {
	t.Run("wrong field", func(t *testing.T) {
		h := newTestServer(&fakeRecruiter{}, ServerConfig{}).Handler()
		body, contentType := multipartCV(t, "resume", "anna.pdf", []byte("x"))
		rec := do(t, h, http.MethodPost, "/applications", body, map[string]string{"Content-Type": contentType})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		h := newTestServer(&fakeRecruiter{}, ServerConfig{}).Handler()
		rec := do(t, h, http.MethodPost, "/applications", []byte(`{}`), jsonHeader)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("too large", func(t *testing.T) {
		h := newTestServer(&fakeRecruiter{}, ServerConfig{MaxRequestSize: 64}).Handler()
		body, contentType := multipartCV(t, "cv", "anna.pdf", bytes.Repeat([]byte("x"), 1024))
		rec := do(t, h, http.MethodPost, "/applications", body, map[string]string{"Content-Type": contentType})
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("storage unavailable", func(t *testing.T) {
		fake := &fakeRecruiter{err: errors.NewUnavailableError(errors.ErrCodeServiceUnavailable, "Object storage is unavailable", nil)}
		h := newTestServer(fake, ServerConfig{}).Handler()
		body, contentType := multipartCV(t, "cv", "anna.pdf", []byte("x"))
		rec := do(t, h, http.MethodPost, "/applications", body, map[string]string{"Content-Type": contentType})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "Failed to process application", decode[ErrorResponse](t, rec).Error)
	})
}

func TestSessionRoutes(t *testing.T) {
	fake := &fakeRecruiter{}
	h := newTestServer(fake, ServerConfig{}).Handler()

	rec := do(t, h, http.MethodGet, "/sessions/s-1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "c-1", decode[types.Session](t, rec).CandidateID)

	rec = do(t, h, http.MethodGet, "/sessions/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/sessions/s-1/messages", []byte(`{"message":"What is the salary range?"}`), jsonHeader)
	require.Equal(t, http.StatusOK, rec.Code)
	turn := decode[types.TurnResult](t, rec)
	assert.Equal(t, "Tell me more.", turn.Reply)
	assert.False(t, turn.Ended)
	assert.Equal(t, "What is the salary range?", fake.lastMessage)

	rec = do(t, h, http.MethodPost, "/sessions/s-1/transcript", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[types.Session](t, rec).TranscriptSaved)

	fake.err = errors.NewValidationError(errors.ErrCodeSessionEnded, "The interview has already ended", nil)
	rec = do(t, h, http.MethodPost, "/sessions/s-1/messages", []byte(`{"message":"hi"}`), jsonHeader)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Message, errors.ErrCodeSessionEnded)
}

func TestCandidateRoutes(t *testing.T) {
	fake := &fakeRecruiter{}
	h := newTestServer(fake, ServerConfig{}).Handler()

	rec := do(t, h, http.MethodGet, "/candidates", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[types.CandidateList](t, rec).Candidates, 1)

	rec = do(t, h, http.MethodPost, "/candidates/c-1/report", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "80% Recommended", decode[types.FitReport](t, rec).Report)
	assert.Equal(t, "", fake.lastOverride)

	rec = do(t, h, http.MethodPost, "/candidates/c-1/report", []byte(`{"jobDescription":"QA Engineer"}`), jsonHeader)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "QA Engineer", fake.lastOverride)

	fake.err = errors.NewNotFoundError(errors.ErrCodeCandidateNotFound, "No uploaded CV", nil)
	rec = do(t, h, http.MethodPost, "/candidates/missing/report", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Candidate not found", decode[ErrorResponse](t, rec).Error)

	fake.err = errors.NewUnavailableError(errors.ErrCodeServiceUnavailable, "Candidate warehouse is unavailable", nil)
	rec = do(t, h, http.MethodGet, "/candidates", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(&fakeRecruiter{}, ServerConfig{
		RateLimit: &config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 1, ByIP: true},
	})
	defer s.RateLimiter.Close()
	h := s.Handler()

	first := do(t, h, http.MethodGet, "/candidates", nil, nil)
	second := do(t, h, http.MethodGet, "/candidates", nil, nil)
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// Health stays reachable while the client is throttled.
	health := do(t, h, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, health.Code)

	assert.Equal(t, 1, s.RateLimiter.GetStats()["active_limiters"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.NewValidationError(errors.ErrCodeInvalidRequest, "bad", nil), http.StatusBadRequest},
		{errors.NewNotFoundError(errors.ErrCodeCandidateNotFound, "missing", nil), http.StatusNotFound},
		{errors.NewUnavailableError(errors.ErrCodeServiceUnavailable, "down", nil), http.StatusServiceUnavailable},
		{errors.NewAIError(errors.ErrCodeAIServiceFailed, "model", nil), http.StatusBadGateway},
		{errors.NewNetworkError(errors.ErrCodeWarehouseWriteFailed, "insert", nil), http.StatusBadGateway},
		{errors.NewInternalError(errors.ErrCodeInvalidFormat, "oops", nil), http.StatusInternalServerError},
		{stderrors.New("plain"), http.StatusInternalServerError},
		{&http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded for", map[string]string{"X-Forwarded-For": "garbage, 203.0.113.7, 10.0.0.1"}, "10.0.0.2:5000", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.4"}, "10.0.0.2:5000", "198.51.100.4"},
		{"remote addr", nil, "192.0.2.1:1234", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "abcdefgh****", maskAPIKey("abcdefghijkl"))
}

func TestBuildTLSConfigRequiresFiles(t *testing.T) {
	s := newTestServer(&fakeRecruiter{}, ServerConfig{TLSConfig: config.TLSConfig{Mode: "server"}})
	_, err := s.buildTLSConfig()
	assert.Error(t, err)

	err = s.configureTLS(&http.Server{})
	assert.Error(t, err)

	s.TLSConfig.Mode = "mutual"
	assert.Error(t, s.configureTLS(&http.Server{}))
}

func TestBannerListsRoutes(t *testing.T) {
	s := newTestServer(&fakeRecruiter{}, ServerConfig{
		APIKeys:        []string{"k"},
		MaxRequestSize: 2 << 20,
		RateLimit:      &config.RateLimitConfig{Enabled: true, RequestsPerMin: 30, BurstCapacity: 3, ByAPIKey: true, ByIP: true},
	})
	defer s.RateLimiter.Close()

	var buf bytes.Buffer
	writeBanner(&buf, s, "http://127.0.0.1:8080")
	out := buf.String()

	assert.Contains(t, out, "Recruiter API on http://127.0.0.1:8080")

	for _, rt := range s.routes() {
		_, path, _ := strings.Cut(rt.pattern, " ")
		assert.Contains(t, out, path)
	}
	assert.Contains(t, out, "API keys: 1 accepted")
	assert.Contains(t, out, "Upload limit: 2.0 MB")
	assert.Contains(t, out, "30/min, burst 3, keyed by api key then ip")
}

func TestRateLimiterEvictsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(60, 1, errors.Discard())
	defer rl.Close()

	assert.True(t, rl.Allow("ip:a"))
	assert.False(t, rl.Allow("ip:a"))
	assert.True(t, rl.Allow("ip:b"))

	rl.evictIdle(time.Now().Add(time.Minute))
	assert.Equal(t, 0, rl.GetStats()["active_limiters"])
	assert.Equal(t, 60.0, rl.GetStats()["rate_per_minute"])

	// a fresh bucket starts full again
	assert.True(t, rl.Allow("ip:a"))

	var nilLimiter *RateLimiter
	nilLimiter.Close()
}

func TestStartStopsOnCancel(t *testing.T) {
	s := newTestServer(&fakeRecruiter{}, ServerConfig{Host: "127.0.0.1", Port: "0"})
	s.Out = nil

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
