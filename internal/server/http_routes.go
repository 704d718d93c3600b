package server

import (
	"net/http"
	"strings"
)

// route is one API endpoint. Public routes skip auth, rate and size limits.
type route struct {
	pattern string
	summary string
	handler http.HandlerFunc
	public  bool
}

func (s *Server) routes() []route {
	return []route{
		{"GET /health", "Model availability per operation", s.healthHandler, true},
		{"GET /stats", "Limits and rate limiter state", s.statsHandler, true},
		{"GET /job-description", "Active job description", s.getJobDescriptionHandler, false},
		{"PUT /job-description", "Replace the job description", s.putJobDescriptionHandler, false},
		{"POST /applications", `Upload a CV in multipart field "cv"`, s.applicationHandler, false},
		{"GET /sessions/{id}", "Interview session", s.sessionHandler, false},
		{"POST /sessions/{id}/messages", "Candidate message", s.messageHandler, false},
		{"POST /sessions/{id}/transcript", "Retry saving the transcript", s.transcriptHandler, false},
		{"GET /candidates", "Recent applications", s.candidatesHandler, false},
		{"POST /candidates/{id}/report", "Fit report", s.reportHandler, false},
	}
}

// Handler returns the API mux wrapped in the tracing middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	rateLimit := s.rateLimitMiddleware()
	guard := func(h http.HandlerFunc) http.HandlerFunc {
		return rateLimit(s.authMiddleware(s.limitBody(h)))
	}
	for _, rt := range s.routes() {
		h := rt.handler
		if !rt.public {
			h = guard(h)
		}
		mux.HandleFunc(rt.pattern, h)
	}

	return s.Observer.HTTPMiddleware()(mux)
}

// authMiddleware admits requests carrying one of the configured keys. With
// no keys configured every request passes.
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(s.apiKeys) == 0 {
			next(w, r)
			return
		}

		key := requestAPIKey(r)
		switch {
		case key == "":
			s.Logger.Info("Request rejected without API key", "endpoint", r.URL.Path, "client_ip", getClientIP(r))
			writeErrorResponse(w, "Missing API key", "X-API-Key header or Authorization Bearer token required", http.StatusUnauthorized)
		case !s.apiKeys[key]:
			s.Logger.Info("Request rejected with unknown API key",
				"endpoint", r.URL.Path, "client_ip", getClientIP(r), "api_key_prefix", maskAPIKey(key))
			writeErrorResponse(w, "Invalid API key", "Unauthorized access", http.StatusUnauthorized)
		default:
			next(w, r)
		}
	}
}

// requestAPIKey reads X-API-Key, falling back to a Bearer token
func requestAPIKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return token
	}
	return ""
}

// limitBody caps the request body at MaxRequestSize
func (s *Server) limitBody(next http.HandlerFunc) http.HandlerFunc {
	if s.MaxRequestSize <= 0 {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
		next(w, r)
	}
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:8] + "****"
}
