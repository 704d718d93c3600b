package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"airecruiter/internal/errors"

	"go.opentelemetry.io/otel/attribute"
)

// maxMultipartMemory is held in memory before parts spill to disk
const maxMultipartMemory = 8 << 20

func (s *Server) getJobDescriptionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, JobDescriptionResponse{JobDescription: s.Recruiter.JobDescription()})
}

func (s *Server) putJobDescriptionHandler(w http.ResponseWriter, r *http.Request) {
	var req JobDescriptionRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.writeAppError(w, r, "Invalid request body", err)
		return
	}
	if err := s.Recruiter.SetJobDescription(req.JobDescription); err != nil {
		s.writeAppError(w, r, "Failed to set job description", err)
		return
	}
	writeJSON(w, http.StatusOK, JobDescriptionResponse{JobDescription: s.Recruiter.JobDescription()})
}

// applicationHandler accepts a multipart upload in the "cv" field
func (s *Server) applicationHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observer.Tracer("airecruiter.api").Start(r.Context(), "api.applications")
	defer span.End()

	if s.MaxRequestSize > 0 && r.ContentLength > s.MaxRequestSize {
		writeErrorResponse(w, "Upload too large",
			fmt.Sprintf("request body exceeds %d bytes", s.MaxRequestSize), http.StatusRequestEntityTooLarge)
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		span.RecordError(err)
		if statusFor(err) == http.StatusRequestEntityTooLarge {
			writeErrorResponse(w, "Upload too large", err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		writeErrorResponse(w, "Invalid upload", "multipart/form-data with a \"cv\" file is required", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("cv")
	if err != nil {
		span.RecordError(err)
		writeErrorResponse(w, "Missing CV", "the \"cv\" file field is required", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeAppError(w, r, "Failed to read upload", readBodyError(err))
		return
	}
	span.SetAttributes(
		attribute.String("upload.file_name", header.Filename),
		attribute.Int("upload.size", len(data)),
	)

	app, err := s.Recruiter.StartApplication(ctx, header.Filename, data)
	if err != nil {
		span.RecordError(err)
		s.writeAppError(w, r, "Failed to process application", err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Recruiter.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeAppError(w, r, "Failed to load session", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) messageHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observer.Tracer("airecruiter.api").Start(r.Context(), "api.messages")
	defer span.End()

	var req MessageRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.writeAppError(w, r, "Invalid request body", err)
		return
	}

	turn, err := s.Recruiter.Reply(ctx, r.PathValue("id"), req.Message)
	if err != nil {
		span.RecordError(err)
		s.writeAppError(w, r, "Failed to process message", err)
		return
	}
	span.SetAttributes(attribute.Bool("ended", turn.Ended), attribute.Bool("transcript_saved", turn.TranscriptSaved))
	writeJSON(w, http.StatusOK, turn)
}

func (s *Server) transcriptHandler(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Recruiter.SaveTranscript(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeAppError(w, r, "Failed to save transcript", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) candidatesHandler(w http.ResponseWriter, r *http.Request) {
	list, err := s.Recruiter.ListCandidates(r.Context())
	if err != nil {
		s.writeAppError(w, r, "Failed to list candidates", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// reportHandler evaluates a candidate. The body is optional and overrides
// the active job description.
func (s *Server) reportHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observer.Tracer("airecruiter.api").Start(r.Context(), "api.report")
	defer span.End()

	var req JobDescriptionRequest
	if r.ContentLength != 0 && r.Header.Get("Content-Type") != "" {
		if err := parseJSONRequest(r, &req); err != nil {
			s.writeAppError(w, r, "Invalid request body", err)
			return
		}
	}

	candidateID := r.PathValue("id")
	span.SetAttributes(
		attribute.String("candidate.id", candidateID),
		attribute.Bool("job_description.override", strings.TrimSpace(req.JobDescription) != ""),
	)

	report, err := s.Recruiter.Report(ctx, candidateID, req.JobDescription)
	if err != nil {
		span.RecordError(err)
		if errors.IsNotFound(err) {
			writeErrorResponse(w, "Candidate not found", err.Error(), http.StatusNotFound)
			return
		}
		s.writeAppError(w, r, "Failed to generate report", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
