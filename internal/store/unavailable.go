package store

import (
	"context"

	"airecruiter/internal/errors"
	"airecruiter/internal/types"
)

// Unavailable stands in for a warehouse whose client failed to start.
// Every operation reports the original cause.
type Unavailable struct {
	err error
}

var _ Store = (*Unavailable)(nil)

// NewUnavailable logs the cause once and returns the stand-in
func NewUnavailable(cause error, logger *errors.Logger) *Unavailable {
	logger.LogError(cause, "Candidate warehouse is unavailable")
	return &Unavailable{err: errors.NewUnavailableError(errors.ErrCodeServiceUnavailable,
		"Candidate warehouse is unavailable", cause)}
}

func (u *Unavailable) RecordUpload(context.Context, types.UploadEvent) error { return u.err }

func (u *Unavailable) RecordTranscript(context.Context, types.TranscriptEvent) error { return u.err }

func (u *Unavailable) ListCandidates(context.Context, int) ([]types.CandidateSummary, error) {
	return nil, u.err
}

func (u *Unavailable) CandidateRecord(context.Context, string) (types.CandidateRecord, error) {
	return types.CandidateRecord{}, u.err
}

func (u *Unavailable) Close() error { return nil }
