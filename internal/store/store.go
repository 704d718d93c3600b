// Package store is the append-only candidate event log.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"airecruiter/internal/errors"
	"airecruiter/internal/types"
)

// Store records candidate events and answers the recruiter's reads
type Store interface {
	// RecordUpload inserts the cv_uploaded event
	RecordUpload(ctx context.Context, event types.UploadEvent) error
	// RecordTranscript inserts a transcript_saved event
	RecordTranscript(ctx context.Context, event types.TranscriptEvent) error
	// ListCandidates returns the newest uploads first
	ListCandidates(ctx context.Context, limit int) ([]types.CandidateSummary, error)
	// CandidateRecord returns the latest upload summary joined with the
	// latest transcript. A missing upload is a not-found error.
	CandidateRecord(ctx context.Context, candidateID string) (types.CandidateRecord, error)
	Close() error
}

func candidateNotFound(candidateID string) error {
	return errors.NewNotFoundError(errors.ErrCodeCandidateNotFound,
		fmt.Sprintf("No uploaded CV for candidate %s", candidateID), nil).
		WithContext("candidate_id", candidateID)
}

// EncodeTranscript serializes messages for the transcript JSON column
func EncodeTranscript(messages []types.ConversationMessage) (string, error) {
	if messages == nil {
		messages = []types.ConversationMessage{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return "", fmt.Errorf("failed to encode transcript: %w", err)
	}
	return string(data), nil
}

// DecodeTranscript parses the transcript JSON column
func DecodeTranscript(data string) ([]types.ConversationMessage, error) {
	var messages []types.ConversationMessage
	if err := json.Unmarshal([]byte(data), &messages); err != nil {
		return nil, fmt.Errorf("failed to decode transcript: %w", err)
	}
	return messages, nil
}
