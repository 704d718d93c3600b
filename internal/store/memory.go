package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	"airecruiter/internal/types"
)

// MemoryStore keeps events in process. It backs local runs and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	uploads     []types.UploadEvent
	transcripts []types.TranscriptEvent
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) RecordUpload(ctx context.Context, event types.UploadEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, event)
	return nil
}

func (m *MemoryStore) RecordTranscript(ctx context.Context, event types.TranscriptEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	event.Messages = slices.Clone(event.Messages)
	m.transcripts = append(m.transcripts, event)
	return nil
}

func (m *MemoryStore) ListCandidates(ctx context.Context, limit int) ([]types.CandidateSummary, error) {
	m.mu.RLock()
	uploads := slices.Clone(m.uploads)
	m.mu.RUnlock()

	sort.SliceStable(uploads, func(i, j int) bool {
		return uploads[i].AppliedAt.After(uploads[j].AppliedAt)
	})
	if limit > 0 && len(uploads) > limit {
		uploads = uploads[:limit]
	}

	out := make([]types.CandidateSummary, 0, len(uploads))
	for _, u := range uploads {
		out = append(out, types.CandidateSummary{
			CandidateID: u.CandidateID,
			FileName:    u.FileName,
			AppliedAt:   u.AppliedAt,
			Status:      u.Status,
		})
	}
	return out, nil
}

func (m *MemoryStore) CandidateRecord(ctx context.Context, candidateID string) (types.CandidateRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var upload *types.UploadEvent
	for i := range m.uploads {
		u := &m.uploads[i]
		if u.CandidateID == candidateID && (upload == nil || u.AppliedAt.After(upload.AppliedAt)) {
			upload = u
		}
	}
	if upload == nil {
		return types.CandidateRecord{}, candidateNotFound(candidateID)
	}

	record := types.CandidateRecord{CandidateID: candidateID, Summary: upload.Summary}

	var transcript *types.TranscriptEvent
	for i := range m.transcripts {
		tr := &m.transcripts[i]
		if tr.CandidateID == candidateID && (transcript == nil || !tr.SavedAt.Before(transcript.SavedAt)) {
			transcript = tr
		}
	}
	if transcript != nil {
		record.Transcript = slices.Clone(transcript.Messages)
		record.HasTranscript = true
	}
	return record, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
