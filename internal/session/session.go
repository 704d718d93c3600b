// Package session keeps in-flight interviews keyed by session ID.
package session

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"airecruiter/internal/config"
	"airecruiter/internal/errors"
	"airecruiter/internal/types"
)

// Store persists sessions between turns
type Store interface {
	Save(ctx context.Context, s types.Session) error
	Get(ctx context.Context, id string) (types.Session, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// New builds the store selected by cfg.Backend
func New(ctx context.Context, cfg config.SessionConfig, logger *errors.Logger) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(cfg.TTL), nil
	case "redis":
		return NewRedisStore(ctx, cfg, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unknown session backend %q", cfg.Backend), nil)
	}
}

func notFound(id string) error {
	return errors.NewNotFoundError(errors.ErrCodeSessionNotFound,
		fmt.Sprintf("Session %s not found", id), nil)
}

func clone(s types.Session) types.Session {
	s.Messages = slices.Clone(s.Messages)
	return s
}

type memoryEntry struct {
	session types.Session
	expires time.Time
}

// MemoryStore keeps sessions in process. Expired entries are dropped lazily.
type MemoryStore struct {
	mu       sync.RWMutex
	ttl      time.Duration
	sessions map[string]memoryEntry
	now      func() time.Time
}

// NewMemoryStore creates an in-process store; ttl <= 0 keeps sessions forever
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		sessions: make(map[string]memoryEntry),
		now:      time.Now,
	}
}

func (m *MemoryStore) Save(_ context.Context, s types.Session) error {
	if s.ID == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "session ID is required", nil)
	}

	entry := memoryEntry{session: clone(s)}
	if m.ttl > 0 {
		entry.expires = m.now().Add(m.ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = entry
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (types.Session, error) {
	m.mu.RLock()
	entry, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return types.Session{}, notFound(id)
	}
	if !entry.expires.IsZero() && m.now().After(entry.expires) {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return types.Session{}, notFound(id)
	}
	return clone(entry.session), nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
