package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/slok/qchat/internal/log"
	"github.com/slok/qchat/internal/model"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

type session struct {
	summary model.SessionSummary
	entries []model.LogEntry
}

// Repository is an in-memory implementation of storage.TranscriptRepository.
type Repository struct {
	sessions map[string]*session
	mu       sync.RWMutex
	logger   log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		sessions: make(map[string]*session),
		logger:   cfg.Logger,
	}, nil
}

// CreateSession creates a new empty session.
func (r *Repository) CreateSession(ctx context.Context, s model.SessionSummary) error {
	if s.ID == "" {
		return fmt.Errorf("session id is required: %w", model.ErrNotValid)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.ID]; ok {
		return fmt.Errorf("session %s: %w", s.ID, model.ErrAlreadyExists)
	}

	r.sessions[s.ID] = &session{summary: model.SessionSummary{
		ID:        s.ID,
		StartedAt: s.StartedAt,
		UpdatedAt: s.StartedAt,
	}}
	r.logger.Debugf("Created session in repository: %s", s.ID)

	return nil
}

// GetSession retrieves a session summary by ID.
func (r *Repository) GetSession(ctx context.Context, id string) (*model.SessionSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, model.ErrNotFound)
	}

	summary := s.summary
	return &summary, nil
}

// ListSessions returns all sessions, newest first.
func (r *Repository) ListSessions(ctx context.Context) ([]model.SessionSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]model.SessionSummary, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s.summary)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].StartedAt.Equal(sessions[j].StartedAt) {
			return sessions[i].ID > sessions[j].ID
		}
		return sessions[i].StartedAt.After(sessions[j].StartedAt)
	})

	return sessions, nil
}

// AppendEntry stores a log entry of a session.
func (r *Repository) AppendEntry(ctx context.Context, sessionID string, e model.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, model.ErrNotFound)
	}

	for _, existing := range s.entries {
		if existing.Sequence == e.Sequence {
			return fmt.Errorf("entry %d of session %s: %w", e.Sequence, sessionID, model.ErrAlreadyExists)
		}
	}

	s.entries = append(s.entries, e)
	s.summary.Entries++
	if e.At.After(s.summary.UpdatedAt) {
		s.summary.UpdatedAt = e.At
	}

	return nil
}

// ListEntries returns the entries of a session in sequence order.
func (r *Repository) ListEntries(ctx context.Context, sessionID string) ([]model.LogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, model.ErrNotFound)
	}

	entries := make([]model.LogEntry, len(s.entries))
	copy(entries, s.entries)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Sequence < entries[j].Sequence })

	return entries, nil
}
