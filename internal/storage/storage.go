package storage

import (
	"context"

	"github.com/slok/qchat/internal/model"
)

// TranscriptRepository is the interface for chat transcript persistence.
// Entries are immutable once stored.
type TranscriptRepository interface {
	CreateSession(ctx context.Context, s model.SessionSummary) error
	GetSession(ctx context.Context, id string) (*model.SessionSummary, error)
	ListSessions(ctx context.Context) ([]model.SessionSummary, error)
	AppendEntry(ctx context.Context, sessionID string, e model.LogEntry) error
	ListEntries(ctx context.Context, sessionID string) ([]model.LogEntry, error)
}
