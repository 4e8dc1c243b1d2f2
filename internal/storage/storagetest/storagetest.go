// Package storagetest has the behavior tests shared by all the storage implementations.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/qchat/internal/model"
	"github.com/slok/qchat/internal/storage"
)

// Times are truncated to milliseconds, the minimum precision storages must keep.
var t0 = time.Date(2026, 1, 2, 3, 4, 5, 6_000_000, time.UTC)

// TestTranscriptRepository runs the transcript repository behavior tests against
// the repositories returned by newRepo.
func TestTranscriptRepository(t *testing.T, newRepo func(t *testing.T) storage.TranscriptRepository) {
	tests := map[string]struct {
		actions func(ctx context.Context, t *testing.T, repo storage.TranscriptRepository)
	}{
		"Creating a session should make it listable.": {
			actions: func(ctx context.Context, t *testing.T, repo storage.TranscriptRepository) {
				require.NoError(t, repo.CreateSession(ctx, model.SessionSummary{ID: "s1", StartedAt: t0}))

				got, err := repo.GetSession(ctx, "s1")
				require.NoError(t, err)
				assert.Equal(t, &model.SessionSummary{ID: "s1", StartedAt: t0, UpdatedAt: t0}, got)

				sessions, err := repo.ListSessions(ctx)
				require.NoError(t, err)
				assert.Equal(t, []model.SessionSummary{*got}, sessions)
			},
		},

		"Creating a session twice should fail.": {
			actions: func(ctx context.Context, t *testing.T, repo storage.TranscriptRepository) {
				require.NoError(t, repo.CreateSession(ctx, model.SessionSummary{ID: "s1", StartedAt: t0}))
				err := repo.CreateSession(ctx, model.SessionSummary{ID: "s1", StartedAt: t0})
				assert.ErrorIs(t, err, model.ErrAlreadyExists)
			},
		},

		"Getting a missing session should fail.": {
			actions: func(ctx context.Context, t *testing.T, repo storage.TranscriptRepository) {
				_, err := repo.GetSession(ctx, "missing")
				assert.ErrorIs(t, err, model.ErrNotFound)

				_, err = repo.ListEntries(ctx, "missing")
				assert.ErrorIs(t, err, model.ErrNotFound)
			},
		},

		"Sessions should be listed newest first.": {
			actions: func(ctx context.Context, t *testing.T, repo storage.TranscriptRepository) {
				require.NoError(t, repo.CreateSession(ctx, model.SessionSummary{ID: "old", StartedAt: t0}))
				require.NoError(t, repo.CreateSession(ctx, model.SessionSummary{ID: "new", StartedAt: t0.Add(time.Hour)}))

				sessions, err := repo.ListSessions(ctx)
				require.NoError(t, err)
				require.Len(t, sessions, 2)
				assert.Equal(t, "new", sessions[0].ID)
				assert.Equal(t, "old", sessions[1].ID)
			},
		},

		"Appended entries should be returned in sequence order and update the summary.": {
			actions: func(ctx context.Context, t *testing.T, repo storage.TranscriptRepository) {
				require.NoError(t, repo.CreateSession(ctx, model.SessionSummary{ID: "s1", StartedAt: t0}))

				entries := []model.LogEntry{
					{Sequence: 1, Sender: model.SenderUser, Text: "hello", At: t0.Add(time.Second)},
					{Sequence: 2, Sender: model.SenderAgent, Text: "hi\n**there**", At: t0.Add(2 * time.Second)},
				}
				for _, e := range entries {
					require.NoError(t, repo.AppendEntry(ctx, "s1", e))
				}

				got, err := repo.ListEntries(ctx, "s1")
				require.NoError(t, err)
				assert.Equal(t, entries, got)

				summary, err := repo.GetSession(ctx, "s1")
				require.NoError(t, err)
				assert.Equal(t, 2, summary.Entries)
				assert.Equal(t, t0.Add(2*time.Second), summary.UpdatedAt)
			},
		},

		"Appending an existing sequence should fail.": {
			actions: func(ctx context.Context, t *testing.T, repo storage.TranscriptRepository) {
				require.NoError(t, repo.CreateSession(ctx, model.SessionSummary{ID: "s1", StartedAt: t0}))
				e := model.LogEntry{Sequence: 1, Sender: model.SenderUser, Text: "hello", At: t0}
				require.NoError(t, repo.AppendEntry(ctx, "s1", e))

				err := repo.AppendEntry(ctx, "s1", e)
				assert.ErrorIs(t, err, model.ErrAlreadyExists)
			},
		},

		"Appending to a missing session should fail.": {
			actions: func(ctx context.Context, t *testing.T, repo storage.TranscriptRepository) {
				err := repo.AppendEntry(ctx, "missing", model.LogEntry{Sequence: 1, Sender: model.SenderUser, Text: "hello", At: t0})
				assert.ErrorIs(t, err, model.ErrNotFound)
			},
		},

		"Sessions should keep their entries apart.": {
			actions: func(ctx context.Context, t *testing.T, repo storage.TranscriptRepository) {
				require.NoError(t, repo.CreateSession(ctx, model.SessionSummary{ID: "s1", StartedAt: t0}))
				require.NoError(t, repo.CreateSession(ctx, model.SessionSummary{ID: "s2", StartedAt: t0}))
				require.NoError(t, repo.AppendEntry(ctx, "s1", model.LogEntry{Sequence: 1, Sender: model.SenderUser, Text: "a", At: t0}))
				require.NoError(t, repo.AppendEntry(ctx, "s2", model.LogEntry{Sequence: 1, Sender: model.SenderUser, Text: "b", At: t0}))

				got, err := repo.ListEntries(ctx, "s2")
				require.NoError(t, err)
				require.Len(t, got, 1)
				assert.Equal(t, "b", got[0].Text)
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			test.actions(context.Background(), t, newRepo(t))
		})
	}
}
