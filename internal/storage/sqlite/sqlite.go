package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/slok/qchat/internal/log"
	"github.com/slok/qchat/internal/model"
	"github.com/slok/qchat/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.TranscriptRepository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository creates a new SQLite repository, the schema is migrated on creation.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(migrations.MigratorConfig{DB: db, Logger: cfg.Logger})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// CreateSession creates a new empty session.
func (r *Repository) CreateSession(ctx context.Context, s model.SessionSummary) error {
	if s.ID == "" {
		return fmt.Errorf("session id is required: %w", model.ErrNotValid)
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO sessions (id, started_at) VALUES (?, ?)`, s.ID, s.StartedAt.UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("session %s: %w", s.ID, model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert session: %w", err)
	}

	r.logger.Debugf("Created session in repository: %s", s.ID)
	return nil
}

const sessionSummaryQuery = `
	SELECT
		s.id, s.started_at,
		COUNT(e.sequence),
		COALESCE(MAX(e.created_at), s.started_at)
	FROM sessions s
	LEFT JOIN entries e ON e.session_id = s.id
`

// GetSession retrieves a session summary by ID.
func (r *Repository) GetSession(ctx context.Context, id string) (*model.SessionSummary, error) {
	row := r.db.QueryRowContext(ctx, sessionSummaryQuery+` WHERE s.id = ? GROUP BY s.id`, id)

	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query session: %w", err)
	}

	return s, nil
}

// ListSessions returns all sessions, newest first.
func (r *Repository) ListSessions(ctx context.Context) ([]model.SessionSummary, error) {
	rows, err := r.db.QueryContext(ctx, sessionSummaryQuery+` GROUP BY s.id ORDER BY s.started_at DESC, s.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("could not query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []model.SessionSummary{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate sessions: %w", err)
	}

	return sessions, nil
}

// AppendEntry stores a log entry of a session.
func (r *Repository) AppendEntry(ctx context.Context, sessionID string, e model.LogEntry) error {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE id = ?`, sessionID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("could not query session: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("session %s: %w", sessionID, model.ErrNotFound)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO entries (session_id, sequence, sender, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		sessionID, e.Sequence, string(e.Sender), e.Text, e.At.UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("entry %d of session %s: %w", e.Sequence, sessionID, model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert entry: %w", err)
	}

	return nil
}

// ListEntries returns the entries of a session in sequence order.
func (r *Repository) ListEntries(ctx context.Context, sessionID string) ([]model.LogEntry, error) {
	if _, err := r.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT sequence, sender, text, created_at
		FROM entries
		WHERE session_id = ?
		ORDER BY sequence ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("could not query entries: %w", err)
	}
	defer rows.Close()

	entries := []model.LogEntry{}
	for rows.Next() {
		var (
			e      model.LogEntry
			sender string
			at     int64
		)
		if err := rows.Scan(&e.Sequence, &sender, &e.Text, &at); err != nil {
			return nil, fmt.Errorf("could not scan entry: %w", err)
		}
		e.Sender, err = model.ParseSender(sender)
		if err != nil {
			return nil, err
		}
		e.At = time.UnixMilli(at).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate entries: %w", err)
	}

	return entries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(s scanner) (*model.SessionSummary, error) {
	var (
		summary              model.SessionSummary
		startedAt, updatedAt int64
	)
	if err := s.Scan(&summary.ID, &startedAt, &summary.Entries, &updatedAt); err != nil {
		return nil, err
	}
	summary.StartedAt = time.UnixMilli(startedAt).UTC()
	summary.UpdatedAt = time.UnixMilli(updatedAt).UTC()

	return &summary, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed") || strings.Contains(err.Error(), "PRIMARY KEY")
}
