package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/qchat/internal/log"
	"github.com/slok/qchat/internal/loop"
	"github.com/slok/qchat/internal/model"
	"github.com/slok/qchat/internal/storage"
)

const DefaultWriteTimeout = 5 * time.Second

// WriterConfig is the configuration for the archive writer.
type WriterConfig struct {
	Repository storage.TranscriptRepository
	// SessionID is the archived session, a new ID is generated if empty.
	SessionID    string
	WriteTimeout time.Duration
	Logger       log.Logger
}

func (c *WriterConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.SessionID == "" {
		c.SessionID = ulid.Make().String()
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "archive.Writer", "session": c.SessionID})
	return nil
}

// Writer persists the conversation entries of a session in order, from its own
// goroutine, so the interactive thread never waits on storage.
// The session is created with the first entry.
type Writer struct {
	repo         storage.TranscriptRepository
	sessionID    string
	writeTimeout time.Duration
	logger       log.Logger
	loop         *loop.Loop

	created bool
	written int
}

// NewWriter creates a new archive writer.
func NewWriter(cfg WriterConfig) (*Writer, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	w := &Writer{
		repo:         cfg.Repository,
		sessionID:    cfg.SessionID,
		writeTimeout: cfg.WriteTimeout,
		logger:       cfg.Logger,
	}

	l, err := loop.NewLoop(loop.LoopConfig{
		Handler:     w.write,
		DrainOnStop: true,
		Logger:      cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create writer loop: %w", err)
	}
	w.loop = l

	return w, nil
}

// SessionID returns the archived session ID.
func (w *Writer) SessionID() string { return w.sessionID }

// EntryAppended queues the entry to be archived. It never blocks.
func (w *Writer) EntryAppended(e model.LogEntry) { w.loop.Post(e) }

// Run writes the queued entries until the context is done, then flushes the
// pending ones before returning.
func (w *Writer) Run(ctx context.Context) error {
	err := w.loop.Run(ctx)
	w.logger.Debugf("Archive writer stopped after %d entries", w.written)
	return err
}

func (w *Writer) write(msg any) {
	e, ok := msg.(model.LogEntry)
	if !ok {
		w.logger.Warningf("Ignoring unknown archive message %T", msg)
		return
	}

	// Writes use their own context so the pending entries are flushed on stop.
	ctx, cancel := context.WithTimeout(context.Background(), w.writeTimeout)
	defer cancel()

	if !w.created {
		err := w.repo.CreateSession(ctx, model.SessionSummary{ID: w.sessionID, StartedAt: e.At})
		if err != nil {
			w.logger.Errorf("Could not create archive session: %s", err)
			return
		}
		w.created = true
	}

	if err := w.repo.AppendEntry(ctx, w.sessionID, e); err != nil {
		w.logger.Errorf("Could not archive entry %d: %s", e.Sequence, err)
		return
	}
	w.written++
}
