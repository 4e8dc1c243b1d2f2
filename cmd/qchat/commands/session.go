package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/oklog/run"

	"github.com/slok/qchat/internal/app/chat"
	"github.com/slok/qchat/internal/archive"
	"github.com/slok/qchat/internal/bridge"
	"github.com/slok/qchat/internal/config"
	"github.com/slok/qchat/internal/engine"
	"github.com/slok/qchat/internal/log"
	"github.com/slok/qchat/internal/loop"
	"github.com/slok/qchat/internal/progress"
	"github.com/slok/qchat/internal/storage/sqlite"
	"github.com/slok/qchat/internal/worker"
)

// session has the components shared by the commands that talk with the task engine.
type session struct {
	cfg      config.Config
	host     *worker.Host
	progress *progress.Machine
	bridge   *bridge.Bridge
	archive  *archive.Writer
	repo     *sqlite.Repository
	logger   log.Logger
}

func newSession(ctx context.Context, root *RootCommand, cfg config.Config, queue loop.Queue) (*session, error) {
	logger := root.logger()

	eng, err := engine.New(cfg.Engine, logger)
	if err != nil {
		return nil, fmt.Errorf("could not create engine: %w", err)
	}

	host, err := worker.NewHost(worker.HostConfig{
		QueueSize:   1,
		JoinTimeout: root.ShutdownTimeout,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker host: %w", err)
	}

	machine := progress.NewMachine()
	b, err := bridge.New(bridge.Config{
		Engine: eng,
		Host:   host,
		Gate:   machine,
		Queue:  queue,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create bridge: %w", err)
	}

	s := &session{
		cfg:      cfg,
		host:     host,
		progress: machine,
		bridge:   b,
		logger:   logger,
	}

	if cfg.ArchiveEnabled() {
		repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{DBPath: root.DBPath, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("could not create repository: %w", err)
		}
		w, err := archive.NewWriter(archive.WriterConfig{Repository: repo, Logger: logger})
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("could not create archive writer: %w", err)
		}
		s.repo = repo
		s.archive = w
		logger.Debugf("Archiving conversation as session %s", w.SessionID())
	}

	return s, nil
}

// newChat returns the interactive controller of the session.
func (s *session) newChat(queue loop.Queue, surface chat.Surface) (*chat.Service, error) {
	var observers []chat.Observer
	if s.archive != nil {
		observers = append(observers, s.archive)
	}

	return chat.NewService(chat.ServiceConfig{
		Bridge:     s.bridge,
		Progress:   s.progress,
		Queue:      queue,
		Surface:    surface,
		Observers:  observers,
		TickPeriod: s.cfg.UI.TickPeriod,
		StallAfter: s.cfg.UI.StallAfter,
		Logger:     s.logger,
	})
}

// run runs the worker host, the archive writer and the interactive thread
// until the interactive thread finishes or the context is done. The worker
// host is always joined, a join timeout is returned as an error.
func (s *session) run(ctx context.Context, interactive func(ctx context.Context) error) error {
	if s.repo != nil {
		defer s.repo.Close()
	}

	// Submissions can happen as soon as the interactive thread runs.
	if err := s.host.Start(); err != nil {
		return fmt.Errorf("could not start worker host: %w", err)
	}

	var (
		g       run.Group
		hostErr error
	)

	// Worker host.
	{
		ctx, cancel := context.WithCancel(ctx)
		g.Add(
			func() error {
				hostErr = s.host.Run(ctx)
				return hostErr
			},
			func(_ error) {
				cancel()
			},
		)
	}

	// Archive writer.
	if s.archive != nil {
		ctx, cancel := context.WithCancel(ctx)
		g.Add(
			func() error {
				return s.archive.Run(ctx)
			},
			func(_ error) {
				cancel()
			},
		)
	}

	// Interactive thread.
	{
		ctx, cancel := context.WithCancel(ctx)
		g.Add(
			func() error {
				return interactive(ctx)
			},
			func(_ error) {
				cancel()
			},
		)
	}

	err := g.Run()
	if errors.Is(hostErr, worker.ErrJoinTimeout) {
		return fmt.Errorf("running task did not stop in %s: %w", s.host.JoinTimeout(), hostErr)
	}

	return err
}
