package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/slok/qchat/internal/log"
)

var (
	// ErrAlreadyStarted is returned when starting a host more than once.
	ErrAlreadyStarted = errors.New("worker host already started")
	// ErrNotStarted is returned when submitting jobs to a host that has not been started.
	ErrNotStarted = errors.New("worker host not started")
	// ErrStopped is returned when submitting jobs to a host that is stopping or stopped.
	ErrStopped = errors.New("worker host stopped")
	// ErrQueueFull is returned when the host queue can't accept more jobs.
	ErrQueueFull = errors.New("worker host queue is full")
	// ErrJoinTimeout is returned when the host goroutine did not finish in time.
	ErrJoinTimeout = errors.New("timeout waiting for worker host to finish")
)

const (
	DefaultQueueSize   = 8
	DefaultJoinTimeout = 5 * time.Second
)

// Job is a unit of work executed by the host.
// The context is cancelled when the host is stopped.
type Job func(ctx context.Context)

// HostConfig is the configuration for the worker host.
type HostConfig struct {
	// QueueSize is the number of jobs that can wait while another one is running.
	QueueSize int
	// JoinTimeout is the time Run waits for the host to finish after its context is done.
	JoinTimeout time.Duration
	Logger      log.Logger
}

func (c *HostConfig) defaults() error {
	if c.QueueSize < 0 {
		return fmt.Errorf("queue size can't be negative")
	}
	if c.QueueSize == 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.JoinTimeout <= 0 {
		c.JoinTimeout = DefaultJoinTimeout
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "worker.Host"})
	return nil
}

type hostState int

const (
	stateCreated hostState = iota
	stateRunning
	stateStopped
)

// Host owns a dedicated goroutine, locked to its OS thread, that executes
// jobs one at a time in submission order.
type Host struct {
	jobs        chan Job
	joinTimeout time.Duration
	logger      log.Logger

	mu     sync.Mutex
	state  hostState
	ctx    context.Context
	cancel context.CancelFunc
	stopCh chan struct{}
	done   chan struct{}

	stopOnce sync.Once
	stopErr  error
}

// NewHost creates a new worker host. The host does nothing until started.
func NewHost(cfg HostConfig) (*Host, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Host{
		jobs:        make(chan Job, cfg.QueueSize),
		joinTimeout: cfg.JoinTimeout,
		logger:      cfg.Logger,
		ctx:         ctx,
		cancel:      cancel,
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}, nil
}

// Start starts the host goroutine.
func (h *Host) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case stateRunning:
		return ErrAlreadyStarted
	case stateStopped:
		return ErrStopped
	}

	h.state = stateRunning
	go h.loop()
	h.logger.Debugf("Worker host started")

	return nil
}

// Submit enqueues a job. It never blocks.
func (h *Host) Submit(job Job) error {
	if job == nil {
		return fmt.Errorf("job is required")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case stateCreated:
		return ErrNotStarted
	case stateStopped:
		return ErrStopped
	}

	select {
	case h.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop signals the host to finish and waits for its goroutine to exit.
// The running job context is cancelled and queued jobs are discarded.
// Only the first call has effect, later calls return the first call result.
func (h *Host) Stop(ctx context.Context) error {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		started := h.state == stateRunning
		h.state = stateStopped
		close(h.stopCh)
		h.cancel()
		h.mu.Unlock()

		if !started {
			close(h.done)
			return
		}

		select {
		case <-h.done:
			h.logger.Debugf("Worker host stopped")
		case <-ctx.Done():
			h.stopErr = ErrJoinTimeout
		}
	})

	return h.stopErr
}

// Run starts the host if it was not started yet and blocks until the context
// is done, then stops it waiting at most the configured join timeout.
func (h *Host) Run(ctx context.Context) error {
	if err := h.Start(); err != nil && !errors.Is(err, ErrAlreadyStarted) {
		return err
	}

	select {
	case <-ctx.Done():
	case <-h.stopCh:
	}

	joinCtx, cancel := context.WithTimeout(context.Background(), h.joinTimeout)
	defer cancel()

	return h.Stop(joinCtx)
}

// JoinTimeout returns the time Run waits for the host to finish.
func (h *Host) JoinTimeout() time.Duration { return h.joinTimeout }

// Done returns a channel that is closed when the host goroutine has finished.
func (h *Host) Done() <-chan struct{} { return h.done }

func (h *Host) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(h.done)

	for {
		// Stop has priority over pending jobs.
		select {
		case <-h.stopCh:
			h.discard()
			return
		default:
		}

		select {
		case <-h.stopCh:
			h.discard()
			return
		case job := <-h.jobs:
			h.execute(job)
		}
	}
}

func (h *Host) execute(job Job) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Errorf("Recovered from job panic: %v", r)
		}
	}()

	job(h.ctx)
}

func (h *Host) discard() {
	discarded := 0
	for {
		select {
		case <-h.jobs:
			discarded++
		default:
			if discarded > 0 {
				h.logger.Warningf("Discarded %d queued jobs on stop", discarded)
			}
			return
		}
	}
}
