package bridge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/qchat/internal/engine"
	"github.com/slok/qchat/internal/log"
	"github.com/slok/qchat/internal/loop"
	"github.com/slok/qchat/internal/model"
	"github.com/slok/qchat/internal/worker"
)

// Gate admits a single in-flight submission.
type Gate interface {
	Begin() (run uint64, err error)
	End() bool
	Abort()
}

// Host executes jobs on the worker context.
type Host interface {
	Submit(job worker.Job) error
}

// Config is the configuration for the bridge.
type Config struct {
	Engine engine.Engine
	Host   Host
	Gate   Gate
	Queue  loop.Queue
	Logger log.Logger
	Now    func() time.Time
	NewID  func() string
}

func (c *Config) defaults() error {
	if c.Engine == nil {
		return fmt.Errorf("engine is required")
	}
	if c.Host == nil {
		return fmt.Errorf("host is required")
	}
	if c.Gate == nil {
		return fmt.Errorf("gate is required")
	}
	if c.Queue == nil {
		return fmt.Errorf("queue is required")
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.NewID == nil {
		c.NewID = func() string { return ulid.Make().String() }
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "bridge.Bridge"})
	return nil
}

// Bridge submits work items from the interactive thread to the worker and
// marshals their outcome back through the interactive queue.
type Bridge struct {
	engine engine.Engine
	host   Host
	gate   Gate
	queue  loop.Queue
	now    func() time.Time
	newID  func() string
	logger log.Logger

	mu      sync.Mutex
	pending *Handle
}

// New returns a new bridge.
func New(cfg Config) (*Bridge, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Bridge{
		engine: cfg.Engine,
		host:   cfg.Host,
		gate:   cfg.Gate,
		queue:  cfg.Queue,
		now:    cfg.Now,
		newID:  cfg.NewID,
		logger: cfg.Logger,
	}, nil
}

// Submit creates a work item for the command and hands it to the worker.
// While a previous submission is unresolved it fails with model.ErrSubmissionRejected
// and nothing is changed.
func (b *Bridge) Submit(command string) (*Handle, error) {
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("command can't be empty: %w", model.ErrNotValid)
	}

	run, err := b.gate.Begin()
	if err != nil {
		return nil, fmt.Errorf("could not submit task: %w", err)
	}

	item := model.WorkItem{
		ID:          b.newID(),
		Command:     command,
		SubmittedAt: b.now(),
	}
	if err := item.Validate(); err != nil {
		b.gate.Abort()
		return nil, fmt.Errorf("invalid work item: %w", err)
	}

	h := newHandle(item, run)
	if err := b.host.Submit(b.job(h)); err != nil {
		b.gate.Abort()
		return nil, fmt.Errorf("worker refused task: %w", err)
	}

	b.mu.Lock()
	b.pending = h
	b.mu.Unlock()

	b.logger.Debugf("Submitted work item %s", item.ID)

	return h, nil
}

// Pending returns the handle of the in-flight work item, nil if there is none.
func (b *Bridge) Pending() *Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}

func (b *Bridge) job(h *Handle) worker.Job {
	return func(ctx context.Context) {
		logger := b.logger.WithValues(log.Kv{"item": h.ID()})
		ctx = logger.SetValuesOnCtx(ctx, log.Kv{"item": h.ID()})

		start := time.Now()
		out := b.execute(ctx, h.Item())
		if out.Failed() {
			logger.Warningf("Task failed after %s: %s", time.Since(start), out.Err)
		} else {
			logger.Debugf("Task executed in %s", time.Since(start))
		}

		h.resolve(out)
		b.queue.Post(Completion{Handle: h, Outcome: out})
	}
}

func (b *Bridge) execute(ctx context.Context, item model.WorkItem) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Err: model.NewEngineFailure(fmt.Errorf("engine panicked: %v", r))}
		}
	}()

	res, err := b.engine.Execute(ctx, item.Command)
	if err != nil {
		return Outcome{Err: model.NewEngineFailure(err)}
	}
	if res == nil {
		return Outcome{Err: model.NewEngineFailure(fmt.Errorf("engine returned no result"))}
	}

	return Outcome{Result: res}
}
