package lib

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/slok/qchat/internal/app/chat"
	"github.com/slok/qchat/internal/bridge"
	"github.com/slok/qchat/internal/engine"
	"github.com/slok/qchat/internal/engine/exec"
	"github.com/slok/qchat/internal/engine/fake"
	"github.com/slok/qchat/internal/engine/openai"
	"github.com/slok/qchat/internal/log"
	"github.com/slok/qchat/internal/loop"
	"github.com/slok/qchat/internal/model"
	"github.com/slok/qchat/internal/progress"
	"github.com/slok/qchat/internal/worker"
)

const defaultShutdownTimeout = 5 * time.Second

// Executor is a custom task engine. Execute is always called from the same
// OS thread and never concurrently.
type Executor interface {
	Execute(ctx context.Context, request string) (string, error)
}

// ExecutorFunc is a helper to use a function as an Executor.
type ExecutorFunc func(ctx context.Context, request string) (string, error)

func (f ExecutorFunc) Execute(ctx context.Context, request string) (string, error) {
	return f(ctx, request)
}

// FakeConfig configures [EngineFake].
type FakeConfig struct {
	// Delay is the simulated processing time.
	Delay time.Duration
	// FailPrefix makes the requests starting with it fail.
	FailPrefix string
}

// OpenAIConfig configures [EngineOpenAI].
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	Timeout      time.Duration
}

// ExecConfig configures [EngineExec].
type ExecConfig struct {
	Command string
	Args    []string
	Dir     string
	Env     map[string]string
}

// Config configures the SDK client.
//
// An empty Config{} uses the fake engine.
type Config struct {
	// Engine selects the task engine. Default: [EngineFake].
	Engine EngineType
	Fake   FakeConfig
	OpenAI OpenAIConfig
	Exec   ExecConfig

	// Executor is a custom task engine, when set Engine is ignored.
	Executor Executor

	// OnMessage is called for every message added to the conversation.
	// It runs on the interactive thread and must not block.
	OnMessage func(Message)

	// StallAfter is the in-flight time after which a stall warning is logged.
	// Negative disables it.
	StallAfter time.Duration

	// ShutdownTimeout is the maximum time [Client.Close] waits for a running
	// task when the passed context has no deadline. Default: 5s.
	ShutdownTimeout time.Duration

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.Engine == "" {
		c.Engine = EngineFake
	}

	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Client is the main SDK entry point.
//
// Create a Client with [New] and release its resources with [Client.Close].
// A Client is safe for concurrent use.
type Client struct {
	host            *worker.Host
	loop            *loop.Loop
	svc             *chat.Service
	shutdownTimeout time.Duration
	logger          log.Logger

	cancel    context.CancelFunc
	loopDone  chan struct{}
	closing   chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// New creates a new SDK client and starts its worker and interactive threads.
//
// The caller must call [Client.Close] when done:
//
//	client, err := lib.New(lib.Config{})
//	if err != nil {
//	    return err
//	}
//	defer client.Close(context.Background())
func New(cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	eng, err := newEngine(cfg)
	if err != nil {
		return nil, mapError(fmt.Errorf("could not create engine: %w", err))
	}

	host, err := worker.NewHost(worker.HostConfig{
		QueueSize:   1,
		JoinTimeout: cfg.ShutdownTimeout,
		Logger:      cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker host: %w", err)
	}

	c := &Client{
		host:            host,
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          cfg.Logger,
		loopDone:        make(chan struct{}),
		closing:         make(chan struct{}),
	}

	l, err := loop.NewLoop(loop.LoopConfig{
		Handler: func(msg any) { c.svc.Handle(msg) },
		Logger:  cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create loop: %w", err)
	}
	c.loop = l

	machine := progress.NewMachine()
	b, err := bridge.New(bridge.Config{
		Engine: eng,
		Host:   host,
		Gate:   machine,
		Queue:  l,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create bridge: %w", err)
	}

	var observers []chat.Observer
	if cfg.OnMessage != nil {
		observers = append(observers, chat.ObserverFunc(func(e model.LogEntry) {
			cfg.OnMessage(fromInternalEntries([]model.LogEntry{e})[0])
		}))
	}

	svc, err := chat.NewService(chat.ServiceConfig{
		Bridge:     b,
		Progress:   machine,
		Queue:      l,
		Surface:    headlessSurface{},
		Observers:  observers,
		StallAfter: cfg.StallAfter,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create chat service: %w", err)
	}
	c.svc = svc

	if err := host.Start(); err != nil {
		return nil, fmt.Errorf("could not start worker host: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go func() {
		defer close(c.loopDone)
		_ = l.Run(ctx)
	}()

	return c, nil
}

// Ask sends a request to the engine and waits for its reply.
//
// Only one request can be in flight, a concurrent Ask returns [ErrBusy].
// When ctx is done before the reply arrives the task keeps running and
// its reply is still added to the conversation.
func (c *Client) Ask(ctx context.Context, request string) (*Reply, error) {
	if strings.TrimSpace(request) == "" {
		return nil, fmt.Errorf("request can't be empty: %w", ErrNotValid)
	}

	var h *bridge.Handle
	err := c.call(ctx, func() error {
		var err error
		h, err = c.svc.Submit(request)
		return err
	})
	if err != nil {
		return nil, mapError(fmt.Errorf("could not submit request: %w", err))
	}

	select {
	case <-h.Delivered():
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closing:
		return nil, ErrClosed
	}

	out, _ := h.Outcome()
	return &Reply{
		ID:     h.ID(),
		Text:   out.Text(),
		Failed: out.Failed(),
		Err:    out.Err,
	}, nil
}

// Transcript returns the conversation messages in display order.
func (c *Client) Transcript(ctx context.Context) ([]Message, error) {
	var entries []model.LogEntry
	err := c.call(ctx, func() error {
		entries = c.svc.Entries()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return fromInternalEntries(entries), nil
}

// Close stops the client threads. A running task is cancelled and waited
// until ctx is done, or the configured shutdown timeout if ctx has no deadline.
// After Close returns, the client must not be used.
func (c *Client) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		close(c.closing)
		c.cancel()
		<-c.loopDone

		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.shutdownTimeout)
			defer cancel()
		}

		if err := c.host.Stop(ctx); err != nil {
			c.closeErr = fmt.Errorf("running task did not stop: %w", err)
		}
	})

	return c.closeErr
}

// call executes f on the interactive thread and waits for it.
func (c *Client) call(ctx context.Context, f func() error) error {
	select {
	case <-c.closing:
		return ErrClosed
	default:
	}

	done := make(chan error, 1)
	c.loop.Post(loop.Call(func() { done <- f() }))

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.loopDone:
		return ErrClosed
	}
}

func newEngine(cfg Config) (engine.Engine, error) {
	if cfg.Executor != nil {
		return engine.EngineFunc(func(ctx context.Context, command string) (*model.Result, error) {
			text, err := cfg.Executor.Execute(ctx, command)
			if err != nil {
				return nil, err
			}
			return &model.Result{Text: text}, nil
		}), nil
	}

	switch cfg.Engine {
	case EngineFake:
		return fake.NewEngine(fake.EngineConfig{
			Delay:      cfg.Fake.Delay,
			FailPrefix: cfg.Fake.FailPrefix,
			Logger:     cfg.Logger,
		})
	case EngineOpenAI:
		return openai.NewEngine(openai.EngineConfig{
			APIKey:       cfg.OpenAI.APIKey,
			BaseURL:      cfg.OpenAI.BaseURL,
			Model:        cfg.OpenAI.Model,
			SystemPrompt: cfg.OpenAI.SystemPrompt,
			Timeout:      cfg.OpenAI.Timeout,
			Logger:       cfg.Logger,
		})
	case EngineExec:
		return exec.NewEngine(exec.EngineConfig{
			Command: cfg.Exec.Command,
			Args:    cfg.Exec.Args,
			Dir:     cfg.Exec.Dir,
			Env:     cfg.Exec.Env,
			Logger:  cfg.Logger,
		})
	default:
		return nil, fmt.Errorf("unsupported engine type: %s: %w", cfg.Engine, model.ErrNotValid)
	}
}

// headlessSurface discards the presentation events, the SDK users get the
// conversation through replies and OnMessage.
type headlessSurface struct{}

func (headlessSurface) AppendMessage(model.Sender, string) {}
func (headlessSurface) SetBusy(bool)                       {}
func (headlessSurface) Tick(int)                           {}
