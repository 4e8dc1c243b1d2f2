package fake

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/slok/qchat/internal/log"
	"github.com/slok/qchat/internal/model"
)

// EngineConfig is the configuration for the fake engine.
type EngineConfig struct {
	// Delay simulates the time a real task takes.
	Delay time.Duration
	// FailPrefix makes commands starting with it fail. Empty disables failures.
	FailPrefix string
	Logger     log.Logger
}

func (c *EngineConfig) defaults() error {
	if c.Delay < 0 {
		return fmt.Errorf("delay can't be negative")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "engine.Fake"})
	return nil
}

// Engine is a fake implementation of the engine.Engine interface.
// It simulates task execution by echoing the received command.
type Engine struct {
	delay      time.Duration
	failPrefix string
	executions int
	mu         sync.Mutex
	logger     log.Logger
}

// NewEngine creates a new fake engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Engine{
		delay:      cfg.Delay,
		failPrefix: cfg.FailPrefix,
		logger:     cfg.Logger,
	}, nil
}

// Execute echoes the command after the configured delay.
func (e *Engine) Execute(ctx context.Context, command string) (*model.Result, error) {
	e.mu.Lock()
	e.executions++
	n := e.executions
	e.mu.Unlock()

	if e.delay > 0 {
		t := time.NewTimer(e.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	if e.failPrefix != "" && strings.HasPrefix(command, e.failPrefix) {
		e.logger.Debugf("Failing fake execution %d", n)
		return nil, fmt.Errorf("fake engine refused %q", command)
	}

	e.logger.Debugf("Fake execution %d completed", n)
	return &model.Result{Text: fmt.Sprintf("Done: %s", command)}, nil
}

// Executions returns how many times the engine has been executed.
func (e *Engine) Executions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.executions
}
