package loop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/slok/qchat/internal/log"
)

// Queue is the inbound message queue of the interactive thread.
// Posting is safe from any goroutine and never blocks.
type Queue interface {
	Post(msg any)
	PostAfter(d time.Duration, msg any)
}

// Call is a message that the interactive thread executes as a function.
type Call func()

// QueueFunc is a helper to use a function as a Queue, delayed messages
// are posted using a timer.
type QueueFunc func(msg any)

func (f QueueFunc) Post(msg any) { f(msg) }

func (f QueueFunc) PostAfter(d time.Duration, msg any) {
	time.AfterFunc(d, func() { f(msg) })
}

// LoopConfig is the configuration for the loop.
type LoopConfig struct {
	// Handler is called for every message, always from the goroutine running the loop.
	Handler func(msg any)
	// DrainOnStop makes the loop handle the already queued messages before returning.
	DrainOnStop bool
	Logger      log.Logger
}

func (c *LoopConfig) defaults() error {
	if c.Handler == nil {
		return fmt.Errorf("handler is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "loop.Loop"})
	return nil
}

// Loop is a headless interactive thread: a single goroutine draining an
// unbounded FIFO queue of messages.
type Loop struct {
	handler     func(msg any)
	drainOnStop bool
	logger      log.Logger

	mu     sync.Mutex
	msgs   []any
	timers map[*time.Timer]struct{}
	closed bool
	wake   chan struct{}
}

// NewLoop creates a new loop.
func NewLoop(cfg LoopConfig) (*Loop, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Loop{
		handler:     cfg.Handler,
		drainOnStop: cfg.DrainOnStop,
		logger:      cfg.Logger,
		timers:      map[*time.Timer]struct{}{},
		wake:        make(chan struct{}, 1),
	}, nil
}

// Post enqueues a message. Messages posted after the loop finished are dropped.
func (l *Loop) Post(msg any) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.logger.Debugf("Dropping %T message posted after loop finished", msg)
		return
	}
	l.msgs = append(l.msgs, msg)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// PostAfter enqueues a message once the duration has elapsed.
func (l *Loop) PostAfter(d time.Duration, msg any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		l.mu.Lock()
		delete(l.timers, t)
		l.mu.Unlock()
		l.Post(msg)
	})
	l.timers[t] = struct{}{}
}

// Run drains the queue until the context is done.
func (l *Loop) Run(ctx context.Context) error {
	defer l.close()

	for {
		for {
			msg, ok := l.next()
			if !ok {
				break
			}
			if ctx.Err() != nil {
				l.requeue(msg)
				break
			}
			l.handle(msg)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-l.wake:
		}
	}
}

// Len returns the number of messages waiting to be handled.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.msgs)
}

func (l *Loop) next() (any, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.msgs) == 0 {
		return nil, false
	}
	msg := l.msgs[0]
	l.msgs[0] = nil
	l.msgs = l.msgs[1:]
	return msg, true
}

func (l *Loop) requeue(msg any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append([]any{msg}, l.msgs...)
}

func (l *Loop) handle(msg any) {
	if call, ok := msg.(Call); ok {
		call()
		return
	}
	l.handler(msg)
}

func (l *Loop) close() {
	l.mu.Lock()
	l.closed = true
	for t := range l.timers {
		t.Stop()
	}
	l.timers = nil
	pending := l.msgs
	l.msgs = nil
	l.mu.Unlock()

	if !l.drainOnStop {
		if len(pending) > 0 {
			l.logger.Debugf("Dropped %d pending messages on stop", len(pending))
		}
		return
	}

	for _, msg := range pending {
		l.handle(msg)
	}
}
