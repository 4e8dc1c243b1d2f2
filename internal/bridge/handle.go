package bridge

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/slok/qchat/internal/model"
)

// Handle is the future of a submitted work item. It resolves exactly once.
type Handle struct {
	item model.WorkItem
	run  uint64

	resolveOnce sync.Once
	outcome     Outcome
	done        chan struct{}

	delivered     atomic.Bool
	deliveredDone chan struct{}
}

func newHandle(item model.WorkItem, run uint64) *Handle {
	return &Handle{
		item:          item,
		run:           run,
		done:          make(chan struct{}),
		deliveredDone: make(chan struct{}),
	}
}

// ID returns the work item ID.
func (h *Handle) ID() string { return h.item.ID }

// Item returns the work item bound to the handle.
func (h *Handle) Item() model.WorkItem { return h.item }

// Run returns the progress run started by the submission.
func (h *Handle) Run() uint64 { return h.run }

// Done is closed when the worker has resolved the outcome.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Delivered is closed when the interactive thread has handled the outcome.
func (h *Handle) Delivered() <-chan struct{} { return h.deliveredDone }

// Pending returns true until the outcome has been delivered.
func (h *Handle) Pending() bool { return !h.delivered.Load() }

// Outcome returns the outcome, false if not resolved yet.
func (h *Handle) Outcome() (Outcome, bool) {
	select {
	case <-h.done:
		return h.outcome, true
	default:
		return Outcome{}, false
	}
}

// Wait blocks until the outcome has been resolved or the context is done.
func (h *Handle) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-h.done:
		return h.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

func (h *Handle) resolve(o Outcome) {
	h.resolveOnce.Do(func() {
		h.outcome = o
		close(h.done)
	})
}

func (h *Handle) markDelivered() bool {
	if !h.delivered.CompareAndSwap(false, true) {
		return false
	}
	close(h.deliveredDone)
	return true
}
