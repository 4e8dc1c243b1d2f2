package bridge

import (
	"errors"

	"github.com/slok/qchat/internal/model"
)

// Outcome is the resolution of a work item: a result or an engine failure.
type Outcome struct {
	Result *model.Result
	Err    error
}

// Failed returns true if the work item failed.
func (o Outcome) Failed() bool { return o.Err != nil }

// Text returns the text that represents the outcome on the conversation.
func (o Outcome) Text() string {
	if o.Err != nil {
		var failure *model.EngineFailure
		if errors.As(o.Err, &failure) {
			return model.FailureText(failure.Reason)
		}
		return model.FailureText(o.Err.Error())
	}
	if o.Result == nil {
		return ""
	}
	return o.Result.Text
}

// Completion is the message the worker posts to the interactive queue once a
// work item has been resolved.
type Completion struct {
	Handle  *Handle
	Outcome Outcome
}

// Deliver hands a completion to the interactive thread. It must be called from
// the interactive thread. Only the first delivery of a handle has effect,
// duplicates return false.
func (b *Bridge) Deliver(c Completion) (Outcome, bool) {
	h := c.Handle
	if h == nil {
		b.logger.Warningf("Ignoring completion without handle")
		return Outcome{}, false
	}

	// Keep the handle consistent if the completion did not come from the worker.
	h.resolve(c.Outcome)

	if !h.markDelivered() {
		b.logger.Warningf("Ignoring duplicated completion of %s", h.ID())
		return Outcome{}, false
	}

	b.mu.Lock()
	if b.pending == h {
		b.pending = nil
	}
	b.mu.Unlock()

	b.gate.End()
	out, _ := h.Outcome()
	b.logger.Debugf("Delivered outcome of %s (failed: %t)", h.ID(), out.Failed())

	return out, true
}
