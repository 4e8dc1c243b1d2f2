package model

import (
	"fmt"
	"strings"
	"time"
)

// WorkItem is one submitted task execution request.
// Once created it is never modified.
type WorkItem struct {
	ID          string
	Command     string
	SubmittedAt time.Time
}

// Validate checks the work item is ready to be handed to the engine.
func (w WorkItem) Validate() error {
	if w.ID == "" {
		return fmt.Errorf("id is required: %w", ErrNotValid)
	}
	if strings.TrimSpace(w.Command) == "" {
		return fmt.Errorf("command is required: %w", ErrNotValid)
	}
	if w.SubmittedAt.IsZero() {
		return fmt.Errorf("submission time is required: %w", ErrNotValid)
	}
	return nil
}

// Result is the successful output of a task engine execution.
type Result struct {
	Text string
}
