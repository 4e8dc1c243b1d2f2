package model

import (
	"fmt"
	"time"
)

// Sender identifies who authored a log entry.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// DisplayName returns the name shown next to the sender messages.
func (s Sender) DisplayName() string {
	switch s {
	case SenderUser:
		return "You"
	case SenderAgent:
		return "Agent"
	default:
		return string(s)
	}
}

// ParseSender converts a stored sender into a Sender.
func ParseSender(s string) (Sender, error) {
	switch Sender(s) {
	case SenderUser, SenderAgent:
		return Sender(s), nil
	}
	return "", fmt.Errorf("unknown sender %q: %w", s, ErrNotValid)
}

// LogEntry is a single message of the conversation log.
// Sequence defines the display order and is strictly increasing.
type LogEntry struct {
	Sequence int
	Sender   Sender
	Text     string
	At       time.Time
}

// ProgressTicks is the number of steps of a full progress indicator rotation.
const ProgressTicks = 36

// ProgressState is the in-flight status used to drive the progress indicator.
type ProgressState struct {
	Running bool
	Tick    int
}

// SessionSummary describes an archived chat session.
type SessionSummary struct {
	ID        string
	Entries   int
	StartedAt time.Time
	UpdatedAt time.Time
}
