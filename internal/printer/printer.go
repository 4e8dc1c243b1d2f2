package printer

import "github.com/slok/qchat/internal/model"

// Printer knows how to print archived transcripts in different formats.
type Printer interface {
	PrintSessions(sessions []model.SessionSummary) error
	PrintEntries(sessionID string, entries []model.LogEntry) error
	PrintMessage(msg string) error
}
