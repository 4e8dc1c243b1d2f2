package transcript

import (
	"time"

	"github.com/slok/qchat/internal/model"
)

// Log is the append-only conversation log.
// It's owned by the interactive thread and is not safe for concurrent use.
type Log struct {
	entries []model.LogEntry
	now     func() time.Time
}

// NewLog returns an empty log. If now is nil time.Now is used.
func NewLog(now func() time.Time) *Log {
	if now == nil {
		now = time.Now
	}
	return &Log{now: now}
}

// Append adds an entry with the next sequence number, starting at 1.
func (l *Log) Append(sender model.Sender, text string) model.LogEntry {
	e := model.LogEntry{
		Sequence: len(l.entries) + 1,
		Sender:   sender,
		Text:     text,
		At:       l.now(),
	}
	l.entries = append(l.entries, e)

	return e
}

// Entries returns a copy of all the entries in sequence order.
func (l *Log) Entries() []model.LogEntry {
	entries := make([]model.LogEntry, len(l.entries))
	copy(entries, l.entries)
	return entries
}

func (l *Log) Len() int { return len(l.entries) }

// Last returns the last entry, false if the log is empty.
func (l *Log) Last() (model.LogEntry, bool) {
	if len(l.entries) == 0 {
		return model.LogEntry{}, false
	}
	return l.entries[len(l.entries)-1], true
}
