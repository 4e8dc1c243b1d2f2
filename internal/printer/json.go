package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/qchat/internal/model"
)

// JSONPrinter prints transcripts in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

type sessionOutput struct {
	ID        string    `json:"id"`
	Entries   int       `json:"entries"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type entryOutput struct {
	Sequence int       `json:"sequence"`
	Sender   string    `json:"sender"`
	Text     string    `json:"text"`
	At       time.Time `json:"at"`
}

type transcriptOutput struct {
	SessionID string        `json:"session_id"`
	Entries   []entryOutput `json:"entries"`
}

type messageOutput struct {
	Message string `json:"message"`
}

// PrintSessions prints the sessions in JSON format.
func (j *JSONPrinter) PrintSessions(sessions []model.SessionSummary) error {
	items := make([]sessionOutput, len(sessions))
	for i, s := range sessions {
		items[i] = sessionOutput{
			ID:        s.ID,
			Entries:   s.Entries,
			StartedAt: s.StartedAt.UTC(),
			UpdatedAt: s.UpdatedAt.UTC(),
		}
	}

	return j.encode(items)
}

// PrintEntries prints the conversation of a session in JSON format.
func (j *JSONPrinter) PrintEntries(sessionID string, entries []model.LogEntry) error {
	output := transcriptOutput{SessionID: sessionID, Entries: make([]entryOutput, len(entries))}
	for i, e := range entries {
		output.Entries[i] = entryOutput{
			Sequence: e.Sequence,
			Sender:   string(e.Sender),
			Text:     e.Text,
			At:       e.At.UTC(),
		}
	}

	return j.encode(output)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
