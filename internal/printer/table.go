package printer

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/slok/qchat/internal/model"
)

// TablePrinter prints transcripts in a human readable format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintSessions prints the sessions in a table format.
func (t *TablePrinter) PrintSessions(sessions []model.SessionSummary) error {
	if len(sessions) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "SESSION\tMESSAGES\tSTARTED\tLAST ACTIVITY")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", s.ID, s.Entries, FormatTimestamp(s.StartedAt), TimeAgo(s.UpdatedAt))
	}

	return nil
}

// PrintEntries prints the conversation of a session.
func (t *TablePrinter) PrintEntries(sessionID string, entries []model.LogEntry) error {
	fmt.Fprintf(t.writer, "Session: %s\n", sessionID)
	for _, e := range entries {
		fmt.Fprintf(t.writer, "\n[%d] %s (%s)\n", e.Sequence, e.Sender.DisplayName(), FormatTimestamp(e.At))
		for _, line := range strings.Split(e.Text, "\n") {
			fmt.Fprintf(t.writer, "  %s\n", line)
		}
	}

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}
