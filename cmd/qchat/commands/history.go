package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/qchat/internal/printer"
	"github.com/slok/qchat/internal/storage/sqlite"
)

type HistoryCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	sessionID string
	format    string
}

// NewHistoryCommand returns the history command.
func NewHistoryCommand(rootCmd *RootCommand, app *kingpin.Application) *HistoryCommand {
	c := &HistoryCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("history", "List the archived sessions or show the conversation of one.")
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")
	c.Cmd.Arg("session-id", "Session to show.").StringVar(&c.sessionID)

	return c
}

func (c HistoryCommand) Name() string { return c.Cmd.FullCommand() }

func (c HistoryCommand) Run(ctx context.Context) error {
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.DBPath,
		Logger: c.rootCmd.logger(),
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default:
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if c.sessionID != "" {
		entries, err := repo.ListEntries(ctx, c.sessionID)
		if err != nil {
			return fmt.Errorf("could not get session: %w", err)
		}
		return p.PrintEntries(c.sessionID, entries)
	}

	sessions, err := repo.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("could not list sessions: %w", err)
	}
	if len(sessions) == 0 && c.format != "json" {
		return p.PrintMessage("No archived sessions")
	}

	return p.PrintSessions(sessions)
}
