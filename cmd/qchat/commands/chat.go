package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/qchat/internal/tui"
)

type ChatCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewChatCommand returns the interactive chat command.
func NewChatCommand(rootCmd *RootCommand, app *kingpin.Application) *ChatCommand {
	c := &ChatCommand{rootCmd: rootCmd}
	c.Cmd = app.Command("chat", "Start an interactive chat with the task engine.").Default()

	return c
}

func (c ChatCommand) Name() string { return c.Cmd.FullCommand() }

func (c ChatCommand) Run(ctx context.Context) error {
	cfg, err := c.rootCmd.LoadConfig(ctx)
	if err != nil {
		return err
	}

	queue := tui.NewQueue()
	model := tui.NewModel(tui.ModelConfig{
		Title:   fmt.Sprintf("qchat (%s engine)", cfg.Engine.Type),
		NoColor: c.rootCmd.NoColor,
	})

	s, err := newSession(ctx, c.rootCmd, cfg, queue)
	if err != nil {
		return err
	}

	svc, err := s.newChat(queue, model)
	if err != nil {
		return fmt.Errorf("could not create chat service: %w", err)
	}
	model.Bind(svc)

	return s.run(ctx, func(ctx context.Context) error {
		return tui.Run(ctx, model, queue, tui.WithInput(c.rootCmd.Stdin), tui.WithOutput(c.rootCmd.Stdout))
	})
}
