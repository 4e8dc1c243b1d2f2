package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/qchat/internal/app/chat"
	"github.com/slok/qchat/internal/bridge"
	"github.com/slok/qchat/internal/loop"
	"github.com/slok/qchat/internal/printer"
)

type RunCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	words   []string
	verbose bool
}

// NewRunCommand returns the one-shot run command.
func NewRunCommand(rootCmd *RootCommand, app *kingpin.Application) *RunCommand {
	c := &RunCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("run", "Submit a single request and print the reply.")
	c.Cmd.Flag("verbose", "Print the whole conversation and progress notices.").Short('v').BoolVar(&c.verbose)
	c.Cmd.Arg("request", "The request text.").Required().StringsVar(&c.words)

	return c
}

func (c RunCommand) Name() string { return c.Cmd.FullCommand() }

func (c RunCommand) Run(ctx context.Context) error {
	text := strings.TrimSpace(strings.Join(c.words, " "))
	if text == "" {
		return fmt.Errorf("request can't be empty")
	}

	cfg, err := c.rootCmd.LoadConfig(ctx)
	if err != nil {
		return err
	}

	// The loop handler is set once the service exists.
	var svc *chat.Service
	l, err := loop.NewLoop(loop.LoopConfig{
		Handler: func(msg any) { svc.Handle(msg) },
		Logger:  c.rootCmd.logger(),
	})
	if err != nil {
		return fmt.Errorf("could not create loop: %w", err)
	}

	s, err := newSession(ctx, c.rootCmd, cfg, l)
	if err != nil {
		return err
	}

	status := c.rootCmd.Stderr
	if !c.verbose {
		status = nil
	}
	svc, err = s.newChat(l, printer.NewSurface(c.rootCmd.Stdout, status, !c.verbose))
	if err != nil {
		return fmt.Errorf("could not create chat service: %w", err)
	}

	return s.run(ctx, func(ctx context.Context) error {
		return c.submit(ctx, l, svc, text)
	})
}

// submit runs the interactive loop until the reply of the request has been delivered.
func (c RunCommand) submit(ctx context.Context, l *loop.Loop, svc *chat.Service, text string) error {
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopErr := make(chan error, 1)
	go func() { loopErr <- l.Run(loopCtx) }()
	defer func() {
		cancel()
		<-loopErr
	}()

	// Submissions happen on the interactive thread.
	var (
		h         *bridge.Handle
		submitErr error
		submitted = make(chan struct{})
	)
	l.Post(loop.Call(func() {
		h, submitErr = svc.Submit(text)
		close(submitted)
	}))

	select {
	case <-submitted:
	case <-ctx.Done():
		return nil
	}
	if submitErr != nil {
		return fmt.Errorf("could not submit request: %w", submitErr)
	}

	select {
	case <-h.Delivered():
	case <-ctx.Done():
		return nil
	}

	out, _ := h.Outcome()
	if out.Failed() {
		return fmt.Errorf("task %s failed: %w", h.ID(), out.Err)
	}

	return nil
}
