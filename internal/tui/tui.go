package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// Run runs the TUI program until the user quits or the context is done.
func Run(ctx context.Context, m *Model, q *Queue, opts ...tea.ProgramOption) error {
	if m.ctrl == nil {
		return fmt.Errorf("model has no controller bound")
	}

	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	p := tea.NewProgram(m, opts...)
	q.attach(p)

	_, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("tui failed: %w", err)
	}

	return nil
}

// WithInput sets the program input, nil keeps the default.
func WithInput(r io.Reader) tea.ProgramOption {
	if r == nil {
		return func(*tea.Program) {}
	}
	return tea.WithInput(r)
}

// WithOutput sets the program output, nil keeps the default.
func WithOutput(w io.Writer) tea.ProgramOption {
	if w == nil {
		return func(*tea.Program) {}
	}
	return tea.WithOutput(w)
}
