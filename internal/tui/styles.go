package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	border  lipgloss.Style
	user    lipgloss.Style
	agent   lipgloss.Style
	failure lipgloss.Style
	spinner lipgloss.Style
	status  lipgloss.Style
	warning lipgloss.Style
	title   lipgloss.Style
	muted   lipgloss.Style
}

func newStyles(noColor bool) styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return styles{
			border:  plain.Border(lipgloss.NormalBorder()),
			user:    plain.Bold(true),
			agent:   plain.Bold(true),
			failure: plain,
			spinner: plain,
			status:  plain,
			warning: plain,
			title:   plain.Bold(true),
			muted:   plain,
		}
	}

	return styles{
		border:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")),
		user:    lipgloss.NewStyle().Foreground(lipgloss.Color("129")).Bold(true),
		agent:   lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		spinner: lipgloss.NewStyle().Foreground(lipgloss.Color("205")),
		status:  lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		title:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true),
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}
