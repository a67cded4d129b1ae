package ui

import "github.com/charmbracelet/lipgloss"

type uiTheme struct {
	header         lipgloss.Style
	sidebar        lipgloss.Style
	sidebarTitle   lipgloss.Style
	threadActive   lipgloss.Style
	threadInactive lipgloss.Style
	userLabel      lipgloss.Style
	userText       lipgloss.Style
	status         lipgloss.Style
	sources        lipgloss.Style
	inputPanel     lipgloss.Style
	footer         lipgloss.Style
	warn           lipgloss.Style
	muted          lipgloss.Style
}

func newTheme() uiTheme {
	teal := lipgloss.Color("#2dd4bf")
	blue := lipgloss.Color("#60a5fa")
	amber := lipgloss.Color("#fbbf24")
	text := lipgloss.Color("#e5e7eb")
	muted := lipgloss.Color("#6b7280")

	return uiTheme{
		header: lipgloss.NewStyle().
			Foreground(teal).
			Bold(true).
			Padding(0, 1),
		sidebar: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1),
		sidebarTitle: lipgloss.NewStyle().
			Foreground(blue).
			Bold(true),
		threadActive: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#111827")).
			Background(teal).
			Bold(true).
			Padding(0, 1),
		threadInactive: lipgloss.NewStyle().
			Foreground(text).
			Padding(0, 1),
		userLabel: lipgloss.NewStyle().
			Foreground(teal).
			Bold(true),
		userText: lipgloss.NewStyle().
			Foreground(text),
		status: lipgloss.NewStyle().
			Foreground(blue).
			Italic(true),
		sources: lipgloss.NewStyle().
			Foreground(muted).
			Italic(true),
		inputPanel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(teal).
			Padding(0, 1),
		footer: lipgloss.NewStyle().
			Foreground(muted),
		warn: lipgloss.NewStyle().
			Foreground(amber),
		muted: lipgloss.NewStyle().
			Foreground(muted),
	}
}
