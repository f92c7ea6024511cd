package ui

import "github.com/charmbracelet/lipgloss"

var (
	// ANSI palette colors so the output respects the user's terminal theme.
	TitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true).MarginBottom(1)
	UsageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	DescStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	FlagStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	PhaseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	ToolStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	ErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)
