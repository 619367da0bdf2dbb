package cli

import "github.com/charmbracelet/lipgloss"

var (
	quoteStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#E5E7EB"))

	authorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF"))

	indexStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Width(4).
			Align(lipgloss.Right)

	loggedInStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	loggedOutStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)
)
