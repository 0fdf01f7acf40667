package panel

import "github.com/charmbracelet/lipgloss"

var (
	accent    = lipgloss.Color("#1A73E8")
	mutedGray = lipgloss.Color("#5F6368")
	alertRed  = lipgloss.Color("#D93025")
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true).
			Padding(0, 1)

	searchStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedGray).
			Padding(0, 1)

	searchFocusedStyle = searchStyle.
				BorderForeground(accent)

	titleStyle = lipgloss.NewStyle().Bold(true)

	readTitleStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	metaStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	cursorStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	placeholderStyle = lipgloss.NewStyle().
				Foreground(mutedGray).
				Padding(1, 2)

	alertStyle = lipgloss.NewStyle().
			Foreground(alertRed).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Padding(0, 1)
)
