package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorRed    = lipgloss.Color("#FF5F5F")
	colorGreen  = lipgloss.Color("#5FD75F")
	colorYellow = lipgloss.Color("#FFD75F")
	colorCyan   = lipgloss.Color("#5FD7FF")
	colorGray   = lipgloss.Color("#6C6C6C")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	stateStyles = map[string]lipgloss.Style{
		"idle":         lipgloss.NewStyle().Foreground(colorGray),
		"recording":    lipgloss.NewStyle().Foreground(colorRed).Bold(true),
		"transcribing": lipgloss.NewStyle().Foreground(colorYellow),
		"previewing":   lipgloss.NewStyle().Foreground(colorCyan).Bold(true),
	}

	previewStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorCyan).
			Padding(0, 1)

	editStyle = previewStyle.
			BorderForeground(colorYellow)

	rawStyle = lipgloss.NewStyle().
			Foreground(colorGray).
			Italic(true)

	finalStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorGray)
)
