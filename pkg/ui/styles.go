package ui

import "github.com/charmbracelet/lipgloss"

var (
	neonCyan    = lipgloss.Color("#00FFFF")
	neonMagenta = lipgloss.Color("#FF00FF")
	neonYellow  = lipgloss.Color("#FFFF00")
	neonGreen   = lipgloss.Color("#39FF14")
	neonRed     = lipgloss.Color("#FF0000")
	dimWhite    = lipgloss.Color("#B0B0B0")

	titleStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true).
			MarginTop(1)

	borderStyle = lipgloss.NewStyle().
			Foreground(neonMagenta)

	headerStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(dimWhite).
			Padding(0, 1)

	valueStyle = lipgloss.NewStyle().
			Foreground(neonYellow).
			Padding(0, 1).
			Align(lipgloss.Right)
)
