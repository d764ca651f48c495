package ui

import "github.com/charmbracelet/lipgloss"

// Palette
var (
	Success = lipgloss.Color("#22c55e") // green
	Warning = lipgloss.Color("#f59e0b") // amber
	Error   = lipgloss.Color("#ef4444") // red
	Info    = lipgloss.Color("#3b82f6") // blue
	Muted   = lipgloss.Color("#6b7280") // gray
)
