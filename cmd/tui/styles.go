// Package tui is the interactive terminal browser for the gallery
// catalog. It uses the Charm Bubble Tea framework.
package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette for the TUI
var (
	primaryColor   = lipgloss.Color("#7C3AED") // Violet
	secondaryColor = lipgloss.Color("#10B981") // Emerald
	accentColor    = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444") // Red

	fgColor    = lipgloss.Color("#CDD6F4") // Light foreground
	mutedColor = lipgloss.Color("#6C7086") // Muted text
	highlight  = lipgloss.Color("#45475A") // Highlight background
)

// headerStyle renders the folder banner above the file listing
var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(fgColor).
	Background(primaryColor).
	Padding(0, 2).
	MarginBottom(1)

// titleStyle renders the folder picker title
var titleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(primaryColor).
	MarginBottom(1).
	Padding(0, 1)

// fileStyle renders one file row
var fileStyle = lipgloss.NewStyle().
	Foreground(fgColor).
	PaddingLeft(2)

// categoryStyle renders the file category tag
var categoryStyle = lipgloss.NewStyle().
	Foreground(secondaryColor)

// statusBarStyle renders the page indicator at the bottom
var statusBarStyle = lipgloss.NewStyle().
	Foreground(mutedColor).
	Background(highlight).
	Padding(0, 1)

// helpStyle renders the key help line
var helpStyle = lipgloss.NewStyle().
	Foreground(mutedColor).
	MarginTop(1)

// errorStyle renders error messages
var errorStyle = lipgloss.NewStyle().
	Foreground(errorColor).
	Bold(true)

// inputLabelStyle renders the jump prompt label
var inputLabelStyle = lipgloss.NewStyle().
	Foreground(accentColor).
	Bold(true)
