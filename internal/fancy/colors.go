// Package fancy provides styling for user-facing CLI messages
package fancy

import (
	"github.com/charmbracelet/lipgloss"
)

// Colors for message labels
var (
	ColorRed    = lipgloss.Color("196") // Red
	ColorYellow = lipgloss.Color("228") // Yellow
	ColorGray   = lipgloss.Color("250") // Light gray
)
