// Package theme holds the lipgloss styles of the command-line output.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/advisor-tasks/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
)

// HeaderStyle is used for table and section headers.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// HelpStyle is used for hints and secondary text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// ErrorStyle is used for failure notifications.
var ErrorStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorRed)

// SuccessStyle is used for success notifications.
var SuccessStyle = lipgloss.NewStyle().
	Foreground(ColorGreen)

// StatusStyle returns a color-coded style for a status partition.
func StatusStyle(status model.Status) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch status {
	case model.StatusInProgress:
		return base.Foreground(ColorYellow)
	case model.StatusLate:
		return base.Foreground(ColorRed)
	case model.StatusCompleted:
		return base.Foreground(ColorGreen)
	default:
		return base.Foreground(ColorBlue)
	}
}

// StatusBadge renders the label of a status in its style.
func StatusBadge(status model.Status) string {
	return StatusStyle(status).Render(StatusLabel(status))
}

// StatusLabel returns the human-readable label of a status.
func StatusLabel(status model.Status) string {
	switch status {
	case model.StatusInProgress:
		return "in progress"
	case model.StatusLate:
		return "late"
	case model.StatusCompleted:
		return "completed"
	default:
		return "all"
	}
}
