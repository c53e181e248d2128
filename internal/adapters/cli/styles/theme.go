// Package styles holds the lipgloss styles used by the printvault CLI.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"printvault/internal/domain"
)

var (
	// Colors
	Primary   = lipgloss.Color("#7C3AED") // Purple
	Secondary = lipgloss.Color("#10B981") // Green
	Muted     = lipgloss.Color("#6B7280") // Gray
	Warning   = lipgloss.Color("#F59E0B") // Amber
	Error     = lipgloss.Color("#EF4444") // Red

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	// Taxonomy levels
	Allegiance = lipgloss.NewStyle().
			Bold(true)

	Army = lipgloss.NewStyle().
		Foreground(Secondary)

	Unit = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#60A5FA")) // Blue

	Path = lipgloss.NewStyle().
		Foreground(Muted)

	Preview = lipgloss.NewStyle().
		Foreground(Warning).
		Italic(true)

	Key = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)

	// Message styles
	Success = lipgloss.NewStyle().
		Foreground(Secondary).
		Bold(true)

	ErrorMsg = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	WarningMsg = lipgloss.NewStyle().
			Foreground(Warning)

	MutedText = lipgloss.NewStyle().
			Foreground(Muted)
)

// Status renders a health status word in its color.
func Status(status string) string {
	switch status {
	case domain.HealthOK:
		return Success.Render(status)
	case domain.HealthDegraded:
		return WarningMsg.Bold(true).Render(status)
	default:
		return ErrorMsg.Render(status)
	}
}

// Change renders a scan change name.
func Change(name string) string {
	switch name {
	case "added":
		return Success.Render("+ " + name)
	case "updated":
		return WarningMsg.Render("~ " + name)
	default:
		return MutedText.Render("  " + name)
	}
}
