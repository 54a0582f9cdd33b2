package tui

import "github.com/charmbracelet/lipgloss"

var (
	// HeaderStyle styles the column header row.
	HeaderStyle = lipgloss.NewStyle().Bold(true)

	statusStyles = map[string]lipgloss.Style{
		// Terminal states
		"exported": lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"ready":    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"saved":    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"complete": lipgloss.NewStyle().Foreground(lipgloss.Color("2")),

		// Active states
		"rendering": lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"encoding":  lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"exporting": lipgloss.NewStyle().Foreground(lipgloss.Color("4")),

		// Skipped / warning
		"skipped":     lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"missing":     lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"unsupported": lipgloss.NewStyle().Foreground(lipgloss.Color("3")),

		// Error
		"error":     lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		"cancelled": lipgloss.NewStyle().Foreground(lipgloss.Color("1")),

		// Pending
		"pending": lipgloss.NewStyle().Faint(true),
	}
)

// StatusStyle returns the lipgloss style for the given status string.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

// isTerminal reports whether a row with status is finished.
func isTerminal(status string) bool {
	switch status {
	case "", "pending", "rendering", "encoding", "exporting":
		return false
	}
	return true
}
