package cli

import "github.com/charmbracelet/lipgloss"

// Styles for human-facing status output.
var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func statusStyle(status string) lipgloss.Style {
	switch status {
	case "approved", "ok":
		return okStyle
	case "awaiting_human", "halted", "aborted":
		return warnStyle
	case "error":
		return errStyle
	default:
		return dimStyle
	}
}
