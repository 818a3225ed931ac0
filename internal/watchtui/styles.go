package watchtui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.Color("212")
	mutedColor   = lipgloss.Color("241")
	successColor = lipgloss.Color("42")
	errorColor   = lipgloss.Color("196")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	subtleStyle = lipgloss.NewStyle().Foreground(mutedColor)
	helpStyle   = lipgloss.NewStyle().Foreground(mutedColor)

	stateStyles = map[string]lipgloss.Style{
		"loading": lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		"success": lipgloss.NewStyle().Foreground(successColor),
		"error":   lipgloss.NewStyle().Foreground(errorColor),
	}
)

func formatState(s string) string {
	style, ok := stateStyles[s]
	if !ok {
		return s
	}
	return style.Render(s)
}
