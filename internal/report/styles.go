// Package report renders backtest output for the terminal.
package report

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(24)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	gainStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	headerCellStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).Align(lipgloss.Right)
	cellStyle       = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
)

// signed picks the gain or loss style by sign
func signed(v float64) lipgloss.Style {
	if v < 0 {
		return lossStyle
	}
	return gainStyle
}
