// Package styles provides shared lipgloss styles for CLI output and operator
// notifications.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// CurrentPalette holds the active theme palette.
var CurrentPalette Palette

// Style exports.
var (
	HeaderStyle  lipgloss.Style
	MutedStyle   lipgloss.Style
	SuccessStyle lipgloss.Style
	WarningStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
	IDStyle      lipgloss.Style

	// BannerStyle frames notifications addressed to the human operator.
	BannerStyle      lipgloss.Style
	BannerTitleStyle lipgloss.Style
)

// SetTheme sets the active palette and rebuilds all global styles.
func SetTheme(p Palette) {
	CurrentPalette = p

	HeaderStyle = lipgloss.NewStyle().Foreground(p.Primary).Bold(true)
	MutedStyle = lipgloss.NewStyle().Foreground(p.Muted)
	SuccessStyle = lipgloss.NewStyle().Foreground(p.Success)
	WarningStyle = lipgloss.NewStyle().Foreground(p.Warning)
	ErrorStyle = lipgloss.NewStyle().Foreground(p.Error).Bold(true)
	IDStyle = lipgloss.NewStyle().Foreground(p.Secondary)

	BannerStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Primary).
		Padding(0, 1)
	BannerTitleStyle = lipgloss.NewStyle().
		Foreground(p.Foreground).
		Bold(true)
}

// StatusStyle returns the style for a work item status or message state.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "done", "read", "completed":
		return SuccessStyle
	case "doing", "code-review", "in_progress", "unread":
		return WarningStyle
	case "cancelled":
		return ErrorStyle
	default:
		return MutedStyle
	}
}

// Table renders rows under headers with the active palette.
func Table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(MutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	return t.String()
}

// nolint:gochecknoinits // bootstrap default theme before any style is accessed.
func init() {
	SetTheme(themes[DefaultTheme])
}
