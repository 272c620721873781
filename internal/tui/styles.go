package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used for rendering.
type Styles struct {
	User        lipgloss.Style
	AI          lipgloss.Style
	Game        lipgloss.Style
	Error       lipgloss.Style
	Success     lipgloss.Style
	Muted       lipgloss.Style
	Token       lipgloss.Style
	TokenCursor lipgloss.Style
	Placed      lipgloss.Style
}

// NewStyles returns the default palette.
func NewStyles() Styles {
	return Styles{
		User:        lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true),
		AI:          lipgloss.NewStyle(),
		Game:        lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true),
		Error:       lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		Success:     lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		Muted:       lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Faint(true),
		Token:       lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.NormalBorder(), false, true),
		TokenCursor: lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.NormalBorder(), false, true).Reverse(true),
		Placed:      lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("6")),
	}
}
