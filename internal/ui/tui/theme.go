package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/aalvaropc/doclane/internal/domain"
)

type Theme struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Help     lipgloss.Style
	Card     lipgloss.Style
	Error    lipgloss.Style
	Toast    lipgloss.Style

	Status map[domain.DocumentStatus]lipgloss.Style
}

func DefaultTheme() Theme {
	return Theme{
		Title:    lipgloss.NewStyle().Bold(true),
		Subtitle: lipgloss.NewStyle().Faint(true),
		Help:     lipgloss.NewStyle().Faint(true),
		Card: lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")),
		Error: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Toast: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Status: map[domain.DocumentStatus]lipgloss.Style{
			domain.StatusPending:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
			domain.StatusProcessing: lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
			domain.StatusProcessed:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
			domain.StatusFailed:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		},
	}
}

func (t Theme) status(s domain.DocumentStatus) string {
	if st, ok := t.Status[s]; ok {
		return st.Render(string(s))
	}
	return string(s)
}
