package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// styles are rebuilt whenever the theme changes.
type styles struct {
	panel       lipgloss.Style
	stats       lipgloss.Style
	header      lipgloss.Style
	label       lipgloss.Style
	value       lipgloss.Style
	activeParam lipgloss.Style
	running     lipgloss.Style
	paused      lipgloss.Style
	failed      lipgloss.Style
	keyHint     lipgloss.Style
	subtle      lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Muted).
			Padding(0, 1),
		stats: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(t.Muted).
			Padding(0, 2).
			Width(44),
		header: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Secondary).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(t.Muted),
		label:       lipgloss.NewStyle().Foreground(t.Muted).Width(12),
		value:       lipgloss.NewStyle().Foreground(t.Text),
		activeParam: lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
		running:     lipgloss.NewStyle().Bold(true).Foreground(t.Success),
		paused:      lipgloss.NewStyle().Bold(true).Foreground(t.Warning),
		failed:      lipgloss.NewStyle().Bold(true).Foreground(t.Error),
		keyHint:     lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		subtle:      lipgloss.NewStyle().Foreground(t.Muted),
	}
}

// status renders a simulator status badge.
func (s styles) status(name string, frame int) string {
	switch name {
	case "running":
		return s.running.Render(AnimatedSpinner(frame) + " RUNNING")
	case "terminal", "failed":
		return s.failed.Render("■ " + strings.ToUpper(name))
	default:
		return s.paused.Render("❚❚ " + strings.ToUpper(name))
	}
}

func AnimatedSpinner(frame int) string {
	spinners := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	return spinners[frame%len(spinners)]
}

// Separator renders a muted rule with a centre mark.
func (s styles) separator(width int) string {
	mid := width / 2
	if mid < 3 {
		return s.subtle.Render(strings.Repeat("─", width))
	}
	left := strings.Repeat("─", mid-3)
	right := strings.Repeat("─", width-mid-3)
	return s.subtle.Render(left + " ◆ " + right)
}
