// Package theme holds the lipgloss styles used for human-readable CLI
// output.
package theme

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
)

// Color palette
var (
	Primary   = lipgloss.Color("#8B5CF6") // Vivid Purple
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F97316") // Orange
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	Text      = lipgloss.Color("#F8FAFC") // White
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	BgCard    = lipgloss.Color("#1E293B") // Dark Slate
	Border    = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Label = lipgloss.NewStyle().
		Foreground(Secondary).
		Bold(true)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)
)

// Layout
var (
	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)

	Rule = lipgloss.NewStyle().
		Foreground(Border)
)

// States
var (
	Good = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Warn = lipgloss.NewStyle().
		Foreground(Accent).
		Bold(true)

	Bad = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)
)

// Divider renders a horizontal rule of the given width.
func Divider(width int) string {
	return Rule.Render(strings.Repeat("─", width))
}

// Bar renders a horizontal percentage bar. Percent is clamped to 0..100.
func Bar(percent, width int) string {
	if width < 4 {
		width = 4
	}
	percent = max(0, min(percent, 100))

	filled := width * percent / 100
	empty := width - filled

	return lipgloss.NewStyle().Foreground(Secondary).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(Border).Render(strings.Repeat("░", empty)) +
		Hint.Render(fmt.Sprintf(" %3d%%", percent))
}

// Status styles an outcome tag: ok renders green, degraded orange and
// failures red.
func Status(text string, ok, degraded bool) string {
	switch {
	case !ok:
		return Bad.Render(text)
	case degraded:
		return Warn.Render(text)
	default:
		return Good.Render(text)
	}
}
