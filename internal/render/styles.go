// Package render draws the reading flow for terminal front-ends.
package render

import "github.com/charmbracelet/lipgloss"

var (
	Gold    = lipgloss.Color("#EAB308")
	Violet  = lipgloss.Color("#C4B5FD")
	Night   = lipgloss.Color("#1E1B4B")
	Muted   = lipgloss.Color("#9CA3AF")
	Danger  = lipgloss.Color("#E53935")
	Moonlit = lipgloss.Color("#F5F3FF")
)

// Styles holds the lipgloss styles used by the Renderer.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Notice   lipgloss.Style
	Card     lipgloss.Style
	Heading  lipgloss.Style
	Selected lipgloss.Style
	BarFull  lipgloss.Style
	BarEmpty lipgloss.Style
	Button   lipgloss.Style
	Disabled lipgloss.Style
}

// DefaultStyles returns the night-sky palette.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(Gold),
		Subtitle: lipgloss.NewStyle().Foreground(Violet),
		Body:     lipgloss.NewStyle().Foreground(Moonlit),
		Muted:    lipgloss.NewStyle().Foreground(Muted),
		Notice:   lipgloss.NewStyle().Bold(true).Foreground(Danger),
		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Violet).
			Padding(0, 1),
		Heading:  lipgloss.NewStyle().Bold(true).Foreground(Violet).Underline(true),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(Night).Background(Gold),
		BarFull:  lipgloss.NewStyle().Foreground(Gold),
		BarEmpty: lipgloss.NewStyle().Foreground(Muted),
		Button:   lipgloss.NewStyle().Bold(true).Foreground(Gold),
		Disabled: lipgloss.NewStyle().Foreground(Muted).Strikethrough(true),
	}
}
