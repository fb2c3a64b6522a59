package tui

import "github.com/charmbracelet/lipgloss"

// base16 palette, see http://chriskempson.com/projects/base16/ for the
// role of each slot.
var (
	base00 = lipgloss.Color("#000000")
	base01 = lipgloss.Color("#202020")
	base03 = lipgloss.Color("#505050")
	base05 = lipgloss.Color("#d0d0d0")
	base08 = lipgloss.Color("#eb008a")
	base09 = lipgloss.Color("#f29333")
	base0B = lipgloss.Color("#37b349")
	base0C = lipgloss.Color("#00aabb")
	base0D = lipgloss.Color("#0e5a94")
	base0E = lipgloss.Color("#b31e8d")
)

type theme struct {
	root      lipgloss.Style
	bar       lipgloss.Style
	rule      lipgloss.Style
	lineToken lipgloss.Style
	reply     lipgloss.Style
	echo      lipgloss.Style
	failure   lipgloss.Style
	prompt    lipgloss.Style
	command   lipgloss.Style
	internal  lipgloss.Style
}

func newTheme() theme {
	return theme{
		root:      lipgloss.NewStyle().Background(base00).Foreground(base05),
		bar:       lipgloss.NewStyle().Reverse(true),
		rule:      lipgloss.NewStyle().Foreground(base03),
		lineToken: lipgloss.NewStyle().Foreground(base0C).Bold(true),
		reply:     lipgloss.NewStyle().Foreground(base0B),
		echo:      lipgloss.NewStyle().Foreground(base09),
		failure:   lipgloss.NewStyle().Foreground(base08),
		prompt:    lipgloss.NewStyle().Foreground(base0D).Bold(true),
		command:   lipgloss.NewStyle().Background(base01).Foreground(base0D),
		internal:  lipgloss.NewStyle().Background(base01).Foreground(base0E),
	}
}
