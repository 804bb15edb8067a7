package report

import "github.com/charmbracelet/lipgloss"

// Theme defines the colors used for terminal reports.
type Theme struct {
	Primary   lipgloss.Color // title
	Secondary lipgloss.Color // case names
	Error     lipgloss.Color // errored cases
	Warning   lipgloss.Color // failed cases
	Success   lipgloss.Color // passed cases
	Text      lipgloss.Color
	TextMuted lipgloss.Color // feedback, durations
	Border    lipgloss.Color // separators
}

// DarkTheme returns the default theme for dark terminals.
func DarkTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("#fab283"),
		Secondary: lipgloss.Color("#5c9cf5"),
		Error:     lipgloss.Color("#e06c75"),
		Warning:   lipgloss.Color("#f5a742"),
		Success:   lipgloss.Color("#7fd88f"),
		Text:      lipgloss.Color("#eeeeee"),
		TextMuted: lipgloss.Color("#808080"),
		Border:    lipgloss.Color("#484848"),
	}
}

// LightTheme returns a theme for bright terminal backgrounds.
func LightTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("#b35c00"),
		Secondary: lipgloss.Color("#0550ae"),
		Error:     lipgloss.Color("#cf222e"),
		Warning:   lipgloss.Color("#bf8700"),
		Success:   lipgloss.Color("#116329"),
		Text:      lipgloss.Color("#1f2328"),
		TextMuted: lipgloss.Color("#656d76"),
		Border:    lipgloss.Color("#d0d7de"),
	}
}

// ThemeByName returns a theme by name. Defaults to dark.
func ThemeByName(name string) Theme {
	switch name {
	case "light":
		return LightTheme()
	default:
		return DarkTheme()
	}
}

// styles holds the lipgloss styles derived from a Theme for one renderer.
type styles struct {
	title    lipgloss.Style
	rule     lipgloss.Style
	name     lipgloss.Style
	pass     lipgloss.Style
	fail     lipgloss.Style
	err      lipgloss.Style
	dim      lipgloss.Style
	text     lipgloss.Style
	feedback lipgloss.Style
}

func newStyles(r *lipgloss.Renderer, t Theme) styles {
	badge := r.NewStyle().Bold(true).Width(6)
	return styles{
		title:    r.NewStyle().Bold(true).Foreground(t.Primary),
		rule:     r.NewStyle().Foreground(t.Border),
		name:     r.NewStyle().Foreground(t.Secondary),
		pass:     badge.Foreground(t.Success),
		fail:     badge.Foreground(t.Warning),
		err:      badge.Foreground(t.Error),
		dim:      r.NewStyle().Foreground(t.TextMuted),
		text:     r.NewStyle().Foreground(t.Text),
		feedback: r.NewStyle().Foreground(t.TextMuted).PaddingLeft(8),
	}
}
