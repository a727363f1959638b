// Package ui provides the visual styling for the axo terminal client.
// Each of the three user-selectable themes maps to a lipgloss palette.
package ui

import (
	"strings"

	"axolotl/internal/prefs"

	"github.com/charmbracelet/lipgloss"
)

// Semantic colors, the same in every theme.
var (
	Destructive = lipgloss.Color("#e53935")
	Success     = lipgloss.Color("#8bc34a")
	Warning     = lipgloss.Color("#ffc107")
	Info        = lipgloss.Color("#2196f3")
)

// Palette is the color scheme of one theme.
type Palette struct {
	Name       prefs.Theme
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	IsDark     bool
}

// DayPalette is a bright lagoon.
func DayPalette() Palette {
	return Palette{
		Name:       prefs.ThemeDay,
		Background: lipgloss.Color("#f4f8fb"),
		Foreground: lipgloss.Color("#12304a"),
		Primary:    lipgloss.Color("#1e6fa8"),
		Accent:     lipgloss.Color("#f48fb1"),
		Muted:      lipgloss.Color("#7a8b99"),
		Border:     lipgloss.Color("#c9d6e0"),
	}
}

// TropicalPalette is warm and saturated.
func TropicalPalette() Palette {
	return Palette{
		Name:       prefs.ThemeTropical,
		Background: lipgloss.Color("#063b3a"),
		Foreground: lipgloss.Color("#fdf6e3"),
		Primary:    lipgloss.Color("#ffb74d"),
		Accent:     lipgloss.Color("#4dd0e1"),
		Muted:      lipgloss.Color("#80a8a0"),
		Border:     lipgloss.Color("#24645f"),
		IsDark:     true,
	}
}

// NightPalette is the default deep-water scheme.
func NightPalette() Palette {
	return Palette{
		Name:       prefs.ThemeNight,
		Background: lipgloss.Color("#0b1526"),
		Foreground: lipgloss.Color("#e6ecf5"),
		Primary:    lipgloss.Color("#f48fb1"),
		Accent:     lipgloss.Color("#9fa8da"),
		Muted:      lipgloss.Color("#5c6b82"),
		Border:     lipgloss.Color("#2a3850"),
		IsDark:     true,
	}
}

// PaletteFor returns the palette of t, falling back to the default theme.
func PaletteFor(t prefs.Theme) Palette {
	switch t {
	case prefs.ThemeDay:
		return DayPalette()
	case prefs.ThemeTropical:
		return TropicalPalette()
	default:
		return NightPalette()
	}
}

// Styles holds all the styled components
type Styles struct {
	Palette Palette

	// Layout
	Header  lipgloss.Style
	Footer  lipgloss.Style
	Content lipgloss.Style
	Card    lipgloss.Style

	// Text
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style

	// Forms
	Label        lipgloss.Style
	FocusedLabel lipgloss.Style
	Selected     lipgloss.Style

	// Status
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	// Components
	Spinner lipgloss.Style
	Badge   lipgloss.Style
	Divider lipgloss.Style
}

// NewStyles creates a new Styles instance for the given theme
func NewStyles(t prefs.Theme) Styles {
	p := PaletteFor(t)
	return Styles{
		Palette: p,

		Header: lipgloss.NewStyle().
			Background(p.Primary).
			Foreground(p.Background).
			Padding(0, 2).
			Bold(true),

		Footer: lipgloss.NewStyle().
			Foreground(p.Muted).
			Padding(0, 2),

		Content: lipgloss.NewStyle().
			Padding(1, 2),

		Card: lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Border),

		Title: lipgloss.NewStyle().
			Foreground(p.Primary).
			Bold(true).
			MarginBottom(1),

		Subtitle: lipgloss.NewStyle().
			Foreground(p.Muted).
			Italic(true),

		Body: lipgloss.NewStyle().
			Foreground(p.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(p.Muted),

		Bold: lipgloss.NewStyle().
			Foreground(p.Foreground).
			Bold(true),

		Label: lipgloss.NewStyle().
			Foreground(p.Muted),

		FocusedLabel: lipgloss.NewStyle().
			Foreground(p.Accent).
			Bold(true),

		Selected: lipgloss.NewStyle().
			Foreground(p.Primary).
			Bold(true),

		Success: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(Warning),

		Info: lipgloss.NewStyle().
			Foreground(Info),

		Spinner: lipgloss.NewStyle().
			Foreground(p.Accent),

		Badge: lipgloss.NewStyle().
			Background(p.Accent).
			Foreground(p.Background).
			Padding(0, 1).
			Bold(true),

		Divider: lipgloss.NewStyle().
			Foreground(p.Border),
	}
}

// RenderDivider returns a horizontal divider
func (s Styles) RenderDivider(width int) string {
	if width <= 0 {
		width = 40
	}
	return s.Divider.Render(strings.Repeat("─", width))
}

// Meter renders a 0..100 stat as a fixed-width bar.
func (s Styles) Meter(value, width int) string {
	if width <= 0 {
		width = 20
	}
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	filled := value * width / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return lipgloss.NewStyle().Foreground(s.Palette.Accent).Render(bar)
}

// Logo returns the axo banner
func Logo(s Styles) string {
	logo := `
   __ ___ _____
  / _' \ \ / _ \
 | (_| |>  < (_) |
  \__,_/_/\_\___/
`
	return s.Title.Render(logo)
}
