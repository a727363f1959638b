package views

import (
	"strings"

	"axolotl/cmd/axo/ui"
	"axolotl/internal/prefs"
	"axolotl/internal/router"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type landingKeys struct {
	Login    key.Binding
	Register key.Binding
	Enter    key.Binding
}

var keysLanding = landingKeys{
	Login:    key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "sign in")),
	Register: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "create an account")),
	Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "go to my sanctuary")),
}

type landingPage struct {
	env *env

	// rendered markdown, cached per theme and width
	cache      string
	cacheTheme prefs.Theme
	cacheWidth int
}

func newLandingPage(e *env) *landingPage {
	return &landingPage{env: e}
}

func (p *landingPage) Init() tea.Cmd { return nil }

func (p *landingPage) Update(msg tea.Msg) (page, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch {
	case key.Matches(km, keysLanding.Login):
		return p, navigate(router.PathLogin)
	case key.Matches(km, keysLanding.Register):
		return p, navigate(router.PathRegister)
	case key.Matches(km, keysLanding.Enter):
		return p, navigate(router.PathHome)
	}
	return p, nil
}

func (p *landingPage) View() string {
	s := p.env.styles
	if p.cache == "" || p.cacheTheme != s.Palette.Name || p.cacheWidth != p.env.width {
		p.cache = ui.Markdown(ui.LandingText, s.Palette, p.env.width)
		p.cacheTheme = s.Palette.Name
		p.cacheWidth = p.env.width
	}

	var b strings.Builder
	b.WriteString(ui.Logo(*s))
	b.WriteString("\n")
	b.WriteString(p.cache)
	b.WriteString("\n\n")

	hints := []key.Binding{keysLanding.Login, keysLanding.Register}
	if p.env.app.Session.IsAuthenticated() {
		hints = append(hints, keysLanding.Enter)
	}
	b.WriteString(hintLine(s, hints...))
	return b.String()
}

// hintLine renders "key action · key action".
func hintLine(s *ui.Styles, bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, s.Bold.Render(h.Key)+" "+s.Muted.Render(h.Desc))
	}
	return strings.Join(parts, s.Muted.Render(" · "))
}
