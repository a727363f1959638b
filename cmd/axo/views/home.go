package views

import (
	"fmt"
	"strings"

	"axolotl/cmd/axo/ui"
	"axolotl/internal/api"
	"axolotl/internal/prefs"
	"axolotl/internal/router"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type homeKeys struct {
	NewPet    key.Binding
	Sanctuary key.Binding
	Profile   key.Binding
	Theme     key.Binding
	Logout    key.Binding
}

var keysHome = homeKeys{
	NewPet:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "create pet")),
	Sanctuary: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sanctuary")),
	Profile:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "profile")),
	Theme:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "switch theme")),
	Logout:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "log out")),
}

// homeLoadedMsg is the result of the parallel home load.
type homeLoadedMsg struct {
	pets int
	err  string
}

type homePage struct {
	env    *env
	pets   int
	loaded bool
	err    string
}

func newHomePage(e *env) *homePage {
	return &homePage{env: e, pets: -1}
}

// Init refreshes the profile and counts the pets concurrently.
func (p *homePage) Init() tea.Cmd {
	e := p.env
	return func() tea.Msg {
		var count int
		g, ctx := errgroup.WithContext(e.ctx)
		g.Go(func() error {
			err := e.app.Session.RefreshUser(ctx)
			if err != nil {
				e.logger.Debug("profile refresh failed", zap.Error(err))
			}
			return nil
		})
		g.Go(func() error {
			pets, err := e.app.Client.ListPets(ctx)
			if err != nil {
				return err
			}
			count = len(pets)
			return nil
		})
		if err := g.Wait(); err != nil {
			return homeLoadedMsg{pets: -1, err: api.Message(err, "Could not load your sanctuary")}
		}
		return homeLoadedMsg{pets: count}
	}
}

func (p *homePage) Update(msg tea.Msg) (page, tea.Cmd) {
	switch msg := msg.(type) {
	case homeLoadedMsg:
		p.loaded = true
		p.pets = msg.pets
		p.err = msg.err
		return p, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keysHome.NewPet):
			return p, navigate(router.PathPetNew)
		case key.Matches(msg, keysHome.Sanctuary):
			return p, navigate(router.PathSanctuary)
		case key.Matches(msg, keysHome.Profile):
			return p, navigate(router.PathProfile)
		case key.Matches(msg, keysHome.Theme):
			return p, p.switchTheme()
		case key.Matches(msg, keysHome.Logout):
			return p, p.logout()
		}
	}
	return p, nil
}

func (p *homePage) switchTheme() tea.Cmd {
	next := p.env.app.Prefs.Theme().Next()
	if err := p.env.app.Prefs.SetTheme(next); err != nil {
		p.err = err.Error()
		return nil
	}
	return func() tea.Msg { return themeChangedMsg{theme: next} }
}

// logout clears the session. The guard then moves the user to /login.
func (p *homePage) logout() tea.Cmd {
	e := p.env
	return func() tea.Msg {
		if err := e.app.Session.Logout(e.ctx); err != nil {
			e.logger.Warn("logout failed", zap.Error(err))
		}
		return nil
	}
}

func (p *homePage) View() string {
	s := p.env.styles
	snap := p.env.app.Session.Snapshot()

	var b strings.Builder
	b.WriteString(s.Title.Render("Home"))
	b.WriteString("\n")

	switch {
	case snap.Loading:
		b.WriteString(s.Muted.Render("Loading profile..."))
	case snap.User != nil:
		b.WriteString(s.Bold.Render(ui.Sanitize(snap.User.Username)))
		b.WriteString("  ")
		b.WriteString(s.Muted.Render(ui.Sanitize(snap.User.Email)))
	}
	b.WriteString("\n\n")

	switch {
	case p.err != "":
		b.WriteString(s.Error.Render(ui.Sanitize(p.err)))
	case !p.loaded:
		b.WriteString(s.Muted.Render("Counting your axolotls..."))
	case p.pets == 0:
		b.WriteString(s.Body.Render("Your sanctuary is empty. Create your first axolotl!"))
	case p.pets == 1:
		b.WriteString(s.Body.Render("1 axolotl lives in your sanctuary."))
	default:
		b.WriteString(s.Body.Render(fmt.Sprintf("%d axolotls live in your sanctuary.", p.pets)))
	}
	b.WriteString("\n\n")

	b.WriteString(themeSwitcher(s, s.Palette.Name))
	b.WriteString("\n\n")
	b.WriteString(hintLine(s, keysHome.NewPet, keysHome.Sanctuary, keysHome.Profile, keysHome.Theme, keysHome.Logout))
	return b.String()
}

func themeSwitcher(s *ui.Styles, current prefs.Theme) string {
	parts := make([]string, 0, len(prefs.Themes))
	for _, t := range prefs.Themes {
		if t == current {
			parts = append(parts, s.Badge.Render(string(t)))
		} else {
			parts = append(parts, s.Muted.Render(string(t)))
		}
	}
	return s.Label.Render("Theme ") + strings.Join(parts, " ")
}
