// Package views is the interactive terminal client: one bubbletea page per
// route, a root model that owns navigation, and the glue that turns session,
// expiry and poll events from other goroutines into tea messages.
package views

import (
	"context"
	"strings"
	"sync"

	"axolotl/cmd/axo/ui"
	"axolotl/internal/app"
	"axolotl/internal/logging"
	"axolotl/internal/prefs"
	"axolotl/internal/router"
	"axolotl/internal/session"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// NavigateMsg asks the root model to show target ("/path?query").
type NavigateMsg struct {
	Target string
}

// themeChangedMsg is emitted after the theme preference was saved.
type themeChangedMsg struct {
	theme prefs.Theme
}

// sessionChangedMsg carries a session.Store change into the event loop.
type sessionChangedMsg struct {
	snap session.Snapshot
}

// eventMsg wraps a message that arrived on the event channel.
type eventMsg struct {
	msg tea.Msg
}

// navigate returns a command that navigates to target.
func navigate(target string) tea.Cmd {
	return func() tea.Msg { return NavigateMsg{Target: target} }
}

// page is one screen.
type page interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (page, tea.Cmd)
	View() string
}

// stopper is implemented by pages that own background work.
type stopper interface {
	Stop()
}

// visibilityAware is implemented by pages that pause while the terminal is
// not focused.
type visibilityAware interface {
	SetVisible(visible bool)
}

// reasonSetter lets the login page take a new reason without losing input.
type reasonSetter interface {
	setReason(reason string)
}

// env is shared by every page.
type env struct {
	app    *app.App
	styles *ui.Styles
	ctx    context.Context
	logger *zap.Logger
	post   func(tea.Msg)
	width  int
}

type globalKeys struct {
	Quit key.Binding
	Help key.Binding
}

func (k globalKeys) ShortHelp() []key.Binding  { return []key.Binding{k.Help, k.Quit} }
func (k globalKeys) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

func newGlobalKeys() globalKeys {
	return globalKeys{
		Quit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Help: key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "keys")),
	}
}

// Model is the root bubbletea model.
type Model struct {
	env    *env
	styles ui.Styles
	keys   globalKeys
	help   help.Model

	events    chan tea.Msg
	done      chan struct{}
	closeOnce sync.Once
	cancel    context.CancelFunc
	unsub     func()

	start    string
	current  page
	match    router.Match
	showHelp bool
	height   int
}

// New creates the root model. start is the first navigation target.
func New(a *app.App, start string) *Model {
	if start == "" {
		start = router.PathLanding
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Model{
		styles: ui.NewStyles(a.Prefs.Theme()),
		keys:   newGlobalKeys(),
		help:   help.New(),
		events: make(chan tea.Msg, 64),
		done:   make(chan struct{}),
		cancel: cancel,
		start:  start,
	}
	m.env = &env{
		app:    a,
		styles: &m.styles,
		ctx:    ctx,
		logger: a.Logs.Get(logging.CategoryUI),
		post:   m.post,
	}

	a.OnNavigate(func(target string) { m.post(NavigateMsg{Target: target}) })
	m.unsub = a.Session.OnChange(func(s session.Snapshot) { m.post(sessionChangedMsg{snap: s}) })
	return m
}

// Close stops the current page and detaches from the app. The model must not
// be used afterwards.
func (m *Model) Close() {
	m.closeOnce.Do(func() {
		if s, ok := m.current.(stopper); ok {
			s.Stop()
		}
		m.unsub()
		m.env.app.OnNavigate(nil)
		m.cancel()
		close(m.done)
	})
}

// post delivers msg to the event loop from any goroutine.
func (m *Model) post(msg tea.Msg) {
	select {
	case m.events <- msg:
	case <-m.done:
	}
}

func (m *Model) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.events:
			return eventMsg{msg: msg}
		case <-m.done:
			return nil
		}
	}
}

// Location returns the URL of the page on screen.
func (m *Model) Location() string {
	return m.match.URL()
}

// Route returns the name of the page on screen.
func (m *Model) Route() router.Name {
	return m.match.Route.Name
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.listen(), navigate(m.start))
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		_, cmd := m.Update(msg.msg)
		return m, tea.Batch(cmd, m.listen())

	case tea.WindowSizeMsg:
		m.env.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil
		}

	case tea.FocusMsg:
		if v, ok := m.current.(visibilityAware); ok {
			v.SetVisible(true)
		}
		return m, nil

	case tea.BlurMsg:
		if v, ok := m.current.(visibilityAware); ok {
			v.SetVisible(false)
		}
		return m, nil

	case NavigateMsg:
		return m, m.show(msg.Target)

	case themeChangedMsg:
		m.styles = ui.NewStyles(msg.theme)
		m.env.logger.Debug("theme changed", zap.String("theme", string(msg.theme)))

	case sessionChangedMsg:
		if !msg.snap.Authenticated() && m.match.Route.Protected {
			return m, m.show(router.PathLogin)
		}
	}

	if m.current == nil {
		return m, nil
	}
	var cmd tea.Cmd
	m.current, cmd = m.current.Update(msg)
	return m, cmd
}

// show resolves target through the guard and swaps the page.
func (m *Model) show(target string) tea.Cmd {
	authed := m.env.app.Session.IsAuthenticated()
	match := m.env.app.Routes.Resolve(target, authed)

	if match.Route.Name == router.Login && m.match.Route.Name == router.Login {
		if rs, ok := m.current.(reasonSetter); ok {
			rs.setReason(match.Reason())
			m.match = match
			return nil
		}
	}

	if s, ok := m.current.(stopper); ok {
		s.Stop()
	}
	m.env.logger.Info("navigate",
		zap.String("target", target),
		zap.String("resolved", match.URL()),
		zap.Bool("authenticated", authed))

	m.match = match
	m.current = m.build(match)
	return m.current.Init()
}

func (m *Model) build(match router.Match) page {
	e := m.env
	switch match.Route.Name {
	case router.Login:
		return newLoginPage(e, match.Reason())
	case router.Register:
		return newRegisterPage(e)
	case router.Home:
		return newHomePage(e)
	case router.Profile:
		return newProfilePage(e)
	case router.PetNew:
		return newPetNewPage(e)
	case router.Sanctuary:
		return newSanctuaryPage(e)
	case router.PetDetail:
		id, err := match.PetID()
		if err != nil {
			return newLandingPage(e)
		}
		return newPetDetailPage(e, id)
	default:
		return newLandingPage(e)
	}
}

func (m *Model) View() string {
	var b strings.Builder

	title := "axo"
	if u := m.env.app.Session.User(); u != nil {
		title += " · " + ui.Sanitize(u.Username)
	}
	header := m.styles.Header.Render(title)
	loc := m.styles.Muted.Render(" " + m.match.URL())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, header, loc))
	b.WriteString("\n\n")

	if m.current != nil {
		b.WriteString(m.styles.Content.Render(m.current.View()))
	}
	b.WriteString("\n")

	if m.showHelp {
		b.WriteString(ui.Markdown(ui.HelpText, m.styles.Palette, m.env.width))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.Footer.Render(m.help.View(m.keys)))
	return b.String()
}
