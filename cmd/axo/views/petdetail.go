package views

import (
	"fmt"
	"strings"

	"axolotl/cmd/axo/ui"
	"axolotl/internal/petdetail"
	"axolotl/internal/poll"
	"axolotl/internal/router"
	"axolotl/internal/types"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type petDetailKeys struct {
	Feed    key.Binding
	Play    key.Binding
	Train   key.Binding
	Rest    key.Binding
	Refresh key.Binding
	Back    key.Binding
}

var keysPetDetail = petDetailKeys{
	Feed:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "feed")),
	Play:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "play")),
	Train:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "train")),
	Rest:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rest")),
	Refresh: key.NewBinding(key.WithKeys("R", "ctrl+r"), key.WithHelp("R", "refresh")),
	Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "sanctuary")),
}

// petViewMsg signals that the presenter state changed.
type petViewMsg struct {
	view petdetail.View
}

// actionDoneMsg reports a finished action; its outcome is in the presenter.
type actionDoneMsg struct{}

type petDetailPage struct {
	env       *env
	presenter *petdetail.Presenter
	unsub     func()
}

func newPetDetailPage(e *env, id int64) *petDetailPage {
	p := &petDetailPage{env: e, presenter: e.app.NewPetDetail(id)}
	p.unsub = p.presenter.OnUpdate(func(v petdetail.View) { e.post(petViewMsg{view: v}) })
	p.presenter.Start(e.ctx)
	return p
}

func (p *petDetailPage) Init() tea.Cmd { return nil }

// Stop ends polling when the page is left.
func (p *petDetailPage) Stop() {
	p.unsub()
	p.presenter.Stop()
}

// SetVisible follows terminal focus.
func (p *petDetailPage) SetVisible(visible bool) {
	p.presenter.SetVisible(visible)
}

func (p *petDetailPage) Update(msg tea.Msg) (page, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch {
	case key.Matches(km, keysPetDetail.Feed):
		return p, p.act(types.ActionFeed)
	case key.Matches(km, keysPetDetail.Play):
		return p, p.act(types.ActionPlay)
	case key.Matches(km, keysPetDetail.Train):
		return p, p.act(types.ActionTrain)
	case key.Matches(km, keysPetDetail.Rest):
		return p, p.act(types.ActionRest)
	case key.Matches(km, keysPetDetail.Refresh):
		e := p.env
		return p, func() tea.Msg {
			_ = p.presenter.Refresh(e.ctx)
			return nil
		}
	case key.Matches(km, keysPetDetail.Back):
		return p, navigate(router.PathSanctuary)
	}
	return p, nil
}

func (p *petDetailPage) act(a types.Action) tea.Cmd {
	if p.presenter.View().Busy {
		return nil
	}
	e := p.env
	return func() tea.Msg {
		_ = p.presenter.Act(e.ctx, a)
		return actionDoneMsg{}
	}
}

func (p *petDetailPage) View() string {
	s := p.env.styles
	v := p.presenter.View()

	var b strings.Builder
	if !v.HasPet {
		b.WriteString(s.Title.Render(fmt.Sprintf("Pet #%d", v.ID)))
		b.WriteString("\n")
		if v.Err != "" {
			b.WriteString(s.Error.Render(ui.Sanitize(v.Err)))
		} else {
			b.WriteString(s.Muted.Render("Loading..."))
		}
		b.WriteString("\n\n")
		b.WriteString(hintLine(s, keysPetDetail.Refresh, keysPetDetail.Back))
		return b.String()
	}

	pet := v.Pet
	b.WriteString(s.Title.Render(ui.Sanitize(pet.Name)))
	b.WriteString("\n")
	b.WriteString(s.Muted.Render(fmt.Sprintf("%s axolotl · %s · level %d · %d XP", pet.Color, strings.ToLower(pet.Stage), pet.Level, pet.XPInLevel)))
	b.WriteString("\n\n")

	stat := func(label string, value int) {
		b.WriteString(s.Label.Render(fmt.Sprintf("%-10s", label)))
		b.WriteString(s.Meter(value, 20))
		b.WriteString(s.Body.Render(fmt.Sprintf(" %3d", value)))
		b.WriteString("\n")
	}
	stat("Hunger", pet.Hunger)
	stat("Stamina", pet.Stamina)
	stat("Happiness", pet.Happiness)
	b.WriteString("\n")

	if v.Notice != "" {
		b.WriteString(s.Success.Render(ui.Sanitize(v.Notice)))
		b.WriteString("\n")
	}
	if v.Err != "" {
		b.WriteString(s.Error.Render(ui.Sanitize(v.Err)))
		b.WriteString("\n")
	}
	switch {
	case v.Busy:
		b.WriteString(s.Muted.Render("Working..."))
		b.WriteString("\n")
	case v.Phase == poll.PhasePaused:
		b.WriteString(s.Muted.Render("Updates paused while the terminal is in the background."))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(hintLine(s, keysPetDetail.Feed, keysPetDetail.Play, keysPetDetail.Train, keysPetDetail.Rest,
		keysPetDetail.Refresh, keysPetDetail.Back))
	return b.String()
}
