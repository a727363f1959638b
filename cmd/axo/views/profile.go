package views

import (
	"strings"

	"axolotl/cmd/axo/ui"
	"axolotl/internal/api"
	"axolotl/internal/router"
	"axolotl/internal/types"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

var (
	keyEdit     = key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit profile"))
	keyMainMenu = key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back to main menu"))
	keyCancel   = key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel"))
)

type profileLoadedMsg struct {
	user *types.User
	err  string
}

type profileSavedMsg struct {
	user *types.User
	err  string
}

type profilePage struct {
	env     *env
	user    *types.User
	err     string
	editing bool
	saving  bool
	form    form
	spinner spinner.Model
}

func newProfilePage(e *env) *profilePage {
	return &profilePage{env: e, spinner: newSpinner(e.styles)}
}

func (p *profilePage) Init() tea.Cmd {
	e := p.env
	return func() tea.Msg {
		u, err := e.app.Client.Me(e.ctx)
		if err != nil {
			return profileLoadedMsg{err: api.Message(err, "Could not load profile")}
		}
		return profileLoadedMsg{user: u}
	}
}

func (p *profilePage) Update(msg tea.Msg) (page, tea.Cmd) {
	switch msg := msg.(type) {
	case profileLoadedMsg:
		p.user, p.err = msg.user, msg.err
		return p, nil

	case profileSavedMsg:
		p.saving = false
		if msg.err != "" {
			p.err = msg.err
			return p, nil
		}
		p.err = ""
		p.editing = false
		if msg.user != nil {
			p.user = msg.user
		}
		return p, nil

	case spinner.TickMsg:
		if !p.saving {
			return p, nil
		}
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd

	case tea.KeyMsg:
		if !p.editing {
			switch {
			case key.Matches(msg, keyEdit) && p.user != nil:
				return p, p.startEdit()
			case key.Matches(msg, keyMainMenu):
				return p, navigate(router.PathHome)
			}
			return p, nil
		}
		switch {
		case key.Matches(msg, keyCancel):
			p.editing = false
			p.err = ""
			return p, nil
		case key.Matches(msg, keysForm.Submit):
			return p, p.save()
		}
		return p, p.form.update(msg)
	}

	if p.editing {
		return p, p.form.update(msg)
	}
	return p, nil
}

func (p *profilePage) startEdit() tea.Cmd {
	p.editing = true
	p.err = ""
	p.form = newForm(
		field{label: "Username", placeholder: "Username", value: p.user.Username},
		field{label: "Avatar URL", placeholder: "Avatar URL", value: p.user.AvatarURL},
		field{label: "Bio", placeholder: "Write your bio...", value: p.user.Bio, limit: 500},
	)
	return p.form.setFocus(0)
}

func (p *profilePage) save() tea.Cmd {
	if p.saving {
		return nil
	}
	p.saving = true
	upd := types.ProfileUpdate{
		Username:  strings.TrimSpace(p.form.value(0)),
		AvatarURL: strings.TrimSpace(p.form.value(1)),
		Bio:       p.form.value(2),
	}
	e := p.env
	save := func() tea.Msg {
		u, err := e.app.Client.UpdateMe(e.ctx, upd)
		if err != nil {
			return profileSavedMsg{err: api.Message(err, "Could not save profile")}
		}
		if u != nil {
			e.app.Session.SetUser(u)
		} else {
			_ = e.app.Session.RefreshUser(e.ctx)
			u = e.app.Session.User()
		}
		return profileSavedMsg{user: u}
	}
	return tea.Batch(p.spinner.Tick, save)
}

func (p *profilePage) View() string {
	s := p.env.styles
	var b strings.Builder
	b.WriteString(s.Title.Render("Profile"))
	b.WriteString("\n")

	if p.user == nil {
		if p.err != "" {
			b.WriteString(s.Error.Render(ui.Sanitize(p.err)))
		} else {
			b.WriteString(s.Muted.Render("Loading..."))
		}
		b.WriteString("\n\n")
		b.WriteString(hintLine(s, keyMainMenu))
		return b.String()
	}

	if p.editing {
		b.WriteString(p.form.view(s))
		b.WriteString(status(s, p.spinner, p.saving, "Saving...", p.err))
		b.WriteString("\n")
		b.WriteString(hintLine(s, keysForm.Submit, keysForm.Next, keyCancel))
		return b.String()
	}

	u := p.user
	card := []string{
		s.Bold.Render(ui.Sanitize(u.Username)),
		s.Muted.Render(ui.Sanitize(u.Email)),
	}
	if u.Bio != "" {
		card = append(card, "", s.Body.Render(ui.Sanitize(u.Bio)))
	}
	if u.AvatarURL != "" {
		card = append(card, "", s.Label.Render("Avatar ")+s.Info.Render(ui.Sanitize(u.AvatarURL)))
	}
	if len(u.Roles) > 0 {
		card = append(card, "", s.Label.Render("Roles ")+s.Muted.Render(ui.Sanitize(strings.Join(u.Roles, ", "))))
	}
	b.WriteString(s.Card.Render(strings.Join(card, "\n")))
	b.WriteString("\n")
	if p.err != "" {
		b.WriteString(s.Error.Render(ui.Sanitize(p.err)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(hintLine(s, keyEdit, keyMainMenu))
	return b.String()
}
