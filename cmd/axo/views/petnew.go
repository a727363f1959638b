package views

import (
	"strings"

	"axolotl/internal/api"
	"axolotl/internal/router"
	"axolotl/internal/types"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// MsgCreateFailed is shown when the backend gives no reason.
const MsgCreateFailed = "Could not create your axolotl. Please try again."

type petNewKeys struct {
	Left   key.Binding
	Right  key.Binding
	Switch key.Binding
	Create key.Binding
}

var keysPetNew = petNewKeys{
	Left:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/→", "choose color")),
	Right:  key.NewBinding(key.WithKeys("right", "l")),
	Switch: key.NewBinding(key.WithKeys("tab", "shift+tab", "up", "down"), key.WithHelp("tab", "name / color")),
	Create: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "create axolotl")),
}

type petCreatedMsg struct {
	pet *types.Pet
	err string
}

type petNewPage struct {
	env      *env
	name     textinput.Model
	color    int // index into types.Colors, -1 = none
	onColors bool
	loading  bool
	err      string
	spinner  spinner.Model
}

func newPetNewPage(e *env) *petNewPage {
	name := textinput.New()
	name.Placeholder = "Enter a cute name..."
	name.Prompt = "  "
	name.CharLimit = 40
	name.Focus()
	return &petNewPage{env: e, name: name, color: -1, spinner: newSpinner(e.styles)}
}

func (p *petNewPage) Init() tea.Cmd { return textinput.Blink }

func (p *petNewPage) ready() bool {
	return strings.TrimSpace(p.name.Value()) != "" && p.color >= 0 && !p.loading
}

func (p *petNewPage) Update(msg tea.Msg) (page, tea.Cmd) {
	switch msg := msg.(type) {
	case petCreatedMsg:
		p.loading = false
		if msg.err != "" {
			p.err = msg.err
			return p, nil
		}
		return p, navigate(router.PetPath(msg.pet.ID))

	case spinner.TickMsg:
		if !p.loading {
			return p, nil
		}
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keyMainMenu):
			return p, navigate(router.PathHome)
		case key.Matches(msg, keysPetNew.Create):
			return p, p.create()
		case key.Matches(msg, keysPetNew.Switch):
			p.onColors = !p.onColors
			if p.onColors {
				p.name.Blur()
				if p.color < 0 {
					p.color = 0
				}
				return p, nil
			}
			return p, p.name.Focus()
		}
		if p.onColors {
			switch {
			case key.Matches(msg, keysPetNew.Left):
				p.color = (p.color - 1 + len(types.Colors)) % len(types.Colors)
			case key.Matches(msg, keysPetNew.Right):
				p.color = (p.color + 1) % len(types.Colors)
			}
			return p, nil
		}
	}

	var cmd tea.Cmd
	p.name, cmd = p.name.Update(msg)
	return p, cmd
}

func (p *petNewPage) create() tea.Cmd {
	if !p.ready() {
		return nil
	}
	p.loading = true
	p.err = ""
	req := types.NewPet{Name: strings.TrimSpace(p.name.Value()), Color: types.Colors[p.color]}
	e := p.env
	create := func() tea.Msg {
		pet, err := e.app.Client.CreatePet(e.ctx, req)
		if err != nil {
			return petCreatedMsg{err: api.Message(err, MsgCreateFailed)}
		}
		return petCreatedMsg{pet: pet}
	}
	return tea.Batch(p.spinner.Tick, create)
}

func (p *petNewPage) View() string {
	s := p.env.styles
	var b strings.Builder
	b.WriteString(s.Title.Render("Create your axolotl"))
	b.WriteString("\n")
	b.WriteString(s.Subtitle.Render("Give your new aquatic friend a name and choose their color"))
	b.WriteString("\n\n")

	nameLabel, colorLabel := s.FocusedLabel, s.Label
	if p.onColors {
		nameLabel, colorLabel = s.Label, s.FocusedLabel
	}
	b.WriteString(nameLabel.Render("Axolotl Name"))
	b.WriteString("\n")
	b.WriteString(p.name.View())
	b.WriteString("\n\n")

	b.WriteString(colorLabel.Render("Color"))
	b.WriteString("\n  ")
	if p.color < 0 {
		b.WriteString(s.Muted.Render("Choose a color..."))
	} else {
		opts := make([]string, len(types.Colors))
		for i, c := range types.Colors {
			label := strings.ToUpper(string(c[:1])) + string(c[1:])
			if i == p.color {
				opts[i] = s.Selected.Render("[" + label + "]")
			} else {
				opts[i] = s.Muted.Render(" " + label + " ")
			}
		}
		b.WriteString(strings.Join(opts, " "))
	}
	b.WriteString("\n\n")

	if p.color >= 0 && !p.loading {
		b.WriteString(s.Success.Render("Nice to meet you!"))
		b.WriteString("\n")
	}
	b.WriteString(status(s, p.spinner, p.loading, "Creating your friend...", p.err))
	b.WriteString("\n")
	b.WriteString(hintLine(s, keysPetNew.Create, keysPetNew.Switch, keysPetNew.Left, keyMainMenu))
	return b.String()
}
