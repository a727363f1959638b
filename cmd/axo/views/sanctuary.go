package views

import (
	"fmt"
	"strings"

	"axolotl/cmd/axo/ui"
	"axolotl/internal/api"
	"axolotl/internal/router"
	"axolotl/internal/types"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type sanctuaryKeys struct {
	Up      key.Binding
	Down    key.Binding
	Open    key.Binding
	Delete  key.Binding
	Reload  key.Binding
	New     key.Binding
	Confirm key.Binding
	Deny    key.Binding
}

var keysSanctuary = sanctuaryKeys{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/↓", "move")),
	Down:    key.NewBinding(key.WithKeys("down", "j")),
	Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Delete:  key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
	Reload:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	New:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new pet")),
	Confirm: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes, delete")),
	Deny:    key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "keep it")),
}

type petsLoadedMsg struct {
	pets []types.Pet
	err  string
}

type petDeletedMsg struct {
	id  int64
	err string
}

type sanctuaryPage struct {
	env        *env
	pets       []types.Pet
	loaded     bool
	cursor     int
	confirming bool
	err        string
}

func newSanctuaryPage(e *env) *sanctuaryPage {
	return &sanctuaryPage{env: e}
}

func (p *sanctuaryPage) Init() tea.Cmd { return p.load() }

func (p *sanctuaryPage) load() tea.Cmd {
	e := p.env
	return func() tea.Msg {
		pets, err := e.app.Client.ListPets(e.ctx)
		if err != nil {
			return petsLoadedMsg{err: api.Message(err, "Could not load pets")}
		}
		return petsLoadedMsg{pets: pets}
	}
}

func (p *sanctuaryPage) Update(msg tea.Msg) (page, tea.Cmd) {
	switch msg := msg.(type) {
	case petsLoadedMsg:
		p.loaded = true
		p.err = msg.err
		if msg.err == "" {
			p.pets = msg.pets
		}
		if p.cursor >= len(p.pets) {
			p.cursor = max(len(p.pets)-1, 0)
		}
		return p, nil

	case petDeletedMsg:
		if msg.err != "" {
			p.err = msg.err
			return p, nil
		}
		return p, p.load()

	case tea.KeyMsg:
		if p.confirming {
			switch {
			case key.Matches(msg, keysSanctuary.Confirm):
				p.confirming = false
				return p, p.remove()
			case key.Matches(msg, keysSanctuary.Deny):
				p.confirming = false
			}
			return p, nil
		}
		switch {
		case key.Matches(msg, keysSanctuary.Up):
			if p.cursor > 0 {
				p.cursor--
			}
		case key.Matches(msg, keysSanctuary.Down):
			if p.cursor < len(p.pets)-1 {
				p.cursor++
			}
		case key.Matches(msg, keysSanctuary.Open):
			if pet, ok := p.selected(); ok {
				return p, navigate(router.PetPath(pet.ID))
			}
		case key.Matches(msg, keysSanctuary.Delete):
			if _, ok := p.selected(); ok {
				p.confirming = true
			}
		case key.Matches(msg, keysSanctuary.Reload):
			p.err = ""
			return p, p.load()
		case key.Matches(msg, keysSanctuary.New):
			return p, navigate(router.PathPetNew)
		case key.Matches(msg, keyMainMenu):
			return p, navigate(router.PathHome)
		}
	}
	return p, nil
}

func (p *sanctuaryPage) selected() (types.Pet, bool) {
	if p.cursor < 0 || p.cursor >= len(p.pets) {
		return types.Pet{}, false
	}
	return p.pets[p.cursor], true
}

func (p *sanctuaryPage) remove() tea.Cmd {
	pet, ok := p.selected()
	if !ok {
		return nil
	}
	e := p.env
	return func() tea.Msg {
		if err := e.app.Client.DeletePet(e.ctx, pet.ID); err != nil {
			return petDeletedMsg{id: pet.ID, err: api.Message(err, "Could not delete pet")}
		}
		return petDeletedMsg{id: pet.ID}
	}
}

// PetLine renders one list entry: name, color, then level and stage.
func PetLine(p types.Pet) string {
	return fmt.Sprintf("%s — %s — lvl %d (%s)", ui.Sanitize(p.Name), p.Color, p.Level, p.Stage)
}

func (p *sanctuaryPage) View() string {
	s := p.env.styles
	var b strings.Builder
	b.WriteString(s.Title.Render("My sanctuary"))
	b.WriteString("\n")

	switch {
	case !p.loaded:
		b.WriteString(s.Muted.Render("Loading..."))
		b.WriteString("\n")
	case len(p.pets) == 0:
		b.WriteString(s.Muted.Render("No axolotls yet."))
		b.WriteString("\n")
	default:
		for i, pet := range p.pets {
			if i == p.cursor {
				b.WriteString(s.Selected.Render("› " + PetLine(pet)))
			} else {
				b.WriteString(s.Body.Render("  " + PetLine(pet)))
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	if p.err != "" {
		b.WriteString(s.Error.Render(ui.Sanitize(p.err)))
		b.WriteString("\n\n")
	}

	if p.confirming {
		pet, _ := p.selected()
		b.WriteString(s.Warning.Render(fmt.Sprintf("Delete %s? ", ui.Sanitize(pet.Name))))
		b.WriteString(hintLine(s, keysSanctuary.Confirm, keysSanctuary.Deny))
		return b.String()
	}
	b.WriteString(hintLine(s, keysSanctuary.Up, keysSanctuary.Open, keysSanctuary.Delete,
		keysSanctuary.Reload, keysSanctuary.New, keyMainMenu))
	return b.String()
}
