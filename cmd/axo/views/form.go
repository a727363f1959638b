package views

import (
	"strings"

	"axolotl/cmd/axo/ui"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type field struct {
	label       string
	placeholder string
	value       string
	secret      bool
	limit       int
}

type formKeys struct {
	Next   key.Binding
	Prev   key.Binding
	Submit key.Binding
}

var keysForm = formKeys{
	Next:   key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
	Prev:   key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous field")),
	Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
}

// form is a vertical list of text inputs with one focused at a time.
type form struct {
	labels []string
	inputs []textinput.Model
	focus  int
}

func newForm(fields ...field) form {
	f := form{
		labels: make([]string, len(fields)),
		inputs: make([]textinput.Model, len(fields)),
	}
	for i, fd := range fields {
		in := textinput.New()
		in.Placeholder = fd.placeholder
		in.SetValue(fd.value)
		in.Prompt = "  "
		if fd.limit > 0 {
			in.CharLimit = fd.limit
		}
		if fd.secret {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		f.labels[i] = fd.label
		f.inputs[i] = in
	}
	if len(f.inputs) > 0 {
		f.inputs[0].Focus()
	}
	return f
}

func (f *form) value(i int) string {
	return f.inputs[i].Value()
}

func (f *form) setFocus(i int) tea.Cmd {
	if len(f.inputs) == 0 {
		return nil
	}
	i = (i + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Blur()
	f.focus = i
	return f.inputs[i].Focus()
}

// update moves focus on tab/shift+tab and forwards everything else to the
// focused input. Enter is left to the page.
func (f *form) update(msg tea.Msg) tea.Cmd {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, keysForm.Next):
			return f.setFocus(f.focus + 1)
		case key.Matches(km, keysForm.Prev):
			return f.setFocus(f.focus - 1)
		case key.Matches(km, keysForm.Submit):
			return nil
		}
	}
	if len(f.inputs) == 0 {
		return nil
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *form) view(s *ui.Styles) string {
	var b strings.Builder
	for i, in := range f.inputs {
		label := s.Label
		if i == f.focus {
			label = s.FocusedLabel
		}
		b.WriteString(label.Render(f.labels[i]))
		b.WriteString("\n")
		b.WriteString(in.View())
		b.WriteString("\n\n")
	}
	return b.String()
}

func newSpinner(s *ui.Styles) spinner.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Spinner
	return sp
}

// status renders the error line and, while busy, the spinner with label.
func status(s *ui.Styles, sp spinner.Model, busy bool, label, errMsg string) string {
	var b strings.Builder
	if busy {
		b.WriteString(sp.View())
		b.WriteString(" ")
		b.WriteString(s.Muted.Render(label))
		b.WriteString("\n")
	}
	if errMsg != "" {
		b.WriteString(s.Error.Render(ui.Sanitize(errMsg)))
		b.WriteString("\n")
	}
	return b.String()
}
