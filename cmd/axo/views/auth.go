package views

import (
	"errors"
	"strings"
	"unicode/utf8"

	"axolotl/internal/api"
	"axolotl/internal/router"
	"axolotl/internal/types"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// User-facing messages of the sign-in and sign-up screens.
const (
	MsgFillAllFields    = "Please fill in all fields"
	MsgNoToken          = "Login OK but token was not returned. Check backend AuthResponse."
	MsgInvalidLogin     = "Invalid credentials"
	MsgPasswordTooShort = "Password must be at least 4 characters"
	MsgRegisterFailed   = "Could not register"

	BannerExpired    = "Your session has expired. Please sign in again."
	BannerRegistered = "Account created successfully. Please sign in."
)

// MinPasswordLen is enforced before the register request is sent.
const MinPasswordLen = 4

// PasswordTooShort reports whether pw has fewer than MinPasswordLen
// characters. Characters, not bytes.
func PasswordTooShort(pw string) bool {
	return utf8.RuneCountInString(pw) < MinPasswordLen
}

var (
	keyToRegister = key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "create an account"))
	keyToLogin    = key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "sign in instead"))
	keyBack       = key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back"))
)

// authResultMsg reports a finished login or register request. An empty
// target means "stay and show err".
type authResultMsg struct {
	target string
	err    string
}

// -----------------------------------------------------------------------------
// Login
// -----------------------------------------------------------------------------

type loginPage struct {
	env     *env
	form    form
	spinner spinner.Model
	reason  string
	err     string
	loading bool
}

func newLoginPage(e *env, reason string) *loginPage {
	return &loginPage{
		env: e,
		form: newForm(
			field{label: "Email", placeholder: "you@example.com"},
			field{label: "Password", placeholder: "••••", secret: true},
		),
		spinner: newSpinner(e.styles),
		reason:  reason,
	}
}

func (p *loginPage) setReason(reason string) { p.reason = reason }

func (p *loginPage) Init() tea.Cmd { return textinput.Blink }

func (p *loginPage) Update(msg tea.Msg) (page, tea.Cmd) {
	switch msg := msg.(type) {
	case authResultMsg:
		p.loading = false
		if msg.err != "" {
			p.err = msg.err
			return p, nil
		}
		return p, navigate(msg.target)

	case spinner.TickMsg:
		if !p.loading {
			return p, nil
		}
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keyToRegister):
			return p, navigate(router.PathRegister)
		case key.Matches(msg, keyBack):
			return p, navigate(router.PathLanding)
		case key.Matches(msg, keysForm.Submit):
			return p, p.submit()
		}
	}
	return p, p.form.update(msg)
}

func (p *loginPage) submit() tea.Cmd {
	if p.loading {
		return nil
	}
	p.err = ""
	email, password := p.form.value(0), p.form.value(1)
	if email == "" || password == "" {
		p.err = MsgFillAllFields
		return nil
	}
	p.loading = true

	e := p.env
	login := func() tea.Msg {
		token, err := e.app.Client.Login(e.ctx, types.Credentials{Email: email, Password: password})
		if err != nil {
			e.logger.Info("login failed", zap.Error(err))
			if errors.Is(err, api.ErrNoToken) {
				return authResultMsg{err: MsgNoToken}
			}
			return authResultMsg{err: api.Message(err, MsgInvalidLogin)}
		}
		if err := e.app.Session.SetToken(e.ctx, token); err != nil {
			return authResultMsg{err: api.Message(err, MsgInvalidLogin)}
		}
		return authResultMsg{target: router.PathHome}
	}
	return tea.Batch(p.spinner.Tick, login)
}

func (p *loginPage) View() string {
	s := p.env.styles
	var b strings.Builder
	b.WriteString(s.Title.Render("Welcome back"))
	b.WriteString("\n")

	switch p.reason {
	case router.ReasonExpired:
		b.WriteString(s.Warning.Render(BannerExpired))
		b.WriteString("\n\n")
	case router.ReasonRegistered:
		b.WriteString(s.Success.Render(BannerRegistered))
		b.WriteString("\n\n")
	}

	b.WriteString(p.form.view(s))
	b.WriteString(status(s, p.spinner, p.loading, "Signing in...", p.err))
	b.WriteString("\n")
	b.WriteString(hintLine(s, keysForm.Submit, keysForm.Next, keyToRegister, keyBack))
	return b.String()
}

// -----------------------------------------------------------------------------
// Register
// -----------------------------------------------------------------------------

type registerPage struct {
	env     *env
	form    form
	spinner spinner.Model
	err     string
	loading bool
}

func newRegisterPage(e *env) *registerPage {
	return &registerPage{
		env: e,
		form: newForm(
			field{label: "Username", placeholder: "axolover"},
			field{label: "Email", placeholder: "you@example.com"},
			field{label: "Password", placeholder: "at least 4 characters", secret: true},
		),
		spinner: newSpinner(e.styles),
	}
}

func (p *registerPage) Init() tea.Cmd { return textinput.Blink }

func (p *registerPage) Update(msg tea.Msg) (page, tea.Cmd) {
	switch msg := msg.(type) {
	case authResultMsg:
		p.loading = false
		if msg.err != "" {
			p.err = msg.err
			return p, nil
		}
		return p, navigate(msg.target)

	case spinner.TickMsg:
		if !p.loading {
			return p, nil
		}
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keyToLogin):
			return p, navigate(router.PathLogin)
		case key.Matches(msg, keyBack):
			return p, navigate(router.PathLanding)
		case key.Matches(msg, keysForm.Submit):
			return p, p.submit()
		}
	}
	return p, p.form.update(msg)
}

func (p *registerPage) submit() tea.Cmd {
	if p.loading {
		return nil
	}
	p.err = ""
	username, email, password := p.form.value(0), p.form.value(1), p.form.value(2)
	if email == "" || password == "" || username == "" {
		p.err = MsgFillAllFields
		return nil
	}
	if PasswordTooShort(password) {
		p.err = MsgPasswordTooShort
		return nil
	}
	p.loading = true

	e := p.env
	register := func() tea.Msg {
		reg := types.Registration{Email: email, Password: password, Username: username}
		token, err := e.app.Client.Register(e.ctx, reg)
		if err != nil {
			e.logger.Info("register failed", zap.Error(err))
			return authResultMsg{err: api.Message(err, MsgRegisterFailed)}
		}
		if token == "" {
			return authResultMsg{target: router.PathLoginRegistered}
		}
		if err := e.app.Session.SetToken(e.ctx, token); err != nil {
			return authResultMsg{err: api.Message(err, MsgRegisterFailed)}
		}
		return authResultMsg{target: router.PathHome}
	}
	return tea.Batch(p.spinner.Tick, register)
}

func (p *registerPage) View() string {
	s := p.env.styles
	var b strings.Builder
	b.WriteString(s.Title.Render("Adopt your first axolotl"))
	b.WriteString("\n")
	b.WriteString(p.form.view(s))
	b.WriteString(status(s, p.spinner, p.loading, "Creating your account...", p.err))
	b.WriteString("\n")
	b.WriteString(hintLine(s, keysForm.Submit, keysForm.Next, keyToLogin, keyBack))
	return b.String()
}
