package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stucon/stucon/internal/catalog"
	"github.com/stucon/stucon/internal/forms"
)

// authForm is the login or signup form: a column of text inputs.
type authForm struct {
	signup bool
	inputs []textinput.Model
	labels []string
	focus  int
	busy   bool
	err    string
	notice string
}

func newInput(placeholder string, secret bool) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 128
	ti.Width = 40
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	return ti
}

func newLoginForm() authForm {
	f := authForm{
		inputs: []textinput.Model{
			newInput("you@college.edu", false),
			newInput("password", true),
		},
		labels: []string{"Email", "Password"},
	}
	f.inputs[0].Focus()
	return f
}

func newSignupForm() authForm {
	f := authForm{
		signup: true,
		inputs: []textinput.Model{
			newInput("Full name", false),
			newInput("you@college.edu", false),
			newInput("at least 6 characters", true),
			newInput("repeat password", true),
		},
		labels: []string{"Name", "Email", "Password", "Confirm password"},
	}
	f.inputs[0].Focus()
	return f
}

func (f authForm) focusCmd() tea.Cmd {
	return textinput.Blink
}

func (f *authForm) move(dir int) {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + dir + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Focus()
}

func (f authForm) value(i int) string {
	return f.inputs[i].Value()
}

func (a App) updateAuth(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &a.auth
	switch {
	case key.Matches(msg, formKeys.Quit):
		return a, tea.Quit

	case f.busy:
		return a, nil

	case key.Matches(msg, formKeys.Switch):
		if f.signup {
			a.auth = newLoginForm()
			a.screen = screenLogin
		} else {
			a.auth = newSignupForm()
			a.screen = screenSignup
		}
		return a, a.auth.focusCmd()

	case key.Matches(msg, formKeys.Back):
		if f.signup {
			a.auth = newLoginForm()
			a.screen = screenLogin
			return a, a.auth.focusCmd()
		}
		return a, tea.Quit

	case key.Matches(msg, formKeys.Next):
		f.move(1)
		return a, nil

	case key.Matches(msg, formKeys.Prev):
		f.move(-1)
		return a, nil

	case key.Matches(msg, formKeys.Submit):
		return a.submitAuth()
	}

	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return a, cmd
}

func (a App) submitAuth() (tea.Model, tea.Cmd) {
	f := &a.auth
	f.err = ""
	f.notice = ""
	ctx, backend, sess := a.ctx, a.cfg.Backend, a.cfg.Session

	if f.signup {
		form := forms.SignupForm{Name: f.value(0), Email: f.value(1), Password: f.value(2), Confirm: f.value(3)}
		if err := form.Validate(); err != nil {
			f.err = err.Error()
			return a, nil
		}
		f.busy = true
		return a, func() tea.Msg {
			token, err := backend.Signup(ctx, form.Name, form.Email, form.Password)
			if err == nil {
				err = sess.SetSession(token, form.Email)
			}
			return AuthDone{Email: form.Email, Err: err}
		}
	}

	form := forms.LoginForm{Email: f.value(0), Password: f.value(1)}
	if err := form.Validate(); err != nil {
		f.err = err.Error()
		return a, nil
	}
	f.busy = true
	return a, func() tea.Msg {
		token, err := backend.Login(ctx, form.Email, form.Password)
		if err == nil {
			err = sess.SetSession(token, form.Email)
		}
		return AuthDone{Email: form.Email, Err: err}
	}
}

func (a App) onAuthDone(msg AuthDone) (tea.Model, tea.Cmd) {
	if a.screen != screenLogin && a.screen != screenSignup {
		return a, nil
	}
	a.auth.busy = false
	if msg.Err != nil {
		a.log.Warn("authentication failed", "email", msg.Email, "signup", a.auth.signup, "error", msg.Err)
		a.auth.err = authMessage(msg.Err, a.auth.signup)
		return a, nil
	}

	a.log.Info("logged in", "email", msg.Email)
	a.screen = screenBrowse
	a.focus = focusResults
	a.cursor = 0
	a.notice = ""
	if a.auth.signup {
		a.notice = "Account created successfully!"
	}
	a.user = msg.Email
	a.ctl = a.newController()
	return a, a.ctl.Init()
}

// authMessage turns a login or signup failure into what the form shows.
func authMessage(err error, signup bool) string {
	var se *catalog.SignupError
	var ne *catalog.NetworkError
	switch {
	case errors.Is(err, catalog.ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.As(err, &se) && se.Reason != "":
		return se.Reason
	case errors.As(err, &ne):
		return "Backend API not available. Check the server and try again."
	case signup:
		return "Account creation failed. Please try again."
	}
	return "Login failed. Please try again."
}

func (a App) viewAuth() string {
	f := a.auth
	title := "Log in to StuCon"
	switchHint := "ctrl+n: create an account"
	if f.signup {
		title = "Create your StuCon account"
		switchHint = "ctrl+n / esc: back to login"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n\n")
	for i, in := range f.inputs {
		b.WriteString(LabelStyle.Render(f.labels[i]))
		b.WriteString("\n")
		b.WriteString(in.View())
		b.WriteString("\n\n")
	}

	switch {
	case f.busy:
		b.WriteString(a.spinner.View() + " Signing in...")
	case f.err != "":
		b.WriteString(ErrorStyle.Render(f.err))
	case f.notice != "":
		b.WriteString(SuccessStyle.Render(f.notice))
	}
	b.WriteString("\n")
	b.WriteString(StatusBarText.Render("tab: next field  enter: submit  " + switchHint))

	return lipgloss.Place(a.width80(), max(a.height, 20), lipgloss.Center, lipgloss.Center, FormStyle.Render(b.String()))
}
