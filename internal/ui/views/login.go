package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/tgienger/stn/internal/api"
	"github.com/tgienger/stn/internal/logging"
	"github.com/tgienger/stn/internal/models"
	"github.com/tgienger/stn/internal/ui/keys"
	"github.com/tgienger/stn/internal/ui/styles"
)

const (
	loginEmail = iota
	loginUsername
	loginPassword
	loginSubmit
)

// LoginView signs the user in or creates an account
type LoginView struct {
	deps   Deps
	styles *styles.Styles
	keys   keys.KeyMap

	width  int
	height int

	registering bool
	busy        bool
	errText     string

	email    textinput.Model
	username textinput.Model
	password textinput.Model
	focusIdx int
}

func NewLoginView(deps Deps) *LoginView {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.CharLimit = 200

	username := textinput.New()
	username.Placeholder = "Username"
	username.CharLimit = 100

	password := textinput.New()
	password.Placeholder = "Password"
	password.CharLimit = 200
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	v := &LoginView{
		deps:     deps,
		styles:   styles.NewStyles(),
		keys:     keys.DefaultKeyMap(),
		email:    email,
		username: username,
		password: password,
	}
	v.updateFocus()
	return v
}

func (v *LoginView) Init() tea.Cmd {
	return textinput.Blink
}

type authResultMsg struct {
	user *models.User
	err  error
}

// fields returns the focus order of the current mode
func (v *LoginView) fields() []int {
	if v.registering {
		return []int{loginUsername, loginEmail, loginPassword, loginSubmit}
	}
	return []int{loginEmail, loginPassword, loginSubmit}
}

func (v *LoginView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case authResultMsg:
		v.busy = false
		if msg.err != nil {
			v.errText = api.Message(msg.err, "Sign in failed")
			return v, nil
		}
		if msg.user == nil {
			v.errText = "Sign in failed"
			return v, nil
		}
		v.errText = ""
		v.password.Reset()
		user := *msg.user
		return v, func() tea.Msg { return LoggedIn{User: user} }

	case tea.KeyMsg:
		if v.busy {
			return v, nil
		}
		switch {
		case msg.String() == "ctrl+c":
			return v, tea.Quit

		case msg.String() == "ctrl+r":
			v.registering = !v.registering
			v.errText = ""
			v.focusIdx = v.fields()[0]
			v.updateFocus()
			return v, textinput.Blink

		case key.Matches(msg, v.keys.Back):
			if v.registering {
				v.registering = false
				v.focusIdx = loginEmail
				v.updateFocus()
			}
			return v, nil

		case key.Matches(msg, v.keys.Tab), msg.String() == "down":
			v.cycleFocus(1)
			return v, nil

		case key.Matches(msg, v.keys.ShiftTab), msg.String() == "up":
			v.cycleFocus(-1)
			return v, nil

		case key.Matches(msg, v.keys.Enter):
			if v.focusIdx == loginSubmit || v.focusIdx == loginPassword {
				return v, v.submit()
			}
			v.cycleFocus(1)
			return v, nil
		}
	}

	var cmd tea.Cmd
	switch v.focusIdx {
	case loginEmail:
		v.email, cmd = v.email.Update(msg)
	case loginUsername:
		v.username, cmd = v.username.Update(msg)
	case loginPassword:
		v.password, cmd = v.password.Update(msg)
	}
	return v, cmd
}

func (v *LoginView) cycleFocus(dir int) {
	order := v.fields()
	pos := 0
	for i, f := range order {
		if f == v.focusIdx {
			pos = i
			break
		}
	}
	v.focusIdx = order[(pos+dir+len(order))%len(order)]
	v.updateFocus()
}

func (v *LoginView) updateFocus() {
	v.email.Blur()
	v.username.Blur()
	v.password.Blur()
	switch v.focusIdx {
	case loginEmail:
		v.email.Focus()
	case loginUsername:
		v.username.Focus()
	case loginPassword:
		v.password.Focus()
	}
}

// submit validates locally; an invalid form never reaches the server
func (v *LoginView) submit() tea.Cmd {
	creds := models.Credentials{
		Email:    strings.TrimSpace(v.email.Value()),
		Password: v.password.Value(),
	}
	var reg models.Registration
	var err error
	if v.registering {
		reg = models.Registration{
			Username: strings.TrimSpace(v.username.Value()),
			Email:    creds.Email,
			Password: creds.Password,
		}
		err = models.Validate(reg)
	} else {
		err = models.Validate(creds)
	}
	if err != nil {
		v.errText = validationHint(err)
		return nil
	}

	v.busy = true
	v.errText = ""
	deps := v.deps
	registering := v.registering
	return func() tea.Msg {
		ctx, cancel := deps.ctx()
		defer cancel()
		if registering {
			if _, err := deps.Queries.Register(ctx, reg); err != nil {
				return authResultMsg{err: err}
			}
		}
		user, err := deps.Queries.Login(ctx, creds)
		if err != nil {
			deps.logger().Info("login failed", zap.Int(logging.FieldStatus, api.StatusOf(err)))
		}
		return authResultMsg{user: user, err: err}
	}
}

func validationHint(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "Email"):
		return "A valid email is required"
	case strings.Contains(msg, "Username"):
		return "Username needs at least 3 characters"
	case strings.Contains(msg, "Password"):
		return "Password needs at least 6 characters"
	}
	return msg
}

func (v *LoginView) View() string {
	s := v.styles
	inputWidth := clamp(v.width-10, 20, 44)

	field := func(idx int, label string, in textinput.Model) []string {
		st := s.Input
		if v.focusIdx == idx {
			st = s.InputFocused
		}
		return []string{label, st.Width(inputWidth).Render(in.View()), ""}
	}

	title := "Sign in"
	button := " Sign in "
	toggle := "Ctrl+R: create an account"
	if v.registering {
		title = "Create account"
		button = " Register "
		toggle = "Ctrl+R: back to sign in"
	}

	rows := []string{s.Title.Render(title), ""}
	if v.registering {
		rows = append(rows, field(loginUsername, "Username:", v.username)...)
	}
	rows = append(rows, field(loginEmail, "Email:", v.email)...)
	rows = append(rows, field(loginPassword, "Password:", v.password)...)

	btnStyle := s.Button
	if v.focusIdx == loginSubmit {
		btnStyle = s.ButtonFocused
	}
	if v.busy {
		button = " Working... "
	}
	rows = append(rows, btnStyle.Render(button), "")

	if v.errText != "" {
		rows = append(rows, lipgloss.NewStyle().Foreground(styles.Current.Error).Width(inputWidth).Render(v.errText), "")
	}
	rows = append(rows, s.TitleMuted.Render(fmt.Sprintf("Tab: next • ↵: submit • %s • Ctrl+C: quit", toggle)))

	return styles.Dialog(lipgloss.JoinVertical(lipgloss.Left, rows...), v.width, v.height)
}
