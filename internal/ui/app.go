package ui

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/tgienger/stn/internal/api"
	"github.com/tgienger/stn/internal/logging"
	"github.com/tgienger/stn/internal/models"
	"github.com/tgienger/stn/internal/ui/styles"
	"github.com/tgienger/stn/internal/ui/views"
)

// Screen is the view currently shown
type Screen int

const (
	ScreenStarting Screen = iota
	ScreenLogin
	ScreenWorkspace
	ScreenTrash
	ScreenRecovery
)

func (s Screen) String() string {
	switch s {
	case ScreenLogin:
		return "login"
	case ScreenWorkspace:
		return "workspace"
	case ScreenTrash:
		return "trash"
	case ScreenRecovery:
		return "recovery"
	}
	return "starting"
}

const toastDuration = 4 * time.Second

type sessionCheckedMsg struct {
	user *models.User
	err  error
}

type toastExpiredMsg struct {
	id int
}

type App struct {
	deps   views.Deps
	logger *zap.Logger
	styles *styles.Styles

	screen  Screen
	current tea.Model
	user    *models.User

	width  int
	height int

	toast      views.Toast
	toastID    int
	toastShown bool

	crash string
}

// NewApp creates the application. It starts by asking the server whether
// the stored session is still valid.
func NewApp(deps views.Deps) *App {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		deps:   deps,
		logger: logger.Named("ui"),
		styles: styles.NewStyles(),
	}
}

func (a *App) Init() tea.Cmd {
	return a.checkSession
}

func (a *App) checkSession() tea.Msg {
	ctx, cancel := a.context()
	defer cancel()
	user, err := a.deps.Queries.Me(ctx)
	return sessionCheckedMsg{user: user, err: err}
}

func (a *App) context() (context.Context, context.CancelFunc) {
	if a.deps.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), a.deps.Timeout)
}

// logout ends the server session; a failure only matters to the log
func (a *App) logout() tea.Msg {
	ctx, cancel := a.context()
	defer cancel()
	if err := a.deps.Queries.Logout(ctx); err != nil {
		a.logger.Warn("logout", zap.Error(err))
	}
	return nil
}

// switchTo replaces the current view and sizes it
func (a *App) switchTo(s Screen, m tea.Model, init tea.Cmd) tea.Cmd {
	a.screen = s
	a.current = m
	a.logger.Debug("switch view", zap.String(logging.FieldView, s.String()))
	size := a.viewSize()
	return tea.Batch(init, func() tea.Msg { return size })
}

// viewSize leaves the last line for toasts
func (a *App) viewSize() tea.WindowSizeMsg {
	return tea.WindowSizeMsg{Width: a.width, Height: max(a.height-1, 0)}
}

func (a *App) showLogin() tea.Cmd {
	v := views.NewLoginView(a.deps)
	return a.switchTo(ScreenLogin, v, v.Init())
}

func (a *App) showWorkspace(noteID string) tea.Cmd {
	if noteID != "" {
		a.deps.Store.Select(noteID)
	}
	v := views.NewWorkspaceView(a.deps)
	return a.switchTo(ScreenWorkspace, v, v.Init())
}

func (a *App) showTrash() tea.Cmd {
	v := views.NewTrashView(a.deps)
	return a.switchTo(ScreenTrash, v, v.Init())
}

func (a *App) notify(t views.Toast) tea.Cmd {
	a.toastID++
	a.toast = t
	a.toastShown = true
	id := a.toastID
	if t.Error {
		a.logger.Info("error shown", zap.String("message", t.Text))
	}
	return tea.Tick(toastDuration, func(time.Time) tea.Msg { return toastExpiredMsg{id: id} })
}

func (a *App) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	// A panic in a view must not leave the terminal in raw mode
	defer func() {
		if r := recover(); r != nil {
			a.recovered(r)
			model, cmd = a, nil
		}
	}()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.current == nil {
			return a, nil
		}
		_, cmd = a.current.Update(a.viewSize())
		return a, cmd

	case sessionCheckedMsg:
		if msg.err != nil && !api.IsUnauthorized(msg.err) {
			a.logger.Warn("session check failed", zap.Error(msg.err))
		}
		if msg.err != nil || msg.user == nil {
			return a, a.showLogin()
		}
		a.user = msg.user
		if a.deps.Store.LastView() == "trash" {
			return a, a.showTrash()
		}
		return a, a.showWorkspace("")

	case views.LoggedIn:
		user := msg.User
		a.user = &user
		a.logger.Info("signed in", zap.String("user", user.Username))
		return a, tea.Batch(a.showWorkspace(""), a.notify(views.Toast{Text: "Welcome, " + user.Username}))

	case views.LogoutRequested:
		a.user = nil
		a.deps.Store.Reset()
		return a, tea.Batch(a.logout, a.showLogin(), a.notify(views.Toast{Text: "Signed out"}))

	case views.SessionExpired:
		a.deps.Queries.ForgetSession()
		a.deps.Store.Reset()
		a.user = nil
		if a.screen == ScreenLogin {
			return a, nil
		}
		return a, tea.Batch(a.showLogin(), a.notify(views.Toast{Text: "Session expired, please sign in again", Error: true}))

	case views.OpenTrash:
		return a, a.showTrash()

	case views.OpenWorkspace:
		return a, a.showWorkspace(msg.NoteID)

	case views.Toast:
		return a, a.notify(msg)

	case toastExpiredMsg:
		if msg.id == a.toastID {
			a.toastShown = false
		}
		return a, nil

	case tea.KeyMsg:
		if a.screen == ScreenRecovery {
			return a.updateRecovery(msg)
		}
	}

	if a.current == nil {
		if key, ok := msg.(tea.KeyMsg); ok && key.String() == "ctrl+c" {
			return a, tea.Quit
		}
		return a, nil
	}
	_, cmd = a.current.Update(msg)
	return a, cmd
}

func (a *App) updateRecovery(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "r", "enter":
		a.crash = ""
		a.deps.Queries.Cache().Clear()
		if a.user == nil {
			return a, a.showLogin()
		}
		return a, a.showWorkspace("")
	case "q", "ctrl+c", "esc":
		return a, tea.Quit
	}
	return a, nil
}

func (a *App) recovered(r any) {
	a.logger.Error("view panicked",
		zap.String(logging.FieldView, a.screen.String()),
		zap.String("panic", fmt.Sprint(r)),
		zap.ByteString("stack", debug.Stack()),
	)
	a.crash = fmt.Sprint(r)
	a.screen = ScreenRecovery
	a.current = nil
}

func (a *App) View() (out string) {
	defer func() {
		if r := recover(); r != nil {
			a.recovered(r)
			out = a.renderRecovery()
		}
	}()

	var body string
	switch {
	case a.screen == ScreenRecovery:
		return a.renderRecovery()
	case a.current == nil:
		body = styles.Dialog(a.styles.TitleMuted.Render("Connecting..."), a.width, max(a.height-1, 0))
	default:
		body = a.current.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, a.renderToast())
}

func (a *App) renderToast() string {
	if !a.toastShown {
		return ""
	}
	style := a.styles.Toast
	if a.toast.Error {
		style = a.styles.ToastError
	}
	return style.Render(a.toast.Text)
}

func (a *App) renderRecovery() string {
	s := a.styles
	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render("Something went wrong"),
		"",
		s.TitleMuted.Render("The error was logged. Unsaved edits of the open note may be lost."),
		s.TitleMuted.Render(truncateLine(a.crash, 60)),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.ButtonPrimary.Render(" R - Reload "),
			"  ",
			s.Button.Render(" Q - Quit "),
		),
	)
	return styles.Dialog(content, a.width, a.height)
}

func truncateLine(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
