package views

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/tgienger/stn/internal/api"
	"github.com/tgienger/stn/internal/cache"
	"github.com/tgienger/stn/internal/models"
	"github.com/tgienger/stn/internal/store"
)

// History is the local record of opened notes
type History interface {
	RecordVisit(noteID, title string) error
	RecentNotes(limit int) ([]models.RecentNote, error)
	ForgetNote(noteID string) error
}

// Deps are the services shared by every view
type Deps struct {
	Queries *cache.Queries
	Store   *store.Store
	History History // may be nil
	Logger  *zap.Logger
	// Quiet is the autosave pause after the last keystroke
	Quiet time.Duration
	// Timeout bounds every server call started from the UI
	Timeout time.Duration
}

func (d Deps) ctx() (context.Context, context.CancelFunc) {
	if d.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), d.Timeout)
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// LoggedIn is sent once the user is authenticated
type LoggedIn struct {
	User models.User
}

// LogoutRequested asks the app to end the session
type LogoutRequested struct{}

// SessionExpired is sent when the server rejects the session
type SessionExpired struct{}

// OpenTrash switches to the archived notes
type OpenTrash struct{}

// OpenWorkspace switches back to the notes, optionally opening one
type OpenWorkspace struct {
	NoteID string
}

// Toast is a transient notification for the status line
type Toast struct {
	Text  string
	Error bool
}

func toast(text string) tea.Cmd {
	return func() tea.Msg { return Toast{Text: text} }
}

// failure reports err as a toast, or as an expired session when the
// server no longer knows the user
func failure(err error, fallback string) tea.Cmd {
	if api.IsUnauthorized(err) {
		return func() tea.Msg { return SessionExpired{} }
	}
	text := api.Message(err, fallback)
	return func() tea.Msg { return Toast{Text: text, Error: true} }
}
