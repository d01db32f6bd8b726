// Package store holds the local UI state: the selected note, the list
// filters, the search text and the sidebar flag.
package store

import (
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tgienger/stn/internal/db"
	"github.com/tgienger/stn/internal/models"
)

// Persister saves the parts of the state that survive a restart
type Persister interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// TextFunc returns the searchable plain text of a note's content
type TextFunc func(content []byte) string

// Store is owned by the UI loop and is not safe for concurrent use
type Store struct {
	persist Persister
	logger  *zap.Logger
	text    TextFunc

	selectedID  string
	filters     models.NoteFilters
	search      string
	sidebarOpen bool
	lastView    string
}

// New returns a store restored from p. p may be nil.
func New(p Persister, text TextFunc, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{persist: p, text: text, logger: logger, sidebarOpen: true}
	if p == nil {
		return s
	}
	if id, err := p.GetSetting(db.SettingLastNoteID); err == nil {
		s.selectedID = id
	}
	if v, err := p.GetSetting(db.SettingSidebarOpen); err == nil && v != "" {
		if open, err := strconv.ParseBool(v); err == nil {
			s.sidebarOpen = open
		}
	}
	if v, err := p.GetSetting(db.SettingLastView); err == nil {
		s.lastView = v
	}
	return s
}

func (s *Store) save(key, value string) {
	if s.persist == nil {
		return
	}
	if err := s.persist.SetSetting(key, value); err != nil {
		s.logger.Warn("save setting", zap.String("setting", key), zap.Error(err))
	}
}

// SelectedID returns the open note, empty when none
func (s *Store) SelectedID() string { return s.selectedID }

// Select opens a note
func (s *Store) Select(id string) {
	if id == s.selectedID {
		return
	}
	s.selectedID = id
	s.save(db.SettingLastNoteID, id)
}

// Filters returns a copy of the active filters
func (s *Store) Filters() models.NoteFilters {
	f := s.filters
	f.Tags = slices.Clone(s.filters.Tags)
	return f
}

// FilterPatch changes some filters; nil fields are left alone
type FilterPatch struct {
	Status      *models.NoteStatus
	Priority    *models.NotePriority
	Tags        []string
	ClearStatus bool
	ClearPrio   bool
}

// SetFilters merges the patch into the active filters
func (s *Store) SetFilters(p FilterPatch) {
	if p.ClearStatus {
		s.filters.Status = nil
	} else if p.Status != nil {
		st := *p.Status
		s.filters.Status = &st
	}
	if p.ClearPrio {
		s.filters.Priority = nil
	} else if p.Priority != nil {
		pr := *p.Priority
		s.filters.Priority = &pr
	}
	if p.Tags != nil {
		s.filters.Tags = slices.Clone(p.Tags)
	}
}

// ToggleTagFilter adds or removes one tag from the filters
func (s *Store) ToggleTagFilter(tagID string) {
	if i := slices.Index(s.filters.Tags, tagID); i >= 0 {
		s.filters.Tags = slices.Delete(slices.Clone(s.filters.Tags), i, i+1)
		return
	}
	s.filters.Tags = append(slices.Clone(s.filters.Tags), tagID)
}

// ClearFilters resets every filter
func (s *Store) ClearFilters() {
	s.filters = models.NoteFilters{}
}

// Search returns the search text
func (s *Store) Search() string { return s.search }

// SetSearch replaces the search text
func (s *Store) SetSearch(q string) { s.search = q }

// SidebarOpen reports whether the sidebar is shown
func (s *Store) SidebarOpen() bool { return s.sidebarOpen }

// ToggleSidebar flips the sidebar
func (s *Store) ToggleSidebar() {
	s.sidebarOpen = !s.sidebarOpen
	s.save(db.SettingSidebarOpen, strconv.FormatBool(s.sidebarOpen))
}

// LastView returns the view shown when the app was closed
func (s *Store) LastView() string { return s.lastView }

// SetLastView records the current view
func (s *Store) SetLastView(v string) {
	if v == s.lastView {
		return
	}
	s.lastView = v
	s.save(db.SettingLastView, v)
}

// Reset forgets the selection and filters, used on logout
func (s *Store) Reset() {
	s.Select("")
	s.filters = models.NoteFilters{}
	s.search = ""
}

// Matches reports whether a note passes the search text. The match is
// case-insensitive over the title and the plain text of the content.
func (s *Store) Matches(n models.Note) bool {
	q := strings.TrimSpace(strings.ToLower(s.search))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(n.Title), q) {
		return true
	}
	if s.text != nil && len(n.Content) > 0 {
		return strings.Contains(strings.ToLower(s.text(n.Content)), q)
	}
	return false
}

// Filter applies the search text to notes
func (s *Store) Filter(notes []models.Note) []models.Note {
	if strings.TrimSpace(s.search) == "" {
		return notes
	}
	out := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if s.Matches(n) {
			out = append(out, n)
		}
	}
	return out
}
