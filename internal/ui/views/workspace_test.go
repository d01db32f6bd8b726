package views

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/stn/internal/api"
	"github.com/tgienger/stn/internal/api/apitest"
	"github.com/tgienger/stn/internal/autosave"
	"github.com/tgienger/stn/internal/cache"
	"github.com/tgienger/stn/internal/db"
	"github.com/tgienger/stn/internal/models"
	"github.com/tgienger/stn/internal/store"
	"github.com/tgienger/stn/internal/ui/editor"
)

// harness drives a view the way the bubbletea loop would, running commands
// synchronously and feeding their messages back
type harness struct {
	t    *testing.T
	srv  *apitest.Server
	db   *db.DB
	deps Deps
	user models.User
	v    *WorkspaceView
	msgs []tea.Msg
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)
	user := srv.SeedUser("ana@example.com", "ana", "secret1")

	client, err := api.New(api.Options{BaseURL: srv.URL()})
	require.NoError(t, err)
	_, err = client.Login(context.Background(), models.Credentials{Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)

	database, err := db.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	deps := Deps{
		Queries: cache.NewQueries(cache.New(nil), client, nil),
		Store:   store.New(database, editor.PlainText, nil),
		History: database,
		Quiet:   time.Millisecond,
		Timeout: 5 * time.Second,
	}
	return &harness{t: t, srv: srv, db: database, deps: deps, user: user}
}

func (h *harness) seed(title string, pos float64, parent *models.Note, mod ...func(*models.Note)) models.Note {
	n := models.Note{Title: title, Position: pos, AuthorID: h.user.ID}
	if parent != nil {
		n.ParentID = models.StringPtr(parent.ID)
	}
	for _, m := range mod {
		m(&n)
	}
	return h.srv.SeedNote(n)
}

func (h *harness) start() {
	h.v = NewWorkspaceView(h.deps)
	h.send(tea.WindowSizeMsg{Width: 120, Height: 40})
	h.run(h.v.Init(), 0)
}

func (h *harness) send(msg tea.Msg) {
	_, cmd := h.v.Update(msg)
	h.run(cmd, 0)
}

func (h *harness) keys(keys ...string) {
	for _, k := range keys {
		h.send(keyMsg(k))
	}
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// exec runs cmd, giving up on slow ones such as cursor blinks
func exec(cmd tea.Cmd) tea.Msg {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(200 * time.Millisecond):
		return nil
	}
}

func (h *harness) run(cmd tea.Cmd, depth int) {
	if cmd == nil || depth > 20 {
		return
	}
	msg := exec(cmd)
	if msg == nil {
		return
	}
	// batches and sequences are slices of commands
	if rv := reflect.ValueOf(msg); rv.Kind() == reflect.Slice && rv.Type().Elem() == reflect.TypeOf(tea.Cmd(nil)) {
		for i := 0; i < rv.Len(); i++ {
			if c, ok := rv.Index(i).Interface().(tea.Cmd); ok {
				h.run(c, depth+1)
			}
		}
		return
	}
	if strings.HasPrefix(fmt.Sprintf("%T", msg), "cursor.") {
		return
	}
	h.msgs = append(h.msgs, msg)
	switch msg.(type) {
	case Toast, SessionExpired, OpenTrash, OpenWorkspace, LogoutRequested, LoggedIn, tea.QuitMsg:
		return
	}
	_, next := h.v.Update(msg)
	h.run(next, depth+1)
}

func (h *harness) toasts() []Toast {
	var out []Toast
	for _, m := range h.msgs {
		if t, ok := m.(Toast); ok {
			out = append(out, t)
		}
	}
	return out
}

type rowView struct {
	title   string
	depth   int
	section section
}

func (h *harness) rows() []rowView {
	out := make([]rowView, 0, len(h.v.rows))
	for _, r := range h.v.rows {
		out = append(out, rowView{title: r.note.Title, depth: r.depth, section: r.section})
	}
	return out
}

func (h *harness) cursorTo(title string, sec section) {
	h.t.Helper()
	for i, r := range h.v.rows {
		if r.note.Title == title && r.section == sec {
			h.v.cursor = i
			return
		}
	}
	h.t.Fatalf("no row %q", title)
}

func (h *harness) serverNote(id string) models.Note {
	h.t.Helper()
	n, ok := h.srv.Note(id)
	require.True(h.t, ok)
	return n
}

func TestSidebarRows(t *testing.T) {
	h := newHarness(t)
	groceries := h.seed("Groceries", 0, nil, func(n *models.Note) { n.IsFavorite = true })
	h.seed("Milk", 0, &groceries)
	h.seed("Work", 1, nil)
	h.start()

	assert.Equal(t, []rowView{
		{"Groceries", 0, sectionFavorites},
		{"Groceries", 0, sectionNotes},
		{"Milk", 1, sectionNotes},
		{"Work", 0, sectionNotes},
	}, h.rows())

	h.cursorTo("Groceries", sectionNotes)
	h.keys(" ")
	assert.Equal(t, []rowView{
		{"Groceries", 0, sectionFavorites},
		{"Groceries", 0, sectionNotes},
		{"Work", 0, sectionNotes},
	}, h.rows())

	h.keys(" ")
	assert.Len(t, h.rows(), 4)
}

func TestSidebarSearchIsFlat(t *testing.T) {
	h := newHarness(t)
	groceries := h.seed("Groceries", 0, nil)
	h.seed("Oat milk", 0, &groceries)
	h.seed("Milk chocolate", 1, nil)
	h.start()

	h.keys("/", "milk", "enter")
	assert.Equal(t, []rowView{
		{"Oat milk", 0, sectionResults},
		{"Milk chocolate", 0, sectionResults},
	}, h.rows())

	h.keys("esc")
	assert.Len(t, h.rows(), 3)
	assert.Equal(t, "", h.deps.Store.Search())
}

func TestDropOnDescendantIsRejected(t *testing.T) {
	h := newHarness(t)
	groceries := h.seed("Groceries", 0, nil)
	h.seed("Milk", 0, &groceries)
	h.start()
	h.srv.ResetCalls()

	h.cursorTo("Groceries", sectionNotes)
	h.keys("m", "j", "enter")

	require.Len(t, h.toasts(), 1)
	assert.True(t, h.toasts()[0].Error)
	assert.Contains(t, h.toasts()[0].Text, "own sub-notes")
	assert.Equal(t, 0, h.srv.CountCalls(http.MethodPut, "/notes/"))
	assert.False(t, h.v.gesture.Dragging())

	n, ok := h.v.engine.Note(groceries.ID)
	require.True(t, ok)
	assert.Nil(t, n.ParentID)
}

func TestDropOnNoteReparents(t *testing.T) {
	h := newHarness(t)
	a := h.seed("A", 0, nil)
	b := h.seed("B", 1, nil)
	h.start()

	h.cursorTo("B", sectionNotes)
	h.keys("m", "k", "enter")

	require.NotNil(t, h.serverNote(b.ID).ParentID)
	assert.Equal(t, a.ID, *h.serverNote(b.ID).ParentID)
	assert.Equal(t, []rowView{
		{"A", 0, sectionNotes},
		{"B", 1, sectionNotes},
	}, h.rows())
	assert.False(t, h.v.engine.Pending())
}

func TestDropOnRoot(t *testing.T) {
	h := newHarness(t)
	a := h.seed("A", 0, nil)
	b := h.seed("B", 0, &a)
	h.start()

	h.cursorTo("B", sectionNotes)
	h.keys("m", "0")
	assert.Nil(t, h.serverNote(b.ID).ParentID)
}

func TestKeyboardReorder(t *testing.T) {
	h := newHarness(t)
	h.seed("A", 0, nil)
	h.seed("B", 1, nil)
	c := h.seed("C", 2, nil)
	h.start()
	h.srv.ResetCalls()

	h.cursorTo("C", sectionNotes)
	h.keys("K")

	assert.Equal(t, []rowView{
		{"A", 0, sectionNotes},
		{"C", 0, sectionNotes},
		{"B", 0, sectionNotes},
	}, h.rows())
	assert.Equal(t, 1, h.srv.CountCalls(http.MethodPatch, "/notes/reorder"))
	assert.Equal(t, float64(1), h.serverNote(c.ID).Position)
}

func TestNewNoteOpensEmptyBoard(t *testing.T) {
	h := newHarness(t)
	h.start()

	h.keys("n")

	require.NotEmpty(t, h.v.openID)
	require.True(t, h.v.saver.Loaded())
	assert.Equal(t, "Untitled", h.v.saver.Form().Title)
	assert.Equal(t, PanelEditor, h.v.focus)
	assert.Equal(t, editTitle, h.v.editFocus)
	for i := range models.Statuses {
		assert.Empty(t, h.v.column(i))
	}
	view := h.v.View()
	assert.Contains(t, view, "To Do (0)")
	assert.Contains(t, view, "Done (0)")
}

func TestTitleAutosave(t *testing.T) {
	h := newHarness(t)
	a := h.seed("A", 0, nil)
	h.start()

	h.cursorTo("A", sectionNotes)
	h.keys("enter")
	require.Equal(t, a.ID, h.v.openID)
	assert.Equal(t, PanelEditor, h.v.focus)

	h.keys("i", " plan")
	assert.Equal(t, "A plan", h.serverNote(a.ID).Title)
	assert.Equal(t, autosave.Clean, h.v.saver.State())

	// the tree shows the saved title
	h.keys("esc")
	assert.Equal(t, "A plan", h.rows()[0].title)
}

func TestEditorInstantFields(t *testing.T) {
	h := newHarness(t)
	a := h.seed("A", 0, nil)
	h.start()
	h.cursorTo("A", sectionNotes)
	h.keys("enter")

	h.keys("s")
	assert.Equal(t, models.StatusInProgress, h.serverNote(a.ID).Status)

	h.keys("p")
	require.NotNil(t, h.serverNote(a.ID).Priority)
	assert.Equal(t, models.PriorityLow, *h.serverNote(a.ID).Priority)

	h.keys("f")
	assert.True(t, h.serverNote(a.ID).IsFavorite)
	assert.Equal(t, sectionFavorites, h.rows()[0].section)
}

func TestBoardDragChangesStatus(t *testing.T) {
	h := newHarness(t)
	project := h.seed("Project", 0, nil)
	milk := h.seed("Milk", 0, &project)
	h.seed("Eggs", 1, &project, func(n *models.Note) { n.Status = models.StatusDone })
	h.start()

	h.cursorTo("Project", sectionNotes)
	h.keys("enter")
	require.Len(t, h.v.column(0), 1)
	require.Len(t, h.v.column(2), 1)
	assert.Equal(t, "Milk", h.v.column(0)[0].Title)

	h.keys("tab")
	require.Equal(t, PanelBoard, h.v.focus)
	h.keys("m", "l", "l", "enter")

	assert.Equal(t, models.StatusDone, h.serverNote(milk.ID).Status)
	assert.Empty(t, h.v.column(0))
	assert.Len(t, h.v.column(2), 2)
}

func TestMissingNoteShowsNotFound(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.db.RecordVisit("gone", "Gone"))
	h.deps.Store.Select("gone")
	h.start()

	assert.True(t, h.v.notFound)
	assert.Contains(t, h.v.View(), "Note not found")

	recent, err := h.db.RecentNotes(5)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestArchiveClosesOpenNote(t *testing.T) {
	h := newHarness(t)
	a := h.seed("A", 0, nil)
	h.start()
	h.cursorTo("A", sectionNotes)
	h.keys("enter", "esc")
	require.Equal(t, PanelSidebar, h.v.focus)

	h.keys("a")
	assert.Empty(t, h.v.openID)
	assert.True(t, h.serverNote(a.ID).IsArchived)
	assert.Empty(t, h.rows())
	require.NotEmpty(t, h.toasts())
	assert.Contains(t, h.toasts()[0].Text, "moved to trash")
}

func TestLoadNotesUsesFiltersFromWhenItWasScheduled(t *testing.T) {
	h := newHarness(t)
	h.seed("Open", 0, nil)
	h.seed("Finished", 1, nil, func(n *models.Note) { n.Status = models.StatusDone })
	h.start()

	done := models.StatusDone
	h.deps.Store.SetFilters(store.FilterPatch{Status: &done})
	cmd := h.v.loadNotes()
	h.deps.Store.ClearFilters()

	msg, ok := cmd().(notesLoadedMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)
	require.Len(t, msg.filtered, 1)
	assert.Equal(t, "Finished", msg.filtered[0].Title)
}

func TestLoadNotesWhileFiltersChange(t *testing.T) {
	h := newHarness(t)
	h.seed("Open", 0, nil)
	h.start()

	done := models.StatusDone
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		cmd := h.v.loadNotes()
		wg.Add(1)
		go func() {
			defer wg.Done()
			cmd()
		}()
		h.deps.Store.SetFilters(store.FilterPatch{Status: &done})
		h.deps.Store.ToggleTagFilter("t1")
		h.deps.Store.ClearFilters()
	}
	wg.Wait()
}
