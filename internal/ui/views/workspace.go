package views

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/tgienger/stn/internal/api"
	"github.com/tgienger/stn/internal/autosave"
	"github.com/tgienger/stn/internal/dnd"
	"github.com/tgienger/stn/internal/logging"
	"github.com/tgienger/stn/internal/models"
	"github.com/tgienger/stn/internal/tree"
	"github.com/tgienger/stn/internal/ui/editor"
	"github.com/tgienger/stn/internal/ui/keys"
	"github.com/tgienger/stn/internal/ui/styles"
)

// Panel is the part of the workspace that has focus
type Panel int

const (
	PanelSidebar Panel = iota
	PanelEditor
	PanelBoard
)

// WorkspaceView is the main screen: the note tree, the open note and the
// board of its children
type WorkspaceView struct {
	deps   Deps
	styles *styles.Styles
	keys   keys.KeyMap
	logger *zap.Logger

	engine  *tree.Engine
	gesture *dnd.Gesture
	saver   *autosave.Coordinator

	width  int
	height int

	loaded  bool
	tags    []models.Tag
	visible map[string]bool // server filter result, nil without filters
	recent  []models.RecentNote
	focus   Panel

	// Sidebar
	rows         []row
	cursor       int
	scrollY      int
	collapsed    map[string]bool
	search       textinput.Model
	searching    bool
	filterOpen   bool
	filterCursor int

	// Editor
	open        *models.Note
	openID      string
	notFound    bool
	loadingNote bool
	editFocus   editFocus
	title       textinput.Model
	content     textarea.Model
	contentText string // last text written to or read from the textarea
	due         textinput.Model
	tagPicker   bool
	tagCursor   int
	newTag      textinput.Model
	creatingTag bool

	// Board
	boardCol  int
	boardRow  int
	dropCol   int
	boardDrag bool

	showHelpPopup bool
}

func NewWorkspaceView(deps Deps) *WorkspaceView {
	logger := deps.logger()

	search := textinput.New()
	search.Placeholder = "Search notes..."
	search.CharLimit = 100

	title := textinput.New()
	title.Placeholder = "Untitled"
	title.CharLimit = 200

	content := textarea.New()
	content.Placeholder = "Write something..."
	content.CharLimit = 0
	content.ShowLineNumbers = false
	content.SetWidth(50)
	content.SetHeight(8)

	due := textinput.New()
	due.Placeholder = "YYYY-MM-DD (empty clears)"
	due.CharLimit = 10

	newTag := textinput.New()
	newTag.Placeholder = "Tag name"
	newTag.CharLimit = 50

	if deps.Quiet <= 0 {
		deps.Quiet = autosave.QuietInterval
	}

	return &WorkspaceView{
		deps:      deps,
		styles:    styles.NewStyles(),
		keys:      keys.DefaultKeyMap(),
		logger:    logger,
		engine:    tree.NewEngine(deps.Queries, logger),
		gesture:   dnd.New(logger),
		saver:     autosave.New(logger),
		collapsed: make(map[string]bool),
		search:    search,
		title:     title,
		content:   content,
		due:       due,
		newTag:    newTag,
	}
}

type notesLoadedMsg struct {
	all      []models.Note
	filtered []models.Note
	err      error
}

type tagsLoadedMsg struct {
	tags []models.Tag
	err  error
}

type noteLoadedMsg struct {
	id   string
	note *models.Note
	err  error
}

type recentLoadedMsg struct {
	recent []models.RecentNote
}

type autosaveTickMsg struct {
	tick autosave.Tick
}

type saveResultMsg struct {
	req  autosave.Request
	note *models.Note
	err  error
}

type mutationResultMsg struct {
	result tree.Result
}

type createdMsg struct {
	note *models.Note
	err  error
}

type archivedMsg struct {
	note models.Note
	err  error
}

type tagCreatedMsg struct {
	tag *models.Tag
	err error
}

// Init loads the notes and reopens the last note
func (v *WorkspaceView) Init() tea.Cmd {
	v.deps.Store.SetLastView("workspace")
	if !v.deps.Store.SidebarOpen() {
		v.focus = PanelEditor
	}
	cmds := []tea.Cmd{v.loadNotes(), v.loadTags, v.loadRecent}
	if id := v.deps.Store.SelectedID(); id != "" {
		cmds = append(cmds, v.openNote(id))
	}
	return tea.Batch(cmds...)
}

// loadNotes fetches the full list and, with filters active, the filtered
// one. The filters are read here, on the update loop.
func (v *WorkspaceView) loadNotes() tea.Cmd {
	deps := v.deps
	filters := deps.Store.Filters()
	return func() tea.Msg {
		ctx, cancel := deps.ctx()
		defer cancel()
		all, err := deps.Queries.Notes(ctx, models.NoteFilters{})
		if err != nil {
			return notesLoadedMsg{err: err}
		}
		msg := notesLoadedMsg{all: all}
		if !filters.IsZero() {
			msg.filtered, msg.err = deps.Queries.Notes(ctx, filters)
		}
		return msg
	}
}

func (v *WorkspaceView) loadTags() tea.Msg {
	ctx, cancel := v.deps.ctx()
	defer cancel()
	tags, err := v.deps.Queries.Tags(ctx)
	return tagsLoadedMsg{tags: tags, err: err}
}

func (v *WorkspaceView) loadRecent() tea.Msg {
	if v.deps.History == nil {
		return nil
	}
	recent, err := v.deps.History.RecentNotes(5)
	if err != nil {
		v.logger.Warn("load recent notes", zap.Error(err))
		return nil
	}
	return recentLoadedMsg{recent: recent}
}

func (v *WorkspaceView) loadNote(id string) tea.Cmd {
	deps := v.deps
	return func() tea.Msg {
		ctx, cancel := deps.ctx()
		defer cancel()
		n, err := deps.Queries.Note(ctx, id)
		return noteLoadedMsg{id: id, note: n, err: err}
	}
}

func (v *WorkspaceView) recordVisit(n models.Note) tea.Cmd {
	if v.deps.History == nil {
		return nil
	}
	return func() tea.Msg {
		if err := v.deps.History.RecordVisit(n.ID, n.Title); err != nil {
			v.logger.Warn("record visit", zap.String(logging.FieldNoteID, n.ID), zap.Error(err))
		}
		return v.loadRecent()
	}
}

// saveCmd sends one autosave request
func (v *WorkspaceView) saveCmd(req autosave.Request) tea.Cmd {
	deps := v.deps
	return func() tea.Msg {
		ctx, cancel := deps.ctx()
		defer cancel()
		n, err := deps.Queries.UpdateNote(ctx, req.NoteID, req.Data)
		return saveResultMsg{req: req, note: n, err: err}
	}
}

// flush saves pending edits of the open note, or returns nil
func (v *WorkspaceView) flush() tea.Cmd {
	if req, ok := v.saver.Flush(); ok {
		return v.saveCmd(req)
	}
	return nil
}

// debounce schedules the tick that may save after the quiet interval
func (v *WorkspaceView) debounce(t autosave.Tick) tea.Cmd {
	return tea.Tick(v.deps.Quiet, func(time.Time) tea.Msg {
		return autosaveTickMsg{tick: t}
	})
}

// openNote switches the editor to id, saving the previous note first
func (v *WorkspaceView) openNote(id string) tea.Cmd {
	if id == "" || (id == v.openID && !v.notFound) {
		return nil
	}
	save := v.flush()
	v.openID = id
	v.open = nil
	v.notFound = false
	v.loadingNote = true
	v.tagPicker = false
	v.boardCol, v.boardRow = 0, 0
	v.setEditFocus(editNone)
	v.deps.Store.Select(id)

	// Start editing from the list record while the full note loads
	if n, ok := v.engine.Note(id); ok {
		v.saver.Load(n)
		v.syncInputs(true)
	} else {
		v.saver.Unload()
	}
	return tea.Batch(save, v.loadNote(id))
}

// closeNote empties the editor
func (v *WorkspaceView) closeNote() tea.Cmd {
	save := v.flush()
	v.saver.Unload()
	v.open = nil
	v.openID = ""
	v.notFound = false
	v.loadingNote = false
	v.deps.Store.Select("")
	if v.focus != PanelSidebar && v.deps.Store.SidebarOpen() {
		v.focus = PanelSidebar
	}
	return save
}

// propose hands a gesture to the tree engine and sends accepted changes
func (v *WorkspaceView) propose(req dnd.Request) tea.Cmd {
	d := req.Decide(v.engine)
	switch d.Outcome {
	case tree.Rejected:
		return func() tea.Msg { return Toast{Text: rejectionText(d.Err), Error: true} }
	case tree.Ignored:
		return nil
	}
	v.rebuildRows()
	m := *d.Mutation
	engine := v.engine
	deps := v.deps
	return func() tea.Msg {
		ctx, cancel := deps.ctx()
		defer cancel()
		return mutationResultMsg{result: engine.Send(ctx, m)}
	}
}

func rejectionText(err error) string {
	switch {
	case errors.Is(err, tree.ErrCycle):
		return "A note cannot move inside its own sub-notes"
	case errors.Is(err, tree.ErrSelfParent):
		return "A note cannot be its own parent"
	case errors.Is(err, tree.ErrUnknownNote):
		return "That note is no longer available"
	}
	return "Cannot move the note"
}

func (v *WorkspaceView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.layout()
		return v, nil

	case notesLoadedMsg:
		if msg.err != nil {
			return v, failure(msg.err, "Could not load notes")
		}
		v.engine.Load(msg.all)
		v.visible = nil
		if msg.filtered != nil {
			v.visible = make(map[string]bool, len(msg.filtered))
			for _, n := range tree.Flatten(msg.filtered) {
				v.visible[n.ID] = true
			}
		}
		v.loaded = true
		v.rebuildRows()
		if v.openID != "" && !v.saver.Loaded() && !v.notFound {
			if n, ok := v.engine.Note(v.openID); ok {
				v.saver.Load(n)
				v.syncInputs(true)
			}
		}
		return v, nil

	case tagsLoadedMsg:
		if msg.err != nil {
			return v, failure(msg.err, "Could not load tags")
		}
		v.tags = msg.tags
		return v, nil

	case recentLoadedMsg:
		v.recent = msg.recent
		v.rebuildRows()
		return v, nil

	case noteLoadedMsg:
		return v, v.handleNoteLoaded(msg)

	case autosaveTickMsg:
		if req, ok := v.saver.OnTick(msg.tick); ok {
			return v, v.saveCmd(req)
		}
		return v, nil

	case saveResultMsg:
		return v, v.handleSaveResult(msg)

	case mutationResultMsg:
		return v, v.handleMutationResult(msg.result)

	case createdMsg:
		if msg.err != nil {
			return v, failure(msg.err, "Could not create the note")
		}
		v.engine.Upsert(*msg.note)
		if msg.note.ParentID != nil {
			delete(v.collapsed, *msg.note.ParentID)
		}
		v.rebuildRows()
		v.selectRow(msg.note.ID)
		cmd := v.openNote(msg.note.ID)
		v.focus = PanelEditor
		v.setEditFocus(editTitle)
		return v, tea.Batch(cmd, v.loadNotes(), textinput.Blink)

	case archivedMsg:
		if msg.err != nil {
			return v, failure(msg.err, "Could not archive the note")
		}
		v.engine.Remove(msg.note.ID)
		var cmd tea.Cmd
		if msg.note.ID == v.openID {
			cmd = v.closeNote()
		}
		v.rebuildRows()
		return v, tea.Batch(cmd, v.loadNotes(), toast(fmt.Sprintf("%q moved to trash", msg.note.Title)))

	case tagCreatedMsg:
		if msg.err != nil {
			return v, failure(msg.err, "Could not create the tag")
		}
		v.tags = append(v.tags, *msg.tag)
		return v, tea.Batch(v.toggleTag(msg.tag.ID), v.loadTags)

	case tea.KeyMsg:
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}
		return v.updateKeys(msg)
	}

	// Cursor blinks and other component messages
	return v, v.updateInputs(msg)
}

func (v *WorkspaceView) handleNoteLoaded(msg noteLoadedMsg) tea.Cmd {
	if msg.id != v.openID {
		return nil
	}
	v.loadingNote = false
	if msg.err != nil {
		if api.IsNotFound(msg.err) {
			v.notFound = true
			v.saver.Unload()
			if v.deps.History != nil {
				if err := v.deps.History.ForgetNote(msg.id); err != nil {
					v.logger.Warn("forget note", zap.String(logging.FieldNoteID, msg.id), zap.Error(err))
				}
			}
			return v.loadRecent
		}
		return failure(msg.err, "Could not open the note")
	}
	n := msg.note.Clone()
	v.open = &n
	v.saver.Load(n)
	v.syncInputs(false)
	for _, c := range n.Children {
		if _, ok := v.engine.Note(c.ID); !ok && !c.IsArchived {
			v.engine.Upsert(c)
		}
	}
	v.rebuildRows()
	return v.recordVisit(n)
}

func (v *WorkspaceView) handleSaveResult(msg saveResultMsg) tea.Cmd {
	outcome := v.saver.OnSaveResult(msg.req, msg.note, msg.err)
	v.logger.Debug("autosave result",
		zap.String(logging.FieldNoteID, msg.req.NoteID),
		zap.String(logging.FieldStatus, outcome.String()),
	)
	switch outcome {
	case autosave.Saved:
		if msg.note != nil {
			v.engine.Upsert(*msg.note)
			if v.open != nil && v.open.ID == msg.note.ID {
				n := msg.note.Clone()
				n.Children = v.open.Children
				v.open = &n
			}
			v.rebuildRows()
		}
		v.syncInputs(false)
	case autosave.Failed:
		return failure(msg.err, "Not saved")
	}
	return nil
}

func (v *WorkspaceView) handleMutationResult(r tree.Result) tea.Cmd {
	outcome := v.engine.Reconcile(r)
	v.rebuildRows()
	if outcome == tree.Failed {
		v.deps.Queries.Cache().Invalidate("notes")
		return tea.Batch(failure(r.Err, "Change not saved"), v.loadNotes())
	}
	if r.Note != nil && r.Note.ID == v.openID && v.saver.Loaded() {
		v.saver.Load(*r.Note)
		v.syncInputs(false)
	}
	return nil
}

// syncInputs copies the form into the inputs the user is not typing in
func (v *WorkspaceView) syncInputs(force bool) {
	if !v.saver.Loaded() {
		return
	}
	form := v.saver.Form()
	if force || v.editFocus != editTitle {
		if v.title.Value() != form.Title {
			v.title.SetValue(form.Title)
		}
	}
	if force || v.editFocus != editContent {
		text := editor.PlainText(form.Content)
		if text != v.contentText || force {
			v.content.SetValue(text)
			v.contentText = text
		}
	}
}

func (v *WorkspaceView) updateInputs(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	if v.searching {
		v.search, cmd = v.search.Update(msg)
		cmds = append(cmds, cmd)
	}
	switch v.editFocus {
	case editTitle:
		v.title, cmd = v.title.Update(msg)
		cmds = append(cmds, cmd)
	case editContent:
		v.content, cmd = v.content.Update(msg)
		cmds = append(cmds, cmd)
	case editDue:
		v.due, cmd = v.due.Update(msg)
		cmds = append(cmds, cmd)
	}
	if v.creatingTag {
		v.newTag, cmd = v.newTag.Update(msg)
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// typing reports whether a text input owns the keyboard
func (v *WorkspaceView) typing() bool {
	return v.searching || v.creatingTag || v.editFocus != editNone
}

func (v *WorkspaceView) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return v, tea.Sequence(v.flush(), tea.Quit)
	}

	if v.searching {
		return v, v.updateSearch(msg)
	}
	if v.filterOpen {
		return v, v.updateFilterDropdown(msg)
	}
	if v.tagPicker {
		return v, v.updateTagPicker(msg)
	}
	if v.editFocus != editNone {
		return v, v.updateEditing(msg)
	}

	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Sequence(v.flush(), tea.Quit)
	case key.Matches(msg, v.keys.Help):
		v.showHelpPopup = true
		return v, nil
	case key.Matches(msg, v.keys.Sidebar):
		v.deps.Store.ToggleSidebar()
		if !v.deps.Store.SidebarOpen() && v.focus == PanelSidebar {
			v.focus = PanelEditor
		}
		v.layout()
		return v, nil
	case key.Matches(msg, v.keys.Trash):
		v.gesture.Cancel()
		return v, tea.Sequence(v.flush(), func() tea.Msg { return OpenTrash{} })
	case key.Matches(msg, v.keys.Logout):
		return v, tea.Sequence(v.flush(), func() tea.Msg { return LogoutRequested{} })
	case key.Matches(msg, v.keys.Refresh):
		v.deps.Queries.Cache().Invalidate("notes")
		v.deps.Queries.Cache().Invalidate("tags")
		cmds := []tea.Cmd{v.loadNotes(), v.loadTags}
		if v.openID != "" {
			cmds = append(cmds, v.loadNote(v.openID))
		}
		return v, tea.Batch(cmds...)
	case key.Matches(msg, v.keys.Tab) && !v.gesture.Dragging():
		v.cycleFocus(1)
		return v, nil
	case key.Matches(msg, v.keys.ShiftTab) && !v.gesture.Dragging():
		v.cycleFocus(-1)
		return v, nil
	}

	switch v.focus {
	case PanelSidebar:
		return v, v.updateSidebar(msg)
	case PanelEditor:
		return v, v.updateEditor(msg)
	case PanelBoard:
		return v, v.updateBoard(msg)
	}
	return v, nil
}

func (v *WorkspaceView) cycleFocus(dir int) {
	panels := []Panel{PanelSidebar, PanelEditor, PanelBoard}
	for range panels {
		v.focus = Panel((int(v.focus) + dir + len(panels)) % len(panels))
		if v.panelAvailable(v.focus) {
			return
		}
	}
}

func (v *WorkspaceView) panelAvailable(p Panel) bool {
	switch p {
	case PanelSidebar:
		return v.deps.Store.SidebarOpen()
	case PanelBoard:
		return v.saver.Loaded() && !v.notFound
	}
	return true
}

// Dimensions

func (v *WorkspaceView) sidebarWidth() int {
	if !v.deps.Store.SidebarOpen() {
		return 0
	}
	return min(styles.SidebarWidth, styles.ContentWidth(v.width)/2)
}

func (v *WorkspaceView) mainWidth() int {
	return max(styles.ContentWidth(v.width)-v.sidebarWidth(), 24)
}

func (v *WorkspaceView) bodyHeight() int {
	// header and help line
	return max(v.height-3, 8)
}

func (v *WorkspaceView) boardHeight() int {
	return clamp(v.bodyHeight()/3, 5, 12)
}

func (v *WorkspaceView) layout() {
	inner := v.mainWidth() - 4
	v.title.Width = max(inner-4, 10)
	v.content.SetWidth(max(inner-2, 10))
	// title box, meta lines, board and borders
	v.content.SetHeight(max(v.bodyHeight()-v.boardHeight()-11, 3))
	v.search.Width = max(v.sidebarWidth()-6, 8)
}

// View renders the workspace
func (v *WorkspaceView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}
	if !v.loaded {
		return v.styles.TitleMuted.Render("Loading notes...")
	}

	main := v.renderMain()
	body := main
	if v.deps.Store.SidebarOpen() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, v.renderSidebar(), main)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		v.renderHeader(),
		body,
		v.renderHelp(),
	)
	return styles.CenterView(content, v.width, v.height)
}

func (v *WorkspaceView) renderHeader() string {
	s := v.styles
	left := s.Title.Render("stn")
	if v.gesture.Dragging() {
		if n, ok := v.engine.Note(v.gesture.DraggedID()); ok {
			left += "  " + s.DragSource.Render("moving "+truncate(n.Title, 30))
		}
	}
	right := ""
	if v.saver.Loaded() {
		right = v.renderSaveState()
	}
	gap := max(styles.ContentWidth(v.width)-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	return s.TitleBar.Render(left + lipgloss.NewStyle().Width(gap).Render("") + right)
}

func (v *WorkspaceView) renderSaveState() string {
	state := v.saver.State()
	color := styles.Current.ForegroundDim
	switch state {
	case autosave.Saving:
		color = styles.Current.Info
	case autosave.NotSaved:
		color = styles.Current.Error
	case autosave.Dirty:
		color = styles.Current.Warning
	}
	return lipgloss.NewStyle().Foreground(color).Render(state.String())
}

func (v *WorkspaceView) renderMain() string {
	s := v.styles
	width := v.mainWidth()
	height := v.bodyHeight()

	style := s.Panel
	if v.focus != PanelSidebar {
		style = s.PanelFocused
	}
	style = style.Width(width - 2).Height(height - 2)

	switch {
	case v.tagPicker:
		return style.Render(v.renderTagPicker())
	case v.notFound:
		return style.Render(v.renderNotFound())
	case v.openID == "":
		return style.Render(lipgloss.Place(width-4, height-2, lipgloss.Center, lipgloss.Center,
			lipgloss.JoinVertical(lipgloss.Center,
				s.Title.Render("No note open"),
				"",
				s.TitleMuted.Render("Pick a note in the sidebar or press 'n' to create one"),
			)))
	case !v.saver.Loaded():
		return style.Render(s.TitleMuted.Render("Loading note..."))
	}

	return style.Render(lipgloss.JoinVertical(lipgloss.Left,
		v.renderEditor(),
		"",
		v.renderBoard(),
	))
}

func (v *WorkspaceView) renderNotFound() string {
	s := v.styles
	return lipgloss.Place(v.mainWidth()-4, v.bodyHeight()-2, lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			s.Title.Foreground(styles.Current.Error).Render("Note not found"),
			"",
			s.TitleMuted.Render("It may have been deleted or moved to the trash."),
			"",
			s.Button.Render(" T - Open trash "),
		))
}

func (v *WorkspaceView) renderHelp() string {
	s := v.styles
	if v.width > 0 && v.width < 60 {
		return s.StatusBar.Render(s.HelpKey.Render("?") + " help")
	}
	k := s.HelpKey.Render
	var text string
	switch {
	case v.gesture.Dragging() && v.focus == PanelBoard:
		text = fmt.Sprintf("%s column • %s drop • %s cancel", k("h/l"), k("↵"), k("esc"))
	case v.gesture.Dragging():
		text = fmt.Sprintf("%s target • %s drop on note • %s drop on root • %s cancel", k("↑↓"), k("↵"), k("0"), k("esc"))
	case v.editFocus == editTitle || v.editFocus == editContent:
		text = fmt.Sprintf("%s next field • %s done • %s save now", k("tab"), k("esc"), k("ctrl+s"))
	case v.focus == PanelEditor:
		text = fmt.Sprintf("%s title • %s content • %s status • %s priority • %s favorite • %s due • %s tags • %s panel",
			k("i"), k("e"), k("s"), k("p"), k("f"), k("d"), k("t"), k("tab"))
	case v.focus == PanelBoard:
		text = fmt.Sprintf("%s move • %s open • %s grab • %s reorder • %s new • %s panel", k("hjkl"), k("↵"), k("m"), k("J/K"), k("n"), k("tab"))
	default:
		text = fmt.Sprintf("%s open • %s new • %s move • %s reorder • %s archive • %s search • %s filter • %s trash • %s quit",
			k("↵"), k("n/N"), k("m"), k("J/K"), k("a"), k("/"), k("f"), k("T"), k("q"))
	}
	return s.StatusBar.Render(text)
}

func (v *WorkspaceView) renderHelpPopup() string {
	s := v.styles
	k := s.HelpKey.Render
	helpItems := []string{
		s.Section.Render("Sidebar"),
		k("↵") + "        open note",
		k("n / N") + "    new note / sub-note",
		k("m") + "        move: pick a target, ↵ drop on note, 0 drop on root",
		k("J / K") + "    move down / up among siblings",
		k("space") + "    expand or collapse",
		k("a") + "        move to trash",
		k("/ f") + "      search / filter",
		"",
		s.Section.Render("Editor"),
		k("i / e") + "    edit title / content",
		k("s p f") + "    status / priority / favorite",
		k("d / t") + "    due date / tags",
		k("ctrl+s") + "   save now",
		"",
		s.Section.Render("Board"),
		k("m h/l ↵") + "  move a card to another column",
		"",
		k("tab") + "      next panel",
		k("ctrl+b") + "   toggle sidebar",
		k("ctrl+r") + "   refresh",
		k("T / L") + "    trash / logout",
		k("q") + "        quit",
		"",
		s.TitleMuted.Render("Press any key to close"),
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{s.Title.Render("Keyboard Shortcuts"), ""}, helpItems...)...,
	)
	return styles.Dialog(s.FilterBar.Render(content), v.width, v.height)
}
