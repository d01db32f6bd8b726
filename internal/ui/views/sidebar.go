package views

import (
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/stn/internal/dnd"
	"github.com/tgienger/stn/internal/models"
	"github.com/tgienger/stn/internal/store"
	"github.com/tgienger/stn/internal/tree"
	"github.com/tgienger/stn/internal/ui/styles"
)

type section int

const (
	sectionFavorites section = iota
	sectionRecent
	sectionNotes
	sectionResults
)

func (s section) title() string {
	switch s {
	case sectionFavorites:
		return "Favorites"
	case sectionRecent:
		return "Recent"
	case sectionResults:
		return "Results"
	}
	return "Notes"
}

// row is one line of the sidebar
type row struct {
	note     models.Note
	depth    int
	section  section
	children int
}

// buildRows lays out the sidebar. With a search or filter active it is a
// flat list of matches; otherwise favorites, recent notes and the tree.
func buildRows(forest *tree.Forest, notes []models.Note, st *store.Store, visible map[string]bool, recent []models.RecentNote, collapsed map[string]bool) []row {
	var rows []row

	if strings.TrimSpace(st.Search()) != "" || visible != nil {
		var matches []models.Note
		for _, n := range st.Filter(notes) {
			if visible == nil || visible[n.ID] {
				matches = append(matches, n)
			}
		}
		sort.SliceStable(matches, func(i, j int) bool { return tree.Less(matches[i], matches[j]) })
		for _, n := range matches {
			rows = append(rows, row{note: n, section: sectionResults})
		}
		return rows
	}

	var favorites []models.Note
	for _, n := range notes {
		if n.IsFavorite {
			favorites = append(favorites, n)
		}
	}
	sort.SliceStable(favorites, func(i, j int) bool { return tree.Less(favorites[i], favorites[j]) })
	for _, n := range favorites {
		rows = append(rows, row{note: n, section: sectionFavorites})
	}

	for _, r := range recent {
		if node, ok := forest.Node(r.NoteID); ok {
			rows = append(rows, row{note: node.Note, section: sectionRecent})
		}
	}

	forest.Walk(func(n *tree.Node, depth int) bool {
		rows = append(rows, row{note: n.Note, depth: depth, section: sectionNotes, children: len(n.Children)})
		return !collapsed[n.ID()]
	})
	return rows
}

func (v *WorkspaceView) rebuildRows() {
	var keepID string
	keepSection := sectionNotes
	if r, ok := v.cursorRow(); ok {
		keepID, keepSection = r.note.ID, r.section
	}

	v.rows = buildRows(v.engine.Forest(), v.engine.Notes(), v.deps.Store, v.visible, v.recent, v.collapsed)

	// Keep the cursor on the same note when it is still listed
	if keepID != "" {
		fallback := -1
		for i, r := range v.rows {
			if r.note.ID != keepID {
				continue
			}
			if r.section == keepSection {
				v.cursor = i
				v.ensureVisible()
				return
			}
			if fallback < 0 {
				fallback = i
			}
		}
		if fallback >= 0 {
			v.cursor = fallback
		}
	}
	v.cursor = clamp(v.cursor, 0, max(len(v.rows)-1, 0))
	v.ensureVisible()
}

func (v *WorkspaceView) cursorRow() (row, bool) {
	if v.cursor < 0 || v.cursor >= len(v.rows) {
		return row{}, false
	}
	return v.rows[v.cursor], true
}

// selectRow moves the cursor to the tree row of id
func (v *WorkspaceView) selectRow(id string) {
	for i, r := range v.rows {
		if r.note.ID == id && (r.section == sectionNotes || r.section == sectionResults) {
			v.cursor = i
			v.ensureVisible()
			return
		}
	}
}

func (v *WorkspaceView) visibleRows() int {
	// panel border, search box and section headers
	return max(v.bodyHeight()-8, 3)
}

func (v *WorkspaceView) ensureVisible() {
	visible := v.visibleRows()
	if v.cursor < v.scrollY {
		v.scrollY = v.cursor
	} else if v.cursor >= v.scrollY+visible {
		v.scrollY = v.cursor - visible + 1
	}
	v.scrollY = max(v.scrollY, 0)
}

func (v *WorkspaceView) moveCursor(delta int) {
	if len(v.rows) == 0 {
		return
	}
	v.cursor = clamp(v.cursor+delta, 0, len(v.rows)-1)
	v.ensureVisible()
	if v.gesture.Dragging() {
		if r, ok := v.cursorRow(); ok {
			v.gesture.Over(dnd.OnNote(r.note.ID))
		}
	}
}

func (v *WorkspaceView) updateSidebar(msg tea.KeyMsg) tea.Cmd {
	if v.gesture.Dragging() {
		return v.updateSidebarDrag(msg)
	}

	r, hasRow := v.cursorRow()
	switch {
	case key.Matches(msg, v.keys.Up):
		v.moveCursor(-1)
	case key.Matches(msg, v.keys.Down):
		v.moveCursor(1)
	case msg.String() == "g", msg.String() == "home":
		v.moveCursor(-len(v.rows))
	case msg.String() == "G", msg.String() == "end":
		v.moveCursor(len(v.rows))

	case key.Matches(msg, v.keys.Enter), key.Matches(msg, v.keys.Right) && !hasChildren(r):
		if hasRow {
			cmd := v.openNote(r.note.ID)
			v.focus = PanelEditor
			return cmd
		}

	case key.Matches(msg, v.keys.Toggle), key.Matches(msg, v.keys.Right), key.Matches(msg, v.keys.Left):
		if hasRow && r.section == sectionNotes {
			switch {
			case key.Matches(msg, v.keys.Left) && (v.collapsed[r.note.ID] || r.children == 0):
				// jump to the parent
				if r.note.ParentID != nil {
					v.selectRow(*r.note.ParentID)
				}
			case key.Matches(msg, v.keys.Left):
				v.collapsed[r.note.ID] = true
			case key.Matches(msg, v.keys.Right):
				delete(v.collapsed, r.note.ID)
			default:
				v.collapsed[r.note.ID] = !v.collapsed[r.note.ID]
			}
			v.rebuildRows()
		}

	case key.Matches(msg, v.keys.New):
		return v.createNote(nil)
	case key.Matches(msg, v.keys.NewChild):
		if hasRow {
			id := r.note.ID
			return v.createNote(&id)
		}
		return v.createNote(nil)

	case key.Matches(msg, v.keys.Archive):
		if hasRow {
			return v.archive(r.note)
		}

	case key.Matches(msg, v.keys.Grab):
		if hasRow {
			v.gesture.Grab(r.note)
			v.gesture.Over(dnd.OnNote(r.note.ID))
		}

	case key.Matches(msg, v.keys.MoveUp):
		if hasRow {
			return v.step(r.note, -1)
		}
	case key.Matches(msg, v.keys.MoveDown):
		if hasRow {
			return v.step(r.note, 1)
		}

	case key.Matches(msg, v.keys.Search):
		v.searching = true
		v.search.SetValue(v.deps.Store.Search())
		v.search.Focus()
		return textinput.Blink

	case key.Matches(msg, v.keys.Filter):
		v.filterOpen = true
		v.filterCursor = 0

	case key.Matches(msg, v.keys.Back):
		if v.deps.Store.Search() != "" {
			v.deps.Store.SetSearch("")
			v.search.Reset()
			v.rebuildRows()
		}
	}
	return nil
}

func hasChildren(r row) bool {
	return r.section == sectionNotes && r.children > 0
}

func (v *WorkspaceView) updateSidebarDrag(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, v.keys.Up):
		v.moveCursor(-1)
	case key.Matches(msg, v.keys.Down):
		v.moveCursor(1)
	case key.Matches(msg, v.keys.Back):
		v.gesture.Cancel()
	case key.Matches(msg, v.keys.DropRoot):
		v.gesture.Over(dnd.OnRoot())
		return v.drop()
	case key.Matches(msg, v.keys.Enter):
		if r, ok := v.cursorRow(); ok {
			v.gesture.Over(dnd.OnNote(r.note.ID))
		}
		return v.drop()
	}
	return nil
}

func (v *WorkspaceView) drop() tea.Cmd {
	id := v.gesture.DraggedID()
	req, ok := v.gesture.Drop()
	if !ok {
		return nil
	}
	if req.Kind == dnd.RequestReparent && req.ParentID != nil {
		delete(v.collapsed, *req.ParentID)
	}
	cmd := v.propose(req)
	v.rebuildRows()
	v.selectRow(id)
	return cmd
}

// step moves a note one place among its siblings
func (v *WorkspaceView) step(n models.Note, delta int) tea.Cmd {
	g := tree.Group{ParentID: n.ParentID}
	return v.slotMove(n, g, delta)
}

func (v *WorkspaceView) slotMove(n models.Note, g tree.Group, delta int) tea.Cmd {
	members := v.engine.Members(g)
	from := -1
	for i, m := range members {
		if m.ID == n.ID {
			from = i
			break
		}
	}
	if from < 0 {
		return nil
	}
	v.gesture.Grab(n)
	v.gesture.Over(dnd.InSlot(g, from+delta))
	req, ok := v.gesture.Drop()
	if !ok {
		return nil
	}
	return v.propose(req)
}

func (v *WorkspaceView) createNote(parentID *string) tea.Cmd {
	deps := v.deps
	return func() tea.Msg {
		ctx, cancel := deps.ctx()
		defer cancel()
		n, err := deps.Queries.CreateNote(ctx, models.CreateNoteData{Title: "Untitled", ParentID: parentID})
		return createdMsg{note: n, err: err}
	}
}

func (v *WorkspaceView) archive(n models.Note) tea.Cmd {
	var save tea.Cmd
	if n.ID == v.openID {
		save = v.flush()
	}
	deps := v.deps
	return tea.Sequence(save, func() tea.Msg {
		ctx, cancel := deps.ctx()
		defer cancel()
		return archivedMsg{note: n, err: deps.Queries.ArchiveNote(ctx, n.ID)}
	})
}

func (v *WorkspaceView) updateSearch(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.searching = false
		v.search.Blur()
		v.search.Reset()
		v.deps.Store.SetSearch("")
		v.rebuildRows()
		return nil
	case key.Matches(msg, v.keys.Enter):
		v.searching = false
		v.search.Blur()
		v.cursor = 0
		v.rebuildRows()
		return nil
	}
	var cmd tea.Cmd
	v.search, cmd = v.search.Update(msg)
	if v.search.Value() != v.deps.Store.Search() {
		v.deps.Store.SetSearch(v.search.Value())
		v.cursor = 0
		v.rebuildRows()
	}
	return cmd
}

// filterOptions lists the entries of the filter dropdown
type filterOption struct {
	label    string
	active   bool
	status   *models.NoteStatus
	priority *models.NotePriority
	tagID    string
	clear    bool
}

func (v *WorkspaceView) filterOptions() []filterOption {
	f := v.deps.Store.Filters()
	opts := []filterOption{{label: "Clear all filters", clear: true}}
	for _, st := range models.Statuses {
		st := st
		opts = append(opts, filterOption{label: "Status: " + st.Label(), status: &st, active: f.Status != nil && *f.Status == st})
	}
	for _, p := range models.Priorities {
		p := p
		opts = append(opts, filterOption{label: "Priority: " + priorityLabel(&p), priority: &p, active: f.Priority != nil && *f.Priority == p})
	}
	for _, t := range v.tags {
		active := false
		for _, id := range f.Tags {
			if id == t.ID {
				active = true
			}
		}
		opts = append(opts, filterOption{label: "#" + t.Name, tagID: t.ID, active: active})
	}
	return opts
}

func (v *WorkspaceView) updateFilterDropdown(msg tea.KeyMsg) tea.Cmd {
	opts := v.filterOptions()
	switch {
	case key.Matches(msg, v.keys.Back), key.Matches(msg, v.keys.Filter):
		v.filterOpen = false
		return nil
	case key.Matches(msg, v.keys.Up):
		if v.filterCursor > 0 {
			v.filterCursor--
		}
		return nil
	case key.Matches(msg, v.keys.Down):
		if v.filterCursor < len(opts)-1 {
			v.filterCursor++
		}
		return nil
	case key.Matches(msg, v.keys.Enter), key.Matches(msg, v.keys.Toggle):
		if v.filterCursor >= len(opts) {
			return nil
		}
		o := opts[v.filterCursor]
		st := v.deps.Store
		switch {
		case o.clear:
			st.ClearFilters()
		case o.status != nil && o.active:
			st.SetFilters(store.FilterPatch{ClearStatus: true})
		case o.status != nil:
			st.SetFilters(store.FilterPatch{Status: o.status})
		case o.priority != nil && o.active:
			st.SetFilters(store.FilterPatch{ClearPrio: true})
		case o.priority != nil:
			st.SetFilters(store.FilterPatch{Priority: o.priority})
		default:
			st.ToggleTagFilter(o.tagID)
		}
		v.cursor = 0
		return v.loadNotes()
	}
	return nil
}

func (v *WorkspaceView) renderSidebar() string {
	s := v.styles
	width := v.sidebarWidth()
	height := v.bodyHeight()

	style := s.Panel
	if v.focus == PanelSidebar {
		style = s.PanelFocused
	}
	inner := width - 4

	searchStyle := s.Input
	if v.searching {
		searchStyle = s.InputFocused
	}
	searchBox := searchStyle.Width(inner - 2).Render(v.search.View())
	if !v.searching && v.deps.Store.Search() == "" {
		searchBox = searchStyle.Width(inner - 2).Render(s.TitleMuted.Render("/ search"))
	}

	parts := []string{searchBox}
	if summary := v.filterSummary(); summary != "" {
		parts = append(parts, s.TitleMuted.Render(truncate(summary, inner)))
	}
	if v.filterOpen {
		parts = append(parts, v.renderFilterDropdown(inner))
	}

	if len(v.rows) == 0 {
		empty := "No notes yet. Press 'n'."
		if v.visible != nil || v.deps.Store.Search() != "" {
			empty = "Nothing matches."
		}
		parts = append(parts, "", s.TitleMuted.Render(empty))
	}

	end := min(v.scrollY+v.visibleRows(), len(v.rows))
	var last section = -1
	for i := v.scrollY; i < end; i++ {
		r := v.rows[i]
		if r.section != last {
			parts = append(parts, s.Section.Render(r.section.title()))
			last = r.section
		}
		parts = append(parts, v.renderRow(r, i == v.cursor, inner))
	}

	return style.Width(width - 2).Height(height - 2).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (v *WorkspaceView) renderRow(r row, selected bool, width int) string {
	s := v.styles
	n := r.note
	if n.ID == v.openID && v.saver.Loaded() && strings.TrimSpace(v.saver.Form().Title) != "" {
		n.Title = v.saver.Form().Title
	}

	marker := "  "
	if r.section == sectionNotes && r.children > 0 {
		marker = "▾ "
		if v.collapsed[n.ID] {
			marker = "▸ "
		}
	}
	icon := ""
	if n.IsFavorite && r.section != sectionFavorites {
		icon = "★ "
	}
	if n.Status == models.StatusDone {
		icon += "✓ "
	}
	text := strings.Repeat("  ", r.depth) + marker + icon + n.Title
	if n.ID == v.openID {
		text = strings.Repeat("  ", r.depth) + marker + icon + lipgloss.NewStyle().Underline(true).Render(n.Title)
	}
	text = truncate(text, width)

	dragging := v.gesture.Dragging()
	switch {
	case dragging && n.ID == v.gesture.DraggedID():
		return s.DragSource.Width(width).Render(text)
	case dragging && selected:
		return s.DropTarget.Width(width).Render(text)
	case selected && v.focus == PanelSidebar:
		return s.TreeSelected.Width(width).Render(text)
	}
	return s.TreeItem.Width(width).Render(text)
}

func (v *WorkspaceView) filterSummary() string {
	f := v.deps.Store.Filters()
	if f.IsZero() {
		return ""
	}
	var parts []string
	if f.Status != nil {
		parts = append(parts, f.Status.Label())
	}
	if f.Priority != nil {
		parts = append(parts, priorityLabel(f.Priority))
	}
	for _, t := range v.tags {
		for _, id := range f.Tags {
			if id == t.ID {
				parts = append(parts, "#"+t.Name)
			}
		}
	}
	return "Filter: " + strings.Join(parts, ", ")
}

func (v *WorkspaceView) renderFilterDropdown(width int) string {
	s := v.styles
	var items []string
	for i, o := range v.filterOptions() {
		check := "[ ]"
		if o.active {
			check = "[x]"
		}
		label := check + " " + o.label
		if o.clear {
			label = o.label
		}
		if o.tagID != "" {
			for _, t := range v.tags {
				if t.ID == o.tagID {
					label = check + " " + lipgloss.NewStyle().Foreground(styles.TagColor(t)).Render("●") + " " + t.Name
				}
			}
		}
		itemStyle := s.ListItem
		if i == v.filterCursor {
			itemStyle = s.ListSelected
		}
		items = append(items, itemStyle.Render(truncate(label, width-6)))
	}
	return s.FilterBar.Render(lipgloss.JoinVertical(lipgloss.Left, items...))
}
