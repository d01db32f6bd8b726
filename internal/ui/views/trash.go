package views

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/tgienger/stn/internal/logging"
	"github.com/tgienger/stn/internal/models"
	"github.com/tgienger/stn/internal/ui/editor"
	"github.com/tgienger/stn/internal/ui/keys"
	"github.com/tgienger/stn/internal/ui/styles"
)

type archivedItem struct {
	note models.Note
}

func (i archivedItem) Title() string { return i.note.Title }

func (i archivedItem) Description() string {
	text := editor.PlainText(i.note.Content)
	if text == "" {
		return "Archived " + i.note.UpdatedAt.Format("Jan 2, 2006")
	}
	return firstLine(text)
}

func (i archivedItem) FilterValue() string { return i.note.Title }

// archivedDelegate draws a title line and a dimmed preview line
type archivedDelegate struct {
	styles *styles.Styles
	width  int
}

func (archivedDelegate) Height() int                         { return 2 }
func (archivedDelegate) Spacing() int                        { return 1 }
func (archivedDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (d archivedDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(archivedItem)
	if !ok {
		return
	}
	width := max(d.width-4, 20)
	base := d.styles.ListItem
	if index == m.Index() {
		base = d.styles.ListSelected
	}
	when := it.note.UpdatedAt.Format("Jan 2")
	title := truncate(it.Title(), width-len(when)-3)
	gap := max(width-lipgloss.Width(title)-len(when)-4, 1)
	head := base.Width(width).Render(title + strings.Repeat(" ", gap) + when)
	preview := base.Foreground(styles.Current.ForegroundDim).Width(width).Render(truncate(it.Description(), width-4))
	fmt.Fprint(w, head+"\n"+preview)
}

// TrashView lists archived notes with restore and permanent delete
type TrashView struct {
	deps     Deps
	list     list.Model
	delegate *archivedDelegate
	styles   *styles.Styles
	keys     keys.KeyMap

	width  int
	height int
	loaded bool

	confirmingDelete bool
	deleteTargetID   string
	deleteTargetName string

	showHelpPopup bool
}

func NewTrashView(deps Deps) *TrashView {
	s := styles.NewStyles()
	delegate := &archivedDelegate{styles: s, width: styles.FormWidth}

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Trash"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = s.Title
	l.SetShowHelp(false)

	return &TrashView{
		deps:     deps,
		list:     l,
		delegate: delegate,
		styles:   s,
		keys:     keys.DefaultKeyMap(),
	}
}

func (v *TrashView) Init() tea.Cmd {
	v.deps.Store.SetLastView("trash")
	return v.loadArchived
}

type archivedLoadedMsg struct {
	notes []models.Note
	err   error
}

type restoredMsg struct {
	note *models.Note
	id   string
	err  error
}

type purgedMsg struct {
	id  string
	err error
}

func (v *TrashView) loadArchived() tea.Msg {
	ctx, cancel := v.deps.ctx()
	defer cancel()
	notes, err := v.deps.Queries.Archived(ctx)
	return archivedLoadedMsg{notes: notes, err: err}
}

func (v *TrashView) restore(id string) tea.Cmd {
	deps := v.deps
	return func() tea.Msg {
		ctx, cancel := deps.ctx()
		defer cancel()
		n, err := deps.Queries.RestoreNote(ctx, id)
		return restoredMsg{note: n, id: id, err: err}
	}
}

func (v *TrashView) purge(id string) tea.Cmd {
	deps := v.deps
	return func() tea.Msg {
		ctx, cancel := deps.ctx()
		defer cancel()
		err := deps.Queries.DeleteNotePermanently(ctx, id)
		if err == nil && deps.History != nil {
			if herr := deps.History.ForgetNote(id); herr != nil {
				deps.logger().Warn("forget note", zap.String(logging.FieldNoteID, id), zap.Error(herr))
			}
		}
		return purgedMsg{id: id, err: err}
	}
}

func (v *TrashView) selected() (models.Note, bool) {
	item, ok := v.list.SelectedItem().(archivedItem)
	return item.note, ok
}

func (v *TrashView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := min(msg.Width, styles.FormWidth)
		v.delegate.width = contentWidth
		v.list.SetSize(contentWidth-4, msg.Height-6)
		return v, nil

	case archivedLoadedMsg:
		if msg.err != nil {
			return v, failure(msg.err, "Could not load the trash")
		}
		items := make([]list.Item, len(msg.notes))
		for i, n := range msg.notes {
			items[i] = archivedItem{note: n}
		}
		v.list.SetItems(items)
		v.loaded = true
		return v, nil

	case restoredMsg:
		if msg.err != nil {
			return v, failure(msg.err, "Could not restore the note")
		}
		title := "Note"
		if msg.note != nil {
			title = msg.note.Title
		}
		return v, tea.Batch(v.loadArchived, toast(title+" restored"))

	case purgedMsg:
		if msg.err != nil {
			return v, failure(msg.err, "Could not delete the note")
		}
		return v, tea.Batch(v.loadArchived, toast("Note deleted forever"))

	case tea.KeyMsg:
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}

		if v.confirmingDelete {
			return v.updateConfirmDelete(msg)
		}

		// Let the list own the keys while its filter is being typed
		if v.list.FilterState() == list.Filtering {
			break
		}

		switch {
		case key.Matches(msg, v.keys.Quit):
			return v, tea.Quit
		case key.Matches(msg, v.keys.Back), key.Matches(msg, v.keys.Trash):
			return v, func() tea.Msg { return OpenWorkspace{} }
		case key.Matches(msg, v.keys.Help):
			v.showHelpPopup = true
			return v, nil
		case key.Matches(msg, v.keys.Restore):
			if n, ok := v.selected(); ok {
				return v, v.restore(n.ID)
			}
			return v, nil
		case key.Matches(msg, v.keys.Enter):
			if n, ok := v.selected(); ok {
				id := n.ID
				return v, tea.Sequence(v.restore(id), func() tea.Msg { return OpenWorkspace{NoteID: id} })
			}
			return v, nil
		case key.Matches(msg, v.keys.Delete):
			if n, ok := v.selected(); ok {
				v.confirmingDelete = true
				v.deleteTargetID = n.ID
				v.deleteTargetName = n.Title
			}
			return v, nil
		}
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

func (v *TrashView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.confirmingDelete = false
		return v, v.purge(v.deleteTargetID)
	case "n", "N", "esc":
		v.confirmingDelete = false
		return v, nil
	}
	return v, nil
}

func (v *TrashView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}

	if v.confirmingDelete {
		return v.renderDeleteConfirm()
	}

	if !v.loaded {
		return v.styles.TitleMuted.Render("Loading...")
	}

	if len(v.list.Items()) == 0 {
		return v.renderEmpty()
	}

	content := v.list.View() + "\n" + v.renderHelp()
	return styles.Dialog(content, v.width, v.height)
}

func (v *TrashView) renderEmpty() string {
	s := v.styles
	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Render("Trash is empty"),
		"",
		s.TitleMuted.Render("Archived notes show up here"),
		"",
		s.Button.Render(" Esc - Back "),
	)
	return styles.Dialog(content, v.width, v.height)
}

var trashHelp = [][2]string{
	{"r", "restore"},
	{"↵", "restore & open"},
	{"x", "delete forever"},
	{"/", "filter"},
	{"esc", "back to notes"},
	{"q", "quit"},
}

func (v *TrashView) renderHelp() string {
	s := v.styles
	if v.width > 0 && v.width < 50 {
		return s.Help.Render(s.HelpKey.Render("?") + " help")
	}
	parts := make([]string, 0, len(trashHelp))
	for _, h := range trashHelp {
		parts = append(parts, s.HelpKey.Render(h[0])+" "+h[1])
	}
	return s.Help.Render(strings.Join(parts, " • "))
}

func (v *TrashView) renderHelpPopup() string {
	s := v.styles
	lines := []string{s.Title.Render("Trash"), ""}
	for _, h := range trashHelp {
		lines = append(lines, s.HelpKey.Render(fmt.Sprintf("%-6s", h[0]))+" "+h[1])
	}
	lines = append(lines, "", s.TitleMuted.Render("Press any key to close"))
	return styles.Dialog(s.FilterBar.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)), v.width, v.height)
}

func (v *TrashView) renderDeleteConfirm() string {
	s := v.styles
	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render("Delete "+truncate(v.deleteTargetName, 40)+"?"),
		"",
		s.TitleMuted.Render("The note and its history are removed from the server."),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.ButtonPrimary.Render(" Y - Yes "),
			"  ",
			s.Button.Render(" N - No "),
		),
	)
	return styles.Dialog(content, v.width, v.height)
}
