package views

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/tgienger/stn/internal/autosave"
	"github.com/tgienger/stn/internal/logging"
	"github.com/tgienger/stn/internal/models"
	"github.com/tgienger/stn/internal/ui/editor"
	"github.com/tgienger/stn/internal/ui/styles"
)

// editFocus is the editor input receiving keys
type editFocus int

const (
	editNone editFocus = iota
	editTitle
	editContent
	editDue
)

func (v *WorkspaceView) setEditFocus(f editFocus) tea.Cmd {
	v.editFocus = f
	v.title.Blur()
	v.content.Blur()
	v.due.Blur()
	switch f {
	case editTitle:
		return v.title.Focus()
	case editContent:
		return v.content.Focus()
	case editDue:
		v.due.SetValue(formatDue(v.saver.Form().DueDate))
		v.due.CursorEnd()
		return v.due.Focus()
	}
	return nil
}

// instant saves a field that is sent without waiting
func (v *WorkspaceView) instant(field autosave.Field, value any) tea.Cmd {
	req, err := v.saver.OnInstantChange(field, value)
	if err != nil {
		v.logger.Warn("edit rejected", zap.String(logging.FieldField, string(field)), zap.Error(err))
		return nil
	}
	return v.saveCmd(req)
}

// edited records a debounced field and schedules its tick
func (v *WorkspaceView) edited(field autosave.Field, value any) tea.Cmd {
	t, err := v.saver.OnFieldChange(field, value)
	if err != nil {
		v.logger.Warn("edit rejected", zap.String(logging.FieldField, string(field)), zap.Error(err))
		return nil
	}
	return v.debounce(t)
}

func (v *WorkspaceView) updateEditor(msg tea.KeyMsg) tea.Cmd {
	if !v.saver.Loaded() {
		if key.Matches(msg, v.keys.Back) && v.deps.Store.SidebarOpen() {
			v.focus = PanelSidebar
		}
		return nil
	}
	form := v.saver.Form()

	switch {
	case key.Matches(msg, v.keys.EditTitle), key.Matches(msg, v.keys.Enter):
		return v.setEditFocus(editTitle)
	case key.Matches(msg, v.keys.EditContent):
		return v.setEditFocus(editContent)
	case key.Matches(msg, v.keys.Status):
		return v.instant(autosave.FieldStatus, form.Status.Next())
	case key.Matches(msg, v.keys.Priority):
		return v.instant(autosave.FieldPriority, nextPriority(form.Priority))
	case key.Matches(msg, v.keys.Favorite):
		return v.instant(autosave.FieldFavorite, !form.IsFavorite)
	case key.Matches(msg, v.keys.Due):
		return v.setEditFocus(editDue)
	case key.Matches(msg, v.keys.Tags):
		v.tagPicker = true
		v.tagCursor = 0
		return nil
	case key.Matches(msg, v.keys.Save):
		return v.flush()
	case key.Matches(msg, v.keys.Archive):
		if n, ok := v.engine.Note(v.openID); ok {
			return v.archive(n)
		}
	case key.Matches(msg, v.keys.Back):
		if v.deps.Store.SidebarOpen() {
			v.focus = PanelSidebar
			v.selectRow(v.openID)
		}
	}
	return nil
}

func (v *WorkspaceView) updateEditing(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, v.keys.Save):
		return v.flush()
	case msg.Type == tea.KeyEsc:
		if v.editFocus == editDue {
			v.due.Reset()
		}
		return v.setEditFocus(editNone)
	case msg.Type == tea.KeyTab && v.editFocus == editTitle:
		return v.setEditFocus(editContent)
	case msg.Type == tea.KeyTab && v.editFocus == editContent:
		return v.setEditFocus(editNone)
	case msg.Type == tea.KeyEnter && v.editFocus == editTitle:
		return v.setEditFocus(editContent)
	case msg.Type == tea.KeyEnter && v.editFocus == editDue:
		return v.commitDue()
	}

	var cmd tea.Cmd
	switch v.editFocus {
	case editTitle:
		v.title, cmd = v.title.Update(msg)
		if v.title.Value() != v.saver.Form().Title {
			return tea.Batch(cmd, v.edited(autosave.FieldTitle, v.title.Value()))
		}
	case editContent:
		v.content, cmd = v.content.Update(msg)
		if text := v.content.Value(); text != v.contentText {
			v.contentText = text
			return tea.Batch(cmd, v.edited(autosave.FieldContent, editor.FromText(text)))
		}
	case editDue:
		v.due, cmd = v.due.Update(msg)
	}
	return cmd
}

func (v *WorkspaceView) commitDue() tea.Cmd {
	due, err := parseDue(v.due.Value())
	if err != nil {
		return toast("Dates look like 2024-03-31")
	}
	v.setEditFocus(editNone)
	return v.instant(autosave.FieldDueDate, due)
}

// toggleTag adds or removes a tag on the open note
func (v *WorkspaceView) toggleTag(id string) tea.Cmd {
	if !v.saver.Loaded() {
		return nil
	}
	ids := slices.Clone(v.saver.Form().Tags)
	if i := slices.Index(ids, id); i >= 0 {
		ids = slices.Delete(ids, i, i+1)
	} else {
		ids = append(ids, id)
	}
	return v.instant(autosave.FieldTags, ids)
}

func (v *WorkspaceView) updateTagPicker(msg tea.KeyMsg) tea.Cmd {
	if v.creatingTag {
		switch msg.Type {
		case tea.KeyEsc:
			v.creatingTag = false
			v.newTag.Blur()
			v.newTag.Reset()
			return nil
		case tea.KeyEnter:
			name := strings.TrimSpace(v.newTag.Value())
			v.creatingTag = false
			v.newTag.Blur()
			v.newTag.Reset()
			if name == "" {
				return nil
			}
			return v.createTag(name)
		}
		var cmd tea.Cmd
		v.newTag, cmd = v.newTag.Update(msg)
		return cmd
	}

	switch {
	case key.Matches(msg, v.keys.Back), key.Matches(msg, v.keys.Tags):
		v.tagPicker = false
	case key.Matches(msg, v.keys.Up):
		if v.tagCursor > 0 {
			v.tagCursor--
		}
	case key.Matches(msg, v.keys.Down):
		if v.tagCursor < len(v.tags)-1 {
			v.tagCursor++
		}
	case key.Matches(msg, v.keys.Toggle), key.Matches(msg, v.keys.Enter):
		if v.tagCursor < len(v.tags) {
			return v.toggleTag(v.tags[v.tagCursor].ID)
		}
	case key.Matches(msg, v.keys.New):
		v.creatingTag = true
		return tea.Batch(v.newTag.Focus(), textinput.Blink)
	}
	return nil
}

func (v *WorkspaceView) createTag(name string) tea.Cmd {
	deps := v.deps
	return func() tea.Msg {
		ctx, cancel := deps.ctx()
		defer cancel()
		t, err := deps.Queries.CreateTag(ctx, models.TagData{Name: name})
		return tagCreatedMsg{tag: t, err: err}
	}
}

func (v *WorkspaceView) renderTagPicker() string {
	s := v.styles
	selected := v.saver.Form().Tags
	rows := []string{s.Title.Render("Tags"), ""}
	if len(v.tags) == 0 {
		rows = append(rows, s.TitleMuted.Render("No tags yet. Press 'n' to create one."))
	}
	for i, t := range v.tags {
		check := "[ ]"
		if slices.Contains(selected, t.ID) {
			check = "[x]"
		}
		label := fmt.Sprintf("%s %s %s", check, lipgloss.NewStyle().Foreground(styles.TagColor(t)).Render("●"), t.Name)
		st := s.ListItem
		if i == v.tagCursor {
			st = s.ListSelected
		}
		rows = append(rows, st.Render(label))
	}
	if v.creatingTag {
		rows = append(rows, "", s.InputFocused.Width(30).Render(v.newTag.View()))
	}
	rows = append(rows, "", s.TitleMuted.Render("space toggle • n new tag • esc done"))
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (v *WorkspaceView) renderEditor() string {
	s := v.styles
	form := v.saver.Form()
	inner := v.mainWidth() - 4

	titleStyle := s.Input
	if v.editFocus == editTitle {
		titleStyle = s.InputFocused
	}
	title := titleStyle.Width(inner - 2).Render(v.title.View())
	if v.editFocus != editTitle {
		text := form.Title
		if strings.TrimSpace(text) == "" {
			text = s.TitleMuted.Render("Untitled")
		}
		title = titleStyle.Width(inner - 2).Render(s.NoteTitle.Render(truncate(text, inner-4)))
	}

	fav := "☆"
	if form.IsFavorite {
		fav = lipgloss.NewStyle().Foreground(styles.Current.Warning).Render("★")
	}
	due := s.TitleMuted.Render("no due date")
	if v.editFocus == editDue {
		due = s.InputFocused.Render(v.due.View())
	} else if form.DueDate != nil {
		due = "due " + formatDue(form.DueDate)
	}
	meta := strings.Join([]string{fav, statusBadge(form.Status), priorityBadge(form.Priority), due}, "  ")
	if chips := tagChips(v.tags, form.Tags); chips != "" {
		meta += "  " + chips
	}

	contentStyle := lipgloss.NewStyle().Padding(0, 1)
	var body string
	if v.editFocus == editContent || strings.TrimSpace(v.contentText) != "" {
		body = v.content.View()
	} else {
		body = s.TitleMuted.Render("Press 'e' to write")
	}

	if err := v.saver.Err(); err != nil && v.saver.State() == autosave.NotSaved {
		meta += "  " + lipgloss.NewStyle().Foreground(styles.Current.Error).Render("save failed, ctrl+s to retry")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		meta,
		"",
		contentStyle.Render(body),
	)
}
