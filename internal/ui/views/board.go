package views

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/stn/internal/dnd"
	"github.com/tgienger/stn/internal/models"
	"github.com/tgienger/stn/internal/tree"
	"github.com/tgienger/stn/internal/ui/styles"
)

// columnGroup is the board column of status under the open note
func (v *WorkspaceView) columnGroup(st models.NoteStatus) tree.Group {
	parent := v.openID
	status := st
	return tree.Group{ParentID: &parent, Status: &status}
}

// column returns the cards of one board column in order
func (v *WorkspaceView) column(i int) []models.Note {
	if v.openID == "" || i < 0 || i >= len(models.Statuses) {
		return nil
	}
	return v.engine.Members(v.columnGroup(models.Statuses[i]))
}

func (v *WorkspaceView) selectedCard() (models.Note, bool) {
	cards := v.column(v.boardCol)
	if v.boardRow < 0 || v.boardRow >= len(cards) {
		return models.Note{}, false
	}
	return cards[v.boardRow], true
}

func (v *WorkspaceView) updateBoard(msg tea.KeyMsg) tea.Cmd {
	last := len(models.Statuses) - 1

	if v.boardDrag && v.gesture.Dragging() {
		switch {
		case key.Matches(msg, v.keys.Left):
			v.dropCol = clamp(v.dropCol-1, 0, last)
			v.gesture.Over(dnd.OnColumn(models.Statuses[v.dropCol]))
		case key.Matches(msg, v.keys.Right):
			v.dropCol = clamp(v.dropCol+1, 0, last)
			v.gesture.Over(dnd.OnColumn(models.Statuses[v.dropCol]))
		case key.Matches(msg, v.keys.Enter):
			v.boardDrag = false
			req, ok := v.gesture.Drop()
			if !ok {
				return nil
			}
			v.boardCol = v.dropCol
			cmd := v.propose(req)
			v.boardRow = max(len(v.column(v.boardCol))-1, 0)
			return cmd
		case key.Matches(msg, v.keys.Back):
			v.boardDrag = false
			v.gesture.Cancel()
		}
		return nil
	}

	switch {
	case key.Matches(msg, v.keys.Left):
		v.boardCol = clamp(v.boardCol-1, 0, last)
		v.boardRow = clamp(v.boardRow, 0, max(len(v.column(v.boardCol))-1, 0))
	case key.Matches(msg, v.keys.Right):
		v.boardCol = clamp(v.boardCol+1, 0, last)
		v.boardRow = clamp(v.boardRow, 0, max(len(v.column(v.boardCol))-1, 0))
	case key.Matches(msg, v.keys.Up):
		if v.boardRow > 0 {
			v.boardRow--
		}
	case key.Matches(msg, v.keys.Down):
		if v.boardRow < len(v.column(v.boardCol))-1 {
			v.boardRow++
		}

	case key.Matches(msg, v.keys.Grab):
		if card, ok := v.selectedCard(); ok {
			v.gesture.Grab(card)
			v.boardDrag = true
			v.dropCol = v.boardCol
			v.gesture.Over(dnd.OnColumn(models.Statuses[v.dropCol]))
		}

	case key.Matches(msg, v.keys.MoveUp), key.Matches(msg, v.keys.MoveDown):
		card, ok := v.selectedCard()
		if !ok {
			return nil
		}
		delta := 1
		if key.Matches(msg, v.keys.MoveUp) {
			delta = -1
		}
		cmd := v.slotMove(card, v.columnGroup(card.Status), delta)
		v.boardRow = clamp(v.boardRow+delta, 0, max(len(v.column(v.boardCol))-1, 0))
		return cmd

	case key.Matches(msg, v.keys.Status):
		if card, ok := v.selectedCard(); ok {
			return v.propose(dnd.Request{Kind: dnd.RequestStatus, NoteID: card.ID, Status: card.Status.Next()})
		}

	case key.Matches(msg, v.keys.Enter):
		if card, ok := v.selectedCard(); ok {
			cmd := v.openNote(card.ID)
			v.focus = PanelEditor
			return cmd
		}

	case key.Matches(msg, v.keys.New):
		if v.openID != "" {
			id := v.openID
			return v.createNote(&id)
		}

	case key.Matches(msg, v.keys.Back):
		v.focus = PanelEditor
	}
	return nil
}

func (v *WorkspaceView) renderBoard() string {
	s := v.styles
	inner := v.mainWidth() - 4
	colWidth := max(inner/len(models.Statuses)-1, 12)
	height := v.boardHeight()

	cols := make([]string, 0, len(models.Statuses))
	for i, st := range models.Statuses {
		cards := v.column(i)

		header := lipgloss.NewStyle().Bold(true).Foreground(styles.StatusColor(st)).
			Render(fmt.Sprintf("%s (%d)", st.Label(), len(cards)))
		lines := []string{header}

		// keep the selected card in view
		capacity := max(height-3, 1)
		start := 0
		if v.focus == PanelBoard && i == v.boardCol && v.boardRow >= capacity {
			start = v.boardRow - capacity + 1
		}
		for j := start; j < len(cards) && j < start+capacity; j++ {
			card := cards[j]
			text := truncate(card.Title, colWidth-4)
			if card.Priority != nil {
				text = truncate(card.Title, colWidth-6) + " " +
					lipgloss.NewStyle().Foreground(styles.PriorityColor(card.Priority)).Render("▲")
			}
			style := s.Card
			switch {
			case v.gesture.Dragging() && card.ID == v.gesture.DraggedID():
				style = s.DragSource
			case v.focus == PanelBoard && i == v.boardCol && j == v.boardRow:
				style = s.CardSelected
			}
			lines = append(lines, style.Width(colWidth-2).Render(text))
		}
		if len(cards) == 0 {
			lines = append(lines, s.TitleMuted.Render("empty"))
		}

		colStyle := s.Column
		switch {
		case v.boardDrag && v.gesture.Dragging() && i == v.dropCol:
			colStyle = s.DropTarget
		case v.focus == PanelBoard && i == v.boardCol:
			colStyle = s.ColumnFocused
		}
		cols = append(cols, colStyle.Width(colWidth).Height(height).Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}
