package dnd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/stn/internal/models"
	"github.com/tgienger/stn/internal/tree"
)

type nopRemote struct{}

func (nopRemote) UpdateNote(context.Context, string, models.UpdateNoteData) (*models.Note, error) {
	return nil, nil
}

func (nopRemote) ReorderNotes(context.Context, []models.ReorderItem) error { return nil }

func note(id string, parent string, pos float64) models.Note {
	n := models.Note{ID: id, Title: id, Position: pos, Status: models.StatusNotStarted}
	if parent != "" {
		n.ParentID = models.StringPtr(parent)
	}
	return n
}

func TestDropWithoutTargetOrOnSelf(t *testing.T) {
	g := New(nil)
	_, ok := g.Drop()
	assert.False(t, ok, "idle drop")

	g.Grab(note("a", "", 0))
	_, ok = g.Drop()
	assert.False(t, ok, "no target")
	assert.False(t, g.Dragging())

	g.Grab(note("a", "", 0))
	g.Over(OnNote("a"))
	_, ok = g.Drop()
	assert.False(t, ok, "onto itself")
}

func TestDropOnNoteAndRoot(t *testing.T) {
	g := New(nil)
	g.Grab(note("b", "", 1))
	g.Over(OnNote("a"))
	req, ok := g.Drop()
	require.True(t, ok)
	assert.Equal(t, RequestReparent, req.Kind)
	require.NotNil(t, req.ParentID)
	assert.Equal(t, "a", *req.ParentID)

	g.Grab(note("c", "a", 0))
	g.Over(OnRoot())
	req, ok = g.Drop()
	require.True(t, ok)
	assert.Equal(t, RequestReparent, req.Kind)
	assert.Nil(t, req.ParentID)

	g.Grab(note("a", "", 0))
	g.Over(OnRoot())
	_, ok = g.Drop()
	assert.False(t, ok, "already a root")
}

func TestOverIgnoredWhenIdle(t *testing.T) {
	g := New(nil)
	g.Over(OnRoot())
	assert.Equal(t, TargetNone, g.Target().Kind)
}

func TestCancel(t *testing.T) {
	g := New(nil)
	g.Grab(note("a", "", 0))
	g.Over(OnNote("b"))
	g.Cancel()
	assert.False(t, g.Dragging())
	assert.Empty(t, g.DraggedID())
	_, ok := g.Drop()
	assert.False(t, ok)
}

func TestColumnDrop(t *testing.T) {
	g := New(nil)
	g.Grab(note("a", "p", 0))
	g.Over(OnColumn(models.StatusNotStarted))
	_, ok := g.Drop()
	assert.False(t, ok, "same column")

	g.Grab(note("a", "p", 0))
	g.Over(OnColumn(models.StatusDone))
	req, ok := g.Drop()
	require.True(t, ok)
	assert.Equal(t, RequestStatus, req.Kind)
	assert.Equal(t, models.StatusDone, req.Status)
}

func TestSlotInAnotherGroupReparents(t *testing.T) {
	g := New(nil)
	g.Grab(note("a", "", 0))
	g.Over(InSlot(tree.Group{ParentID: models.StringPtr("p")}, 0))
	req, ok := g.Drop()
	require.True(t, ok)
	assert.Equal(t, RequestReparent, req.Kind)
	assert.Equal(t, "p", *req.ParentID)
}

func TestSlotDropReordersThroughEngine(t *testing.T) {
	notes := []models.Note{note("a", "", 0), note("b", "", 1), note("c", "", 2)}
	e := tree.NewEngine(nopRemote{}, nil)
	e.Load(notes)

	g := New(nil)
	g.Grab(notes[2])
	g.Over(InSlot(tree.Group{}, 0))
	req, ok := g.Drop()
	require.True(t, ok)
	assert.Equal(t, RequestReorder, req.Kind)

	d := req.Decide(e)
	require.Equal(t, tree.Accepted, d.Outcome)
	assert.Len(t, d.Mutation.Items, 3)

	var got []string
	for _, n := range e.Members(tree.Group{}) {
		got = append(got, n.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, got)
}

func TestReparentIntoDescendantIsRejected(t *testing.T) {
	e := tree.NewEngine(nopRemote{}, nil)
	parent := note("n2", "", 0)
	child := note("n1", "n2", 0)
	e.Load([]models.Note{parent, child})

	g := New(nil)
	g.Grab(parent)
	g.Over(OnNote("n1"))
	req, ok := g.Drop()
	require.True(t, ok)

	d := req.Decide(e)
	assert.Equal(t, tree.Rejected, d.Outcome)
	assert.ErrorIs(t, d.Err, tree.ErrCycle)
}

func TestMoveToAndStep(t *testing.T) {
	order := []string{"a", "b", "c"}

	got, ok := MoveTo(order, "a", 2)
	require.True(t, ok)
	assert.Equal(t, []string{"b", "c", "a"}, got)
	assert.Equal(t, []string{"a", "b", "c"}, order)

	got, _ = MoveTo(order, "c", -5)
	assert.Equal(t, []string{"c", "a", "b"}, got)

	got, _ = Step(order, "b", -1)
	assert.Equal(t, []string{"b", "a", "c"}, got)
	got, _ = Step(order, "c", 1)
	assert.Equal(t, order, got)

	_, ok = Step(order, "z", 1)
	assert.False(t, ok)
}
