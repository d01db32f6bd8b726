// Package dnd turns grab, hover and drop gestures over the sidebar tree and
// the kanban board into structural requests for the tree engine. It does not
// check for cycles; the engine rejects those.
package dnd

import (
	"slices"

	"go.uber.org/zap"

	"github.com/tgienger/stn/internal/logging"
	"github.com/tgienger/stn/internal/models"
	"github.com/tgienger/stn/internal/tree"
)

type TargetKind int

const (
	TargetNone TargetKind = iota
	// TargetNote drops onto a note, making it the new parent
	TargetNote
	// TargetRoot drops onto the root zone
	TargetRoot
	// TargetSlot drops between siblings at Index
	TargetSlot
	// TargetColumn drops onto a kanban status column
	TargetColumn
)

func (k TargetKind) String() string {
	switch k {
	case TargetNote:
		return "note"
	case TargetRoot:
		return "root"
	case TargetSlot:
		return "slot"
	case TargetColumn:
		return "column"
	}
	return "none"
}

// Target is what the pointer (or the cursor) is over
type Target struct {
	Kind   TargetKind
	NoteID string
	Group  tree.Group
	Index  int
	Status models.NoteStatus
}

func OnNote(id string) Target { return Target{Kind: TargetNote, NoteID: id} }

func OnRoot() Target { return Target{Kind: TargetRoot} }

// InSlot targets position index within a sibling group
func InSlot(g tree.Group, index int) Target {
	return Target{Kind: TargetSlot, Group: g, Index: index}
}

func OnColumn(s models.NoteStatus) Target { return Target{Kind: TargetColumn, Status: s} }

// Origin is where the dragged note was when it was grabbed
type Origin struct {
	ParentID *string
	Status   models.NoteStatus
}

type RequestKind int

const (
	RequestReparent RequestKind = iota + 1
	RequestReorder
	RequestStatus
)

// Request is a structural change asked for by a completed gesture
type Request struct {
	Kind     RequestKind
	NoteID   string
	ParentID *string // reparent; nil is root
	Group    tree.Group
	Index    int
	Status   models.NoteStatus
}

// Decide hands the request to the engine
func (r Request) Decide(e *tree.Engine) tree.Decision {
	switch r.Kind {
	case RequestReparent:
		return e.ProposeReparent(r.NoteID, r.ParentID)
	case RequestStatus:
		return e.ProposeStatus(r.NoteID, r.Status)
	case RequestReorder:
		members := e.Members(r.Group)
		order := make([]string, 0, len(members))
		for _, n := range members {
			order = append(order, n.ID)
		}
		order, ok := MoveTo(order, r.NoteID, r.Index)
		if !ok {
			return tree.Decision{Outcome: tree.Rejected, Err: tree.ErrGroupMismatch}
		}
		return e.ProposeReorder(r.Group, order)
	}
	return tree.Decision{Outcome: tree.Ignored}
}

// Gesture is the drag state machine. Idle until Grab, Dragging until Drop
// or Cancel.
type Gesture struct {
	logger *zap.Logger

	dragging bool
	id       string
	origin   Origin
	over     Target
}

func New(logger *zap.Logger) *Gesture {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gesture{logger: logger}
}

// Grab starts dragging a note. Grabbing while dragging replaces the gesture.
func (g *Gesture) Grab(n models.Note) {
	g.dragging = true
	g.id = n.ID
	g.origin = Origin{ParentID: copyID(n.ParentID), Status: n.Status}
	g.over = Target{}
	g.logger.Debug("grab", zap.String(logging.FieldNoteID, n.ID))
}

func (g *Gesture) Dragging() bool { return g.dragging }

// DraggedID returns the grabbed note, empty when idle
func (g *Gesture) DraggedID() string { return g.id }

func (g *Gesture) Origin() Origin { return g.origin }

// Target returns the current hover target
func (g *Gesture) Target() Target { return g.over }

// Over updates the hover target; ignored when idle
func (g *Gesture) Over(t Target) {
	if !g.dragging {
		return
	}
	g.over = t
}

// Cancel ends the gesture without a request
func (g *Gesture) Cancel() {
	if g.dragging {
		g.logger.Debug("drag cancelled", zap.String(logging.FieldNoteID, g.id))
	}
	*g = Gesture{logger: g.logger}
}

// Drop ends the gesture. ok is false when the drop asks for nothing: no
// target, the note itself, or the place it already is.
func (g *Gesture) Drop() (req Request, ok bool) {
	if !g.dragging {
		return Request{}, false
	}
	id, origin, t := g.id, g.origin, g.over
	g.Cancel()

	switch t.Kind {
	case TargetNote:
		if t.NoteID == id {
			return Request{}, false
		}
		parent := t.NoteID
		req = Request{Kind: RequestReparent, NoteID: id, ParentID: &parent}
	case TargetRoot:
		if origin.ParentID == nil {
			return Request{}, false
		}
		req = Request{Kind: RequestReparent, NoteID: id}
	case TargetSlot:
		if !models.SameParent(t.Group.ParentID, origin.ParentID) {
			req = Request{Kind: RequestReparent, NoteID: id, ParentID: copyID(t.Group.ParentID)}
			break
		}
		req = Request{Kind: RequestReorder, NoteID: id, Group: t.Group, Index: t.Index}
	case TargetColumn:
		if t.Status == origin.Status {
			return Request{}, false
		}
		req = Request{Kind: RequestStatus, NoteID: id, Status: t.Status}
	default:
		return Request{}, false
	}
	g.logger.Debug("drop",
		zap.String(logging.FieldNoteID, id),
		zap.String(logging.FieldTarget, t.Kind.String()),
	)
	return req, true
}

func copyID(p *string) *string {
	if p == nil {
		return nil
	}
	return models.StringPtr(*p)
}

// MoveTo moves id to index within order, clamping the index. ok is false
// when id is not in order.
func MoveTo(order []string, id string, index int) ([]string, bool) {
	from := slices.Index(order, id)
	if from < 0 {
		return order, false
	}
	out := slices.Delete(slices.Clone(order), from, from+1)
	index = max(0, min(index, len(out)))
	return slices.Insert(out, index, id), true
}

// Step moves id delta places within order, used by keyboard reordering
func Step(order []string, id string, delta int) ([]string, bool) {
	from := slices.Index(order, id)
	if from < 0 {
		return order, false
	}
	return MoveTo(order, id, from+delta)
}
