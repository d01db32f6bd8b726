package tree

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/tgienger/stn/internal/logging"
	"github.com/tgienger/stn/internal/models"
)

var (
	ErrSelfParent    = errors.New("a note cannot be its own parent")
	ErrCycle         = errors.New("cannot move a note under its own descendant")
	ErrUnknownNote   = errors.New("unknown note")
	ErrGroupMismatch = errors.New("order does not match the sibling group")
	ErrInvalidStatus = errors.New("invalid status")
)

// Updater is the part of the remote client the engine talks to
type Updater interface {
	UpdateNote(ctx context.Context, id string, data models.UpdateNoteData) (*models.Note, error)
	ReorderNotes(ctx context.Context, items []models.ReorderItem) error
}

// Outcome classifies a proposal
type Outcome int

const (
	Ignored Outcome = iota
	Accepted
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	default:
		return "ignored"
	}
}

// Kind is the type of structural mutation
type Kind int

const (
	KindReparent Kind = iota + 1
	KindReorder
	KindStatus
)

func (k Kind) String() string {
	switch k {
	case KindReparent:
		return "reparent"
	case KindReorder:
		return "reorder"
	case KindStatus:
		return "status"
	}
	return "unknown"
}

// Mutation is one server call produced by an accepted proposal
type Mutation struct {
	Kind   Kind
	Seq    uint64
	NoteID string                // reparent, status
	Update models.UpdateNoteData // reparent, status
	Items  []models.ReorderItem  // reorder
}

// NoteIDs returns every note the mutation touches
func (m Mutation) NoteIDs() []string {
	if m.Kind == KindReorder {
		ids := make([]string, len(m.Items))
		for i, it := range m.Items {
			ids[i] = it.ID
		}
		return ids
	}
	return []string{m.NoteID}
}

// Decision is the answer to a proposal
type Decision struct {
	Outcome  Outcome
	Err      error // reason, when rejected
	Mutation *Mutation
}

// Result is the answer of the server to a mutation
type Result struct {
	Mutation Mutation
	Note     *models.Note // updated record, for reparent and status
	Err      error
}

// ReconcileOutcome tells the caller what a result did to the working set
type ReconcileOutcome int

const (
	// Applied means the server record replaced the optimistic one
	Applied ReconcileOutcome = iota + 1
	// Superseded means a newer mutation of the same note is still pending
	Superseded
	// Failed means the caller must invalidate and refetch
	Failed
)

// Group is a set of siblings that can be reordered together
type Group struct {
	ParentID *string
	Status   *models.NoteStatus // kanban column, nil for the whole sibling list
}

// Contains reports whether the note belongs to the group
func (g Group) Contains(n models.Note) bool {
	if !n.ParentIs(g.ParentID) {
		return false
	}
	return g.Status == nil || n.Status == *g.Status
}

type pending struct {
	seq   uint64
	apply func(n *models.Note)
}

// Engine holds the working note set and applies structural moves to it
// optimistically. It is not safe for concurrent use; only Send may run off
// the owning loop.
type Engine struct {
	remote Updater
	logger *zap.Logger

	base    map[string]models.Note // last known server state
	order   []string
	overlay map[string][]pending // optimistic edits not yet confirmed
	latest  map[string]uint64 // newest seq issued per note while any is in flight
	sent    map[string]int    // mutations per note awaiting an answer
	seq     uint64

	forest *Forest
}

// NewEngine returns an empty engine
func NewEngine(remote Updater, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		remote:  remote,
		logger:  logger,
		base:    make(map[string]models.Note),
		overlay: make(map[string][]pending),
		latest:  make(map[string]uint64),
		sent:    make(map[string]int),
	}
}

// Load replaces the working set. Optimistic edits still in flight are laid
// over the new records until their responses arrive.
func (e *Engine) Load(notes []models.Note) {
	flat := Flatten(notes)
	e.base = make(map[string]models.Note, len(flat))
	e.order = e.order[:0]
	for _, n := range flat {
		e.base[n.ID] = n
		e.order = append(e.order, n.ID)
	}
	for id := range e.overlay {
		if _, ok := e.base[id]; !ok {
			delete(e.overlay, id)
		}
	}
	for id := range e.latest {
		if _, ok := e.base[id]; !ok {
			e.forget(id)
		}
	}
	e.forest = nil
}

// Upsert inserts or replaces a single server record, e.g. a created note
func (e *Engine) Upsert(n models.Note) {
	n = n.Clone()
	n.Children = nil
	if _, ok := e.base[n.ID]; !ok {
		e.order = append(e.order, n.ID)
	}
	e.base[n.ID] = n
	e.forest = nil
}

// Remove drops a note after the server confirmed its archival or deletion
func (e *Engine) Remove(id string) {
	if _, ok := e.base[id]; !ok {
		return
	}
	delete(e.base, id)
	delete(e.overlay, id)
	e.forget(id)
	for i, o := range e.order {
		if o == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	e.forest = nil
}

// Note returns the working copy of a note
func (e *Engine) Note(id string) (models.Note, bool) {
	n, ok := e.base[id]
	if !ok {
		return models.Note{}, false
	}
	return e.view(n), true
}

// Notes returns every working copy in load order
func (e *Engine) Notes() []models.Note {
	out := make([]models.Note, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.view(e.base[id]))
	}
	return out
}

// Forest returns the current forest, rebuilt lazily after changes
func (e *Engine) Forest() *Forest {
	if e.forest == nil {
		e.forest = BuildForest(e.Notes())
	}
	return e.forest
}

// Pending reports whether any optimistic edit is waiting for the server
func (e *Engine) Pending() bool {
	return len(e.overlay) > 0
}

func (e *Engine) view(n models.Note) models.Note {
	edits := e.overlay[n.ID]
	if len(edits) == 0 {
		return n
	}
	v := n.Clone()
	for _, p := range edits {
		p.apply(&v)
	}
	return v
}

func (e *Engine) push(id string, seq uint64, apply func(n *models.Note)) {
	e.overlay[id] = append(e.overlay[id], pending{seq: seq, apply: apply})
	e.latest[id] = seq
	e.sent[id]++
	e.forest = nil
}

// settle counts one answer for id. The newest seq is kept until the last
// answer arrives so that a late older answer still reads as superseded.
func (e *Engine) settle(id string) {
	if e.sent[id]--; e.sent[id] <= 0 {
		e.forget(id)
	}
}

func (e *Engine) forget(id string) {
	delete(e.latest, id)
	delete(e.sent, id)
}

// drop removes optimistic edits of id up to and including seq
func (e *Engine) drop(id string, seq uint64) {
	edits := e.overlay[id]
	keep := edits[:0]
	for _, p := range edits {
		if p.seq > seq {
			keep = append(keep, p)
		}
	}
	if len(keep) == 0 {
		delete(e.overlay, id)
	} else {
		e.overlay[id] = keep
	}
	e.forest = nil
}

func rejected(err error) Decision {
	return Decision{Outcome: Rejected, Err: err}
}

// ProposeReparent moves draggedID under targetParentID (nil = root)
func (e *Engine) ProposeReparent(draggedID string, targetParentID *string) Decision {
	dragged, ok := e.Note(draggedID)
	if !ok {
		return rejected(ErrUnknownNote)
	}
	if targetParentID != nil {
		target := *targetParentID
		if target == draggedID {
			return rejected(ErrSelfParent)
		}
		if _, ok := e.base[target]; !ok {
			return rejected(ErrUnknownNote)
		}
		if e.Forest().IsDescendant(draggedID, target) {
			e.logger.Debug("reparent rejected",
				zap.String(logging.FieldNoteID, draggedID),
				zap.String(logging.FieldTarget, target),
			)
			return rejected(ErrCycle)
		}
	}
	if dragged.ParentIs(targetParentID) {
		return Decision{Outcome: Ignored}
	}

	e.seq++
	parent := models.From(targetParentID)
	m := &Mutation{
		Kind:   KindReparent,
		Seq:    e.seq,
		NoteID: draggedID,
		Update: models.UpdateNoteData{ParentID: parent},
	}
	e.push(draggedID, m.Seq, func(n *models.Note) {
		n.ParentID = parent.Value
	})
	return Decision{Outcome: Accepted, Mutation: m}
}

// ProposeStatus moves a note into another status column
func (e *Engine) ProposeStatus(id string, status models.NoteStatus) Decision {
	n, ok := e.Note(id)
	if !ok {
		return rejected(ErrUnknownNote)
	}
	if !status.Valid() {
		return rejected(ErrInvalidStatus)
	}
	if n.Status == status {
		return Decision{Outcome: Ignored}
	}

	e.seq++
	m := &Mutation{
		Kind:   KindStatus,
		Seq:    e.seq,
		NoteID: id,
		Update: models.UpdateNoteData{Status: &status},
	}
	e.push(id, m.Seq, func(n *models.Note) {
		n.Status = status
	})
	return Decision{Outcome: Accepted, Mutation: m}
}

// Members returns the notes of a group in their current order
func (e *Engine) Members(g Group) []models.Note {
	var out []models.Note
	for _, id := range e.order {
		n := e.view(e.base[id])
		if g.Contains(n) {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}

// ProposeReorder gives the group the order of orderedIDs
func (e *Engine) ProposeReorder(g Group, orderedIDs []string) Decision {
	members := e.Members(g)
	if len(members) != len(orderedIDs) {
		return rejected(ErrGroupMismatch)
	}
	byID := make(map[string]models.Note, len(members))
	for _, n := range members {
		byID[n.ID] = n
	}
	seen := make(map[string]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if _, ok := byID[id]; !ok || seen[id] {
			return rejected(ErrGroupMismatch)
		}
		seen[id] = true
	}

	unchanged := true
	for i, n := range members {
		if n.ID != orderedIDs[i] {
			unchanged = false
			break
		}
	}
	if unchanged {
		return Decision{Outcome: Ignored}
	}

	slots := make([]float64, len(members))
	for i, n := range members {
		slots[i] = n.Position
	}
	sort.Float64s(slots)
	for i := 1; i < len(slots); i++ {
		if slots[i] == slots[i-1] {
			for j := range slots {
				slots[j] = float64(j)
			}
			break
		}
	}

	var items []models.ReorderItem
	for i, id := range orderedIDs {
		if byID[id].Position != slots[i] {
			items = append(items, models.ReorderItem{ID: id, Position: slots[i]})
		}
	}
	if len(items) == 0 {
		return Decision{Outcome: Ignored}
	}

	e.seq++
	m := &Mutation{Kind: KindReorder, Seq: e.seq, Items: items}
	for _, it := range items {
		pos := it.Position
		e.push(it.ID, m.Seq, func(n *models.Note) {
			n.Position = pos
		})
	}
	return Decision{Outcome: Accepted, Mutation: m}
}

// Send performs the server call of a mutation. It does not touch the
// working set and may run on any goroutine.
func (e *Engine) Send(ctx context.Context, m Mutation) Result {
	r := Result{Mutation: m}
	switch m.Kind {
	case KindReparent, KindStatus:
		r.Note, r.Err = e.remote.UpdateNote(ctx, m.NoteID, m.Update)
	case KindReorder:
		r.Err = e.remote.ReorderNotes(ctx, m.Items)
	default:
		r.Err = errors.New("unknown mutation")
	}
	return r
}

// Reconcile merges a server answer into the working set
func (e *Engine) Reconcile(r Result) ReconcileOutcome {
	m := r.Mutation
	ids := m.NoteIDs()

	if r.Err != nil {
		for _, id := range ids {
			e.drop(id, m.Seq)
			e.settle(id)
		}
		e.logger.Warn("mutation failed",
			zap.String(logging.FieldAction, m.Kind.String()),
			zap.Strings(logging.FieldNoteIDs, ids),
			zap.Error(r.Err),
		)
		return Failed
	}

	outcome := Applied
	switch m.Kind {
	case KindReparent, KindStatus:
		if r.Note != nil {
			if _, ok := e.base[m.NoteID]; ok {
				n := r.Note.Clone()
				n.Children = nil
				e.base[m.NoteID] = n
			}
		} else if b, ok := e.base[m.NoteID]; ok {
			m.Update.ApplyTo(&b)
			e.base[m.NoteID] = b
		}
	case KindReorder:
		for _, it := range m.Items {
			if b, ok := e.base[it.ID]; ok {
				b.Position = it.Position
				e.base[it.ID] = b
			}
		}
	}
	for _, id := range ids {
		if e.latest[id] > m.Seq {
			outcome = Superseded
		}
		e.drop(id, m.Seq)
		e.settle(id)
	}
	e.forest = nil
	return outcome
}

// Apply sends an accepted decision and reconciles the answer
func (e *Engine) Apply(ctx context.Context, d Decision) error {
	if d.Outcome != Accepted || d.Mutation == nil {
		return d.Err
	}
	r := e.Send(ctx, *d.Mutation)
	e.Reconcile(r)
	return r.Err
}
