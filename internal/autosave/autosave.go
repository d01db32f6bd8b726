// Package autosave decides when edits of the open note are sent to the
// server and which server answers may update the editor form.
//
// The coordinator owns no timers. Debounced edits return a Tick that the
// caller delivers back through OnTick after the quiet interval; a newer edit
// makes every earlier tick a no-op.
package autosave

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/tgienger/stn/internal/logging"
	"github.com/tgienger/stn/internal/models"
)

// QuietInterval is the default pause after the last keystroke before saving
const QuietInterval = 2 * time.Second

var (
	ErrUnknownField = errors.New("unknown field")
	ErrValueType    = errors.New("invalid value for field")
	ErrNoNote       = errors.New("no note loaded")
	ErrNotDebounced = errors.New("field is saved instantly")
	ErrDebounced    = errors.New("field is debounced")
)

// State is the save indicator shown next to the editor
type State int

const (
	Clean State = iota
	Dirty
	Saving
	NotSaved
)

func (s State) String() string {
	switch s {
	case Dirty:
		return "unsaved"
	case Saving:
		return "saving"
	case NotSaved:
		return "not saved"
	default:
		return "saved"
	}
}

// Tick is a debounce token
type Tick struct {
	NoteID string
	Gen    uint64
	Seq    uint64
}

// Request is one update call to issue
type Request struct {
	NoteID  string
	Gen     uint64
	Version uint64 // request counter of the session
	EditSeq uint64 // last edit covered by Data
	Data    models.UpdateNoteData
}

// Outcome classifies a save response
type Outcome int

const (
	// Saved means the response was the latest and became the new baseline
	Saved Outcome = iota + 1
	// Stale means a newer request was issued; the body is ignored
	Stale
	// Discarded means the response belongs to another note or session
	Discarded
	// Failed means the latest request failed; edits are kept
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Saved:
		return "saved"
	case Stale:
		return "stale"
	case Discarded:
		return "discarded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Coordinator tracks the form of the open note. It is driven from a single
// event loop and is not safe for concurrent use.
type Coordinator struct {
	logger *zap.Logger

	loaded   bool
	noteID   string
	gen      uint64
	form     Form
	baseline Form

	editSeq   uint64
	fieldSeq  map[Field]uint64
	debounced uint64 // seq of the latest debounced edit
	issued    uint64 // highest edit covered by an issued request
	acked     uint64 // highest edit confirmed by the server

	version  uint64
	awaiting bool
	failed   bool
	lastErr  error
}

// New returns an empty coordinator
func New(logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{logger: logger, fieldSeq: make(map[Field]uint64)}
}

// Load starts editing n. Loading another note starts a new session so every
// outstanding tick and response of the previous one is ignored. Reloading the
// open note keeps the fields edited locally since the last confirmed save.
// Loading never produces a save.
func (c *Coordinator) Load(n models.Note) {
	server := FormFromNote(n)
	if c.loaded && c.noteID == n.ID {
		merged := server
		for _, f := range Fields {
			if c.fieldSeq[f] > c.acked {
				merged.copyField(f, c.form)
			}
		}
		c.form = merged
		c.baseline = server
		return
	}

	c.gen++
	c.loaded = true
	c.noteID = n.ID
	c.form = server
	c.baseline = server
	c.fieldSeq = make(map[Field]uint64)
	c.debounced = 0
	c.issued = c.editSeq
	c.acked = c.editSeq
	c.awaiting = false
	c.failed = false
	c.lastErr = nil
	c.logger.Debug("autosave session",
		zap.String(logging.FieldNoteID, n.ID),
		zap.Uint64(logging.FieldGeneration, c.gen),
	)
}

// Unload ends the session, e.g. when the open note was deleted
func (c *Coordinator) Unload() {
	c.gen++
	c.loaded = false
	c.noteID = ""
	c.form = Form{}
	c.baseline = Form{}
	c.awaiting = false
	c.failed = false
}

// Loaded reports whether a note is open
func (c *Coordinator) Loaded() bool { return c.loaded }

// NoteID returns the id of the open note
func (c *Coordinator) NoteID() string { return c.noteID }

// Gen returns the session generation
func (c *Coordinator) Gen() uint64 { return c.gen }

// Form returns the current form values
func (c *Coordinator) Form() Form { return c.form }

// Baseline returns the last known server values
func (c *Coordinator) Baseline() Form { return c.baseline }

// Err returns the error of the last failed save
func (c *Coordinator) Err() error { return c.lastErr }

// State returns the indicator state
func (c *Coordinator) State() State {
	switch {
	case !c.loaded:
		return Clean
	case c.failed:
		return NotSaved
	case c.editSeq > c.issued:
		return Dirty
	case c.awaiting:
		return Saving
	default:
		return Clean
	}
}

// Dirty reports whether edits have not been issued yet
func (c *Coordinator) Dirty() bool {
	return c.loaded && c.editSeq > c.issued
}

func (c *Coordinator) edit(field Field, value any) error {
	if !c.loaded {
		return ErrNoNote
	}
	if err := c.form.set(field, value); err != nil {
		return err
	}
	c.editSeq++
	c.fieldSeq[field] = c.editSeq
	return nil
}

// OnFieldChange records an edit of a debounced field and returns the token
// to deliver back after the quiet interval
func (c *Coordinator) OnFieldChange(field Field, value any) (Tick, error) {
	if !knownField(field) {
		return Tick{}, ErrUnknownField
	}
	if !field.Debounced() {
		return Tick{}, ErrNotDebounced
	}
	if err := c.edit(field, value); err != nil {
		return Tick{}, err
	}
	c.debounced = c.editSeq
	return Tick{NoteID: c.noteID, Gen: c.gen, Seq: c.editSeq}, nil
}

// OnTick returns the save to issue when the tick is still the latest
// debounced edit and some edits are not covered by an issued request
func (c *Coordinator) OnTick(t Tick) (Request, bool) {
	if !c.loaded || t.NoteID != c.noteID || t.Gen != c.gen {
		return Request{}, false
	}
	if t.Seq != c.debounced || c.editSeq <= c.issued {
		return Request{}, false
	}
	return c.issue(), true
}

// OnInstantChange merges an instant field into the form and returns the
// save to issue right away. The request carries the whole form, including
// debounced edits still waiting for their tick.
func (c *Coordinator) OnInstantChange(field Field, value any) (Request, error) {
	if field.Debounced() {
		return Request{}, ErrDebounced
	}
	if !knownField(field) {
		return Request{}, ErrUnknownField
	}
	if err := c.edit(field, value); err != nil {
		return Request{}, err
	}
	return c.issue(), nil
}

// Flush returns a save of pending edits, used before leaving the note
func (c *Coordinator) Flush() (Request, bool) {
	if !c.Dirty() {
		return Request{}, false
	}
	return c.issue(), true
}

func (c *Coordinator) issue() Request {
	c.version++
	c.issued = c.editSeq
	c.awaiting = true
	c.failed = false
	req := Request{
		NoteID:  c.noteID,
		Gen:     c.gen,
		Version: c.version,
		EditSeq: c.editSeq,
		Data:    c.form.Update(),
	}
	c.logger.Debug("autosave issue",
		zap.String(logging.FieldNoteID, req.NoteID),
		zap.Uint64(logging.FieldGeneration, req.Gen),
		zap.Uint64(logging.FieldSeq, req.EditSeq),
	)
	return req
}

// OnSaveResult merges the answer to req
func (c *Coordinator) OnSaveResult(req Request, note *models.Note, err error) Outcome {
	if !c.loaded || req.NoteID != c.noteID || req.Gen != c.gen {
		return Discarded
	}
	if req.Version != c.version {
		return Stale
	}
	c.awaiting = false

	if err != nil {
		// the edits count as pending again; nothing is reissued until the
		// next edit or an explicit flush
		c.issued = c.acked
		if c.debounced <= req.EditSeq {
			c.debounced = 0
		}
		c.failed = true
		c.lastErr = err
		c.logger.Warn("autosave failed",
			zap.String(logging.FieldNoteID, req.NoteID),
			zap.Error(err),
		)
		return Failed
	}

	c.failed = false
	c.lastErr = nil
	c.acked = req.EditSeq
	if note == nil {
		c.baseline = c.form
		return Saved
	}
	server := FormFromNote(*note)
	merged := server
	for _, f := range Fields {
		if c.fieldSeq[f] > req.EditSeq {
			merged.copyField(f, c.form)
		}
	}
	c.form = merged
	c.baseline = server
	return Saved
}

func knownField(f Field) bool {
	for _, k := range Fields {
		if k == f {
			return true
		}
	}
	return false
}
