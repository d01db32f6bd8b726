package autosave

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/tgienger/stn/internal/models"
)

// Field names an editable note field
type Field string

const (
	FieldTitle    Field = "title"
	FieldContent  Field = "content"
	FieldFavorite Field = "isFavorite"
	FieldStatus   Field = "status"
	FieldPriority Field = "priority"
	FieldDueDate  Field = "dueDate"
	FieldTags     Field = "tags"
)

// Fields lists every editable field
var Fields = []Field{FieldTitle, FieldContent, FieldFavorite, FieldStatus, FieldPriority, FieldDueDate, FieldTags}

// Debounced reports whether edits to the field wait for the quiet interval
func (f Field) Debounced() bool {
	return f == FieldTitle || f == FieldContent
}

// Form is the editable snapshot of a note
type Form struct {
	Title      string
	Content    json.RawMessage
	IsFavorite bool
	Status     models.NoteStatus
	Priority   *models.NotePriority
	DueDate    *time.Time
	Tags       []string
}

// FormFromNote copies the editable fields of a note
func FormFromNote(n models.Note) Form {
	f := Form{
		Title:      n.Title,
		IsFavorite: n.IsFavorite,
		Status:     n.Status,
		Tags:       n.TagIDs(),
	}
	if n.Content != nil {
		f.Content = append(json.RawMessage(nil), n.Content...)
	}
	if n.Priority != nil {
		p := *n.Priority
		f.Priority = &p
	}
	if n.DueDate != nil {
		d := *n.DueDate
		f.DueDate = &d
	}
	return f
}

// Update returns the full snapshot as an update payload. An empty title is
// left out so the note keeps its last saved one.
func (f Form) Update() models.UpdateNoteData {
	u := models.UpdateNoteData{
		IsFavorite: &f.IsFavorite,
		Priority:   models.From(f.Priority),
		DueDate:    models.From(f.DueDate),
		Tags:       append([]string{}, f.Tags...),
	}
	if strings.TrimSpace(f.Title) != "" {
		title := f.Title
		u.Title = &title
	}
	if f.Content != nil {
		u.Content = append(json.RawMessage(nil), f.Content...)
	}
	if f.Status.Valid() {
		status := f.Status
		u.Status = &status
	}
	return u
}

// copyField copies one field from src into f
func (f *Form) copyField(field Field, src Form) {
	switch field {
	case FieldTitle:
		f.Title = src.Title
	case FieldContent:
		f.Content = src.Content
	case FieldFavorite:
		f.IsFavorite = src.IsFavorite
	case FieldStatus:
		f.Status = src.Status
	case FieldPriority:
		f.Priority = src.Priority
	case FieldDueDate:
		f.DueDate = src.DueDate
	case FieldTags:
		f.Tags = src.Tags
	}
}

// set assigns a field from an untyped value
func (f *Form) set(field Field, value any) error {
	switch field {
	case FieldTitle:
		v, ok := value.(string)
		if !ok {
			return ErrValueType
		}
		f.Title = v
	case FieldContent:
		switch v := value.(type) {
		case json.RawMessage:
			f.Content = append(json.RawMessage(nil), v...)
		case []byte:
			f.Content = append(json.RawMessage(nil), v...)
		case nil:
			f.Content = nil
		default:
			return ErrValueType
		}
	case FieldFavorite:
		v, ok := value.(bool)
		if !ok {
			return ErrValueType
		}
		f.IsFavorite = v
	case FieldStatus:
		v, ok := value.(models.NoteStatus)
		if !ok || !v.Valid() {
			return ErrValueType
		}
		f.Status = v
	case FieldPriority:
		switch v := value.(type) {
		case models.NotePriority:
			if !v.Valid() {
				return ErrValueType
			}
			f.Priority = &v
		case *models.NotePriority:
			if v != nil && !v.Valid() {
				return ErrValueType
			}
			if v == nil {
				f.Priority = nil
			} else {
				p := *v
				f.Priority = &p
			}
		case nil:
			f.Priority = nil
		default:
			return ErrValueType
		}
	case FieldDueDate:
		switch v := value.(type) {
		case time.Time:
			f.DueDate = &v
		case *time.Time:
			if v == nil {
				f.DueDate = nil
			} else {
				d := *v
				f.DueDate = &d
			}
		case nil:
			f.DueDate = nil
		default:
			return ErrValueType
		}
	case FieldTags:
		v, ok := value.([]string)
		if !ok {
			return ErrValueType
		}
		f.Tags = append([]string{}, v...)
	default:
		return ErrUnknownField
	}
	return nil
}

// Equal compares two forms field by field
func (f Form) Equal(o Form) bool {
	return f.Title == o.Title &&
		bytes.Equal(f.Content, o.Content) &&
		f.IsFavorite == o.IsFavorite &&
		f.Status == o.Status &&
		ptrEqual(f.Priority, o.Priority) &&
		timeEqual(f.DueDate, o.DueDate) &&
		slices.Equal(f.Tags, o.Tags)
}

func ptrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
