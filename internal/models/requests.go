package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a request payload against its struct tags
func Validate(v any) error {
	return validate.Struct(v)
}

// Credentials are sent to /auth/login
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Registration is sent to /auth/register
type Registration struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// CreateNoteData is the body of POST /notes
type CreateNoteData struct {
	Title    string          `json:"title" validate:"required,min=1"`
	Content  json.RawMessage `json:"content,omitempty"`
	ParentID *string         `json:"parentId,omitempty"`
}

// TagData is the body of POST/PUT /tags
type TagData struct {
	Name  string `json:"name,omitempty" validate:"omitempty,min=1"`
	Color string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// ReorderItem assigns a position to one note
type ReorderItem struct {
	ID       string  `json:"id" validate:"required"`
	Position float64 `json:"position"`
}

// ReorderNotesData is the body of PATCH /notes/reorder
type ReorderNotesData struct {
	Notes []ReorderItem `json:"notes" validate:"required,min=1,dive"`
}

// Nullable distinguishes an absent field from an explicit null
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// Some returns a set, non-null value
func Some[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

// Null returns a set, explicit null
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

// From returns a set value that is null when p is nil
func From[T any](p *T) Nullable[T] {
	if p == nil {
		return Null[T]()
	}
	v := *p
	return Some(v)
}

// UpdateNoteData is the partial body of PUT /notes/{id}.
// Unset fields are omitted from the wire form.
type UpdateNoteData struct {
	Title      *string         `validate:"omitnil,min=1"`
	Content    json.RawMessage `validate:"-"`
	IsFavorite *bool
	Status     *NoteStatus `validate:"omitnil,oneof=NOT_STARTED IN_PROGRESS DONE"`
	Priority   Nullable[NotePriority]
	DueDate    Nullable[time.Time]
	ParentID   Nullable[string]
	Tags       []string `validate:"omitempty,dive,required"`
}

// IsEmpty reports whether no field is set
func (u UpdateNoteData) IsEmpty() bool {
	return u.Title == nil && u.Content == nil && u.IsFavorite == nil && u.Status == nil &&
		!u.Priority.Set && !u.DueDate.Set && !u.ParentID.Set && u.Tags == nil
}

// Validate checks tags plus the nullable enum
func (u UpdateNoteData) Validate() error {
	if err := Validate(u); err != nil {
		return err
	}
	if u.Priority.Value != nil && !u.Priority.Value.Valid() {
		return fmt.Errorf("invalid priority %q", *u.Priority.Value)
	}
	return nil
}

// MarshalJSON writes only the fields that were set
func (u UpdateNoteData) MarshalJSON() ([]byte, error) {
	out := make(map[string]any)
	if u.Title != nil {
		out["title"] = *u.Title
	}
	if u.Content != nil {
		out["content"] = u.Content
	}
	if u.IsFavorite != nil {
		out["isFavorite"] = *u.IsFavorite
	}
	if u.Status != nil {
		out["status"] = *u.Status
	}
	if u.Priority.Set {
		out["priority"] = u.Priority.Value
	}
	if u.DueDate.Set {
		if u.DueDate.Value == nil {
			out["dueDate"] = nil
		} else {
			out["dueDate"] = u.DueDate.Value.UTC().Format(time.RFC3339)
		}
	}
	if u.ParentID.Set {
		out["parentId"] = u.ParentID.Value
	}
	if u.Tags != nil {
		out["tags"] = u.Tags
	}
	return sonic.Marshal(out)
}

// UnmarshalJSON reads a partial update, keeping explicit nulls
func (u *UpdateNoteData) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = UpdateNoteData{}
	isNull := func(b json.RawMessage) bool { return string(b) == "null" }

	if b, ok := raw["title"]; ok && !isNull(b) {
		var s string
		if err := sonic.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("title: %w", err)
		}
		u.Title = &s
	}
	if b, ok := raw["content"]; ok {
		u.Content = append(json.RawMessage(nil), b...)
	}
	if b, ok := raw["isFavorite"]; ok && !isNull(b) {
		var v bool
		if err := sonic.Unmarshal(b, &v); err != nil {
			return fmt.Errorf("isFavorite: %w", err)
		}
		u.IsFavorite = &v
	}
	if b, ok := raw["status"]; ok && !isNull(b) {
		var s NoteStatus
		if err := sonic.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("status: %w", err)
		}
		u.Status = &s
	}
	if b, ok := raw["priority"]; ok {
		u.Priority = Null[NotePriority]()
		if !isNull(b) {
			var p NotePriority
			if err := sonic.Unmarshal(b, &p); err != nil {
				return fmt.Errorf("priority: %w", err)
			}
			u.Priority = Some(p)
		}
	}
	if b, ok := raw["dueDate"]; ok {
		u.DueDate = Null[time.Time]()
		if !isNull(b) {
			var s string
			if err := sonic.Unmarshal(b, &s); err != nil {
				return fmt.Errorf("dueDate: %w", err)
			}
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return fmt.Errorf("dueDate: %w", err)
			}
			u.DueDate = Some(t)
		}
	}
	if b, ok := raw["parentId"]; ok {
		u.ParentID = Null[string]()
		if !isNull(b) {
			var s string
			if err := sonic.Unmarshal(b, &s); err != nil {
				return fmt.Errorf("parentId: %w", err)
			}
			u.ParentID = Some(s)
		}
	}
	if b, ok := raw["tags"]; ok && !isNull(b) {
		tags := []string{}
		if err := sonic.Unmarshal(b, &tags); err != nil {
			return fmt.Errorf("tags: %w", err)
		}
		u.Tags = tags
	}
	return nil
}

// ApplyTo copies the set fields onto n. Tags are resolved by the caller.
func (u UpdateNoteData) ApplyTo(n *Note) {
	if u.Title != nil {
		n.Title = *u.Title
	}
	if u.Content != nil {
		n.Content = append(json.RawMessage(nil), u.Content...)
	}
	if u.IsFavorite != nil {
		n.IsFavorite = *u.IsFavorite
	}
	if u.Status != nil {
		n.Status = *u.Status
	}
	if u.Priority.Set {
		n.Priority = copyPtr(u.Priority.Value)
	}
	if u.DueDate.Set {
		n.DueDate = copyPtr(u.DueDate.Value)
	}
	if u.ParentID.Set {
		n.ParentID = copyPtr(u.ParentID.Value)
	}
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
