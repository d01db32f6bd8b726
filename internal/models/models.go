package models

import (
	"encoding/json"
	"time"
)

// NoteStatus is the workflow state of a note
type NoteStatus string

const (
	StatusNotStarted NoteStatus = "NOT_STARTED"
	StatusInProgress NoteStatus = "IN_PROGRESS"
	StatusDone       NoteStatus = "DONE"
)

// Statuses lists every status in board order
var Statuses = []NoteStatus{StatusNotStarted, StatusInProgress, StatusDone}

// Label returns the board column title for the status
func (s NoteStatus) Label() string {
	switch s {
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	default:
		return "To Do"
	}
}

// Valid reports whether s is a known status
func (s NoteStatus) Valid() bool {
	return s == StatusNotStarted || s == StatusInProgress || s == StatusDone
}

// Next cycles to the following status
func (s NoteStatus) Next() NoteStatus {
	for i, st := range Statuses {
		if st == s {
			return Statuses[(i+1)%len(Statuses)]
		}
	}
	return StatusNotStarted
}

// NotePriority is the optional urgency of a note
type NotePriority string

const (
	PriorityLow    NotePriority = "LOW"
	PriorityMedium NotePriority = "MEDIUM"
	PriorityHigh   NotePriority = "HIGH"
)

// Priorities lists every priority from lowest to highest
var Priorities = []NotePriority{PriorityLow, PriorityMedium, PriorityHigh}

// Valid reports whether p is a known priority
func (p NotePriority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Next cycles to the following priority
func (p NotePriority) Next() NotePriority {
	for i, pr := range Priorities {
		if pr == p {
			return Priorities[(i+1)%len(Priorities)]
		}
	}
	return PriorityMedium
}

// User is the authenticated account
type User struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Username  string     `json:"username"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Tag represents a label that can be applied to notes
type Tag struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Note represents a single page of the workspace
type Note struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Content    json.RawMessage `json:"content"` // editor document, never interpreted here
	Position   float64         `json:"position"`
	IsFavorite bool            `json:"isFavorite"`
	IsArchived bool            `json:"isArchived"`

	Status   NoteStatus    `json:"status"`
	Priority *NotePriority `json:"priority"`
	DueDate  *time.Time    `json:"dueDate"`

	AuthorID string  `json:"authorId"`
	ParentID *string `json:"parentId"`

	Tags     []Tag  `json:"tags,omitempty"`
	Children []Note `json:"children,omitempty"` // populated when the API nests them
	Author   *User  `json:"author,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsRoot reports whether the note sits at the top of the forest
func (n Note) IsRoot() bool {
	return n.ParentID == nil
}

// ParentIs reports whether the note's parent equals id (nil = root)
func (n Note) ParentIs(id *string) bool {
	return SameParent(n.ParentID, id)
}

// TagIDs returns the ids of the note's tags
func (n Note) TagIDs() []string {
	ids := make([]string, 0, len(n.Tags))
	for _, t := range n.Tags {
		ids = append(ids, t.ID)
	}
	return ids
}

// HasTag reports whether the note carries the tag
func (n Note) HasTag(tagID string) bool {
	for _, t := range n.Tags {
		if t.ID == tagID {
			return true
		}
	}
	return false
}

// SameParent compares two nullable parent ids
func SameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}

// NoteFilters narrows the main note list
type NoteFilters struct {
	Status   *NoteStatus   `json:"status,omitempty"`
	Priority *NotePriority `json:"priority,omitempty"`
	Tags     []string      `json:"tags,omitempty"` // tag ids
}

// IsZero reports whether no filter is active
func (f NoteFilters) IsZero() bool {
	return f.Status == nil && f.Priority == nil && len(f.Tags) == 0
}

// Key returns a stable string form used for cache keys
func (f NoteFilters) Key() string {
	key := ""
	if f.Status != nil {
		key += "status=" + string(*f.Status)
	}
	key += ";"
	if f.Priority != nil {
		key += "priority=" + string(*f.Priority)
	}
	key += ";"
	for i, t := range f.Tags {
		if i > 0 {
			key += ","
		}
		key += t
	}
	return key
}

// Match reports whether a note passes the filters locally
func (f NoteFilters) Match(n Note) bool {
	if f.Status != nil && n.Status != *f.Status {
		return false
	}
	if f.Priority != nil && (n.Priority == nil || *n.Priority != *f.Priority) {
		return false
	}
	for _, t := range f.Tags {
		if !n.HasTag(t) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the note including nested children
func (n Note) Clone() Note {
	c := n
	if n.Content != nil {
		c.Content = append(json.RawMessage(nil), n.Content...)
	}
	c.Priority = copyPtr(n.Priority)
	c.DueDate = copyPtr(n.DueDate)
	c.ParentID = copyPtr(n.ParentID)
	if n.Tags != nil {
		c.Tags = append([]Tag(nil), n.Tags...)
	}
	if n.Children != nil {
		c.Children = make([]Note, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = ch.Clone()
		}
	}
	if n.Author != nil {
		a := *n.Author
		c.Author = &a
	}
	return c
}

// RecentNote is an entry of the local history of opened notes
type RecentNote struct {
	NoteID    string
	Title     string
	VisitedAt time.Time
}
