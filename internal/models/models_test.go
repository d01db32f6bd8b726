package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusAndPriorityCycle(t *testing.T) {
	assert.Equal(t, StatusInProgress, StatusNotStarted.Next())
	assert.Equal(t, StatusNotStarted, StatusDone.Next())
	assert.Equal(t, StatusNotStarted, NoteStatus("bogus").Next())
	assert.Equal(t, "To Do", StatusNotStarted.Label())

	assert.Equal(t, PriorityLow, PriorityHigh.Next())
	assert.False(t, NotePriority("URGENT").Valid())
}

func TestValidateRequests(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		wantErr bool
	}{
		{"login ok", Credentials{Email: "a@b.co", Password: "secret"}, false},
		{"login bad email", Credentials{Email: "nope", Password: "secret"}, true},
		{"login short password", Credentials{Email: "a@b.co", Password: "12345"}, true},
		{"register short username", Registration{Username: "ab", Email: "a@b.co", Password: "secret"}, true},
		{"create without title", CreateNoteData{}, true},
		{"create ok", CreateNoteData{Title: "x"}, false},
		{"tag bad color", TagData{Name: "x", Color: "red"}, true},
		{"tag ok", TagData{Name: "x", Color: "#ff0000"}, false},
		{"reorder empty", ReorderNotesData{}, true},
		{"reorder missing id", ReorderNotesData{Notes: []ReorderItem{{Position: 1}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.payload)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUpdateNoteDataValidate(t *testing.T) {
	empty := ""
	assert.Error(t, UpdateNoteData{Title: &empty}.Validate())

	bad := NoteStatus("LATER")
	assert.Error(t, UpdateNoteData{Status: &bad}.Validate())

	assert.Error(t, UpdateNoteData{Priority: Some(NotePriority("URGENT"))}.Validate())
	assert.NoError(t, UpdateNoteData{Priority: Null[NotePriority]()}.Validate())
	assert.NoError(t, UpdateNoteData{}.Validate())
}

func TestUpdateNoteDataWireForm(t *testing.T) {
	title := "T"
	due := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		data UpdateNoteData
		want string
	}{
		{"empty", UpdateNoteData{}, `{}`},
		{"title only", UpdateNoteData{Title: &title}, `{"title":"T"}`},
		{"move to root", UpdateNoteData{ParentID: Null[string]()}, `{"parentId":null}`},
		{"clear priority", UpdateNoteData{Priority: Null[NotePriority]()}, `{"priority":null}`},
		{"due date", UpdateNoteData{DueDate: Some(due)}, `{"dueDate":"2026-03-01T12:00:00Z"}`},
		{"tags", UpdateNoteData{Tags: []string{}}, `{"tags":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.data)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(b))
		})
	}
}

func TestUpdateNoteDataKeepsExplicitNull(t *testing.T) {
	var u UpdateNoteData
	require.NoError(t, json.Unmarshal([]byte(`{"parentId":null,"priority":"HIGH","title":"x"}`), &u))

	assert.True(t, u.ParentID.Set)
	assert.Nil(t, u.ParentID.Value)
	require.NotNil(t, u.Priority.Value)
	assert.Equal(t, PriorityHigh, *u.Priority.Value)
	assert.False(t, u.DueDate.Set)
	assert.False(t, u.IsEmpty())

	require.NoError(t, json.Unmarshal([]byte(`{}`), &u))
	assert.True(t, u.IsEmpty())

	assert.Error(t, json.Unmarshal([]byte(`{"dueDate":"tomorrow"}`), &u))
}

func TestApplyTo(t *testing.T) {
	high := PriorityHigh
	n := Note{ID: "a", Title: "old", ParentID: StringPtr("p"), Priority: &high}

	title := "new"
	UpdateNoteData{Title: &title, ParentID: Null[string](), Priority: Null[NotePriority]()}.ApplyTo(&n)
	assert.Equal(t, "new", n.Title)
	assert.Nil(t, n.ParentID)
	assert.Nil(t, n.Priority)

	UpdateNoteData{ParentID: Some("q")}.ApplyTo(&n)
	assert.True(t, n.ParentIs(StringPtr("q")))
}

func TestFilters(t *testing.T) {
	done := StatusDone
	high := PriorityHigh
	n := Note{Status: StatusDone, Priority: &high, Tags: []Tag{{ID: "t1"}, {ID: "t2"}}}

	assert.True(t, NoteFilters{}.IsZero())
	assert.True(t, NoteFilters{}.Match(n))
	assert.True(t, NoteFilters{Status: &done, Tags: []string{"t1", "t2"}}.Match(n))
	assert.False(t, NoteFilters{Tags: []string{"t3"}}.Match(n))

	low := PriorityLow
	assert.False(t, NoteFilters{Priority: &low}.Match(n))
	assert.False(t, NoteFilters{Priority: &low}.Match(Note{}))

	assert.NotEqual(t, NoteFilters{Status: &done}.Key(), NoteFilters{Tags: []string{"DONE"}}.Key())
}

func TestCloneIsDeep(t *testing.T) {
	n := Note{
		ID:       "a",
		ParentID: StringPtr("p"),
		Content:  json.RawMessage(`{"type":"doc"}`),
		Tags:     []Tag{{ID: "t"}},
		Children: []Note{{ID: "c"}},
	}
	c := n.Clone()
	*c.ParentID = "other"
	c.Content[2] = 'X'
	c.Tags[0].ID = "changed"
	c.Children[0].ID = "changed"

	assert.Equal(t, "p", *n.ParentID)
	assert.Equal(t, `{"type":"doc"}`, string(n.Content))
	assert.Equal(t, "t", n.Tags[0].ID)
	assert.Equal(t, "c", n.Children[0].ID)
}
