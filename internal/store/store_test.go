package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/stn/internal/db"
	"github.com/tgienger/stn/internal/models"
	"github.com/tgienger/stn/internal/ui/editor"
)

func newDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestSelectionAndSidebarSurviveRestart(t *testing.T) {
	d := newDB(t)

	s := New(d, nil, nil)
	assert.True(t, s.SidebarOpen())
	s.Select("n1")
	s.ToggleSidebar()
	s.SetLastView("trash")

	s = New(d, nil, nil)
	assert.Equal(t, "n1", s.SelectedID())
	assert.False(t, s.SidebarOpen())
	assert.Equal(t, "trash", s.LastView())

	s.Reset()
	s = New(d, nil, nil)
	assert.Empty(t, s.SelectedID())
}

func TestFilters(t *testing.T) {
	s := New(nil, nil, nil)
	done := models.StatusDone
	high := models.PriorityHigh

	s.SetFilters(FilterPatch{Status: &done})
	s.SetFilters(FilterPatch{Priority: &high})
	f := s.Filters()
	require.NotNil(t, f.Status)
	require.NotNil(t, f.Priority)
	assert.Equal(t, done, *f.Status)

	s.SetFilters(FilterPatch{ClearStatus: true})
	assert.Nil(t, s.Filters().Status)
	assert.NotNil(t, s.Filters().Priority)

	s.ToggleTagFilter("t1")
	s.ToggleTagFilter("t2")
	f = s.Filters()
	assert.Equal(t, []string{"t1", "t2"}, f.Tags)
	f.Tags[0] = "mutated"
	s.ToggleTagFilter("t1")
	assert.Equal(t, []string{"t2"}, s.Filters().Tags)

	s.ClearFilters()
	assert.True(t, s.Filters().IsZero())
}

func TestSearchMatchesTitleAndContent(t *testing.T) {
	s := New(nil, editor.PlainText, nil)
	notes := []models.Note{
		{ID: "a", Title: "Groceries"},
		{ID: "b", Title: "Plans", Content: editor.FromText("buy MILK tomorrow")},
		{ID: "c", Title: "Other", Content: json.RawMessage(`null`)},
	}

	assert.Len(t, s.Filter(notes), 3)

	s.SetSearch("  milk ")
	got := s.Filter(notes)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)

	s.SetSearch("GROC")
	got = s.Filter(notes)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}
