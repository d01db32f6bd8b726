package autosave

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/stn/internal/models"
)

func testNote(id, title string) models.Note {
	return models.Note{
		ID:      id,
		Title:   title,
		Content: json.RawMessage(`{"type":"doc"}`),
		Status:  models.StatusNotStarted,
	}
}

// serverEcho applies a request to n the way the API would
func serverEcho(n models.Note, req Request) *models.Note {
	req.Data.ApplyTo(&n)
	return &n
}

func TestTypingThenPauseIssuesOneSave(t *testing.T) {
	c := New(nil)
	c.Load(testNote("n1", ""))

	var ticks []Tick
	for _, s := range []string{"H", "He", "Hel", "Hell", "Hello"} {
		tick, err := c.OnFieldChange(FieldTitle, s)
		require.NoError(t, err)
		ticks = append(ticks, tick)
	}
	assert.Equal(t, Dirty, c.State())

	var reqs []Request
	for _, tick := range ticks {
		if req, ok := c.OnTick(tick); ok {
			reqs = append(reqs, req)
		}
	}
	require.Len(t, reqs, 1)
	assert.Equal(t, "Hello", *reqs[0].Data.Title)
	assert.Equal(t, Saving, c.State())

	// the same tick delivered twice must not save twice
	_, ok := c.OnTick(ticks[len(ticks)-1])
	assert.False(t, ok)

	out := c.OnSaveResult(reqs[0], serverEcho(testNote("n1", ""), reqs[0]), nil)
	assert.Equal(t, Saved, out)
	assert.Equal(t, Clean, c.State())
	assert.Equal(t, "Hello", c.Baseline().Title)
}

func TestLoadNeverSaves(t *testing.T) {
	c := New(nil)
	c.Load(testNote("n1", "Title"))
	_, ok := c.Flush()
	assert.False(t, ok)
	assert.Equal(t, Clean, c.State())
}

func TestInstantChangeCarriesUnsavedTitle(t *testing.T) {
	c := New(nil)
	c.Load(testNote("n1", "Old"))

	tick, err := c.OnFieldChange(FieldTitle, "New title")
	require.NoError(t, err)

	req, err := c.OnInstantChange(FieldFavorite, true)
	require.NoError(t, err)
	assert.Equal(t, "New title", *req.Data.Title)
	assert.True(t, *req.Data.IsFavorite)

	// the pending tick is covered by the instant save
	_, ok := c.OnTick(tick)
	assert.False(t, ok)
}

func TestStaleResponseIsIgnored(t *testing.T) {
	c := New(nil)
	c.Load(testNote("n1", "A"))

	first, err := c.OnInstantChange(FieldStatus, models.StatusInProgress)
	require.NoError(t, err)
	second, err := c.OnInstantChange(FieldStatus, models.StatusDone)
	require.NoError(t, err)

	assert.Equal(t, Saved, c.OnSaveResult(second, serverEcho(testNote("n1", "A"), second), nil))
	assert.Equal(t, Stale, c.OnSaveResult(first, serverEcho(testNote("n1", "A"), first), nil))
	assert.Equal(t, models.StatusDone, c.Form().Status)
}

func TestResponseForPreviousNoteIsDiscarded(t *testing.T) {
	c := New(nil)
	c.Load(testNote("n1", "A"))
	tick, err := c.OnFieldChange(FieldTitle, "A edited")
	require.NoError(t, err)
	req, ok := c.OnTick(tick)
	require.True(t, ok)

	c.Load(testNote("n2", "B"))
	assert.Equal(t, Discarded, c.OnSaveResult(req, serverEcho(testNote("n1", "A"), req), nil))
	assert.Equal(t, "B", c.Form().Title)

	_, ok = c.OnTick(tick)
	assert.False(t, ok)
}

func TestSwitchingBackStartsNewSession(t *testing.T) {
	c := New(nil)
	c.Load(testNote("n1", "A"))
	tick, _ := c.OnFieldChange(FieldTitle, "A1")

	c.Load(testNote("n2", "B"))
	c.Load(testNote("n1", "A"))

	_, ok := c.OnTick(tick)
	assert.False(t, ok)
	assert.Equal(t, "A", c.Form().Title)
}

func TestEditsDuringSaveAreKept(t *testing.T) {
	c := New(nil)
	c.Load(testNote("n1", ""))

	tick, _ := c.OnFieldChange(FieldTitle, "Draft")
	req, ok := c.OnTick(tick)
	require.True(t, ok)

	_, err := c.OnFieldChange(FieldTitle, "Draft two")
	require.NoError(t, err)

	out := c.OnSaveResult(req, serverEcho(testNote("n1", ""), req), nil)
	assert.Equal(t, Saved, out)
	assert.Equal(t, "Draft two", c.Form().Title)
	assert.Equal(t, "Draft", c.Baseline().Title)
	assert.Equal(t, Dirty, c.State())
}

func TestFailedSaveKeepsEdits(t *testing.T) {
	c := New(nil)
	c.Load(testNote("n1", "A"))
	tick, _ := c.OnFieldChange(FieldTitle, "A2")
	req, ok := c.OnTick(tick)
	require.True(t, ok)

	boom := errors.New("server down")
	assert.Equal(t, Failed, c.OnSaveResult(req, nil, boom))
	assert.Equal(t, NotSaved, c.State())
	assert.Equal(t, boom, c.Err())
	assert.Equal(t, "A2", c.Form().Title)

	// no automatic retry
	_, ok = c.OnTick(tick)
	assert.False(t, ok)

	// the next edit saves everything again
	tick, _ = c.OnFieldChange(FieldContent, json.RawMessage(`{"type":"doc","content":[]}`))
	req, ok = c.OnTick(tick)
	require.True(t, ok)
	assert.Equal(t, "A2", *req.Data.Title)
}

func TestFlushRetriesFailedSave(t *testing.T) {
	c := New(nil)
	c.Load(testNote("n1", "A"))
	tick, _ := c.OnFieldChange(FieldTitle, "Hello")
	req, ok := c.OnTick(tick)
	require.True(t, ok)
	require.Equal(t, Failed, c.OnSaveResult(req, nil, errors.New("timeout")))

	assert.True(t, c.Dirty())
	assert.Equal(t, NotSaved, c.State())

	retry, ok := c.Flush()
	require.True(t, ok)
	require.NotNil(t, retry.Data.Title)
	assert.Equal(t, "Hello", *retry.Data.Title)
	assert.Equal(t, Saving, c.State())

	assert.Equal(t, Saved, c.OnSaveResult(retry, serverEcho(testNote("n1", "A"), retry), nil))
	assert.Equal(t, Clean, c.State())
	_, ok = c.Flush()
	assert.False(t, ok)
}

func TestEditDuringFailedSaveStillTicks(t *testing.T) {
	c := New(nil)
	c.Load(testNote("n1", "A"))
	first, _ := c.OnFieldChange(FieldTitle, "A1")
	req, ok := c.OnTick(first)
	require.True(t, ok)

	second, _ := c.OnFieldChange(FieldTitle, "A12")
	require.Equal(t, Failed, c.OnSaveResult(req, nil, errors.New("timeout")))

	_, ok = c.OnTick(first)
	assert.False(t, ok)
	req, ok = c.OnTick(second)
	require.True(t, ok)
	assert.Equal(t, "A12", *req.Data.Title)
}

func TestFlushBeforeSwitch(t *testing.T) {
	c := New(nil)
	c.Load(testNote("n1", "A"))
	_, _ = c.OnFieldChange(FieldTitle, "A changed")

	req, ok := c.Flush()
	require.True(t, ok)
	assert.Equal(t, "n1", req.NoteID)
	assert.Equal(t, "A changed", *req.Data.Title)

	_, ok = c.Flush()
	assert.False(t, ok)
}

func TestReloadSameNoteKeepsLocalEdits(t *testing.T) {
	c := New(nil)
	c.Load(testNote("n1", "A"))
	_, _ = c.OnFieldChange(FieldTitle, "Local")

	fresh := testNote("n1", "A")
	fresh.IsFavorite = true
	c.Load(fresh)

	assert.Equal(t, "Local", c.Form().Title)
	assert.True(t, c.Form().IsFavorite)
	assert.Equal(t, Dirty, c.State())
}

func TestEmptyTitleIsNotSent(t *testing.T) {
	c := New(nil)
	c.Load(testNote("n1", "A"))
	tick, _ := c.OnFieldChange(FieldTitle, "  ")
	req, ok := c.OnTick(tick)
	require.True(t, ok)
	assert.Nil(t, req.Data.Title)
	assert.NoError(t, req.Data.Validate())
}

func TestFieldErrors(t *testing.T) {
	c := New(nil)
	_, err := c.OnFieldChange(FieldTitle, "x")
	assert.ErrorIs(t, err, ErrNoNote)

	c.Load(testNote("n1", "A"))
	_, err = c.OnFieldChange("color", "x")
	assert.ErrorIs(t, err, ErrUnknownField)
	_, err = c.OnFieldChange(FieldStatus, models.StatusDone)
	assert.ErrorIs(t, err, ErrNotDebounced)
	_, err = c.OnInstantChange(FieldTitle, "x")
	assert.ErrorIs(t, err, ErrDebounced)
	_, err = c.OnInstantChange(FieldFavorite, "yes")
	assert.ErrorIs(t, err, ErrValueType)
	_, err = c.OnInstantChange(FieldPriority, models.NotePriority("URGENT"))
	assert.ErrorIs(t, err, ErrValueType)
}

func TestInstantNullableFields(t *testing.T) {
	c := New(nil)
	c.Load(testNote("n1", "A"))

	due := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	req, err := c.OnInstantChange(FieldDueDate, due)
	require.NoError(t, err)
	require.NotNil(t, req.Data.DueDate.Value)
	assert.True(t, due.Equal(*req.Data.DueDate.Value))

	req, err = c.OnInstantChange(FieldPriority, nil)
	require.NoError(t, err)
	assert.True(t, req.Data.Priority.Set)
	assert.Nil(t, req.Data.Priority.Value)

	req, err = c.OnInstantChange(FieldTags, []string{"t1", "t2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, req.Data.Tags)
}

func TestUnload(t *testing.T) {
	c := New(nil)
	c.Load(testNote("n1", "A"))
	req, _ := c.OnInstantChange(FieldFavorite, true)
	c.Unload()
	assert.False(t, c.Loaded())
	assert.Equal(t, Discarded, c.OnSaveResult(req, nil, nil))
}
