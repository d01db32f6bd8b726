package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/stn/internal/api"
	"github.com/tgienger/stn/internal/api/apitest"
	"github.com/tgienger/stn/internal/models"
)

type memSession struct {
	cookies []*http.Cookie
	saves   int
}

func (m *memSession) LoadCookies() ([]*http.Cookie, error) { return m.cookies, nil }

func (m *memSession) SaveCookies(c []*http.Cookie) error {
	m.cookies = c
	m.saves++
	return nil
}

func setup(t *testing.T) (*apitest.Server, *api.Client, *memSession) {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)
	srv.SeedUser("ana@example.com", "ana", "secret1")

	session := &memSession{}
	client, err := api.New(api.Options{BaseURL: srv.URL(), Session: session})
	require.NoError(t, err)

	_, err = client.Login(context.Background(), models.Credentials{Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)
	return srv, client, session
}

func TestAuthFlow(t *testing.T) {
	ctx := context.Background()
	srv := apitest.New()
	defer srv.Close()

	session := &memSession{}
	client, err := api.New(api.Options{BaseURL: srv.URL(), Session: session})
	require.NoError(t, err)

	me, err := client.Me(ctx)
	require.NoError(t, err)
	assert.Nil(t, me)

	_, err = client.Register(ctx, models.Registration{Username: "bo", Email: "bo@example.com", Password: "secret1"})
	assert.Error(t, err, "username too short is rejected locally")
	assert.Equal(t, 0, srv.CountCalls(http.MethodPost, "/auth/register"))

	_, err = client.Register(ctx, models.Registration{Username: "bob", Email: "bob@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = client.Login(ctx, models.Credentials{Email: "bob@example.com", Password: "wrong-pass"})
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
	assert.Equal(t, "Invalid email or password", err.Error())

	user, err := client.Login(ctx, models.Credentials{Email: "bob@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Username)
	assert.NotEmpty(t, session.cookies)

	me, err = client.Me(ctx)
	require.NoError(t, err)
	require.NotNil(t, me)
	assert.Equal(t, user.ID, me.ID)

	// a second client restores the persisted session
	other, err := api.New(api.Options{BaseURL: srv.URL(), Session: session})
	require.NoError(t, err)
	me, err = other.Me(ctx)
	require.NoError(t, err)
	require.NotNil(t, me)

	require.NoError(t, client.Logout(ctx))
	assert.Empty(t, session.cookies)
	me, err = client.Me(ctx)
	require.NoError(t, err)
	assert.Nil(t, me)
}

func TestProtectedCallWithoutSession(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	client, err := api.New(api.Options{BaseURL: srv.URL()})
	require.NoError(t, err)

	_, err = client.ListNotes(context.Background(), models.NoteFilters{})
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
}

func TestNoteLifecycle(t *testing.T) {
	ctx := context.Background()
	srv, client, _ := setup(t)

	parent, err := client.CreateNote(ctx, models.CreateNoteData{Title: "Untitled"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotStarted, parent.Status)
	assert.Empty(t, parent.Children)

	child, err := client.CreateNote(ctx, models.CreateNoteData{Title: "Child", ParentID: &parent.ID})
	require.NoError(t, err)

	got, err := client.GetNote(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, got.Children, 1)
	assert.Equal(t, child.ID, got.Children[0].ID)

	title := "Renamed"
	updated, err := client.UpdateNote(ctx, child.ID, models.UpdateNoteData{
		Title:    &title,
		Priority: models.Some(models.PriorityHigh),
		ParentID: models.Null[string](),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Nil(t, updated.ParentID)
	require.NotNil(t, updated.Priority)
	assert.Equal(t, models.PriorityHigh, *updated.Priority)

	calls := srv.Calls()
	last := calls[len(calls)-1]
	assert.JSONEq(t, `{"title":"Renamed","priority":"HIGH","parentId":null}`, string(last.Body))

	require.NoError(t, client.ArchiveNote(ctx, child.ID))
	notes, err := client.ListNotes(ctx, models.NoteFilters{})
	require.NoError(t, err)
	assert.Len(t, notes, 1)
	archived, err := client.ListArchived(ctx)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, child.ID, archived[0].ID)

	restored, err := client.RestoreNote(ctx, child.ID)
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.False(t, restored.IsArchived)

	require.NoError(t, client.ArchiveNote(ctx, child.ID))
	require.NoError(t, client.DeleteNotePermanently(ctx, child.ID))
	_, err = client.GetNote(ctx, child.ID)
	assert.True(t, api.IsNotFound(err))
}

func TestUpdateRejectsCycleOnServer(t *testing.T) {
	ctx := context.Background()
	_, client, _ := setup(t)

	a, err := client.CreateNote(ctx, models.CreateNoteData{Title: "A"})
	require.NoError(t, err)
	b, err := client.CreateNote(ctx, models.CreateNoteData{Title: "B", ParentID: &a.ID})
	require.NoError(t, err)

	_, err = client.UpdateNote(ctx, a.ID, models.UpdateNoteData{ParentID: models.Some(b.ID)})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, api.StatusOf(err))
}

func TestValidationBlocksRequest(t *testing.T) {
	ctx := context.Background()
	srv, client, _ := setup(t)
	srv.ResetCalls()

	_, err := client.CreateNote(ctx, models.CreateNoteData{})
	assert.Error(t, err)
	empty := ""
	_, err = client.UpdateNote(ctx, "x", models.UpdateNoteData{Title: &empty})
	assert.Error(t, err)
	assert.Error(t, client.ReorderNotes(ctx, nil))
	_, err = client.CreateTag(ctx, models.TagData{Name: "x", Color: "blue"})
	assert.Error(t, err)

	assert.Empty(t, srv.Calls())
}

func TestListFiltersAndReorder(t *testing.T) {
	ctx := context.Background()
	srv, client, _ := setup(t)

	tag, err := client.CreateTag(ctx, models.TagData{Name: "work", Color: "#ff0000"})
	require.NoError(t, err)

	a, _ := client.CreateNote(ctx, models.CreateNoteData{Title: "A"})
	b, _ := client.CreateNote(ctx, models.CreateNoteData{Title: "B"})
	done := models.StatusDone
	_, err = client.UpdateNote(ctx, b.ID, models.UpdateNoteData{Status: &done, Tags: []string{tag.ID}})
	require.NoError(t, err)

	srv.ResetCalls()
	notes, err := client.ListNotes(ctx, models.NoteFilters{Status: &done, Tags: []string{tag.ID, "other"}})
	require.NoError(t, err)
	assert.Empty(t, notes)
	calls := srv.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Query, "tags="+tag.ID+"%2Cother")

	notes, err = client.ListNotes(ctx, models.NoteFilters{Status: &done, Tags: []string{tag.ID}})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "work", notes[0].Tags[0].Name)

	require.NoError(t, client.ReorderNotes(ctx, []models.ReorderItem{{ID: a.ID, Position: 5}, {ID: b.ID, Position: 1}}))
	notes, err = client.ListNotes(ctx, models.NoteFilters{})
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, a.ID}, []string{notes[0].ID, notes[1].ID})

	var body models.ReorderNotesData
	calls = srv.Calls()
	for _, c := range calls {
		if c.Method == http.MethodPatch {
			require.NoError(t, json.Unmarshal(c.Body, &body))
		}
	}
	assert.Len(t, body.Notes, 2)
}

func TestTags(t *testing.T) {
	ctx := context.Background()
	_, client, _ := setup(t)

	tag, err := client.CreateTag(ctx, models.TagData{Name: "home", Color: "#00ff00"})
	require.NoError(t, err)
	_, err = client.CreateTag(ctx, models.TagData{Name: "HOME"})
	assert.Equal(t, http.StatusConflict, api.StatusOf(err))

	renamed, err := client.UpdateTag(ctx, tag.ID, models.TagData{Name: "house"})
	require.NoError(t, err)
	assert.Equal(t, "house", renamed.Name)
	assert.Equal(t, "#00ff00", renamed.Color)

	require.NoError(t, client.DeleteTag(ctx, tag.ID))
	tags, err := client.ListTags(ctx)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestServerErrorMessage(t *testing.T) {
	ctx := context.Background()
	srv, client, _ := setup(t)
	srv.FailNext(http.MethodGet, "/notes", http.StatusInternalServerError, "database unavailable")

	_, err := client.ListNotes(ctx, models.NoteFilters{})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, api.StatusOf(err))
	assert.Equal(t, "database unavailable", api.Message(err, "Failed to load notes"))

	_, err = client.ListNotes(ctx, models.NoteFilters{})
	assert.NoError(t, err)
}
