package cache_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/stn/internal/api"
	"github.com/tgienger/stn/internal/api/apitest"
	"github.com/tgienger/stn/internal/cache"
	"github.com/tgienger/stn/internal/models"
)

func newQueries(t *testing.T) (*apitest.Server, *cache.Queries) {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)
	srv.SeedUser("ana@example.com", "ana", "secret1")
	client, err := api.New(api.Options{BaseURL: srv.URL()})
	require.NoError(t, err)
	q := cache.NewQueries(cache.New(nil), client, nil)
	_, err = q.Login(context.Background(), models.Credentials{Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)
	return srv, q
}

func ids(notes []models.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.ID
	}
	return out
}

func TestLoginSeedsCurrentUser(t *testing.T) {
	srv, q := newQueries(t)
	srv.ResetCalls()

	me, err := q.Me(context.Background())
	require.NoError(t, err)
	require.NotNil(t, me)
	assert.Equal(t, "ana", me.Username)
	assert.Equal(t, 0, srv.CountCalls(http.MethodGet, "/auth/me"))
}

func TestArchiveAndRestoreMoveBetweenLists(t *testing.T) {
	ctx := context.Background()
	_, q := newQueries(t)

	n1, err := q.CreateNote(ctx, models.CreateNoteData{Title: "n1"})
	require.NoError(t, err)
	n3, err := q.CreateNote(ctx, models.CreateNoteData{Title: "n3"})
	require.NoError(t, err)

	notes, err := q.Notes(ctx, models.NoteFilters{})
	require.NoError(t, err)
	assert.Equal(t, []string{n1.ID, n3.ID}, ids(notes))
	archived, err := q.Archived(ctx)
	require.NoError(t, err)
	assert.Empty(t, archived)

	require.NoError(t, q.ArchiveNote(ctx, n3.ID))
	notes, _ = q.Notes(ctx, models.NoteFilters{})
	assert.Equal(t, []string{n1.ID}, ids(notes))
	archived, _ = q.Archived(ctx)
	assert.Equal(t, []string{n3.ID}, ids(archived))

	_, err = q.RestoreNote(ctx, n3.ID)
	require.NoError(t, err)
	notes, _ = q.Notes(ctx, models.NoteFilters{})
	assert.Equal(t, []string{n1.ID, n3.ID}, ids(notes))
	archived, _ = q.Archived(ctx)
	assert.Empty(t, archived)
}

func TestReadsAreServedFromCache(t *testing.T) {
	ctx := context.Background()
	srv, q := newQueries(t)
	n, err := q.CreateNote(ctx, models.CreateNoteData{Title: "a"})
	require.NoError(t, err)

	srv.ResetCalls()
	for i := 0; i < 3; i++ {
		_, err := q.Note(ctx, n.ID)
		require.NoError(t, err)
		_, err = q.Notes(ctx, models.NoteFilters{})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, len(srv.Calls()))

	title := "b"
	_, err = q.UpdateNote(ctx, n.ID, models.UpdateNoteData{Title: &title})
	require.NoError(t, err)
	assert.True(t, q.Cache().Stale(cache.NoteKey(n.ID)))
	assert.True(t, q.Cache().Stale(cache.NotesKey(models.NoteFilters{})))

	got, err := q.Note(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "b", got.Title)
}

func TestInvalidationRules(t *testing.T) {
	ctx := context.Background()
	_, q := newQueries(t)
	c := q.Cache()

	a, _ := q.CreateNote(ctx, models.CreateNoteData{Title: "a"})
	b, _ := q.CreateNote(ctx, models.CreateNoteData{Title: "b"})
	require.NoError(t, q.ArchiveNote(ctx, b.ID))

	warm := func() {
		_, _ = q.Notes(ctx, models.NoteFilters{})
		_, _ = q.Note(ctx, a.ID)
		_, _ = q.Archived(ctx)
		_, _ = q.Tags(ctx)
	}

	warm()
	require.NoError(t, q.DeleteNotePermanently(ctx, b.ID))
	assert.True(t, c.Stale(cache.ArchivedKey))
	assert.False(t, c.Stale(cache.NotesKey(models.NoteFilters{})))
	assert.False(t, c.Stale(cache.TagsKey))

	warm()
	require.NoError(t, q.ReorderNotes(ctx, []models.ReorderItem{{ID: a.ID, Position: 3}}))
	assert.True(t, c.Stale(cache.NotesKey(models.NoteFilters{})))
	assert.False(t, c.Stale(cache.TagsKey))

	warm()
	tag, err := q.CreateTag(ctx, models.TagData{Name: "x"})
	require.NoError(t, err)
	assert.True(t, c.Stale(cache.TagsKey))
	assert.False(t, c.Stale(cache.NoteKey(a.ID)))

	warm()
	require.NoError(t, q.DeleteTag(ctx, tag.ID))
	assert.True(t, c.Stale(cache.TagsKey))
	assert.True(t, c.Stale(cache.NoteKey(a.ID)))
}

func TestFailedMutationKeepsCache(t *testing.T) {
	ctx := context.Background()
	srv, q := newQueries(t)
	n, _ := q.CreateNote(ctx, models.CreateNoteData{Title: "a"})
	_, _ = q.Notes(ctx, models.NoteFilters{})

	srv.FailNext(http.MethodDelete, "/notes/"+n.ID, http.StatusInternalServerError, "nope")
	err := q.ArchiveNote(ctx, n.ID)
	require.Error(t, err)
	assert.False(t, q.Cache().Stale(cache.NotesKey(models.NoteFilters{})))
}

func TestLogoutClearsEverything(t *testing.T) {
	ctx := context.Background()
	srv, q := newQueries(t)
	_, _ = q.Notes(ctx, models.NoteFilters{})

	srv.FailNext(http.MethodPost, "/auth/logout", http.StatusInternalServerError, "down")
	assert.Error(t, q.Logout(ctx))

	me, err := q.Me(ctx)
	require.NoError(t, err)
	assert.Nil(t, me)
	_, ok := cache.Peek[[]models.Note](q.Cache(), cache.NotesKey(models.NoteFilters{}))
	assert.False(t, ok)
}

func TestForgetSessionDropsCookies(t *testing.T) {
	ctx := context.Background()
	srv, q := newQueries(t)

	q.ForgetSession()
	q.Cache().Clear()

	me, err := q.Me(ctx)
	require.NoError(t, err)
	assert.Nil(t, me, "the server no longer sees a session")

	_, err = q.Notes(ctx, models.NoteFilters{})
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
	assert.Equal(t, 0, srv.CountCalls(http.MethodPost, "/auth/logout"))
}
