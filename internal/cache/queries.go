package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/tgienger/stn/internal/logging"
	"github.com/tgienger/stn/internal/models"
)

// Remote is the notes API as seen by the cache
type Remote interface {
	ListNotes(ctx context.Context, filters models.NoteFilters) ([]models.Note, error)
	GetNote(ctx context.Context, id string) (*models.Note, error)
	CreateNote(ctx context.Context, data models.CreateNoteData) (*models.Note, error)
	UpdateNote(ctx context.Context, id string, data models.UpdateNoteData) (*models.Note, error)
	ArchiveNote(ctx context.Context, id string) error
	RestoreNote(ctx context.Context, id string) (*models.Note, error)
	DeleteNotePermanently(ctx context.Context, id string) error
	ListArchived(ctx context.Context) ([]models.Note, error)
	ReorderNotes(ctx context.Context, items []models.ReorderItem) error

	ListTags(ctx context.Context) ([]models.Tag, error)
	CreateTag(ctx context.Context, data models.TagData) (*models.Tag, error)
	UpdateTag(ctx context.Context, id string, data models.TagData) (*models.Tag, error)
	DeleteTag(ctx context.Context, id string) error

	Login(ctx context.Context, creds models.Credentials) (*models.User, error)
	Register(ctx context.Context, reg models.Registration) (*models.User, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)
	// ClearSession drops the session cookies without a server call
	ClearSession()
}

// Queries reads through the cache and invalidates it after mutations
type Queries struct {
	cache  *Cache
	remote Remote
	logger *zap.Logger
}

// NewQueries binds a cache to the remote API
func NewQueries(c *Cache, remote Remote, logger *zap.Logger) *Queries {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queries{cache: c, remote: remote, logger: logger}
}

// Cache returns the underlying cache
func (q *Queries) Cache() *Cache {
	return q.cache
}

// Notes returns the filtered note list
func (q *Queries) Notes(ctx context.Context, f models.NoteFilters) ([]models.Note, error) {
	return Get(ctx, q.cache, NotesKey(f), func(ctx context.Context) ([]models.Note, error) {
		return q.remote.ListNotes(ctx, f)
	})
}

// Note returns one note with its children
func (q *Queries) Note(ctx context.Context, id string) (*models.Note, error) {
	return Get(ctx, q.cache, NoteKey(id), func(ctx context.Context) (*models.Note, error) {
		return q.remote.GetNote(ctx, id)
	})
}

// Archived returns the notes in the trash
func (q *Queries) Archived(ctx context.Context) ([]models.Note, error) {
	return Get(ctx, q.cache, ArchivedKey, q.remote.ListArchived)
}

// Tags returns the tags of the user
func (q *Queries) Tags(ctx context.Context) ([]models.Tag, error) {
	return Get(ctx, q.cache, TagsKey, q.remote.ListTags)
}

// Me returns the current user or nil
func (q *Queries) Me(ctx context.Context) (*models.User, error) {
	return Get(ctx, q.cache, MeKey, q.remote.Me)
}

func (q *Queries) invalidate(action string, keys ...Key) {
	for _, k := range keys {
		q.cache.Invalidate(k...)
	}
	q.logger.Debug("invalidated after mutation", zap.String(logging.FieldAction, action))
}

// CreateNote invalidates the note lists
func (q *Queries) CreateNote(ctx context.Context, data models.CreateNoteData) (*models.Note, error) {
	n, err := q.remote.CreateNote(ctx, data)
	if err != nil {
		return nil, err
	}
	q.invalidate("create", Key{"notes"})
	return n, nil
}

// UpdateNote invalidates the lists and the note
func (q *Queries) UpdateNote(ctx context.Context, id string, data models.UpdateNoteData) (*models.Note, error) {
	n, err := q.remote.UpdateNote(ctx, id, data)
	if err != nil {
		return nil, err
	}
	q.invalidate("update", Key{"notes"}, NoteKey(id))
	return n, nil
}

// ArchiveNote invalidates the lists and the trash
func (q *Queries) ArchiveNote(ctx context.Context, id string) error {
	if err := q.remote.ArchiveNote(ctx, id); err != nil {
		return err
	}
	q.invalidate("archive", Key{"notes"}, ArchivedKey)
	return nil
}

// RestoreNote invalidates the lists and the trash
func (q *Queries) RestoreNote(ctx context.Context, id string) (*models.Note, error) {
	n, err := q.remote.RestoreNote(ctx, id)
	if err != nil {
		return nil, err
	}
	q.invalidate("restore", Key{"notes"}, ArchivedKey)
	return n, nil
}

// DeleteNotePermanently invalidates the trash
func (q *Queries) DeleteNotePermanently(ctx context.Context, id string) error {
	if err := q.remote.DeleteNotePermanently(ctx, id); err != nil {
		return err
	}
	q.invalidate("purge", ArchivedKey)
	q.cache.Remove(NoteKey(id)...)
	return nil
}

// ReorderNotes invalidates the lists
func (q *Queries) ReorderNotes(ctx context.Context, items []models.ReorderItem) error {
	if err := q.remote.ReorderNotes(ctx, items); err != nil {
		return err
	}
	q.invalidate("reorder", Key{"notes"})
	return nil
}

// CreateTag invalidates the tag list
func (q *Queries) CreateTag(ctx context.Context, data models.TagData) (*models.Tag, error) {
	t, err := q.remote.CreateTag(ctx, data)
	if err != nil {
		return nil, err
	}
	q.invalidate("tag create", TagsKey)
	return t, nil
}

// UpdateTag invalidates tags and the notes that embed them
func (q *Queries) UpdateTag(ctx context.Context, id string, data models.TagData) (*models.Tag, error) {
	t, err := q.remote.UpdateTag(ctx, id, data)
	if err != nil {
		return nil, err
	}
	q.invalidate("tag update", TagsKey, Key{"notes"})
	return t, nil
}

// DeleteTag invalidates tags and the notes that embed them
func (q *Queries) DeleteTag(ctx context.Context, id string) error {
	if err := q.remote.DeleteTag(ctx, id); err != nil {
		return err
	}
	q.invalidate("tag delete", TagsKey, Key{"notes"})
	return nil
}

// Login seeds the current user
func (q *Queries) Login(ctx context.Context, creds models.Credentials) (*models.User, error) {
	u, err := q.remote.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	q.cache.Clear()
	q.cache.Set(MeKey, u)
	return u, nil
}

// Register creates an account without logging in
func (q *Queries) Register(ctx context.Context, reg models.Registration) (*models.User, error) {
	return q.remote.Register(ctx, reg)
}

// Logout drops every cached query even when the server call fails
func (q *Queries) Logout(ctx context.Context) error {
	err := q.remote.Logout(ctx)
	q.ForgetSession()
	return err
}

// ForgetSession drops the session cookies, clears the cache and records
// that nobody is logged in
func (q *Queries) ForgetSession() {
	q.remote.ClearSession()
	q.cache.Clear()
	q.cache.Set(MeKey, (*models.User)(nil))
}
