package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/tgienger/stn/internal/models"
)

// FilterQuery encodes list filters; tags are joined with commas
func FilterQuery(f models.NoteFilters) url.Values {
	q := url.Values{}
	if f.Status != nil {
		q.Set("status", string(*f.Status))
	}
	if f.Priority != nil {
		q.Set("priority", string(*f.Priority))
	}
	if len(f.Tags) > 0 {
		q.Set("tags", strings.Join(f.Tags, ","))
	}
	return q
}

func notePath(id string) string {
	return "/notes/" + url.PathEscape(id)
}

// ListNotes returns the non-archived notes matching the filters
func (c *Client) ListNotes(ctx context.Context, filters models.NoteFilters) ([]models.Note, error) {
	var notes []models.Note
	if err := c.do(ctx, http.MethodGet, "/notes", FilterQuery(filters), nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// GetNote returns one note with its children
func (c *Client) GetNote(ctx context.Context, id string) (*models.Note, error) {
	var n models.Note
	if err := c.do(ctx, http.MethodGet, notePath(id), nil, nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// CreateNote creates a note, optionally under a parent
func (c *Client) CreateNote(ctx context.Context, data models.CreateNoteData) (*models.Note, error) {
	if err := models.Validate(data); err != nil {
		return nil, errors.Wrap(err, "create note")
	}
	var n models.Note
	if err := c.do(ctx, http.MethodPost, "/notes", nil, data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// UpdateNote sends a partial update and returns the stored note
func (c *Client) UpdateNote(ctx context.Context, id string, data models.UpdateNoteData) (*models.Note, error) {
	if err := data.Validate(); err != nil {
		return nil, errors.Wrap(err, "update note")
	}
	var n models.Note
	if err := c.do(ctx, http.MethodPut, notePath(id), nil, data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// ArchiveNote moves a note to the trash
func (c *Client) ArchiveNote(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, notePath(id), nil, nil, nil)
}

// RestoreNote brings a note back from the trash
func (c *Client) RestoreNote(ctx context.Context, id string) (*models.Note, error) {
	var n models.Note
	if err := c.do(ctx, http.MethodPost, notePath(id)+"/restore", nil, nil, &n); err != nil {
		return nil, err
	}
	if n.ID == "" {
		return nil, nil
	}
	return &n, nil
}

// DeleteNotePermanently removes an archived note for good
func (c *Client) DeleteNotePermanently(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, notePath(id)+"/permanent", nil, nil, nil)
}

// ListArchived returns the notes in the trash
func (c *Client) ListArchived(ctx context.Context) ([]models.Note, error) {
	var notes []models.Note
	if err := c.do(ctx, http.MethodGet, "/notes/archived", nil, nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// ReorderNotes stores new sibling positions in one call
func (c *Client) ReorderNotes(ctx context.Context, items []models.ReorderItem) error {
	data := models.ReorderNotesData{Notes: items}
	if err := models.Validate(data); err != nil {
		return errors.Wrap(err, "reorder notes")
	}
	return c.do(ctx, http.MethodPatch, "/notes/reorder", nil, data, nil)
}
