package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/tgienger/stn/internal/models"
)

// ListTags returns every tag of the user
func (c *Client) ListTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := c.do(ctx, http.MethodGet, "/tags", nil, nil, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// CreateTag creates a tag; the name is required
func (c *Client) CreateTag(ctx context.Context, data models.TagData) (*models.Tag, error) {
	if data.Name == "" {
		return nil, errors.New("create tag: name is required")
	}
	if err := models.Validate(data); err != nil {
		return nil, errors.Wrap(err, "create tag")
	}
	var t models.Tag
	if err := c.do(ctx, http.MethodPost, "/tags", nil, data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTag renames or recolors a tag
func (c *Client) UpdateTag(ctx context.Context, id string, data models.TagData) (*models.Tag, error) {
	if err := models.Validate(data); err != nil {
		return nil, errors.Wrap(err, "update tag")
	}
	var t models.Tag
	if err := c.do(ctx, http.MethodPut, "/tags/"+url.PathEscape(id), nil, data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTag removes a tag from the user and every note
func (c *Client) DeleteTag(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tags/"+url.PathEscape(id), nil, nil, nil)
}
