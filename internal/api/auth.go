package api

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/tgienger/stn/internal/models"
)

type authResponse struct {
	User *models.User `json:"user"`
}

// Login starts a session and returns the user
func (c *Client) Login(ctx context.Context, creds models.Credentials) (*models.User, error) {
	if err := models.Validate(creds); err != nil {
		return nil, errors.Wrap(err, "login")
	}
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, creds, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, errors.New("login: response carries no user")
	}
	return resp.User, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, reg models.Registration) (*models.User, error) {
	if err := models.Validate(reg); err != nil {
		return nil, errors.Wrap(err, "register")
	}
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, reg, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Logout ends the session. The local session is dropped even when the
// server cannot be reached.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
	c.ClearSession()
	return err
}

// Me returns the logged in user, or nil when there is no valid session
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &u); err != nil {
		if IsUnauthorized(err) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
