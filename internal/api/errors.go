package api

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Error is a non-2xx answer of the notes API
type Error struct {
	Status  int    `json:"-"`
	Method  string `json:"-"`
	Path    string `json:"-"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// StatusOf returns the HTTP status carried by err, or 0
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsUnauthorized reports whether the session is missing or expired
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// IsNotFound reports whether the requested resource does not exist
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// Message returns the text to show the user for err
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if err == nil {
		return fallback
	}
	return fallback + ": " + errors.Cause(err).Error()
}
