package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrAuthentication means the token is missing, invalid or expired.
	ErrAuthentication = errors.New("authentication failed, please log in again")
	// ErrUserNotFound means the invited user has never logged in to the server.
	ErrUserNotFound = errors.New("user not found")
)

// Error is a non-2xx response from the server.
type Error struct {
	StatusCode int
	Status     string
	Message    string
	Body       string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %s: %s", e.Status, e.Message)
	}
	if e.Body != "" {
		return fmt.Sprintf("server returned %s: %s", e.Status, e.Body)
	}
	return "server returned " + e.Status
}

// newError builds an *Error from resp, reading at most 64KB of the body.
func newError(resp *http.Response) *Error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	e := &Error{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(b)),
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(b, &payload) == nil {
		e.Message = payload.Error
		if e.Message == "" {
			e.Message = payload.Message
		}
	}
	return e
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not a
// server response (e.g. a connection failure).
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 or 403 response.
func IsUnauthorized(err error) bool {
	code := StatusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
