package api

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownOperation = errors.New("api: unknown operation")
	ErrMissingParam     = errors.New("api: missing path parameter")
)

// Error is a failed API call. Message is the server's message field,
// verbatim, and is what the user sees.
type Error struct {
	Op      string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("api: %s: status %d: %s", e.Op, e.Status, e.Message)
}

// Message extracts the user-facing message from err. API errors yield the
// server's message (possibly empty); other errors yield their text.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// IsStatus reports whether err is an API error with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}
