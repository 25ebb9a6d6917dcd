package usersapi

import (
	"errors"
	"fmt"
)

// ErrUnexpectedShape is wrapped by ParseError when a payload is valid JSON
// but not a list of user objects.
var ErrUnexpectedShape = errors.New("usersapi: unexpected payload shape")

// StatusError reports a non-2xx response. The body is never inspected.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("usersapi: GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// ParseError reports a body that could not be decoded or validated.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("usersapi: parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
