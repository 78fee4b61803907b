package client

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable     = errors.New("server unavailable")
	ErrInvalidResponse = errors.New("invalid server response")
)

// AuthorizationError is returned when the server refuses to issue a write
// destination for a file.
type AuthorizationError struct {
	Status  int
	Message string
	Err     error
}

func (e *AuthorizationError) Error() string {
	return describe("authorization failed", e.Status, e.Message, e.Err)
}

func (e *AuthorizationError) Unwrap() error { return e.Err }

// FinalizationError is returned when the server does not create the record.
type FinalizationError struct {
	Status  int
	Message string
	Err     error
}

func (e *FinalizationError) Error() string {
	return describe("finalization failed", e.Status, e.Message, e.Err)
}

func (e *FinalizationError) Unwrap() error { return e.Err }

func describe(prefix string, status int, msg string, err error) string {
	switch {
	case msg != "" && status != 0:
		return fmt.Sprintf("%s (%d): %s", prefix, status, msg)
	case msg != "":
		return fmt.Sprintf("%s: %s", prefix, msg)
	case err != nil:
		return fmt.Sprintf("%s: %v", prefix, err)
	default:
		return fmt.Sprintf("%s: status %d", prefix, status)
	}
}
