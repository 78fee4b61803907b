// Package common defines sentinel errors shared by the server layers.
// Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal         = errors.New("internal error")
	ErrorValidation       = errors.New("validation error")
	ErrAlreadyFinalized   = errors.New("upload already finalized")
	ErrObjectMissing      = errors.New("uploaded object not found in storage")
	ErrorIncorrectPayload = errors.New("incorrect payload")
)
