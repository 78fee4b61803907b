package upload

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyBatch      = errors.New("batch contains no files")
	ErrInvalidQuality  = errors.New("quality must be within [0, 1]")
	ErrNilFile         = errors.New("batch contains a nil file")
	ErrBatchInProgress = errors.New("a batch is already running")
	ErrNoActiveBatch   = errors.New("no batch is running")
)

// BatchInputError rejects a submission before any job is created.
type BatchInputError struct {
	Err error
}

func (e *BatchInputError) Error() string {
	return fmt.Sprintf("invalid batch: %v", e.Err)
}

func (e *BatchInputError) Unwrap() error { return e.Err }
