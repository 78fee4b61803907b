package media

import (
	"errors"
	"fmt"
)

var (
	ErrNoVideoStream = errors.New("no video stream")
	ErrNoFrame       = errors.New("no frame captured")
	ErrEmptyOutput   = errors.New("encoder produced no output")
	ErrBadQuality    = errors.New("quality must be in (0, 1]")
	ErrNoSourcePath  = errors.New("source has no file path")
)

// ExtractionError reports a thumbnail that could not be produced.
type ExtractionError struct {
	File string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("thumbnail %s: %v", e.File, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ThumbnailError is the name the upload pipeline uses for ExtractionError.
type ThumbnailError = ExtractionError

// CompressionError reports a re-encode that could not start or produced
// nothing usable.
type CompressionError struct {
	File string
	Err  error
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("compress %s: %v", e.File, e.Err)
}

func (e *CompressionError) Unwrap() error { return e.Err }
