package models

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mediadrop/internal/blob"
)

var (
	ErrJobFinished      = errors.New("job already reached a terminal state")
	ErrStatusRegression = errors.New("job status cannot move backwards")
	ErrInvalidStatus    = errors.New("invalid job status")
)

// Job tracks one file of a batch. It is owned by a single worker and is
// never shared; observers receive Snapshot copies instead.
type Job struct {
	ID     string
	Source *blob.Blob

	// Candidate is the payload actually sent; it starts as Source.
	Candidate *blob.Blob
	Thumbnail *blob.Blob

	StorageKey   string
	ThumbnailKey string

	status   Status
	progress int
	failure  string
	record   *RecordRef
}

func NewJob(id string, src *blob.Blob) *Job {
	return &Job{ID: id, Source: src, Candidate: src, status: StatusQueued}
}

func (j *Job) Status() Status { return j.status }
func (j *Job) Progress() int  { return j.progress }

// Compressed reports whether Candidate replaced the source.
func (j *Job) Compressed() bool { return j.Candidate != nil && j.Candidate != j.Source }

// Advance moves the job to a non-terminal stage. Stages only move forward.
func (j *Job) Advance(s Status) error {
	if j.status.Terminal() {
		return ErrJobFinished
	}
	if !s.Valid() || s.Terminal() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	if statusRank[s] < statusRank[j.status] {
		return fmt.Errorf("%w: %s -> %s", ErrStatusRegression, j.status, s)
	}
	j.status = s
	if s == StatusUploading {
		j.progress = 0
	}
	return nil
}

// SetProgress records transfer progress. Values outside the Uploading stage
// and values lower than the current one are ignored; it reports whether the
// stored value changed.
func (j *Job) SetProgress(p int) bool {
	if j.status != StatusUploading {
		return false
	}
	p = min(max(p, 0), 100)
	if p <= j.progress {
		return false
	}
	j.progress = p
	return true
}

// Fail moves the job to Failed from any non-terminal stage.
func (j *Job) Fail(reason string) error {
	if j.status.Terminal() {
		return ErrJobFinished
	}
	if reason == "" {
		reason = "unknown error"
	}
	j.status = StatusFailed
	j.failure = reason
	return nil
}

// Complete marks the job finalized.
func (j *Job) Complete(ref RecordRef) error {
	if j.status.Terminal() {
		return ErrJobFinished
	}
	j.status = StatusCompleted
	j.progress = 100
	j.record = &ref
	return nil
}

// Snapshot copies the observable state of the job.
func (j *Job) Snapshot(aggregate int) Snapshot {
	s := Snapshot{
		JobID:     j.ID,
		FileName:  j.Source.Name(),
		Status:    j.status,
		Progress:  j.progress,
		Aggregate: aggregate,

		storageKey:   j.StorageKey,
		thumbnailKey: j.ThumbnailKey,
		failure:      j.failure,
		compressed:   j.Compressed(),
		originalSize: j.Source.Size(),
	}
	if j.Candidate != nil {
		s.sentSize = j.Candidate.Size()
	}
	if j.record != nil {
		ref := *j.record
		s.record = &ref
	}
	return s
}
