package models

import "fmt"

// Snapshot is an immutable view of a job at the moment it changed, or the
// final batch summary. Stage-specific data is only reachable through the
// accessor valid for the snapshot's status.
type Snapshot struct {
	JobID     string
	FileName  string
	Status    Status
	Progress  int
	Aggregate int

	storageKey   string
	thumbnailKey string
	failure      string
	record       *RecordRef
	compressed   bool
	originalSize int64
	sentSize     int64

	summary *Summary
}

// SummarySnapshot wraps the end-of-batch summary.
func SummarySnapshot(s Summary, aggregate int) Snapshot {
	return Snapshot{Aggregate: aggregate, summary: &s}
}

// Summary is set only on the last snapshot of a batch.
func (s Snapshot) Summary() (Summary, bool) {
	if s.summary == nil {
		return Summary{}, false
	}
	return *s.summary, true
}

// Failure returns the reason of a failed job.
func (s Snapshot) Failure() (string, bool) {
	if s.summary != nil || s.Status != StatusFailed {
		return "", false
	}
	return s.failure, true
}

// Record returns the finalized record of a completed job.
func (s Snapshot) Record() (RecordRef, bool) {
	if s.summary != nil || s.Status != StatusCompleted || s.record == nil {
		return RecordRef{}, false
	}
	return *s.record, true
}

// StorageKey is available once authorization succeeded.
func (s Snapshot) StorageKey() (string, bool) {
	return s.storageKey, s.summary == nil && s.storageKey != ""
}

// ThumbnailKey is available once the thumbnail was uploaded.
func (s Snapshot) ThumbnailKey() (string, bool) {
	return s.thumbnailKey, s.summary == nil && s.thumbnailKey != ""
}

// Sizes reports the original size, the size sent, and whether the payload
// was the compressed re-encode.
func (s Snapshot) Sizes() (original, sent int64, compressed bool) {
	return s.originalSize, s.sentSize, s.compressed
}

// Summary counts the terminal outcomes of a batch.
type Summary struct {
	Succeeded int
	Failed    int
	Total     int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d succeeded / %d", s.Succeeded, s.Total)
}
