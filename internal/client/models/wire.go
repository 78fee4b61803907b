package models

import "time"

// BatchMetadata is the descriptive bundle applied to every file of a batch.
type BatchMetadata struct {
	Title       string
	Description string
	Project     string
	CompanyID   string
	Tags        []string
}

type AuthorizeRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
}

type Authorization struct {
	DestinationURL string `json:"destinationUrl"`
	StorageKey     string `json:"storageKey"`
}

type FinalizeRequest struct {
	StorageKey              string   `json:"storageKey"`
	Title                   string   `json:"title"`
	Description             string   `json:"description"`
	Project                 string   `json:"project"`
	CompanyID               *string  `json:"companyId,omitempty"`
	Tags                    []string `json:"tags"`
	SizeBytes               int64    `json:"sizeBytes"`
	OriginalSizeBytes       *int64   `json:"originalSizeBytes,omitempty"`
	ThumbnailKey            *string  `json:"thumbnailKey,omitempty"`
	IsCompressed            bool     `json:"isCompressed"`
	CompressionRatioPercent int      `json:"compressionRatioPercent"`
}

// RecordRef identifies a finalized record.
type RecordRef struct {
	ID         string    `json:"id"`
	StorageKey string    `json:"storageKey"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"createdAt"`
}

// HistoryEntry is one terminal job persisted by the client.
type HistoryEntry struct {
	ID                int64
	JobID             string
	FileName          string
	Status            Status
	StorageKey        string
	RecordID          string
	Failure           string
	SizeBytes         int64
	OriginalSizeBytes int64
	Compressed        bool
	FinishedAt        time.Time
}

// HistoryEntryFromSnapshot converts a terminal snapshot. It reports false
// for non-terminal snapshots and summaries.
func HistoryEntryFromSnapshot(s Snapshot, at time.Time) (HistoryEntry, bool) {
	if _, ok := s.Summary(); ok || !s.Status.Terminal() {
		return HistoryEntry{}, false
	}
	original, sent, compressed := s.Sizes()
	e := HistoryEntry{
		JobID:             s.JobID,
		FileName:          s.FileName,
		Status:            s.Status,
		SizeBytes:         sent,
		OriginalSizeBytes: original,
		Compressed:        compressed,
		FinishedAt:        at.UTC(),
	}
	e.StorageKey, _ = s.StorageKey()
	e.Failure, _ = s.Failure()
	if ref, ok := s.Record(); ok {
		e.RecordID = ref.ID
	}
	return e, true
}
