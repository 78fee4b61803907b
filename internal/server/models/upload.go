// Package models defines server-side data models persisted in the database.
package models

import "time"

type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadCompleted UploadStatus = "completed"
)

// Upload is an authorized destination handed out to a client. It becomes
// completed once a record is finalized against it.
type Upload struct {
	StorageKey  string
	Filename    string
	ContentType string
	SizeBytes   int64
	Status      UploadStatus
	CreatedAt   time.Time
	CompletedAt *time.Time
}
