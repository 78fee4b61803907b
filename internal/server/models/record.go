package models

import "time"

// Record is the persisted description of an uploaded media object.
type Record struct {
	ID                      string
	StorageKey              string
	Title                   string
	Description             string
	Project                 string
	CompanyID               *string
	Tags                    []string
	SizeBytes               int64
	OriginalSizeBytes       *int64
	ThumbnailKey            *string
	IsCompressed            bool
	CompressionRatioPercent int
	CreatedAt               time.Time
}
