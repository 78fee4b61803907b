// Package services holds the server use cases: issuing upload
// destinations and finalizing uploaded objects into records.
package services

import (
	"context"

	"github.com/dmitrijs2005/mediadrop/internal/server/models"
	"github.com/dmitrijs2005/mediadrop/internal/server/storage"
)

// ObjectStore is the part of storage.Store the services use.
type ObjectStore interface {
	PresignPut(ctx context.Context, key, contentType string, size int64) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
	Stat(ctx context.Context, key string) (*storage.ObjectInfo, error)
}

// Publisher announces finalized records.
type Publisher interface {
	RecordFinalized(ctx context.Context, rec *models.Record) error
}
