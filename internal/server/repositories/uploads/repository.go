package uploads

import (
	"context"
	"time"

	"github.com/dmitrijs2005/mediadrop/internal/server/models"
)

// Repository stores authorized upload destinations.
type Repository interface {
	Create(ctx context.Context, u *models.Upload) error
	// GetForUpdate reads an upload and locks its row for the surrounding transaction.
	GetForUpdate(ctx context.Context, storageKey string) (*models.Upload, error)
	MarkCompleted(ctx context.Context, storageKey string, at time.Time) error
}
