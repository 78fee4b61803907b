package records

import (
	"context"

	"github.com/dmitrijs2005/mediadrop/internal/server/models"
)

// Repository stores finalized media records and their tags.
type Repository interface {
	// Create inserts rec and its tags; rec.ID must be set, CreatedAt is filled.
	Create(ctx context.Context, rec *models.Record) error
	Get(ctx context.Context, id string) (*models.Record, error)
}
