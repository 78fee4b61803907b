package history

import (
	"context"

	"github.com/dmitrijs2005/mediadrop/internal/client/models"
)

// Repository stores terminal job outcomes.
type Repository interface {
	// Add appends e and sets its ID.
	Add(ctx context.Context, e *models.HistoryEntry) error

	// List returns up to limit entries, most recent first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]*models.HistoryEntry, error)

	// Clear removes every entry and reports how many were removed.
	Clear(ctx context.Context) (int64, error)
}
