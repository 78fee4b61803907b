package uploads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mediadrop/internal/common"
	"github.com/dmitrijs2005/mediadrop/internal/dbx"
	"github.com/dmitrijs2005/mediadrop/internal/server/models"
)

// PostgresRepository implements upload storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a pending upload and fills CreatedAt.
func (r *PostgresRepository) Create(ctx context.Context, u *models.Upload) error {
	query := `
		INSERT INTO uploads (storage_key, filename, content_type, size_bytes, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	if u.Status == "" {
		u.Status = models.UploadPending
	}
	err := r.db.QueryRowContext(ctx, query,
		u.StorageKey, u.Filename, u.ContentType, u.SizeBytes, string(u.Status)).Scan(&u.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, storageKey string) (*models.Upload, error) {
	query := `
		SELECT storage_key, filename, content_type, size_bytes, status, created_at, completed_at
		FROM uploads
		WHERE storage_key = $1
		FOR UPDATE
	`
	var (
		u      models.Upload
		status string
		done   sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, storageKey).
		Scan(&u.StorageKey, &u.Filename, &u.ContentType, &u.SizeBytes, &status, &u.CreatedAt, &done)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	u.Status = models.UploadStatus(status)
	if done.Valid {
		t := done.Time
		u.CompletedAt = &t
	}
	return &u, nil
}

// MarkCompleted flips a pending upload to completed. An upload that is not
// pending anymore yields common.ErrAlreadyFinalized.
func (r *PostgresRepository) MarkCompleted(ctx context.Context, storageKey string, at time.Time) error {
	query := `
		UPDATE uploads SET status = $2, completed_at = $3
		WHERE storage_key = $1 AND status = $4
	`
	res, err := r.db.ExecContext(ctx, query,
		storageKey, string(models.UploadCompleted), at, string(models.UploadPending))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrAlreadyFinalized
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
