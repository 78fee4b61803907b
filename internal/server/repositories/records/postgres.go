package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mediadrop/internal/common"
	"github.com/dmitrijs2005/mediadrop/internal/dbx"
	"github.com/dmitrijs2005/mediadrop/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create writes the record row then one row per tag. It should run inside
// a transaction so a failing tag insert leaves nothing behind.
func (r *PostgresRepository) Create(ctx context.Context, rec *models.Record) error {
	query := `
		INSERT INTO records (id, storage_key, title, description, project, company_id,
			size_bytes, original_size_bytes, thumbnail_key, is_compressed, compression_ratio_percent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		rec.ID, rec.StorageKey, rec.Title, rec.Description, rec.Project, nullString(rec.CompanyID),
		rec.SizeBytes, nullInt64(rec.OriginalSizeBytes), nullString(rec.ThumbnailKey),
		rec.IsCompressed, rec.CompressionRatioPercent,
	).Scan(&rec.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	for _, tag := range rec.Tags {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO record_tags (record_id, tag) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			rec.ID, tag); err != nil {
			return fmt.Errorf("insert tag %q: %w", tag, err)
		}
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Record, error) {
	query := `
		SELECT id, storage_key, title, description, project, company_id, size_bytes,
			original_size_bytes, thumbnail_key, is_compressed, compression_ratio_percent, created_at
		FROM records
		WHERE id = $1
	`
	var (
		rec      models.Record
		company  sql.NullString
		original sql.NullInt64
		thumb    sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.StorageKey, &rec.Title, &rec.Description, &rec.Project, &company, &rec.SizeBytes,
		&original, &thumb, &rec.IsCompressed, &rec.CompressionRatioPercent, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if company.Valid {
		rec.CompanyID = &company.String
	}
	if original.Valid {
		rec.OriginalSizeBytes = &original.Int64
	}
	if thumb.Valid {
		rec.ThumbnailKey = &thumb.String
	}

	rows, err := r.db.QueryContext(ctx, `SELECT tag FROM record_tags WHERE record_id = $1 ORDER BY tag`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to select tags: %w", err)
	}
	defer rows.Close()

	rec.Tags = []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		rec.Tags = append(rec.Tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &rec, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
