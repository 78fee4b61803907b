package history

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mediadrop/internal/client/models"
	"github.com/dmitrijs2005/mediadrop/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Add(ctx context.Context, e *models.HistoryEntry) error {
	query := `insert into upload_history (job_id, file_name, status, storage_key, record_id, failure,
			size_bytes, original_size_bytes, compressed, finished_at)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query, e.JobID, e.FileName, string(e.Status), e.StorageKey, e.RecordID, e.Failure,
		e.SizeBytes, e.OriginalSizeBytes, e.Compressed, e.FinishedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get history entry id: %w", err)
	}
	e.ID = id
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]*models.HistoryEntry, error) {
	query := `select id, job_id, file_name, status, storage_key, record_id, failure,
			size_bytes, original_size_bytes, compressed, finished_at
		from upload_history order by finished_at desc, id desc`
	args := []any{}
	if limit > 0 {
		query += ` limit ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error selecting history: %w", err)
	}
	defer rows.Close()

	var out []*models.HistoryEntry
	for rows.Next() {
		e := &models.HistoryEntry{}
		var status, finished string
		if err := rows.Scan(&e.ID, &e.JobID, &e.FileName, &status, &e.StorageKey, &e.RecordID, &e.Failure,
			&e.SizeBytes, &e.OriginalSizeBytes, &e.Compressed, &finished); err != nil {
			return nil, fmt.Errorf("error scanning history row: %w", err)
		}
		e.Status = models.Status(status)
		if e.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("bad finished_at %q: %w", finished, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `delete from upload_history`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	return res.RowsAffected()
}
