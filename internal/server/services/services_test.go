package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/mediadrop/internal/common"
	"github.com/dmitrijs2005/mediadrop/internal/dbx"
	"github.com/dmitrijs2005/mediadrop/internal/server/models"
	"github.com/dmitrijs2005/mediadrop/internal/server/repositories/records"
	"github.com/dmitrijs2005/mediadrop/internal/server/repositories/uploads"
	"github.com/dmitrijs2005/mediadrop/internal/server/storage"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

type fakeUploadsRepo struct {
	rows      map[string]*models.Upload
	createErr error
	getErr    error
	markErr   map[string]error
	created   []*models.Upload
	completed []string
}

func newFakeUploads(ups ...*models.Upload) *fakeUploadsRepo {
	f := &fakeUploadsRepo{rows: map[string]*models.Upload{}, markErr: map[string]error{}}
	for _, u := range ups {
		f.rows[u.StorageKey] = u
	}
	return f
}

func (f *fakeUploadsRepo) Create(_ context.Context, u *models.Upload) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, u)
	return nil
}

func (f *fakeUploadsRepo) GetForUpdate(_ context.Context, key string) (*models.Upload, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.rows[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (f *fakeUploadsRepo) MarkCompleted(_ context.Context, key string, _ time.Time) error {
	if err := f.markErr[key]; err != nil {
		return err
	}
	f.completed = append(f.completed, key)
	return nil
}

type fakeRecordsRepo struct {
	createErr error
	created   []*models.Record
	getOut    *models.Record
	getErr    error
}

func (f *fakeRecordsRepo) Create(_ context.Context, rec *models.Record) error {
	if f.createErr != nil {
		return f.createErr
	}
	rec.CreatedAt = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	f.created = append(f.created, rec)
	return nil
}

func (f *fakeRecordsRepo) Get(context.Context, string) (*models.Record, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

type fakeRepoManager struct {
	u *fakeUploadsRepo
	r *fakeRecordsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Uploads(dbx.DBTX) uploads.Repository          { return m.u }
func (m *fakeRepoManager) Records(dbx.DBTX) records.Repository          { return m.r }

type fakeStore struct {
	putURL    string
	putErr    error
	putKey    string
	putCT     string
	putSize   int64
	getURL    string
	getErr    error
	statErr   error
	statCalls int
}

func (f *fakeStore) PresignPut(_ context.Context, key, ct string, size int64) (string, error) {
	f.putKey, f.putCT, f.putSize = key, ct, size
	return f.putURL, f.putErr
}

func (f *fakeStore) PresignGet(context.Context, string) (string, error) {
	return f.getURL, f.getErr
}

func (f *fakeStore) Stat(_ context.Context, key string) (*storage.ObjectInfo, error) {
	f.statCalls++
	if f.statErr != nil {
		return nil, f.statErr
	}
	return &storage.ObjectInfo{Key: key, Size: 1}, nil
}

type fakePublisher struct {
	err  error
	sent []*models.Record
}

func (f *fakePublisher) RecordFinalized(_ context.Context, rec *models.Record) error {
	f.sent = append(f.sent, rec)
	return f.err
}

var errBoom = errors.New("boom")
