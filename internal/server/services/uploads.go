package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/mediadrop/internal/common"
	"github.com/dmitrijs2005/mediadrop/internal/logging"
	"github.com/dmitrijs2005/mediadrop/internal/server/models"
	"github.com/dmitrijs2005/mediadrop/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mediadrop/internal/server/storage"
)

const defaultContentType = "application/octet-stream"

type AuthorizeInput struct {
	Filename    string
	ContentType string
	SizeBytes   int64
}

type Authorization struct {
	DestinationURL string
	StorageKey     string
}

type UploadService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       ObjectStore
	maxBytes    int64
	log         logging.Logger
	now         func() time.Time
}

func NewUploadService(db *sql.DB, rm repomanager.RepositoryManager, store ObjectStore, maxBytes int64, log logging.Logger) *UploadService {
	return &UploadService{
		db:          db,
		repomanager: rm,
		store:       store,
		maxBytes:    maxBytes,
		log:         log,
		now:         time.Now,
	}
}

// Authorize issues a presigned PUT destination for one object and records
// it as a pending upload. The content type and size are bound into the
// signature, so the client must send the same Content-Type and
// Content-Length headers.
func (s *UploadService) Authorize(ctx context.Context, in AuthorizeInput) (*Authorization, error) {
	name := strings.TrimSpace(in.Filename)
	if name == "" {
		return nil, fmt.Errorf("%w: filename is required", common.ErrorValidation)
	}
	if in.SizeBytes < 0 {
		return nil, fmt.Errorf("%w: size must not be negative", common.ErrorValidation)
	}
	if s.maxBytes > 0 && in.SizeBytes > s.maxBytes {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", common.ErrorValidation, in.SizeBytes, s.maxBytes)
	}
	ct := strings.TrimSpace(in.ContentType)
	if ct == "" {
		ct = defaultContentType
	}

	now := s.now()
	key := storage.NewKey(name, now)

	url, err := s.store.PresignPut(ctx, key, ct, in.SizeBytes)
	if err != nil {
		return nil, fmt.Errorf("presign put: %w", err)
	}

	err = s.repomanager.Uploads(s.db).Create(ctx, &models.Upload{
		StorageKey:  key,
		Filename:    name,
		ContentType: ct,
		SizeBytes:   in.SizeBytes,
		Status:      models.UploadPending,
		CreatedAt:   now,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "upload authorized", "key", key, "size", in.SizeBytes)
	return &Authorization{DestinationURL: url, StorageKey: key}, nil
}
