package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/mediadrop/internal/common"
	"github.com/dmitrijs2005/mediadrop/internal/dbx"
	"github.com/dmitrijs2005/mediadrop/internal/logging"
	"github.com/dmitrijs2005/mediadrop/internal/server/models"
	"github.com/dmitrijs2005/mediadrop/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mediadrop/internal/server/storage"
)

var newRecordID = uuid.NewString

type FinalizeInput struct {
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
}

type RecordService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       ObjectStore
	publisher   Publisher
	log         logging.Logger
	now         func() time.Time
}

func NewRecordService(db *sql.DB, rm repomanager.RepositoryManager, store ObjectStore, pub Publisher, log logging.Logger) *RecordService {
	return &RecordService{
		db:          db,
		repomanager: rm,
		store:       store,
		publisher:   pub,
		log:         log,
		now:         time.Now,
	}
}

// Finalize turns a pending upload into a record. The upload row is locked
// for the whole transaction, so two concurrent finalize calls for the same
// key cannot both succeed. The event is published after commit and a
// publish failure does not fail the call.
func (s *RecordService) Finalize(ctx context.Context, in FinalizeInput) (*models.Record, error) {
	if err := validateFinalize(&in); err != nil {
		return nil, err
	}

	rec := &models.Record{
		ID:                      newRecordID(),
		StorageKey:              in.StorageKey,
		Title:                   in.Title,
		Description:             in.Description,
		Project:                 in.Project,
		CompanyID:               in.CompanyID,
		Tags:                    normalizeTags(in.Tags),
		SizeBytes:               in.SizeBytes,
		OriginalSizeBytes:       in.OriginalSizeBytes,
		ThumbnailKey:            in.ThumbnailKey,
		IsCompressed:            in.IsCompressed,
		CompressionRatioPercent: in.CompressionRatioPercent,
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		uploadRepo := s.repomanager.Uploads(tx)
		recordRepo := s.repomanager.Records(tx)

		u, err := uploadRepo.GetForUpdate(ctx, in.StorageKey)
		if err != nil {
			return err
		}
		if u.Status != models.UploadPending {
			return common.ErrAlreadyFinalized
		}

		if _, err := s.store.Stat(ctx, in.StorageKey); err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				return common.ErrObjectMissing
			}
			return err
		}

		now := s.now()
		if err := uploadRepo.MarkCompleted(ctx, in.StorageKey, now); err != nil {
			return err
		}
		if in.ThumbnailKey != nil {
			err := uploadRepo.MarkCompleted(ctx, *in.ThumbnailKey, now)
			if err != nil && !errors.Is(err, common.ErrAlreadyFinalized) {
				return err
			}
			if err != nil {
				s.log.Warn(ctx, "thumbnail upload not pending", "key", *in.ThumbnailKey)
			}
		}

		if err := recordRepo.Create(ctx, rec); err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return common.ErrAlreadyFinalized
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "record finalized", "record", rec.ID, "key", rec.StorageKey)
	if err := s.publisher.RecordFinalized(ctx, rec); err != nil {
		s.log.Error(ctx, "publish record event", "record", rec.ID, "error", err)
	}
	return rec, nil
}

// Get returns a record together with a short-lived download URL.
func (s *RecordService) Get(ctx context.Context, id string) (*models.Record, string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, "", common.ErrorNotFound
	}
	rec, err := s.repomanager.Records(s.db).Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	url, err := s.store.PresignGet(ctx, rec.StorageKey)
	if err != nil {
		return nil, "", fmt.Errorf("presign get: %w", err)
	}
	return rec, url, nil
}

func validateFinalize(in *FinalizeInput) error {
	in.StorageKey = strings.TrimSpace(in.StorageKey)
	in.Title = strings.TrimSpace(in.Title)
	switch {
	case in.StorageKey == "":
		return fmt.Errorf("%w: storageKey is required", common.ErrorValidation)
	case in.Title == "":
		return fmt.Errorf("%w: title is required", common.ErrorValidation)
	case in.SizeBytes < 0:
		return fmt.Errorf("%w: size must not be negative", common.ErrorValidation)
	case in.CompressionRatioPercent > 100:
		return fmt.Errorf("%w: compressionRatioPercent must be at most 100", common.ErrorValidation)
	case in.ThumbnailKey != nil && *in.ThumbnailKey == in.StorageKey:
		return fmt.Errorf("%w: thumbnailKey equals storageKey", common.ErrorValidation)
	}
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
