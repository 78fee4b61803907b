package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/dmitrijs2005/mediadrop/internal/common"
	"github.com/dmitrijs2005/mediadrop/internal/server/models"
	"github.com/dmitrijs2005/mediadrop/internal/server/services"
)

type authorizeRequest struct {
	Filename    string `json:"filename" validate:"required,max=1024"`
	ContentType string `json:"contentType" validate:"max=255"`
	SizeBytes   int64  `json:"sizeBytes" validate:"gte=0"`
}

type authorizeResponse struct {
	DestinationURL string `json:"destinationUrl"`
	StorageKey     string `json:"storageKey"`
}

func (authorizeResponse) Render(http.ResponseWriter, *http.Request) error { return nil }

type finalizeRequest struct {
	StorageKey              string   `json:"storageKey" validate:"required,max=1024"`
	Title                   string   `json:"title" validate:"required,max=512"`
	Description             string   `json:"description" validate:"max=10000"`
	Project                 string   `json:"project" validate:"max=255"`
	CompanyID               *string  `json:"companyId" validate:"omitempty,max=255"`
	Tags                    []string `json:"tags" validate:"max=64,dive,max=64"`
	SizeBytes               int64    `json:"sizeBytes" validate:"gte=0"`
	OriginalSizeBytes       *int64   `json:"originalSizeBytes" validate:"omitempty,gte=0"`
	ThumbnailKey            *string  `json:"thumbnailKey" validate:"omitempty,max=1024"`
	IsCompressed            bool     `json:"isCompressed"`
	CompressionRatioPercent int      `json:"compressionRatioPercent" validate:"lte=100"`
}

type recordResponse struct {
	ID                      string    `json:"id"`
	StorageKey              string    `json:"storageKey"`
	Title                   string    `json:"title"`
	Description             string    `json:"description"`
	Project                 string    `json:"project"`
	CompanyID               *string   `json:"companyId,omitempty"`
	Tags                    []string  `json:"tags"`
	SizeBytes               int64     `json:"sizeBytes"`
	OriginalSizeBytes       *int64    `json:"originalSizeBytes,omitempty"`
	ThumbnailKey            *string   `json:"thumbnailKey,omitempty"`
	IsCompressed            bool      `json:"isCompressed"`
	CompressionRatioPercent int       `json:"compressionRatioPercent"`
	CreatedAt               time.Time `json:"createdAt"`
	DownloadURL             string    `json:"downloadUrl,omitempty"`

	status int
}

func (rr *recordResponse) Render(_ http.ResponseWriter, r *http.Request) error {
	if rr.status != 0 {
		render.Status(r, rr.status)
	}
	return nil
}

func newRecordResponse(rec *models.Record, status int) *recordResponse {
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	return &recordResponse{
		ID:                      rec.ID,
		StorageKey:              rec.StorageKey,
		Title:                   rec.Title,
		Description:             rec.Description,
		Project:                 rec.Project,
		CompanyID:               rec.CompanyID,
		Tags:                    tags,
		SizeBytes:               rec.SizeBytes,
		OriginalSizeBytes:       rec.OriginalSizeBytes,
		ThumbnailKey:            rec.ThumbnailKey,
		IsCompressed:            rec.IsCompressed,
		CompressionRatioPercent: rec.CompressionRatioPercent,
		CreatedAt:               rec.CreatedAt,
		status:                  status,
	}
}

type healthResponse struct {
	Status string `json:"status"`
}

func (h healthResponse) Render(http.ResponseWriter, *http.Request) error { return nil }

// decode reads a JSON body into v and validates it.
func (s *HTTPServer) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorIncorrectPayload, err)
	}
	if err := s.validator.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	return nil
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.Warn(r.Context(), "health check failed", "error", err)
			render.Status(r, http.StatusServiceUnavailable)
			_ = render.Render(w, r, healthResponse{Status: "unavailable"})
			return
		}
	}
	_ = render.Render(w, r, healthResponse{Status: "ok"})
}

func (s *HTTPServer) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	var req authorizeRequest
	if err := s.decode(w, r, &req); err != nil {
		s.renderError(w, r, err)
		return
	}

	auth, err := s.uploads.Authorize(r.Context(), services.AuthorizeInput{
		Filename:    req.Filename,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
	})
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	_ = render.Render(w, r, authorizeResponse{DestinationURL: auth.DestinationURL, StorageKey: auth.StorageKey})
}

func (s *HTTPServer) handleFinalize(w http.ResponseWriter, r *http.Request) {
	var req finalizeRequest
	if err := s.decode(w, r, &req); err != nil {
		s.renderError(w, r, err)
		return
	}

	rec, err := s.records.Finalize(r.Context(), services.FinalizeInput{
		StorageKey:              req.StorageKey,
		Title:                   req.Title,
		Description:             req.Description,
		Project:                 req.Project,
		CompanyID:               req.CompanyID,
		Tags:                    req.Tags,
		SizeBytes:               req.SizeBytes,
		OriginalSizeBytes:       req.OriginalSizeBytes,
		ThumbnailKey:            req.ThumbnailKey,
		IsCompressed:            req.IsCompressed,
		CompressionRatioPercent: req.CompressionRatioPercent,
	})
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	_ = render.Render(w, r, newRecordResponse(rec, http.StatusCreated))
}

func (s *HTTPServer) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, url, err := s.records.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	resp := newRecordResponse(rec, 0)
	resp.DownloadURL = url
	_ = render.Render(w, r, resp)
}

type errorResponse struct {
	Message string `json:"message"`

	status int
}

func (e *errorResponse) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.status)
	return nil
}

// renderError maps service errors onto HTTP statuses. Unknown errors are
// logged and reported as a generic 500.
func (s *HTTPServer) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, common.ErrorValidation), errors.Is(err, common.ErrorIncorrectPayload):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrorNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, common.ErrAlreadyFinalized), errors.Is(err, common.ErrorAlreadyExists):
		status, msg = http.StatusConflict, common.ErrAlreadyFinalized.Error()
	case errors.Is(err, common.ErrObjectMissing):
		status, msg = http.StatusUnprocessableEntity, err.Error()
	default:
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	_ = render.Render(w, r, &errorResponse{Message: msg, status: status})
}
