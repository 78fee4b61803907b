package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/mediadrop/internal/client/models"
	"github.com/dmitrijs2005/mediadrop/internal/logging"
)

const (
	authorizePath = "/api/uploads/authorize"
	recordsPath   = "/api/records"
	healthPath    = "/healthz"

	maxErrorBody = 64 << 10
)

type HTTPClient struct {
	base *url.URL
	http *http.Client
	log  logging.Logger
}

// NewHTTPClient returns a coordinator for the server at baseURL. timeout
// bounds each request; zero means no client-side limit.
func NewHTTPClient(baseURL string, timeout time.Duration, log logging.Logger) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	if log == nil {
		log = logging.Nop
	}
	return &HTTPClient{base: u, http: &http.Client{Timeout: timeout}, log: log}, nil
}

type errorBody struct {
	Message string `json:"message"`
}

// Authorize asks for a presigned destination for a file of the given name,
// type and size.
func (c *HTTPClient) Authorize(ctx context.Context, filename, contentType string, size int64) (*models.Authorization, error) {
	req := models.AuthorizeRequest{Filename: filename, ContentType: contentType, SizeBytes: size}

	var out models.Authorization
	status, msg, err := c.postJSON(ctx, authorizePath, req, &out)
	if err != nil {
		return nil, &AuthorizationError{Status: status, Message: msg, Err: err}
	}
	if out.DestinationURL == "" || out.StorageKey == "" {
		return nil, &AuthorizationError{Status: status, Message: "response misses destinationUrl or storageKey", Err: ErrInvalidResponse}
	}
	if _, err := url.ParseRequestURI(out.DestinationURL); err != nil {
		return nil, &AuthorizationError{Status: status, Message: "destinationUrl is not a valid URL", Err: ErrInvalidResponse}
	}

	c.log.Debug(ctx, "upload authorized", "file", filename, "storage_key", out.StorageKey)
	return &out, nil
}

// Finalize records an uploaded object. The returned reference always has
// an ID.
func (c *HTTPClient) Finalize(ctx context.Context, req models.FinalizeRequest) (*models.RecordRef, error) {
	if req.Tags == nil {
		req.Tags = []string{}
	}

	var out models.RecordRef
	status, msg, err := c.postJSON(ctx, recordsPath, req, &out)
	if err != nil {
		return nil, &FinalizationError{Status: status, Message: msg, Err: err}
	}
	if out.ID == "" {
		return nil, &FinalizationError{Status: status, Message: "response misses record id", Err: ErrInvalidResponse}
	}
	if out.StorageKey == "" {
		out.StorageKey = req.StorageKey
	}

	c.log.Debug(ctx, "record finalized", "record_id", out.ID, "storage_key", out.StorageKey)
	return &out, nil
}

// Ping checks the server's health endpoint.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(healthPath), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check returned %s", ErrUnavailable, resp.Status)
	}
	return nil
}

func (c *HTTPClient) endpoint(path string) string {
	return c.base.JoinPath(path).String()
}

// postJSON sends in and decodes a 2xx answer into out. On failure it returns
// the HTTP status (0 when none) and the server's message, if any.
func (c *HTTPClient) postJSON(ctx context.Context, path string, in, out any) (int, string, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return 0, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return 0, "", err
		}
		return 0, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var eb errorBody
		if json.Unmarshal(raw, &eb) != nil || eb.Message == "" {
			eb.Message = strings.TrimSpace(string(raw))
		}
		if eb.Message == "" {
			eb.Message = resp.Status
		}
		return resp.StatusCode, eb.Message, fmt.Errorf("server returned %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, "malformed response body", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return resp.StatusCode, "", nil
}
