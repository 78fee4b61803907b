package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/mediadrop/internal/client/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *HTTPClient {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	c, err := NewHTTPClient(ts.URL+"/", 5*time.Second, nil)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestAuthorize_Success(t *testing.T) {
	var got models.AuthorizeRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/uploads/authorize", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]string{
			"destinationUrl": "https://s3.local/media/uploads/k.mp4?X-Amz-Signature=x",
			"storageKey":     "uploads/2026/10/16/k.mp4",
		})
	})

	auth, err := c.Authorize(context.Background(), "clip.mp4", "video/mp4", 1234)
	require.NoError(t, err)

	assert.Equal(t, models.AuthorizeRequest{Filename: "clip.mp4", ContentType: "video/mp4", SizeBytes: 1234}, got)
	assert.Equal(t, "uploads/2026/10/16/k.mp4", auth.StorageKey)
	assert.Contains(t, auth.DestinationURL, "X-Amz-Signature")
}

func TestAuthorize_Errors(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantMsg    string
		wantIs     error
	}{
		{
			name: "service message",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"message": "file type not allowed"})
			},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "file type not allowed",
		},
		{
			name: "plain text error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "gateway down", http.StatusBadGateway)
			},
			wantStatus: http.StatusBadGateway,
			wantMsg:    "gateway down",
		},
		{
			name: "missing fields",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]string{"storageKey": "k"})
			},
			wantStatus: http.StatusOK,
			wantIs:     ErrInvalidResponse,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("{"))
			},
			wantStatus: http.StatusOK,
			wantIs:     ErrInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)

			_, err := c.Authorize(context.Background(), "a.mp4", "video/mp4", 1)

			var ae *AuthorizationError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.wantStatus, ae.Status)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, ae.Message)
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
		})
	}
}

func TestAuthorize_Unavailable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c, err := NewHTTPClient(url, time.Second, nil)
	require.NoError(t, err)

	_, err = c.Authorize(context.Background(), "a.mp4", "video/mp4", 1)
	var ae *AuthorizationError
	require.ErrorAs(t, err, &ae)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Zero(t, ae.Status)
}

func TestFinalize(t *testing.T) {
	var got models.FinalizeRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/records", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusCreated, map[string]any{"id": "rec-7", "title": got.Title})
	})

	orig := int64(100)
	ref, err := c.Finalize(context.Background(), models.FinalizeRequest{
		StorageKey: "uploads/k.mp4", Title: "Trip", SizeBytes: 40, OriginalSizeBytes: &orig,
		IsCompressed: true, CompressionRatioPercent: 60,
	})
	require.NoError(t, err)

	assert.Equal(t, "rec-7", ref.ID)
	assert.Equal(t, "uploads/k.mp4", ref.StorageKey, "falls back to the requested key")
	assert.Equal(t, "Trip", ref.Title)
	assert.Equal(t, []string{}, got.Tags)
	require.NotNil(t, got.OriginalSizeBytes)
	assert.EqualValues(t, 100, *got.OriginalSizeBytes)
	assert.Nil(t, got.ThumbnailKey)
}

func TestFinalize_Errors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "object not found in storage"})
	})
	_, err := c.Finalize(context.Background(), models.FinalizeRequest{StorageKey: "k"})

	var fe *FinalizationError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusUnprocessableEntity, fe.Status)
	assert.Equal(t, "object not found in storage", fe.Message)

	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"title": "no id"})
	})
	_, err = c.Finalize(context.Background(), models.FinalizeRequest{StorageKey: "k"})
	require.ErrorAs(t, err, &fe)
	assert.True(t, errors.Is(err, ErrInvalidResponse))
}

func TestPing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	require.NoError(t, c.Ping(context.Background()))

	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	assert.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)
}

func TestNewHTTPClient_RejectsBadURL(t *testing.T) {
	_, err := NewHTTPClient("ftp://example.com", time.Second, nil)
	require.Error(t, err)
	_, err = NewHTTPClient("::", time.Second, nil)
	require.Error(t, err)
}

func TestInitDatabase(t *testing.T) {
	repos, err := InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	defer repos.Close()

	list, err := repos.History.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}
