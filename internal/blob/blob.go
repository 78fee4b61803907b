// Package blob describes the byte payloads moved through the upload pipeline:
// user-selected source files, derived thumbnails and re-encoded videos.
package blob

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

const defaultContentType = "application/octet-stream"

var ErrNoContent = errors.New("blob has no content handle")

// Blob is an immutable, re-openable payload. It is backed either by a file on
// disk or by an in-memory buffer.
type Blob struct {
	name        string
	contentType string
	size        int64
	path        string
	data        []byte

	releaseOnce sync.Once
	release     func() error
}

// FromFile describes a file on disk. The content type is sniffed from the
// file's leading bytes; when sniffing only yields a generic answer the file
// extension is consulted.
func FromFile(path string) (*Blob, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	return &Blob{
		name:        filepath.Base(path),
		contentType: DetectContentType(path),
		size:        st.Size(),
		path:        path,
	}, nil
}

// FromTempFile is like FromFile with an explicit content type. Release
// removes dir, which must contain path.
func FromTempFile(path, name, contentType, dir string) (*Blob, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &Blob{
		name:        name,
		contentType: contentType,
		size:        st.Size(),
		path:        path,
		release:     func() error { return os.RemoveAll(dir) },
	}, nil
}

// FromBytes wraps an in-memory payload.
func FromBytes(name, contentType string, data []byte) *Blob {
	if contentType == "" {
		contentType = defaultContentType
	}
	return &Blob{
		name:        name,
		contentType: contentType,
		size:        int64(len(data)),
		data:        data,
	}
}

func (b *Blob) Name() string        { return b.name }
func (b *Blob) ContentType() string { return b.contentType }
func (b *Blob) Size() int64         { return b.size }

// Path returns the backing file, or "" for in-memory blobs.
func (b *Blob) Path() string { return b.path }

// Open returns a fresh reader positioned at the start of the payload.
// Each call is independent, so a failed transfer can be retried.
func (b *Blob) Open() (io.ReadCloser, error) {
	switch {
	case b.path != "":
		return os.Open(b.path)
	case b.data != nil:
		return io.NopCloser(bytes.NewReader(b.data)), nil
	default:
		return nil, ErrNoContent
	}
}

// Release frees temporary storage owned by the blob. It is safe to call more
// than once and is a no-op for blobs that own nothing.
func (b *Blob) Release() error {
	var err error
	b.releaseOnce.Do(func() {
		if b.release != nil {
			err = b.release()
		}
	})
	return err
}

// DetectContentType sniffs path and falls back to the extension-based type.
func DetectContentType(path string) string {
	if m, err := mimetype.DetectFile(path); err == nil {
		ct, _, _ := strings.Cut(m.String(), ";")
		if ct != defaultContentType && ct != "text/plain" {
			return ct
		}
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		ct, _, _ = strings.Cut(ct, ";")
		return ct
	}
	return defaultContentType
}
