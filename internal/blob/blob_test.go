package blob

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromBytes(t *testing.T) {
	b := FromBytes("a.jpg", "", []byte("abc"))

	assert.Equal(t, "a.jpg", b.Name())
	assert.Equal(t, "application/octet-stream", b.ContentType())
	assert.EqualValues(t, 3, b.Size())
	assert.Empty(t, b.Path())

	for range 2 {
		rc, err := b.Open()
		require.NoError(t, err)
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Equal(t, "abc", string(got))
	}
	assert.NoError(t, b.Release())
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "clip.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"a":1}`), 0o600))

	b, err := FromFile(p)
	require.NoError(t, err)
	assert.Equal(t, "clip.json", b.Name())
	assert.Equal(t, "application/json", b.ContentType())
	assert.EqualValues(t, 7, b.Size())
	assert.Equal(t, p, b.Path())

	_, err = FromFile(filepath.Join(dir, "missing"))
	require.Error(t, err)

	_, err = FromFile(dir)
	require.Error(t, err)
}

func TestFromTempFile_ReleaseRemovesDir(t *testing.T) {
	dir, err := os.MkdirTemp(t.TempDir(), "enc_")
	require.NoError(t, err)
	p := filepath.Join(dir, "out.mp4")
	require.NoError(t, os.WriteFile(p, []byte("xyz"), 0o600))

	b, err := FromTempFile(p, "movie.mp4", "video/mp4", dir)
	require.NoError(t, err)
	assert.EqualValues(t, 3, b.Size())
	assert.Equal(t, "video/mp4", b.ContentType())

	require.NoError(t, b.Release())
	require.NoError(t, b.Release())
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestOpen_NoContent(t *testing.T) {
	_, err := (&Blob{name: "x"}).Open()
	require.ErrorIs(t, err, ErrNoContent)
}

func TestDetectContentType_ExtensionFallback(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "notes.unknownext")
	require.NoError(t, os.WriteFile(p, []byte{0x00, 0x01, 0x02}, 0o600))
	assert.Equal(t, "application/octet-stream", DetectContentType(p))
}
