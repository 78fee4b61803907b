package media

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/dmitrijs2005/mediadrop/internal/blob"
)

// IsVideo decides whether src should go through thumbnail extraction and
// compression. Content sniffing wins; the declared type and the extension
// are consulted when sniffing is inconclusive.
func IsVideo(src *blob.Blob) bool {
	if src.Path() != "" {
		if m, err := mimetype.DetectFile(src.Path()); err == nil {
			for ; m != nil; m = m.Parent() {
				if strings.HasPrefix(m.String(), "video/") {
					return true
				}
			}
		}
	}
	if strings.HasPrefix(src.ContentType(), "video/") {
		return true
	}
	ext := strings.ToLower(filepath.Ext(src.Name()))
	if _, ok := videoExtensions[ext]; ok {
		return true
	}
	return strings.HasPrefix(mime.TypeByExtension(ext), "video/")
}

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".m4v": {}, ".mov": {}, ".mkv": {}, ".webm": {}, ".avi": {}, ".mpeg": {}, ".mpg": {}, ".ts": {},
}
