package images

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
)

// BlobStore keeps uploaded image bytes. Put returns the public URL that is
// stored in the gallery.
type BlobStore interface {
	Driver() string
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// sanitizeKey rejects keys that could escape the store root.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key contains '..'")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key")
	}
	return path.Clean(key), nil
}

// objectKey lays uploads out per specimen: <specimenID>/<imageID><ext>.
func objectKey(specimenID, imageID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
	default:
		ext = ""
	}
	return specimenID + "/" + imageID + ext
}
