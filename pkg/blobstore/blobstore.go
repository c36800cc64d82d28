// Package blobstore keeps uploaded media outside the document store.
package blobstore

import (
	"context"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Blob identifies a stored object. ID is the storage key.
type Blob struct {
	ID  string
	URL string
}

type Store interface {
	Upload(ctx context.Context, data []byte, filename, mimeType, folder string) (Blob, error)
	// Delete removes the blob and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)
}

// newKey builds folder/<uuid><ext>, keeping only the extension of filename.
func newKey(folder, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	folder = strings.Trim(path.Clean("/"+folder), "/")
	if folder == "" {
		return uuid.NewString() + ext
	}
	return folder + "/" + uuid.NewString() + ext
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
