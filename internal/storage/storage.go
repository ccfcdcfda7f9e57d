// Package storage persists uploaded image files.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// ErrInvalidPath is returned for keys that escape the store root.
var ErrInvalidPath = errors.New("storage: invalid path")

// ImagePrefix is the directory every uploaded image is written under.
const ImagePrefix = "images"

// FileStore saves and reads files by slash-separated relative key.
type FileStore interface {
	// Save writes r under key and returns the stored relative path.
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	// Open returns the file contents. Callers must close the reader.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}

// ImageKey returns the key for an image ID and extension such as ".jpg".
func ImageKey(id, ext string) string {
	return path.Join(ImagePrefix, id+ext)
}

func cleanKey(key string) (string, error) {
	cleaned := path.Clean(strings.TrimPrefix(strings.ReplaceAll(key, "\\", "/"), "/"))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}
