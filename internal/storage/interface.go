package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

var ErrInvalidKey = errors.New("invalid storage key")

// StorageInterface defines the object storage backends used for bike photos and verification documents.
// Supports both mock (local filesystem) and S3.
type StorageInterface interface {
	// GeneratePresignedUploadURL returns a URL the client PUTs the file body to.
	GeneratePresignedUploadURL(ctx context.Context, key string, contentType string, expiresIn time.Duration) (string, error)

	GeneratePresignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error)

	// FileExists checks if a file exists and returns its size
	FileExists(ctx context.Context, key string) (exists bool, size int64, err error)

	DeleteFile(ctx context.Context, key string) error

	// PublicURL is the stable address stored on records, e.g. bike photos.
	PublicURL(key string) string
}

// LocalFiles is implemented by backends whose bytes pass through this server.
type LocalFiles interface {
	SaveFile(key string, reader io.Reader) error
	ReadFile(key string) (io.ReadCloser, error)
}

// CleanKey normalises an object key and rejects keys that escape the storage root.
func CleanKey(key string) (string, error) {
	if key == "" || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

// ObjectKey builds "<prefix>/<owner>/<name><ext>" with an extension derived from the content type.
func ObjectKey(prefix, owner, name, contentType string) string {
	return path.Join(prefix, owner, name+extensionFor(contentType))
}

func extensionFor(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "application/pdf":
		return ".pdf"
	}
	return ""
}
