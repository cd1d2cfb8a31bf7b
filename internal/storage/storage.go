// Package storage keeps uploaded photos on local disk or in an
// S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"

	"github.com/kozaktomas/missing-persons/internal/config"
)

var (
	// ErrNotFound is returned when no object has the requested name.
	ErrNotFound = errors.New("object not found")
	// ErrNotImage is returned when an upload is not an image.
	ErrNotImage = errors.New("only images are allowed")
	// ErrInvalidName is returned for names that could escape the store.
	ErrInvalidName = errors.New("invalid object name")
)

// Object describes a stored photo.
type Object struct {
	Name        string
	ContentType string
	Size        int64
	ModTime     time.Time
}

// Store saves and serves uploaded photos by generated name.
type Store interface {
	// Save stores data under a new unique name derived from originalName
	// and returns that name.
	Save(ctx context.Context, originalName, contentType string, data []byte) (string, error)
	// Open returns the object content; the caller closes it.
	Open(ctx context.Context, name string) (io.ReadCloser, *Object, error)
	// Delete removes an object. Missing objects are not an error.
	Delete(ctx context.Context, name string) error
}

// New creates the store selected by cfg.Backend.
func New(ctx context.Context, cfg *config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStore(cfg.Dir)
	case "minio", "s3":
		return NewMinIOStore(ctx, &cfg.MinIO)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// CheckContentType accepts image/* media types only.
func CheckContentType(contentType string) error {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/") {
		return ErrNotImage
	}
	return nil
}

// NewName builds a unique object name: the upload time in milliseconds, a
// random suffix and the extension of the original file name.
func NewName(originalName string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if !isSafeExt(ext) {
		ext = ""
	}
	return fmt.Sprintf("%d-%d%s", now.UnixMilli(), rand.IntN(1e9), ext) //nolint:gosec // not security sensitive
}

func isSafeExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 6 {
		return false
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// ValidateName rejects names that are empty or contain path elements.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
