// Package storage holds recording objects on the local filesystem or in an
// S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"time"
)

var (
	// ErrNotFound is returned when no object exists under the key.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidKey is returned for keys that are empty or escape the store.
	ErrInvalidKey = errors.New("invalid object key")
	// ErrSizeMismatch is returned when a write ends short of or past its
	// declared size.
	ErrSizeMismatch = errors.New("content size mismatch")
)

// FileInfo is object metadata.
type FileInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// Object is an open stored file. Body implements io.ReadSeeker when the
// backend supports random access.
type Object struct {
	Body io.ReadCloser
	Info FileInfo
}

// Store is a recording backend.
type Store interface {
	// Write stores r under key. size is -1 when unknown.
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Open returns the object under key. The caller closes Body.
	Open(ctx context.Context, key string) (*Object, error)

	// Stat returns metadata for the key, or ErrNotFound.
	Stat(ctx context.Context, key string) (FileInfo, error)

	// GetURL returns where a client can fetch key directly: a path for
	// local stores, a public or presigned URL for buckets.
	GetURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// RangeOpener is implemented by backends whose bodies cannot seek but can
// serve an HTTP byte range directly.
type RangeOpener interface {
	OpenRange(ctx context.Context, key, rng string) (*Object, string, error)
}

// Config selects and configures a storage backend.
type Config struct {
	Type  string      `mapstructure:"type"` // "local" or "s3"
	Local LocalConfig `mapstructure:"local"`
	S3    S3Config    `mapstructure:"s3"`
}

// New creates the backend selected by cfg.Type.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Type {
	case "s3":
		return NewS3Store(ctx, cfg.S3)
	case "", "local":
		return NewLocalStore(cfg.Local)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// CleanKey normalizes a slash-separated key and rejects keys that are empty,
// absolute, or climb out of the store.
func CleanKey(key string) (string, error) {
	if key == "" || path.IsAbs(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	clean := path.Clean(key)
	if clean == "." || clean == ".." || len(clean) > 2 && clean[:3] == "../" {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return clean, nil
}

// ContentType guesses the MIME type of a key from its extension.
func ContentType(key string) string {
	switch ext := path.Ext(key); ext {
	case ".mp4":
		return "video/mp4"
	case ".ts":
		return "video/mp2t"
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return "application/octet-stream"
	}
}

// countingReader counts bytes read through it.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
