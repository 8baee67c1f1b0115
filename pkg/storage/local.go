package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// LocalConfig holds configuration for local storage.
type LocalConfig struct {
	BasePath string `mapstructure:"base_path"`
}

// LocalStore keeps recordings under a root directory, one file per key.
type LocalStore struct {
	root string
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(cfg LocalConfig) (*LocalStore, error) {
	root, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("resolve base path: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create base path: %w", err)
	}
	return &LocalStore{root: root}, nil
}

// Root returns the absolute directory holding the recordings.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) path(key string) (string, error) {
	clean, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Write stores r under key through a temporary file renamed into place, so
// readers never see a partial recording.
func (s *LocalStore) Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	dst, err := s.path(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	cr := &countingReader{r: r}
	_, copyErr := io.Copy(tmp, cr)
	if closeErr := tmp.Close(); copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		return fmt.Errorf("write %s: %w", key, copyErr)
	}
	if size >= 0 && cr.n != size {
		return fmt.Errorf("%w: %s wrote %d of %d bytes", ErrSizeMismatch, key, cr.n, size)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("commit %s: %w", key, err)
	}
	return nil
}

// Open returns the file for key; its body is an *os.File and seeks.
func (s *LocalStore) Open(ctx context.Context, key string) (*Object, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, notFoundOr(key, err)
	}
	st, err := f.Stat()
	if err == nil && st.IsDir() {
		err = fs.ErrNotExist
	}
	if err != nil {
		f.Close()
		return nil, notFoundOr(key, err)
	}
	return &Object{Body: f, Info: localInfo(key, st)}, nil
}

// Stat returns metadata for key.
func (s *LocalStore) Stat(ctx context.Context, key string) (FileInfo, error) {
	p, err := s.path(key)
	if err != nil {
		return FileInfo{}, err
	}
	st, err := os.Stat(p)
	if err == nil && st.IsDir() {
		err = fs.ErrNotExist
	}
	if err != nil {
		return FileInfo{}, notFoundOr(key, err)
	}
	return localInfo(key, st), nil
}

// GetURL returns the key as a root-relative path.
func (s *LocalStore) GetURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	info, err := s.Stat(ctx, key)
	if err != nil {
		return "", err
	}
	return "/" + info.Key, nil
}

func localInfo(key string, st fs.FileInfo) FileInfo {
	return FileInfo{
		Key:          key,
		Size:         st.Size(),
		LastModified: st.ModTime(),
		ContentType:  ContentType(key),
	}
}

func notFoundOr(key string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return fmt.Errorf("access %s: %w", key, err)
}
