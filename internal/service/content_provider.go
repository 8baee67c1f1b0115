package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/weiawesome/crowd-playback/internal/chunk"
	"github.com/weiawesome/crowd-playback/internal/config"
	"github.com/weiawesome/crowd-playback/pkg/storage"
)

// ErrInvalidRequest is returned for malformed recording requests.
var ErrInvalidRequest = errors.New("invalid recording request")

// ContentProvider serves hourly recordings from storage.
// It supports both redirect mode (presigned URLs) and proxy mode (direct streaming).
type ContentProvider struct {
	storage      storage.Store
	prefix       string
	loc          *time.Location
	redirectMode bool
	presignTTL   time.Duration
}

// NewContentProvider creates a new content provider. Timestamps in requests
// are read as wall clock in loc.
func NewContentProvider(store storage.Store, cfg config.PlaybackConfig, storageType string, loc *time.Location) *ContentProvider {
	// Redirect mode only works with S3 storage
	redirectMode := cfg.AccessMode == "redirect" && storageType == "s3"
	if loc == nil {
		loc = time.Local
	}

	return &ContentProvider{
		storage:      store,
		prefix:       strings.Trim(cfg.StoragePrefix, "/"),
		loc:          loc,
		redirectMode: redirectMode,
		presignTTL:   time.Duration(cfg.PresignExpiry) * time.Second,
	}
}

// RecordingKey is the storage key of the recording of camera starting at hour.
func RecordingKey(prefix, camera string, hour time.Time) string {
	return path.Join(prefix, camera, hour.Format("2006-01-02"), hour.Format("15")+".mp4")
}

// ResolveKey maps a chunk locator's query values onto a storage key.
func (p *ContentProvider) ResolveKey(camera, timestamp string) (string, error) {
	if camera == "" || strings.Contains(camera, "/") || strings.Contains(camera, "..") {
		return "", fmt.Errorf("%w: camera %q", ErrInvalidRequest, camera)
	}
	hour, err := time.ParseInLocation(chunk.WallClockLayout, timestamp, p.loc)
	if err != nil {
		return "", fmt.Errorf("%w: timestamp %q", ErrInvalidRequest, timestamp)
	}
	if !chunk.BucketStart(hour).Equal(hour) {
		return "", fmt.Errorf("%w: timestamp %q is not on the hour", ErrInvalidRequest, timestamp)
	}
	return RecordingKey(p.prefix, camera, hour), nil
}

// ServeRecording serves the recording for a locator to the HTTP response.
// In redirect mode, it returns a 302 redirect to a presigned URL.
// In proxy mode, it streams the content directly, honouring Range requests.
func (p *ContentProvider) ServeRecording(ctx context.Context, w http.ResponseWriter, r *http.Request, camera, timestamp string) error {
	key, err := p.ResolveKey(camera, timestamp)
	if err != nil {
		return err
	}

	if p.redirectMode {
		return p.redirectToPresignedURL(ctx, w, r, key)
	}
	return p.proxyContent(ctx, w, r, key)
}

// redirectToPresignedURL redirects the client to a presigned URL.
func (p *ContentProvider) redirectToPresignedURL(ctx context.Context, w http.ResponseWriter, r *http.Request, key string) error {
	if _, err := p.storage.Stat(ctx, key); err != nil {
		return err
	}
	url, err := p.storage.GetURL(ctx, key, p.presignTTL)
	if err != nil {
		return fmt.Errorf("failed to get presigned URL: %w", err)
	}

	http.Redirect(w, r, url, http.StatusFound)
	return nil
}

// proxyContent streams content from storage to the client.
func (p *ContentProvider) proxyContent(ctx context.Context, w http.ResponseWriter, r *http.Request, key string) error {
	rng := r.Header.Get("Range")
	if ro, ok := p.storage.(storage.RangeOpener); ok && rng != "" {
		return p.proxyRange(ctx, w, r, ro, key, rng)
	}

	obj, err := p.storage.Open(ctx, key)
	if err != nil {
		return err
	}
	defer obj.Body.Close()

	setContentHeaders(w, key)

	if rs, ok := obj.Body.(io.ReadSeeker); ok {
		http.ServeContent(w, r, path.Base(key), obj.Info.LastModified, rs)
		return nil
	}

	w.Header().Set("Accept-Ranges", "bytes")
	if obj.Info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Info.Size, 10))
	}
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return nil
	}
	// Client may have disconnected; nothing to report.
	_, _ = io.Copy(w, obj.Body)
	return nil
}

func (p *ContentProvider) proxyRange(ctx context.Context, w http.ResponseWriter, r *http.Request, ro storage.RangeOpener, key, rng string) error {
	obj, contentRange, err := ro.OpenRange(ctx, key, rng)
	if err != nil {
		return err
	}
	defer obj.Body.Close()

	setContentHeaders(w, key)
	w.Header().Set("Accept-Ranges", "bytes")
	if obj.Info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Info.Size, 10))
	}
	status := http.StatusOK
	if contentRange != "" {
		w.Header().Set("Content-Range", contentRange)
		status = http.StatusPartialContent
	}
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		_, _ = io.Copy(w, obj.Body)
	}
	return nil
}

// Store writes an uploaded recording for camera and timestamp.
func (p *ContentProvider) Store(ctx context.Context, camera, timestamp string, body io.Reader, size int64) (string, error) {
	key, err := p.ResolveKey(camera, timestamp)
	if err != nil {
		return "", err
	}
	if err := p.storage.Write(ctx, key, body, size, storage.ContentType(key)); err != nil {
		return "", fmt.Errorf("failed to store recording: %w", err)
	}
	return key, nil
}

// IsRedirectMode returns true if using redirect mode.
func (p *ContentProvider) IsRedirectMode() bool {
	return p.redirectMode
}

// setContentHeaders sets appropriate content type and caching headers.
func setContentHeaders(w http.ResponseWriter, key string) {
	w.Header().Set("Content-Type", storage.ContentType(key))
	// Finished hours never change.
	w.Header().Set("Cache-Control", "public, max-age=300")
}
