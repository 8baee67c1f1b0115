// Package camera provides the camera lists shown in the camera grid.
package camera

import (
	"context"
	"errors"
)

// ErrSourceUnavailable is returned when a backing source cannot be reached.
var ErrSourceUnavailable = errors.New("camera source unavailable")

// Source lists the cameras installed on a device.
// An empty result is valid and means the source knows no cameras.
type Source interface {
	Cameras(ctx context.Context, deviceID string) ([]string, error)
}

// StaticSource returns the same list for every device.
type StaticSource struct {
	cameras []string
}

// NewStaticSource creates a source serving a fixed list.
func NewStaticSource(cameras []string) *StaticSource {
	return &StaticSource{cameras: append([]string(nil), cameras...)}
}

// Cameras returns a copy of the configured list.
func (s *StaticSource) Cameras(ctx context.Context, deviceID string) ([]string, error) {
	return append([]string(nil), s.cameras...), nil
}

var _ Source = (*StaticSource)(nil)
