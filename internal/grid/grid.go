// Package grid builds the camera selection shown after a chart data point
// is activated and validates the viewer's choice.
package grid

import (
	"context"
	"errors"
	"time"

	"github.com/weiawesome/crowd-playback/internal/camera"
	"github.com/weiawesome/crowd-playback/pkg/log"
)

var (
	// ErrNoCameras is returned together with an empty grid when neither the
	// camera source nor the defaults provide any camera.
	ErrNoCameras = errors.New("no cameras available")
	// ErrUnknownCamera is returned when the chosen camera is not in the grid.
	ErrUnknownCamera = errors.New("camera not in grid")
)

// DefaultCameras is used when the camera source supplies nothing.
var DefaultCameras = []string{"Cam1", "Cam2", "Cam3", "Cam4", "Cam5", "Cam6", "Cam7", "Cam8"}

// DefaultAggregate is the reserved identifier of the all-cameras series.
const DefaultAggregate = "Global"

// Grid is the camera choice offered for one activated data point.
type Grid struct {
	Timestamp time.Time `json:"timestamp"`
	Count     int       `json:"count"`
	Cameras   []string  `json:"cameras"`
}

// Empty reports whether the grid has no camera to choose.
func (g Grid) Empty() bool {
	return len(g.Cameras) == 0
}

// Choose validates that camera is offered by the grid.
func (g Grid) Choose(camera string) error {
	for _, c := range g.Cameras {
		if c == camera {
			return nil
		}
	}
	return ErrUnknownCamera
}

// Selector opens grids using a pluggable camera source.
type Selector struct {
	source    camera.Source
	defaults  []string
	aggregate string
}

// Option configures a Selector.
type Option func(*Selector)

// WithDefaults replaces the fallback camera list.
func WithDefaults(cameras []string) Option {
	return func(s *Selector) {
		s.defaults = append([]string(nil), cameras...)
	}
}

// WithAggregate sets the identifier excluded from supplied lists.
func WithAggregate(id string) Option {
	return func(s *Selector) {
		s.aggregate = id
	}
}

// NewSelector creates a selector. A nil source always yields the defaults.
func NewSelector(source camera.Source, opts ...Option) *Selector {
	s := &Selector{
		source:    source,
		defaults:  append([]string(nil), DefaultCameras...),
		aggregate: DefaultAggregate,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open builds the grid for a data point on deviceID.
//
// The supplied list wins when it holds at least one camera besides the
// aggregate identifier. A failing source is logged and treated as empty.
func (s *Selector) Open(ctx context.Context, deviceID string, ts time.Time, count int) (Grid, error) {
	g := Grid{Timestamp: ts, Count: count}

	var supplied []string
	if s.source != nil {
		cams, err := s.source.Cameras(ctx, deviceID)
		if err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str(log.FieldDeviceID, deviceID).Msg("camera source failed, using defaults")
		}
		supplied = s.filter(cams)
	}

	if len(supplied) > 0 {
		g.Cameras = supplied
	} else {
		g.Cameras = append([]string(nil), s.defaults...)
	}

	if g.Empty() {
		return g, ErrNoCameras
	}
	return g, nil
}

// ForDevice binds the selector to one device.
func (s *Selector) ForDevice(deviceID string) *DeviceSelector {
	return &DeviceSelector{selector: s, deviceID: deviceID}
}

func (s *Selector) filter(cams []string) []string {
	out := make([]string, 0, len(cams))
	seen := make(map[string]bool, len(cams))
	for _, c := range cams {
		if c == "" || c == s.aggregate || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// DeviceSelector opens grids for a fixed device.
type DeviceSelector struct {
	selector *Selector
	deviceID string
}

// Open builds the grid for a data point.
func (d *DeviceSelector) Open(ctx context.Context, ts time.Time, count int) (Grid, error) {
	return d.selector.Open(ctx, d.deviceID, ts, count)
}

// DeviceID returns the bound device.
func (d *DeviceSelector) DeviceID() string {
	return d.deviceID
}
