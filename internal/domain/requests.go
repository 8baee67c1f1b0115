// Package domain holds the request and message types of the HTTP and
// websocket APIs.
package domain

import (
	"errors"
	"time"

	"github.com/weiawesome/crowd-playback/internal/chunk"
	"github.com/weiawesome/crowd-playback/internal/grid"
	"github.com/weiawesome/crowd-playback/internal/player"
)

// ErrMissingTimestamp is returned when an activation names no instant.
var ErrMissingTimestamp = errors.New("timestamp or hour_slot is required")

// MountViewerRequest creates a viewer.
type MountViewerRequest struct {
	DeviceID string `json:"device_id"`
}

// ViewerResponse describes a mounted viewer.
type ViewerResponse struct {
	ViewerID string          `json:"viewer_id"`
	DeviceID string          `json:"device_id"`
	Snapshot player.Snapshot `json:"snapshot"`
}

// ActivateRequest opens the camera grid for a data point. A request with
// HourSlot set is read as a bar of the hourly chart.
type ActivateRequest struct {
	Timestamp string `json:"timestamp,omitempty"`
	Count     int    `json:"count,omitempty"`

	HourSlot      string `json:"hour_slot,omitempty"`
	PeakTimestamp string `json:"peak_timestamp,omitempty"`
	MaxCount      int    `json:"max_count,omitempty"`
}

// IsHourly reports whether the request is an hourly chart point.
func (r ActivateRequest) IsHourly() bool {
	return r.HourSlot != ""
}

// HourlyPoint returns the request as an hourly chart point.
func (r ActivateRequest) HourlyPoint() grid.HourlyPoint {
	return grid.HourlyPoint{
		HourSlot:      r.HourSlot,
		PeakTimestamp: r.PeakTimestamp,
		MaxCount:      r.MaxCount,
	}
}

// Instant parses Timestamp as wall clock in loc.
func (r ActivateRequest) Instant(loc *time.Location) (time.Time, error) {
	if r.Timestamp == "" {
		return time.Time{}, ErrMissingTimestamp
	}
	return chunk.ParseWallClock(r.Timestamp, loc)
}

// SelectCameraRequest starts playback of a camera.
type SelectCameraRequest struct {
	Camera string `json:"camera" binding:"required"`
}

// NavigateRequest applies a navigation action.
type NavigateRequest struct {
	Action  string  `json:"action" binding:"required"`
	Seconds float64 `json:"seconds"`
}

// KeyRequest dispatches a keyboard shortcut.
type KeyRequest struct {
	Key string `json:"key" binding:"required"`
}

// KeyResponse reports whether a key was bound.
type KeyResponse struct {
	Handled  bool            `json:"handled"`
	Snapshot player.Snapshot `json:"snapshot"`
}

// MediaEventRequest reports a media event for a viewer driving its own
// video element over HTTP.
type MediaEventRequest struct {
	Token    uint64  `json:"token" binding:"required"`
	Kind     string  `json:"kind" binding:"required"`
	Duration float64 `json:"duration"`
	Position float64 `json:"position"`
	Code     int     `json:"code"`
	Reason   string  `json:"reason"`
}

// GridQuery is a stateless camera grid lookup.
type GridQuery struct {
	DeviceID  string `form:"device_id"`
	Timestamp string `form:"timestamp" binding:"required"`
	Count     int    `form:"count"`
}

// ChunksQuery is a stateless chunk window lookup.
type ChunksQuery struct {
	Camera    string `form:"camera" binding:"required"`
	Timestamp string `form:"timestamp" binding:"required"`
}

// ChunksResponse is a chunk window and the index the timestamp resolves to.
type ChunksResponse struct {
	Camera     string             `json:"camera"`
	Chunks     []chunk.Descriptor `json:"chunks"`
	Index      int                `json:"index"`
	SeekOffset float64            `json:"seek_offset"`
}
