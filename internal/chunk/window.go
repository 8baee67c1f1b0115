package chunk

import (
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultRadius is the number of hours loaded on each side of the reference hour.
	DefaultRadius = 3
	// DefaultStreamPath is the video service endpoint serving one chunk.
	DefaultStreamPath = "/api/video/stream"

	labelLayout = "Jan 2, 2006 3:04:05 PM"
)

// Descriptor identifies one hour of recorded video for one camera.
type Descriptor struct {
	StartTime time.Time `json:"start_time"`
	Locator   string    `json:"locator"`
	Label     string    `json:"label"`
}

// Contains reports whether t falls inside [StartTime, StartTime+1h).
func (d Descriptor) Contains(t time.Time) bool {
	return !t.Before(d.StartTime) && t.Before(d.StartTime.Add(Hour))
}

// Builder generates chunk windows and resolves their source locators.
type Builder struct {
	BaseURL string
	Path    string
	Radius  int
}

// NewBuilder creates a builder for the given video service address.
// A zero radius falls back to DefaultRadius and an empty path to DefaultStreamPath.
func NewBuilder(baseURL, path string, radius int) *Builder {
	if path == "" {
		path = DefaultStreamPath
	}
	if radius <= 0 {
		radius = DefaultRadius
	}
	return &Builder{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Path:    "/" + strings.TrimPrefix(path, "/"),
		Radius:  radius,
	}
}

// Size returns the number of descriptors every window holds.
func (b *Builder) Size() int {
	return 2*b.Radius + 1
}

// Build returns the hour-aligned chunks covering ref ± Radius hours, ascending.
// The length is always Size(); availability of the recordings is not checked
// here, a missing hour surfaces when the chunk is loaded.
//
// Steps are absolute hours so a DST transition inside the window never
// produces a duplicate or a gap.
func (b *Builder) Build(camera string, ref time.Time) []Descriptor {
	center := BucketStart(ref)
	start := center.Add(-time.Duration(b.Radius) * Hour)

	chunks := make([]Descriptor, 0, b.Size())
	for i := 0; i < b.Size(); i++ {
		hourStart := start.Add(time.Duration(i) * Hour)
		chunks = append(chunks, Descriptor{
			StartTime: hourStart,
			Locator:   b.Locator(camera, hourStart),
			Label:     hourStart.Format(labelLayout),
		})
	}
	return chunks
}

// Locator builds the request URL the video service resolves for one chunk.
// The timestamp parameter is the wall-clock hour start; the service parses
// it as local time, so the format must not change.
func (b *Builder) Locator(camera string, hourStart time.Time) string {
	params := url.Values{}
	params.Set("camera", camera)
	params.Set("timestamp", FormatWallClock(hourStart))
	return b.BaseURL + b.Path + "?" + params.Encode()
}
