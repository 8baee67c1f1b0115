// Package chunk maps timestamps onto the hour-long recording chunks produced
// by the cameras and builds the chunk window a playback session navigates.
//
// All arithmetic here is wall-clock arithmetic in the location carried by the
// caller's time.Time values. Recordings are named by their local start hour,
// so nothing in this package converts to UTC.
package chunk

import (
	"fmt"
	"strings"
	"time"
)

// WallClockLayout is the timestamp layout the video service expects.
const WallClockLayout = "2006-01-02 15:04:05"

// Hour is the length of one recording chunk.
const Hour = time.Hour

// BucketStart returns the start of the hour containing t, in t's location.
//
// The minute, second and nanosecond fields are subtracted from t instead of
// rebuilding the value with time.Date, which is ambiguous inside the repeated
// hour of a DST fall-back.
func BucketStart(t time.Time) time.Time {
	t = t.Round(0)
	return t.Add(-(time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())))
}

// OffsetWithinHour returns the number of seconds between bucketStart and t.
// The result is in [0, 3600) when bucketStart == BucketStart(t).
func OffsetWithinHour(t, bucketStart time.Time) float64 {
	return t.Sub(bucketStart).Seconds()
}

// FormatWallClock formats t as "YYYY-MM-DD HH:MM:SS" without any zone suffix.
func FormatWallClock(t time.Time) string {
	return t.Format(WallClockLayout)
}

var parseLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

// ParseWallClock parses the timestamp shapes emitted by the statistics API.
// Values without a zone are interpreted in loc. Values carrying an explicit
// offset keep it; they are not normalized into loc.
func ParseWallClock(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if loc == nil {
		loc = time.Local
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range parseLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
