package grid

import (
	"errors"
	"time"

	"github.com/weiawesome/crowd-playback/internal/chunk"
)

// ErrNoActivity is returned for data points without any recorded crowd.
var ErrNoActivity = errors.New("no crowd data recorded for this point")

// HourlyPoint is one bar of the hourly statistics chart.
type HourlyPoint struct {
	HourSlot      string `json:"hour_slot"`
	PeakTimestamp string `json:"peak_timestamp"`
	MaxCount      int    `json:"max_count"`
}

// ActivationFromHourly picks the instant and count a clicked hourly bar opens
// the grid with. The peak moment is preferred over the slot start.
func ActivationFromHourly(p HourlyPoint, loc *time.Location) (time.Time, int, error) {
	if p.MaxCount <= 0 {
		return time.Time{}, 0, ErrNoActivity
	}

	raw := p.PeakTimestamp
	if raw == "" {
		raw = p.HourSlot
	}
	ts, err := chunk.ParseWallClock(raw, loc)
	if err != nil {
		return time.Time{}, 0, err
	}
	return ts, p.MaxCount, nil
}
