package player

import (
	"fmt"
	"math"
	"time"

	"github.com/weiawesome/crowd-playback/internal/chunk"
)

// Snapshot is what a UI needs to render the navigator.
type Snapshot struct {
	State    State         `json:"state"`
	Grid     *GridView     `json:"grid,omitempty"`
	Playback *PlaybackView `json:"playback,omitempty"`
}

// GridView renders the camera grid.
type GridView struct {
	Timestamp time.Time `json:"timestamp"`
	Label     string    `json:"label"`
	Count     int       `json:"count"`
	Cameras   []string  `json:"cameras"`
	Empty     bool      `json:"empty"`
	Message   string    `json:"message,omitempty"`
}

// PlaybackView renders the player of the active session.
type PlaybackView struct {
	Camera      string             `json:"camera"`
	Reference   time.Time          `json:"reference_timestamp"`
	Count       int                `json:"count"`
	Chunks      []chunk.Descriptor `json:"chunks"`
	Index       int                `json:"index"`
	Chunk       chunk.Descriptor   `json:"chunk"`
	ChunkInfo   string             `json:"chunk_info"`
	HasPrevious bool               `json:"has_previous"`
	HasNext     bool               `json:"has_next"`
	SeekOffset  float64            `json:"seek_offset"`

	Token        uint64  `json:"token"`
	Loading      bool    `json:"loading"`
	Playing      bool    `json:"playing"`
	Position     float64 `json:"position"`
	Duration     float64 `json:"duration"`
	PositionText string  `json:"position_text"`
	DurationText string  `json:"duration_text"`
	Progress     int     `json:"progress"`

	Error *ChunkLoadFailure `json:"error,omitempty"`
}

// Snapshot returns the current view. The result shares nothing with the
// navigator.
func (n *Navigator) Snapshot() Snapshot {
	snap := Snapshot{State: n.state}

	if n.state == StateGridSelection && n.grid != nil {
		g := n.grid
		v := &GridView{
			Timestamp: g.Timestamp,
			Label:     chunk.FormatWallClock(g.Timestamp),
			Count:     g.Count,
			Cameras:   append([]string{}, g.Cameras...),
			Empty:     g.Empty(),
		}
		if n.gridErr != nil {
			v.Message = "No cameras available for this time"
		}
		snap.Grid = v
	}

	if s := n.session; s != nil {
		l := n.load
		cur := s.Current()
		v := &PlaybackView{
			Camera:       s.camera,
			Reference:    s.reference,
			Count:        s.count,
			Chunks:       s.Chunks(),
			Index:        s.current,
			Chunk:        cur,
			ChunkInfo:    fmt.Sprintf("Hour %d of %d - %s", s.current+1, len(s.chunks), cur.Label),
			HasPrevious:  s.HasPrevious(),
			HasNext:      s.HasNext(),
			SeekOffset:   s.seekOffset,
			Token:        l.token,
			Loading:      l.loading(),
			Playing:      l.playing,
			Position:     l.position,
			Duration:     l.duration,
			PositionText: FormatClock(l.position),
			DurationText: FormatClock(l.duration),
		}
		if l.duration > 0 {
			v.Progress = int(math.Round(l.position / l.duration * 100))
		}
		if l.failure != nil && !l.failure.Dismissed {
			f := *l.failure
			v.Error = &f
		}
		snap.Playback = v
	}
	return snap
}

// FormatClock renders seconds as MM:SS, or H:MM:SS from one hour up.
// Unknown or non-positive values render as 00:00.
func FormatClock(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return "00:00"
	}
	total := int(math.Floor(seconds))
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
