// Package player implements the playback navigation state machine that
// drives one viewer from a clicked data point, through camera selection,
// to navigating the hour-long recording chunks around the clicked moment.
package player

import (
	"errors"
	"fmt"
)

// State is the view the navigator is currently showing.
type State int

const (
	// StateIdle shows nothing; the player and the grid are closed.
	StateIdle State = iota
	// StateGridSelection shows the camera grid for an activated data point.
	StateGridSelection
	// StatePlaying shows the player for one session.
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGridSelection:
		return "grid"
	case StatePlaying:
		return "playing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = StateIdle
	case "grid":
		*s = StateGridSelection
	case "playing":
		*s = StatePlaying
	default:
		return fmt.Errorf("unknown player state %q", b)
	}
	return nil
}

var (
	// ErrNoSession is returned by playback commands issued outside a session.
	ErrNoSession = errors.New("no active playback session")
	// ErrNoGrid is returned when a camera is selected while no grid is open.
	ErrNoGrid = errors.New("camera grid is not open")
)

// ChunkLoadFailure records that one chunk's locator did not yield playable
// media. It is scoped to that chunk and never invalidates the session.
type ChunkLoadFailure struct {
	Index     int    `json:"index"`
	Label     string `json:"label"`
	Locator   string `json:"locator"`
	Reason    string `json:"reason"`
	Dismissed bool   `json:"dismissed"`
}

func (f *ChunkLoadFailure) Error() string {
	msg := "Video not available for " + f.Label
	if f.Reason != "" {
		msg += " (" + f.Reason + ")"
	}
	return msg
}

// MediaEventKind identifies an asynchronous signal from the media surface.
type MediaEventKind string

const (
	MediaReady      MediaEventKind = "ready"
	MediaFailed     MediaEventKind = "failed"
	MediaTimeUpdate MediaEventKind = "time_update"
	MediaPlaying    MediaEventKind = "playing"
	MediaPaused     MediaEventKind = "paused"
)

// MediaEvent is a signal from the surface about the load identified by Token.
type MediaEvent struct {
	Token    uint64         `json:"token"`
	Kind     MediaEventKind `json:"kind"`
	Duration float64        `json:"duration,omitempty"`
	Position float64        `json:"position,omitempty"`
	Reason   string         `json:"reason,omitempty"`
}
