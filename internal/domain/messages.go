package domain

import "github.com/weiawesome/crowd-playback/internal/player"

// WebSocket message types from client.
const (
	MsgTypeActivate      = "activate"
	MsgTypeSelectCamera  = "select_camera"
	MsgTypeNavigate      = "navigate"
	MsgTypeKey           = "key"
	MsgTypeMediaReady    = "media_ready"
	MsgTypeMediaError    = "media_error"
	MsgTypeTimeUpdate    = "time_update"
	MsgTypePlaybackState = "playback_state"
	MsgTypePing          = "ping"
)

// WebSocket message types to client. Media commands are defined by the
// media package.
const (
	MsgTypeWelcome  = "welcome"
	MsgTypeSnapshot = "snapshot"
	MsgTypeError    = "error"
	MsgTypePong     = "pong"
)

// Error codes.
const (
	ErrCodeBadRequest  = "BAD_REQUEST"
	ErrCodeConflict    = "CONFLICT"
	ErrCodeNoCameras   = "NO_CAMERAS"
	ErrCodeInternal    = "INTERNAL_ERROR"
	ErrCodeUnavailable = "UNAVAILABLE"
)

// BaseMessage is the base structure for all WebSocket messages.
type BaseMessage struct {
	Type string `json:"type"`
}

// Client -> Server messages

// ActivateMessage opens the camera grid. Either Timestamp and Count or an
// hourly chart point is given.
type ActivateMessage struct {
	Type string `json:"type"`
	ActivateRequest
}

// SelectCameraMessage starts playback of a camera on the open grid.
type SelectCameraMessage struct {
	Type   string `json:"type"`
	Camera string `json:"camera"`
}

// NavigateMessage carries a navigation action.
type NavigateMessage struct {
	Type    string  `json:"type"`
	Action  string  `json:"action"`
	Seconds float64 `json:"seconds,omitempty"`
}

// KeyMessage carries a keyboard shortcut.
type KeyMessage struct {
	Type string `json:"type"`
	Key  string `json:"key"`
}

// MediaReadyMessage reports that the video element loaded metadata.
type MediaReadyMessage struct {
	Type     string  `json:"type"`
	Token    uint64  `json:"token"`
	Duration float64 `json:"duration"`
}

// MediaErrorMessage reports a video element error. Code is the HTML media
// error code.
type MediaErrorMessage struct {
	Type    string `json:"type"`
	Token   uint64 `json:"token"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// TimeUpdateMessage reports the playhead.
type TimeUpdateMessage struct {
	Type     string  `json:"type"`
	Token    uint64  `json:"token"`
	Position float64 `json:"position"`
}

// PlaybackStateMessage reports that the element started or paused.
type PlaybackStateMessage struct {
	Type    string `json:"type"`
	Token   uint64 `json:"token"`
	Playing bool   `json:"playing"`
}

// Server -> Client messages

// WelcomeMessage is sent once the viewer is mounted.
type WelcomeMessage struct {
	Type     string `json:"type"`
	ViewerID string `json:"viewer_id"`
	DeviceID string `json:"device_id"`
}

// SnapshotMessage carries the navigator view after every change.
type SnapshotMessage struct {
	Type     string          `json:"type"`
	Snapshot player.Snapshot `json:"snapshot"`
}

// ErrorMessage is sent when a client message fails.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorMessage creates an error message.
func NewErrorMessage(code, message string) ErrorMessage {
	return ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}
