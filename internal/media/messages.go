// Package media provides the player.Surface implementations: a remote
// surface driving a browser video element over a websocket, and a headless
// probe surface for viewers that only use the REST API.
package media

// Command types sent to a remote player.
const (
	CmdLoad   = "load"
	CmdUnload = "unload"
	CmdSeek   = "seek"
	CmdPlay   = "play"
	CmdPause  = "pause"
	CmdStop   = "stop"
)

// LoadCommand asks the remote player to load a chunk. The client echoes
// Token on every media event about this load.
type LoadCommand struct {
	Type  string `json:"type"`
	Token uint64 `json:"token"`
	Index int    `json:"index"`
	URL   string `json:"url"`
}

// UnloadCommand tells the remote player to drop its listeners for Token.
type UnloadCommand struct {
	Type  string `json:"type"`
	Token uint64 `json:"token"`
}

// SeekCommand moves the remote playhead.
type SeekCommand struct {
	Type    string  `json:"type"`
	Token   uint64  `json:"token"`
	Seconds float64 `json:"seconds"`
}

// PlaybackCommand is play, pause or stop.
type PlaybackCommand struct {
	Type  string `json:"type"`
	Token uint64 `json:"token,omitempty"`
}

// HTML media error codes reported by the browser.
const (
	ErrCodeAborted  = 1
	ErrCodeNetwork  = 2
	ErrCodeDecode   = 3
	ErrCodeNotFound = 4
)

// ErrorReason describes a media error code for the viewer.
func ErrorReason(code int) string {
	switch code {
	case ErrCodeAborted:
		return "Playback aborted"
	case ErrCodeNetwork:
		return "Network error"
	case ErrCodeDecode:
		return "Decode error - codec issue"
	case ErrCodeNotFound:
		return "File not found or format not supported"
	default:
		return ""
	}
}
