package pubsub

import (
	"fmt"
	"strings"
)

// Channel naming conventions for playback viewers.
const (
	// DefaultChannelPrefix namespaces every viewer channel.
	DefaultChannelPrefix = "playback"

	channelViewer = "%s:viewer:%s"
)

// Event types published for a viewer.
const (
	EventGridOpened     = "grid_opened"
	EventSessionStarted = "session_started"
	EventChunkLoaded    = "chunk_loaded"
	EventChunkFailed    = "chunk_failed"
	EventReturnedToGrid = "returned_to_grid"
	EventClosed         = "closed"
)

// ViewerChannel returns the channel carrying events of one viewer.
func ViewerChannel(prefix, viewerID string) string {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return fmt.Sprintf(channelViewer, prefix, viewerID)
}

// AllViewersPattern returns the glob matching every viewer channel.
func AllViewersPattern(prefix string) string {
	return ViewerChannel(prefix, "*")
}

// matchPattern reports whether channel matches a pattern whose only
// wildcard is '*', as produced by AllViewersPattern.
func matchPattern(pattern, channel string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == channel
	}
	if !strings.HasPrefix(channel, parts[0]) {
		return false
	}
	rest := channel[len(parts[0]):]
	for _, p := range parts[1 : len(parts)-1] {
		i := strings.Index(rest, p)
		if i < 0 {
			return false
		}
		rest = rest[i+len(p):]
	}
	return strings.HasSuffix(rest, parts[len(parts)-1])
}

// Event payloads.

// SessionPayload is sent when a camera is selected.
type SessionPayload struct {
	Camera string `json:"camera"`
	Index  int    `json:"index"`
}

// ChunkPayload is sent when a chunk loads or fails.
type ChunkPayload struct {
	Camera  string `json:"camera"`
	Index   int    `json:"index"`
	Locator string `json:"locator"`
	Reason  string `json:"reason,omitempty"`
}
