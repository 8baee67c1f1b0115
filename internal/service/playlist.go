package service

import (
	"errors"
	"fmt"

	"github.com/grafov/m3u8"

	"github.com/weiawesome/crowd-playback/internal/chunk"
)

// ChunkSeconds is the nominal duration of one hourly recording.
const ChunkSeconds = 3600

// BuildPlaylist renders a session's chunk window as a VOD playlist, one
// entry per hour. Hours are recorded separately so every boundary is
// marked as a discontinuity.
func BuildPlaylist(chunks []chunk.Descriptor) (string, error) {
	if len(chunks) == 0 {
		return "", errors.New("playlist has no chunks")
	}

	pl, err := m3u8.NewMediaPlaylist(0, uint(len(chunks)))
	if err != nil {
		return "", fmt.Errorf("create playlist: %w", err)
	}
	pl.MediaType = m3u8.VOD

	for i, c := range chunks {
		if err := pl.Append(c.Locator, ChunkSeconds, c.Label); err != nil {
			return "", fmt.Errorf("append chunk %d: %w", i, err)
		}
		if i > 0 {
			if err := pl.SetDiscontinuity(); err != nil {
				return "", fmt.Errorf("mark discontinuity at chunk %d: %w", i, err)
			}
		}
	}
	pl.Close()

	return pl.String(), nil
}
