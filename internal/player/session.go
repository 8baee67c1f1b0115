package player

import (
	"time"

	"github.com/weiawesome/crowd-playback/internal/chunk"
)

// Session is one "view video" action: a camera fixed at selection time, the
// clicked reference instant and the chunk window around it.
//
// Everything except the current index is computed once in newSession and
// never changes. A new camera selection always builds a new Session.
type Session struct {
	camera     string
	reference  time.Time
	count      int
	chunks     []chunk.Descriptor
	initial    int
	seekOffset float64

	current int
}

func newSession(b *chunk.Builder, camera string, ref time.Time, count int) *Session {
	chunks := b.Build(camera, ref)
	idx := chunk.ResolveIndex(chunks, ref)

	s := &Session{
		camera:    camera,
		reference: ref,
		count:     count,
		chunks:    chunks,
		initial:   idx,
		current:   idx,
	}
	if chunks[idx].Contains(ref) {
		s.seekOffset = chunk.OffsetWithinHour(ref, chunks[idx].StartTime)
	}
	return s
}

// Camera returns the camera chosen for the session.
func (s *Session) Camera() string { return s.camera }

// Reference returns the clicked instant the session is centered on.
func (s *Session) Reference() time.Time { return s.reference }

// Count returns the crowd count of the activated data point.
func (s *Session) Count() int { return s.count }

// Chunks returns a copy of the session's chunk window.
func (s *Session) Chunks() []chunk.Descriptor {
	return append([]chunk.Descriptor(nil), s.chunks...)
}

// Index returns the current chunk index.
func (s *Session) Index() int { return s.current }

// InitialIndex returns the index of the chunk containing the reference instant.
func (s *Session) InitialIndex() int { return s.initial }

// SeekOffset returns the offset into the initial chunk, in seconds.
func (s *Session) SeekOffset() float64 { return s.seekOffset }

// Current returns the descriptor of the current chunk.
func (s *Session) Current() chunk.Descriptor { return s.chunks[s.current] }

// HasPrevious reports whether PreviousChunk would move.
func (s *Session) HasPrevious() bool { return s.current > 0 }

// HasNext reports whether NextChunk would move.
func (s *Session) HasNext() bool { return s.current < len(s.chunks)-1 }

// loadState tracks the media surface for the chunk being shown.
type loadState struct {
	token   uint64
	index   int
	sub     Subscription
	ready   bool
	playing bool
	// autoplay intent; toggled while loading, applied on ready
	wantPlay bool

	duration float64
	position float64

	seek        float64
	hasSeek     bool
	pendingSkip float64

	failure *ChunkLoadFailure
}

func (l *loadState) loading() bool {
	return !l.ready && l.failure == nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
