package player

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/weiawesome/crowd-playback/internal/chunk"
	"github.com/weiawesome/crowd-playback/internal/grid"
	"github.com/weiawesome/crowd-playback/pkg/log"
)

// DefaultSkipSeconds is the step of SkipForward and SkipBackward.
const DefaultSkipSeconds = 30

// GridOpener opens the camera grid for an activated data point.
// *grid.DeviceSelector satisfies it.
type GridOpener interface {
	Open(ctx context.Context, ts time.Time, count int) (grid.Grid, error)
}

// Navigator is the playback navigation state machine of one viewer.
//
// A Navigator is not safe for concurrent use. Commands and media events must
// be delivered from a single goroutine; Controller does that.
type Navigator struct {
	grids    GridOpener
	builder  *chunk.Builder
	surface  Surface
	observer Observer
	logger   zerolog.Logger
	step     float64

	state   State
	grid    *grid.Grid
	gridErr error
	session *Session
	load    loadState
	tokens  uint64
}

// NavigatorOption configures a Navigator.
type NavigatorOption func(*Navigator)

// WithObserver registers an observer for state transitions.
func WithObserver(o Observer) NavigatorOption {
	return func(n *Navigator) { n.observer = o }
}

// WithLogger sets the logger used for navigation events.
func WithLogger(l zerolog.Logger) NavigatorOption {
	return func(n *Navigator) { n.logger = l }
}

// WithSkipSeconds sets the step bound to the arrow keys.
func WithSkipSeconds(sec float64) NavigatorOption {
	return func(n *Navigator) {
		if sec > 0 {
			n.step = sec
		}
	}
}

// NewNavigator creates an idle navigator.
func NewNavigator(grids GridOpener, builder *chunk.Builder, surface Surface, opts ...NavigatorOption) *Navigator {
	n := &Navigator{
		grids:   grids,
		builder: builder,
		surface: surface,
		logger:  log.L(),
		step:    DefaultSkipSeconds,
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// State returns the visible state.
func (n *Navigator) State() State { return n.state }

// Session returns the active session or nil.
func (n *Navigator) Session() *Session { return n.session }

// Grid returns the open grid or nil.
func (n *Navigator) Grid() *grid.Grid { return n.grid }

// ActivateDataPoint opens the camera grid for a clicked data point. Any
// running session is discarded first.
//
// An empty grid is not fatal: the navigator still shows the grid, as an empty
// state, and grid.ErrNoCameras is returned.
func (n *Navigator) ActivateDataPoint(ctx context.Context, ts time.Time, count int) (grid.Grid, error) {
	g, err := n.grids.Open(ctx, ts, count)
	if err != nil && !errors.Is(err, grid.ErrNoCameras) {
		return grid.Grid{}, fmt.Errorf("open camera grid: %w", err)
	}

	n.endSession()
	n.grid = &g
	n.gridErr = err
	n.state = StateGridSelection
	n.emit(Transition{Kind: TransitionGridOpened})
	return g, err
}

// SelectCamera starts a new session for camera on the open grid.
func (n *Navigator) SelectCamera(camera string) error {
	if n.state != StateGridSelection || n.grid == nil {
		return ErrNoGrid
	}
	if err := n.grid.Choose(camera); err != nil {
		return fmt.Errorf("select %q: %w", camera, err)
	}

	s := newSession(n.builder, camera, n.grid.Timestamp, n.grid.Count)
	n.session = s
	n.state = StatePlaying

	n.logger.Info().
		Str(log.FieldCamera, camera).
		Time("reference", s.reference).
		Int(log.FieldChunkIndex, s.initial).
		Float64("seek_offset", s.seekOffset).
		Msg("playback session started")
	n.emit(Transition{Kind: TransitionSessionStarted, Index: s.initial})

	n.startLoad(s.initial, true)
	return nil
}

// NextChunk moves to the following hour. It is a no-op on the last chunk.
func (n *Navigator) NextChunk() error {
	s, err := n.active()
	if err != nil {
		return err
	}
	if !s.HasNext() {
		return nil
	}
	s.current++
	n.startLoad(s.current, false)
	return nil
}

// PreviousChunk moves to the preceding hour. It is a no-op on the first chunk.
func (n *Navigator) PreviousChunk() error {
	s, err := n.active()
	if err != nil {
		return err
	}
	if !s.HasPrevious() {
		return nil
	}
	s.current--
	n.startLoad(s.current, false)
	return nil
}

// SkipForward moves the position within the current chunk by seconds.
func (n *Navigator) SkipForward(seconds float64) error {
	return n.skip(seconds)
}

// SkipBackward moves the position within the current chunk back by seconds.
func (n *Navigator) SkipBackward(seconds float64) error {
	return n.skip(-seconds)
}

func (n *Navigator) skip(delta float64) error {
	if _, err := n.active(); err != nil {
		return err
	}

	switch {
	case n.load.failure != nil:
		// nothing is loaded
	case !n.load.ready:
		n.load.pendingSkip += delta
	default:
		pos := clamp(n.load.position+delta, 0, n.load.duration)
		n.load.position = pos
		n.surface.Seek(pos)
	}
	return nil
}

// TogglePlayPause flips playback of the current chunk. While the chunk is
// loading it flips whether playback starts once the media is ready.
func (n *Navigator) TogglePlayPause() error {
	if _, err := n.active(); err != nil {
		return err
	}

	switch {
	case n.load.failure != nil:
	case !n.load.ready:
		n.load.wantPlay = !n.load.wantPlay
	case n.load.playing:
		n.load.playing = false
		n.load.wantPlay = false
		n.surface.Pause()
	default:
		n.load.playing = true
		n.load.wantPlay = true
		n.surface.Play()
	}
	return nil
}

// ReturnToGrid pauses playback, discards the session and reopens the camera
// grid for the session's original data point.
func (n *Navigator) ReturnToGrid(ctx context.Context) (grid.Grid, error) {
	s, err := n.active()
	if err != nil {
		return grid.Grid{}, err
	}
	n.surface.Pause()
	n.emit(Transition{Kind: TransitionReturnedToGrid, Index: s.current})
	return n.ActivateDataPoint(ctx, s.reference, s.count)
}

// Close closes the player and the grid.
func (n *Navigator) Close() {
	if n.state == StateIdle {
		return
	}
	n.endSession()
	n.grid = nil
	n.gridErr = nil
	n.state = StateIdle
	n.emit(Transition{Kind: TransitionClosed})
}

// DismissError hides the error of the current chunk. The chunk stays failed
// until it is loaded again.
func (n *Navigator) DismissError() {
	if n.load.failure != nil {
		n.load.failure.Dismissed = true
	}
}

// HandleMedia applies a media surface event. Events for any load other than
// the current one are dropped; the return value reports whether ev applied.
func (n *Navigator) HandleMedia(ev MediaEvent) bool {
	if n.session == nil || ev.Token == 0 || ev.Token != n.load.token {
		return false
	}

	switch ev.Kind {
	case MediaReady:
		n.onReady(ev)
	case MediaFailed:
		n.onFailed(ev)
	case MediaTimeUpdate:
		if !n.load.ready {
			return false
		}
		if ev.Duration > 0 {
			n.load.duration = ev.Duration
		}
		n.load.position = clamp(ev.Position, 0, n.load.duration)
	case MediaPlaying:
		n.load.playing = true
	case MediaPaused:
		n.load.playing = false
	default:
		return false
	}
	return true
}

func (n *Navigator) onReady(ev MediaEvent) {
	l := &n.load
	if l.ready {
		// Repeated metadata for a running load only refreshes the duration.
		if ev.Duration > 0 {
			l.duration = ev.Duration
			l.position = clamp(l.position, 0, l.duration)
		}
		return
	}
	l.ready = true
	l.failure = nil
	if ev.Duration > 0 {
		l.duration = ev.Duration
	}

	pos := 0.0
	if l.hasSeek && l.seek < l.duration {
		pos = l.seek
	}
	if l.pendingSkip != 0 {
		pos = clamp(pos+l.pendingSkip, 0, l.duration)
	}
	l.hasSeek = false
	l.pendingSkip = 0

	if pos > 0 {
		n.surface.Seek(pos)
	}
	l.position = pos

	if l.wantPlay {
		l.playing = true
		n.surface.Play()
	}

	c := n.session.chunks[l.index]
	n.logger.Debug().
		Str(log.FieldCamera, n.session.camera).
		Int(log.FieldChunkIndex, l.index).
		Float64("position", pos).
		Msg("chunk ready")
	n.emit(Transition{Kind: TransitionChunkReady, Index: l.index, Locator: c.Locator})
}

func (n *Navigator) onFailed(ev MediaEvent) {
	l := &n.load
	c := n.session.chunks[l.index]
	l.ready = false
	l.playing = false
	l.hasSeek = false
	l.pendingSkip = 0
	l.failure = &ChunkLoadFailure{
		Index:   l.index,
		Label:   c.Label,
		Locator: c.Locator,
		Reason:  ev.Reason,
	}

	n.logger.Warn().
		Str(log.FieldCamera, n.session.camera).
		Int(log.FieldChunkIndex, l.index).
		Str("locator", c.Locator).
		Str("reason", ev.Reason).
		Msg("chunk load failed")
	n.emit(Transition{Kind: TransitionChunkFailed, Index: l.index, Locator: c.Locator, Reason: ev.Reason})
}

// HandleKey dispatches a keyboard shortcut. Keys are only bound while the
// player is visible; otherwise the key is ignored and false is returned.
func (n *Navigator) HandleKey(ctx context.Context, key Key) (bool, error) {
	if n.state != StatePlaying {
		return false, nil
	}

	var err error
	switch key {
	case KeyArrowLeft:
		err = n.SkipBackward(n.step)
	case KeyArrowRight:
		err = n.SkipForward(n.step)
	case KeyArrowUp:
		err = n.PreviousChunk()
	case KeyArrowDown:
		err = n.NextChunk()
	case KeySpace:
		err = n.TogglePlayPause()
	case KeyEscape:
		_, err = n.ReturnToGrid(ctx)
		if errors.Is(err, grid.ErrNoCameras) {
			err = nil
		}
	default:
		return false, nil
	}
	return true, err
}

func (n *Navigator) active() (*Session, error) {
	if n.state != StatePlaying || n.session == nil {
		return nil, ErrNoSession
	}
	return n.session, nil
}

// startLoad hands chunk idx to the surface under a fresh token. The previous
// load's subscription is closed first so only one chunk owns the surface.
func (n *Navigator) startLoad(idx int, initial bool) {
	n.release()

	n.tokens++
	c := n.session.chunks[idx]
	n.load = loadState{
		token:    n.tokens,
		index:    idx,
		wantPlay: true,
	}
	if initial {
		n.load.seek = n.session.seekOffset
		n.load.hasSeek = true
	}

	n.emit(Transition{Kind: TransitionChunkLoading, Index: idx, Locator: c.Locator})
	n.load.sub = n.surface.Load(LoadRequest{Token: n.load.token, Index: idx, Locator: c.Locator})
}

func (n *Navigator) release() {
	if n.load.sub != nil {
		n.load.sub.Close()
		n.load.sub = nil
	}
}

func (n *Navigator) endSession() {
	if n.session == nil {
		return
	}
	n.release()
	n.surface.Stop()
	n.session = nil
	n.load = loadState{}
}

func (n *Navigator) emit(t Transition) {
	if n.observer == nil {
		return
	}
	if n.session != nil && t.Camera == "" {
		t.Camera = n.session.camera
	}
	n.observer.Observe(t)
}
