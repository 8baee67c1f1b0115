package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/weiawesome/crowd-playback/internal/chunk"
	"github.com/weiawesome/crowd-playback/internal/events"
	"github.com/weiawesome/crowd-playback/internal/grid"
	"github.com/weiawesome/crowd-playback/internal/media"
	"github.com/weiawesome/crowd-playback/internal/player"
	"github.com/weiawesome/crowd-playback/pkg/log"
)

// Options configures a PlaybackService.
type Options struct {
	DeviceID     string
	SkipSeconds  float64
	Location     *time.Location
	ProbeClient  *http.Client
	ProbeTimeout time.Duration
	ViewerTTL    time.Duration
	// Clock stamps viewer activity. Nil uses time.Now.
	Clock func() time.Time
}

// MountOptions configures one viewer.
type MountOptions struct {
	DeviceID string
	// Surface renders chunks for the viewer. Nil mounts a probe surface.
	Surface player.Surface
	// OnChange receives a snapshot after every handled command or event.
	OnChange func(player.Snapshot)
	// Pinned viewers are owned by a connection and never reaped.
	Pinned bool
}

// PlaybackService owns the mounted viewers.
type PlaybackService struct {
	selector   *grid.Selector
	builder    *chunk.Builder
	dispatcher *events.Dispatcher
	opts       Options

	mu      sync.RWMutex
	viewers map[string]*Viewer
}

// NewPlaybackService creates a new playback service.
func NewPlaybackService(selector *grid.Selector, builder *chunk.Builder, dispatcher *events.Dispatcher, opts Options) *PlaybackService {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.SkipSeconds <= 0 {
		opts.SkipSeconds = player.DefaultSkipSeconds
	}
	return &PlaybackService{
		selector:   selector,
		builder:    builder,
		dispatcher: dispatcher,
		opts:       opts,
		viewers:    make(map[string]*Viewer),
	}
}

// Location returns the wall-clock zone timestamps are read in.
func (s *PlaybackService) Location() *time.Location {
	return s.opts.Location
}

// Mount creates a viewer in the idle state.
func (s *PlaybackService) Mount(opts MountOptions) *Viewer {
	id := uuid.New().String()
	deviceID := opts.DeviceID
	if deviceID == "" {
		deviceID = s.opts.DeviceID
	}

	surface := opts.Surface
	var probe *media.ProbeSurface
	if surface == nil {
		probe = media.NewProbeSurface(s.opts.ProbeClient, s.opts.ProbeTimeout)
		surface = probe
	}

	navOpts := []player.NavigatorOption{
		player.WithSkipSeconds(s.opts.SkipSeconds),
		player.WithLogger(log.L().With().Str(log.FieldViewerID, id).Str(log.FieldDeviceID, deviceID).Logger()),
	}
	if s.dispatcher != nil {
		navOpts = append(navOpts, player.WithObserver(s.dispatcher.ForViewer(id)))
	}
	nav := player.NewNavigator(s.selector.ForDevice(deviceID), s.builder, surface, navOpts...)

	var ctrlOpts []player.ControllerOption
	if opts.OnChange != nil {
		ctrlOpts = append(ctrlOpts, player.WithChangeHook(opts.OnChange))
	}
	if s.opts.Clock != nil {
		ctrlOpts = append(ctrlOpts, player.WithClock(s.opts.Clock))
	}
	ctrl := player.NewController(nav, ctrlOpts...)
	if probe != nil {
		probe.Attach(ctrl)
	}

	v := &Viewer{
		ID:        id,
		DeviceID:  deviceID,
		CreatedAt: time.Now(),
		ctrl:      ctrl,
		loc:       s.opts.Location,
		skip:      s.opts.SkipSeconds,
		pinned:    opts.Pinned,
	}

	s.mu.Lock()
	s.viewers[id] = v
	s.mu.Unlock()

	l := log.L()
	l.Info().Str(log.FieldViewerID, id).Str(log.FieldDeviceID, deviceID).Msg("viewer mounted")
	return v
}

// Get returns a mounted viewer.
func (s *PlaybackService) Get(id string) (*Viewer, error) {
	s.mu.RLock()
	v, ok := s.viewers[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrViewerNotFound, id)
	}
	return v, nil
}

// Unmount stops a viewer, releasing its session and any pending load.
func (s *PlaybackService) Unmount(id string) error {
	s.mu.Lock()
	v, ok := s.viewers[id]
	delete(s.viewers, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrViewerNotFound, id)
	}

	v.ctrl.Stop()
	l := log.L()
	l.Info().Str(log.FieldViewerID, id).Msg("viewer unmounted")
	return nil
}

// Count returns the number of mounted viewers.
func (s *PlaybackService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.viewers)
}

// Playlist renders the chunk window of the viewer's current session.
func (s *PlaybackService) Playlist(ctx context.Context, id string) (string, error) {
	v, err := s.Get(id)
	if err != nil {
		return "", err
	}

	var chunks []chunk.Descriptor
	_, err = v.ctrl.Do(ctx, func(_ context.Context, n *player.Navigator) error {
		sess := n.Session()
		if sess == nil {
			return player.ErrNoSession
		}
		chunks = sess.Chunks()
		return nil
	})
	if err != nil {
		return "", err
	}
	return BuildPlaylist(chunks)
}

// Reap unmounts viewers idle since before now minus the viewer TTL.
func (s *PlaybackService) Reap(now time.Time) int {
	if s.opts.ViewerTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-s.opts.ViewerTTL)

	var stale []string
	s.mu.RLock()
	for id, v := range s.viewers {
		if !v.pinned && v.LastActive().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	s.mu.RUnlock()

	reaped := 0
	for _, id := range stale {
		if s.Unmount(id) == nil {
			reaped++
		}
	}
	return reaped
}

// RunReaper reaps idle viewers every interval until ctx is cancelled.
func (s *PlaybackService) RunReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.opts.ViewerTTL <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.Reap(now); n > 0 {
				l := log.L()
				l.Info().Int("count", n).Msg("reaped idle viewers")
			}
		}
	}
}

// Close unmounts every viewer.
func (s *PlaybackService) Close() {
	s.mu.Lock()
	viewers := s.viewers
	s.viewers = make(map[string]*Viewer)
	s.mu.Unlock()

	for _, v := range viewers {
		v.ctrl.Stop()
	}
}
