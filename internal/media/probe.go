package media

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/weiawesome/crowd-playback/internal/player"
	"github.com/weiawesome/crowd-playback/pkg/log"
)

const (
	// DefaultProbeTimeout bounds one chunk probe; a slower answer is a stalled load.
	DefaultProbeTimeout = 10 * time.Second
	// DefaultChunkDuration is assumed when the video service omits a duration.
	DefaultChunkDuration = 3600

	headerContentDuration = "X-Content-Duration"
)

// Sink receives media events produced by a surface. *player.Controller
// satisfies it.
type Sink interface {
	Post(ev player.MediaEvent) bool
}

// ProbeSurface is a headless surface: loading a chunk checks with an HTTP
// HEAD request that the video service can serve it. The navigator tracks
// play state itself, so playback commands produce no events.
type ProbeSurface struct {
	client   *http.Client
	timeout  time.Duration
	duration float64

	mu   sync.Mutex
	sink Sink
}

// NewProbeSurface creates a probe surface. A zero timeout uses DefaultProbeTimeout.
func NewProbeSurface(client *http.Client, timeout time.Duration) *ProbeSurface {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &ProbeSurface{
		client:   client,
		timeout:  timeout,
		duration: DefaultChunkDuration,
	}
}

// Attach sets where media events are delivered. It must be called before
// the first Load.
func (s *ProbeSurface) Attach(sink Sink) {
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
}

// Load probes req.Locator in the background. Closing the subscription
// cancels the probe and suppresses its event.
func (s *ProbeSurface) Load(req player.LoadRequest) player.Subscription {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	go func() {
		defer cancel()
		ev := s.probe(ctx, req)
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		s.emit(ev)
	}()
	return player.SubscriptionFunc(cancel)
}

func (s *ProbeSurface) probe(ctx context.Context, req player.LoadRequest) player.MediaEvent {
	l := log.L()
	ev := player.MediaEvent{Token: req.Token}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodHead, req.Locator, nil)
	if err != nil {
		ev.Kind = player.MediaFailed
		ev.Reason = ErrorReason(ErrCodeNotFound)
		return ev
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		ev.Kind = player.MediaFailed
		ev.Reason = ErrorReason(ErrCodeNetwork)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			ev.Reason = "Load timed out"
		}
		l.Debug().Err(err).Str("locator", req.Locator).Msg("chunk probe failed")
		return ev
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		ev.Kind = player.MediaFailed
		ev.Reason = ErrorReason(ErrCodeNotFound)
	case resp.StatusCode >= 400:
		ev.Kind = player.MediaFailed
		ev.Reason = ErrorReason(ErrCodeNetwork)
	default:
		ev.Kind = player.MediaReady
		ev.Duration = s.duration
		if d, err := strconv.ParseFloat(resp.Header.Get(headerContentDuration), 64); err == nil && d > 0 {
			ev.Duration = d
		}
	}
	return ev
}

// Seek is tracked by the navigator; nothing to do headless.
func (s *ProbeSurface) Seek(float64) {}

func (s *ProbeSurface) Play() {}

func (s *ProbeSurface) Pause() {}

// Stop has nothing to release; closing a load's subscription cancels its probe.
func (s *ProbeSurface) Stop() {}

// emit runs on the probe goroutine, so a full event queue only delays that load.
func (s *ProbeSurface) emit(ev player.MediaEvent) {
	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()
	if sink == nil || ev.Token == 0 {
		return
	}
	sink.Post(ev)
}
