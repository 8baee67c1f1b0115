package media

import (
	"sync"

	"github.com/weiawesome/crowd-playback/internal/player"
	"github.com/weiawesome/crowd-playback/pkg/log"
)

// Sender delivers a JSON message to the remote player.
type Sender interface {
	SendMessage(message interface{}) error
}

// RemoteSurface drives a video element in a connected client. Media events
// come back through the websocket handler and are posted to the controller.
type RemoteSurface struct {
	out Sender

	mu     sync.Mutex
	active uint64
}

// NewRemoteSurface creates a surface writing commands to out.
func NewRemoteSurface(out Sender) *RemoteSurface {
	return &RemoteSurface{out: out}
}

// Load sends the chunk URL to the client.
func (s *RemoteSurface) Load(req player.LoadRequest) player.Subscription {
	s.mu.Lock()
	s.active = req.Token
	s.mu.Unlock()

	s.send(LoadCommand{Type: CmdLoad, Token: req.Token, Index: req.Index, URL: req.Locator})
	return player.SubscriptionFunc(func() {
		s.send(UnloadCommand{Type: CmdUnload, Token: req.Token})
	})
}

// Seek moves the playhead of the active load.
func (s *RemoteSurface) Seek(seconds float64) {
	s.send(SeekCommand{Type: CmdSeek, Token: s.token(), Seconds: seconds})
}

// Play resumes the active load.
func (s *RemoteSurface) Play() {
	s.send(PlaybackCommand{Type: CmdPlay, Token: s.token()})
}

// Pause pauses the active load.
func (s *RemoteSurface) Pause() {
	s.send(PlaybackCommand{Type: CmdPause, Token: s.token()})
}

// Stop releases the video element.
func (s *RemoteSurface) Stop() {
	s.mu.Lock()
	s.active = 0
	s.mu.Unlock()
	s.send(PlaybackCommand{Type: CmdStop})
}

func (s *RemoteSurface) token() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *RemoteSurface) send(msg interface{}) {
	if err := s.out.SendMessage(msg); err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("send media command failed")
	}
}
