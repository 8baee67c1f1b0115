package player

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrControllerStopped is returned for work submitted after Stop.
var ErrControllerStopped = errors.New("player controller stopped")

// Command is a unit of work run on the controller goroutine.
type Command func(ctx context.Context, n *Navigator) error

type request struct {
	ctx   context.Context
	cmd   Command
	reply chan result
}

type result struct {
	snap Snapshot
	err  error
}

// Controller owns a Navigator and runs every command and media event on one
// goroutine, in arrival order.
type Controller struct {
	nav      *Navigator
	requests chan request
	events   chan MediaEvent
	onChange func(Snapshot)
	now      func() time.Time

	lastActive atomic.Int64

	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithChangeHook registers fn to receive the snapshot after every applied
// command or media event. fn runs on the controller goroutine.
func WithChangeHook(fn func(Snapshot)) ControllerOption {
	return func(c *Controller) { c.onChange = fn }
}

// WithClock sets the clock activity is stamped with.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) { c.now = now }
}

// NewController starts the event loop for nav.
func NewController(nav *Navigator, opts ...ControllerOption) *Controller {
	c := &Controller{
		nav:      nav,
		requests: make(chan request),
		events:   make(chan MediaEvent, 64),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.touch()
	go c.run()
	return c
}

func (c *Controller) run() {
	defer close(c.stopped)
	for {
		select {
		case <-c.done:
			c.nav.Close()
			return
		case req := <-c.requests:
			err := req.cmd(req.ctx, c.nav)
			snap := c.nav.Snapshot()
			req.reply <- result{snap: snap, err: err}
			c.changed(snap)
		case ev := <-c.events:
			if c.nav.HandleMedia(ev) {
				c.changed(c.nav.Snapshot())
			}
		}
	}
}

func (c *Controller) changed(snap Snapshot) {
	if c.onChange != nil {
		c.onChange(snap)
	}
}

// Do runs cmd on the controller goroutine and returns the resulting snapshot.
func (c *Controller) Do(ctx context.Context, cmd Command) (Snapshot, error) {
	c.touch()
	req := request{ctx: ctx, cmd: cmd, reply: make(chan result, 1)}

	select {
	case c.requests <- req:
	case <-c.done:
		return Snapshot{}, ErrControllerStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}

	// Once accepted the command always completes.
	res := <-req.reply
	return res.snap, res.err
}

// Snapshot returns the current view.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	return c.Do(ctx, func(context.Context, *Navigator) error { return nil })
}

// Post queues a media event. It blocks while the queue is full and returns
// false once the controller is stopped. A queued event counts as activity.
func (c *Controller) Post(ev MediaEvent) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.events <- ev:
		c.touch()
		return true
	case <-c.done:
		return false
	}
}

// LastActive returns when a command or media event was last submitted.
func (c *Controller) LastActive() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

func (c *Controller) touch() {
	c.lastActive.Store(c.now().UnixNano())
}

// Stop closes the player and ends the event loop. It waits for the loop to
// exit and is safe to call more than once.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
	<-c.stopped
}

// Done is closed when the controller has stopped.
func (c *Controller) Done() <-chan struct{} {
	return c.stopped
}
