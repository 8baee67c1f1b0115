// Package events publishes viewer navigation transitions on the event bus.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/weiawesome/crowd-playback/internal/player"
	"github.com/weiawesome/crowd-playback/pkg/log"
	"github.com/weiawesome/crowd-playback/pkg/pubsub"
)

const (
	queueSize      = 256
	publishTimeout = 2 * time.Second
)

type envelope struct {
	channel string
	event   *pubsub.Event
}

// Dispatcher publishes events from a queue on its own goroutine so the
// player controllers never wait on the bus.
type Dispatcher struct {
	publisher pubsub.Publisher
	prefix    string
	queue     chan envelope

	wg        sync.WaitGroup
	closeOnce sync.Once
	done      chan struct{}
}

// NewDispatcher starts a dispatcher. A nil publisher drops every event.
func NewDispatcher(publisher pubsub.Publisher, prefix string) *Dispatcher {
	d := &Dispatcher{
		publisher: publisher,
		prefix:    prefix,
		queue:     make(chan envelope, queueSize),
		done:      make(chan struct{}),
	}
	if publisher != nil {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case env := <-d.queue:
			d.publish(env)
		case <-d.done:
			// Drain what is already queued.
			for {
				select {
				case env := <-d.queue:
					d.publish(env)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) publish(env envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := d.publisher.Publish(ctx, env.channel, env.event); err != nil {
		l := log.L()
		l.Warn().Err(err).
			Str(log.FieldViewerID, env.event.ViewerID).
			Str("event_type", env.event.Type).
			Msg("publish viewer event failed")
	}
}

// ForViewer returns an observer publishing the transitions of viewerID.
func (d *Dispatcher) ForViewer(viewerID string) player.Observer {
	return player.ObserverFunc(func(t player.Transition) {
		d.enqueue(viewerID, t)
	})
}

func (d *Dispatcher) enqueue(viewerID string, t player.Transition) {
	if d.publisher == nil {
		return
	}
	typ, payload, ok := eventFor(t)
	if !ok {
		return
	}
	ev, err := pubsub.NewEvent(typ, viewerID, payload)
	if err != nil {
		return
	}

	select {
	case <-d.done:
		return
	default:
	}
	select {
	case d.queue <- envelope{channel: pubsub.ViewerChannel(d.prefix, viewerID), event: ev}:
	default:
		l := log.L()
		l.Warn().Str(log.FieldViewerID, viewerID).Str("event_type", typ).Msg("viewer event queue full, dropping")
	}
}

// Close stops the dispatcher after publishing queued events.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.done) })
	d.wg.Wait()
}

func eventFor(t player.Transition) (string, interface{}, bool) {
	switch t.Kind {
	case player.TransitionGridOpened:
		return pubsub.EventGridOpened, struct{}{}, true
	case player.TransitionSessionStarted:
		return pubsub.EventSessionStarted, pubsub.SessionPayload{Camera: t.Camera, Index: t.Index}, true
	case player.TransitionChunkReady:
		return pubsub.EventChunkLoaded, pubsub.ChunkPayload{Camera: t.Camera, Index: t.Index, Locator: t.Locator}, true
	case player.TransitionChunkFailed:
		return pubsub.EventChunkFailed, pubsub.ChunkPayload{Camera: t.Camera, Index: t.Index, Locator: t.Locator, Reason: t.Reason}, true
	case player.TransitionReturnedToGrid:
		return pubsub.EventReturnedToGrid, pubsub.SessionPayload{Camera: t.Camera, Index: t.Index}, true
	case player.TransitionClosed:
		return pubsub.EventClosed, struct{}{}, true
	default:
		return "", nil, false
	}
}
