// Package pubsub carries viewer navigation events between the playback
// service and its observers, in process or over Redis.
package pubsub

import (
	"context"
	"encoding/json"
	"time"
)

// subscriberBuffer bounds the events queued per subscription; a slower
// reader misses events.
const subscriberBuffer = 64

// Event is one viewer transition on the bus.
type Event struct {
	Type      string          `json:"type"`
	ViewerID  string          `json:"viewer_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent stamps an event with the current time. A nil payload is omitted.
func NewEvent(eventType, viewerID string, payload any) (*Event, error) {
	ev := &Event{Type: eventType, ViewerID: viewerID, Timestamp: time.Now().UTC()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		ev.Payload = data
	}
	return ev, nil
}

// DecodePayload unmarshals the payload of e into a T.
func DecodePayload[T any](e *Event) (T, error) {
	var v T
	if len(e.Payload) == 0 {
		return v, nil
	}
	err := json.Unmarshal(e.Payload, &v)
	return v, err
}

// Publisher publishes events.
type Publisher interface {
	Publish(ctx context.Context, channel string, event *Event) error
}

// Subscriber hands out event streams. A stream closes when its context ends,
// on Unsubscribe, or when the bus closes.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan *Event, error)
	SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error)
	Unsubscribe(ctx context.Context, channel string) error
}

// PubSub is a bus that can be closed.
type PubSub interface {
	Publisher
	Subscriber
	Close() error
}
