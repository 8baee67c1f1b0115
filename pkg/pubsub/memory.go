package pubsub

import (
	"context"
	"sync"
)

// MemoryPubSub is an in-process PubSub for single-instance deployments.
type MemoryPubSub struct {
	mu     sync.RWMutex
	subs   map[string][]*memorySub
	closed bool
}

type memorySub struct {
	pattern bool
	ch      chan *Event
	done    chan struct{}
	once    sync.Once
}

func (s *memorySub) close() {
	s.once.Do(func() { close(s.done) })
}

// NewMemoryPubSub creates an empty in-process bus.
func NewMemoryPubSub() *MemoryPubSub {
	return &MemoryPubSub{subs: make(map[string][]*memorySub)}
}

// Publish delivers event to every matching subscriber. Slow subscribers
// miss events instead of blocking the publisher.
func (m *MemoryPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for key, subs := range m.subs {
		for _, s := range subs {
			if s.pattern && !matchPattern(key, channel) || !s.pattern && key != channel {
				continue
			}
			select {
			case <-s.done:
			case s.ch <- event:
			default:
			}
		}
	}
	return nil
}

// Subscribe subscribes to a specific channel.
func (m *MemoryPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	return m.add(ctx, channel, false), nil
}

// SubscribePattern subscribes to channels matching a '*' pattern.
func (m *MemoryPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	return m.add(ctx, pattern, true), nil
}

func (m *MemoryPubSub) add(ctx context.Context, key string, pattern bool) <-chan *Event {
	sub := &memorySub{pattern: pattern, ch: make(chan *Event, subscriberBuffer), done: make(chan struct{})}
	out := make(chan *Event, subscriberBuffer)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		close(out)
		return out
	}
	m.subs[key] = append(m.subs[key], sub)
	m.mu.Unlock()

	go func() {
		defer close(out)
		defer m.remove(key, sub)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.done:
				return
			case ev := <-sub.ch:
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				case <-sub.done:
					return
				}
			}
		}
	}()
	return out
}

func (m *MemoryPubSub) remove(key string, sub *memorySub) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subs[key]
	for i, s := range subs {
		if s == sub {
			m.subs[key] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(m.subs[key]) == 0 {
		delete(m.subs, key)
	}
}

// Unsubscribe ends every subscription on channel.
func (m *MemoryPubSub) Unsubscribe(ctx context.Context, channel string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.subs[channel] {
		s.close()
	}
	return nil
}

// Close ends all subscriptions.
func (m *MemoryPubSub) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for _, subs := range m.subs {
		for _, s := range subs {
			s.close()
		}
	}
	return nil
}
