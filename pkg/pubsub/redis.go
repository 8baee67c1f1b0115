package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/crowd-playback/pkg/log"
)

// RedisPubSub fans viewer events out across instances through Redis.
type RedisPubSub struct {
	client *redis.Client

	mu     sync.Mutex
	subs   map[string][]*redis.PubSub
	closed bool
}

// NewRedisPubSub wraps an existing client. Close leaves the client open; its
// owner closes it.
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{client: client, subs: make(map[string][]*redis.PubSub)}
}

// NewRedisClient connects to Redis and pings it.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// Publish encodes event as JSON onto channel.
func (r *RedisPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return r.client.Publish(ctx, channel, data).Err()
}

// Subscribe returns once Redis has confirmed the subscription, so events
// published afterwards are delivered.
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	return r.start(ctx, channel, r.client.Subscribe(ctx, channel))
}

// SubscribePattern is Subscribe for a glob pattern.
func (r *RedisPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	return r.start(ctx, pattern, r.client.PSubscribe(ctx, pattern))
}

func (r *RedisPubSub) start(ctx context.Context, key string, ps *redis.PubSub) (<-chan *Event, error) {
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", key, err)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		ps.Close()
		return nil, fmt.Errorf("subscribe %s: bus closed", key)
	}
	r.subs[key] = append(r.subs[key], ps)
	r.mu.Unlock()

	out := make(chan *Event, subscriberBuffer)
	go func() {
		defer close(out)
		defer r.drop(key, ps)
		r.pump(ctx, key, ps, out)
	}()
	return out, nil
}

func (r *RedisPubSub) pump(ctx context.Context, key string, ps *redis.PubSub, out chan<- *Event) {
	l := log.L()
	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				l.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping undecodable event")
				continue
			}
			select {
			case out <- &ev:
			case <-ctx.Done():
				return
			default:
				l.Warn().Str("subscription", key).Str("event_type", ev.Type).Msg("subscriber behind, dropping event")
			}
		}
	}
}

func (r *RedisPubSub) drop(key string, ps *redis.PubSub) {
	ps.Close()

	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.subs[key]
	for i, s := range list {
		if s == ps {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(r.subs, key)
	} else {
		r.subs[key] = list
	}
}

// Unsubscribe ends every subscription on channel or pattern.
func (r *RedisPubSub) Unsubscribe(ctx context.Context, channel string) error {
	r.mu.Lock()
	list := append([]*redis.PubSub(nil), r.subs[channel]...)
	r.mu.Unlock()

	var firstErr error
	for _, ps := range list {
		if err := ps.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close ends all subscriptions.
func (r *RedisPubSub) Close() error {
	r.mu.Lock()
	r.closed = true
	var all []*redis.PubSub
	for _, list := range r.subs {
		all = append(all, list...)
	}
	r.mu.Unlock()

	for _, ps := range all {
		ps.Close()
	}
	return nil
}
