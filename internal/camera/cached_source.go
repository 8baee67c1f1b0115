package camera

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/crowd-playback/pkg/log"
)

// Cache stores camera lists keyed by device.
type Cache interface {
	Get(ctx context.Context, deviceID string) ([]string, bool, error)
	Set(ctx context.Context, deviceID string, cameras []string) error
}

// RedisCache is a Redis-backed Cache.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a camera list cache on an existing Redis client.
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) key(deviceID string) string {
	return fmt.Sprintf("%s:device:%s", c.prefix, deviceID)
}

// Get returns the cached list; ok is false on a cache miss.
func (c *RedisCache) Get(ctx context.Context, deviceID string) ([]string, bool, error) {
	data, err := c.client.Get(ctx, c.key(deviceID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get from redis: %w", err)
	}

	var cameras []string
	if err := json.Unmarshal(data, &cameras); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return cameras, true, nil
}

// Set stores the list with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, deviceID string, cameras []string) error {
	data, err := json.Marshal(cameras)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}
	if err := c.client.Set(ctx, c.key(deviceID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

// CachedSource wraps a Source with a Cache. Concurrent misses for the same
// device share one upstream call.
type CachedSource struct {
	next  Source
	cache Cache
	group singleflight.Group
}

// NewCachedSource creates a caching decorator around next.
func NewCachedSource(next Source, cache Cache) *CachedSource {
	return &CachedSource{next: next, cache: cache}
}

// Cameras serves from the cache when possible. Cache failures are logged and
// bypassed.
func (s *CachedSource) Cameras(ctx context.Context, deviceID string) ([]string, error) {
	l := log.Ctx(ctx)

	cameras, ok, err := s.cache.Get(ctx, deviceID)
	if err != nil {
		l.Warn().Err(err).Str(log.FieldDeviceID, deviceID).Msg("camera cache read failed")
	} else if ok {
		return cameras, nil
	}

	v, err, _ := s.group.Do(deviceID, func() (interface{}, error) {
		fresh, err := s.next.Cameras(ctx, deviceID)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, deviceID, fresh); err != nil {
			l.Warn().Err(err).Str(log.FieldDeviceID, deviceID).Msg("camera cache write failed")
		}
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), v.([]string)...), nil
}

var (
	_ Cache  = (*RedisCache)(nil)
	_ Source = (*CachedSource)(nil)
)
