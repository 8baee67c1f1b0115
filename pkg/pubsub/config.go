package pubsub

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds the configuration for the viewer event bus.
type Config struct {
	Driver        string `mapstructure:"driver"` // "redis", "memory", "none"
	ChannelPrefix string `mapstructure:"channel_prefix"`
}

// RedisConfig holds Redis-specific configuration.
type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DefaultRedisConfig returns the default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Address:      "localhost:6379",
		PoolSize:     10,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// NewPubSub creates the bus selected by cfg. The redis driver needs client;
// "none" returns nil and the caller publishes nothing.
func NewPubSub(cfg Config, client *redis.Client) (PubSub, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryPubSub(), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("pubsub driver redis: redis is not configured")
		}
		return NewRedisPubSub(client), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown pubsub driver %q", cfg.Driver)
	}
}
