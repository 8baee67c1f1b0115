package config

import (
	"time"

	pkgconfig "github.com/weiawesome/crowd-playback/pkg/config"
	"github.com/weiawesome/crowd-playback/pkg/database"
	"github.com/weiawesome/crowd-playback/pkg/pubsub"
	"github.com/weiawesome/crowd-playback/pkg/storage"
)

// Config holds all configuration for the playback navigator service.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Video     VideoConfig     `mapstructure:"video"`
	Grid      GridConfig      `mapstructure:"grid"`
	Cameras   CamerasConfig   `mapstructure:"cameras"`
	Database  database.Config `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Events    pubsub.Config   `mapstructure:"events"`
	Storage   storage.Config  `mapstructure:"storage"`
	Playback  PlaybackConfig  `mapstructure:"playback"`
	Probe     ProbeConfig     `mapstructure:"probe"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// VideoConfig describes the external video service chunk locators point at.
type VideoConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	StreamPath  string  `mapstructure:"stream_path"`
	RadiusHours int     `mapstructure:"radius_hours"`
	SkipSeconds float64 `mapstructure:"skip_seconds"`
	Timezone    string  `mapstructure:"timezone"` // wall clock of the recordings; empty = process local
}

// Location returns the wall-clock zone recordings are named in.
func (v VideoConfig) Location() (*time.Location, error) {
	if v.Timezone == "" || v.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(v.Timezone)
}

// GridConfig holds the camera grid defaults.
type GridConfig struct {
	DefaultCameras  []string `mapstructure:"default_cameras"`
	AggregateCamera string   `mapstructure:"aggregate_camera"`
}

// CamerasConfig selects where camera lists come from.
type CamerasConfig struct {
	Source   string        `mapstructure:"source"` // "static", "api" or "database"
	Static   []string      `mapstructure:"static"`
	APIBase  string        `mapstructure:"api_base"`
	Timeout  time.Duration `mapstructure:"timeout"`
	DeviceID string        `mapstructure:"device_id"` // used when a viewer names none
	Cache    CacheConfig   `mapstructure:"cache"`
}

// CacheConfig holds the Redis camera list cache configuration.
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	TTL       time.Duration `mapstructure:"ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

// RedisConfig holds the shared Redis connection.
type RedisConfig struct {
	Enabled            bool `mapstructure:"enabled"`
	pubsub.RedisConfig `mapstructure:",squash"`
}

// PlaybackConfig holds recording gateway and viewer configuration.
type PlaybackConfig struct {
	Gateway       bool          `mapstructure:"gateway"`        // serve video.stream_path from storage
	AccessMode    string        `mapstructure:"access_mode"`    // "redirect" or "proxy"
	PresignExpiry int           `mapstructure:"presign_expiry"` // seconds, for redirect mode
	StoragePrefix string        `mapstructure:"storage_prefix"` // prefix of recording keys
	AllowUpload   bool          `mapstructure:"allow_upload"`
	ViewerTTL     time.Duration `mapstructure:"viewer_ttl"`
	ReapInterval  time.Duration `mapstructure:"reap_interval"`
}

// ProbeConfig configures the headless surface used by REST viewers.
type ProbeConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// WebSocketConfig holds WebSocket configuration.
type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v, err := pkgconfig.Load("config", "PLAYBACK", "./config", ".")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 15000)
	v.SetDefault("video.base_url", "http://localhost:15000")
	v.SetDefault("video.stream_path", "/api/video/stream")
	v.SetDefault("video.radius_hours", 3)
	v.SetDefault("video.skip_seconds", 30)
	v.SetDefault("video.timezone", "Local")
	v.SetDefault("grid.default_cameras", []string{"Cam1", "Cam2", "Cam3", "Cam4", "Cam5", "Cam6", "Cam7", "Cam8"})
	v.SetDefault("grid.aggregate_camera", "Global")
	v.SetDefault("cameras.source", "static")
	v.SetDefault("cameras.timeout", 5*time.Second)
	v.SetDefault("cameras.cache.enabled", false)
	v.SetDefault("cameras.cache.ttl", 5*time.Minute)
	v.SetDefault("cameras.cache.key_prefix", "playback:cameras")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.file_path", "./data/cameras.db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", 30)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("events.driver", "memory")
	v.SetDefault("events.channel_prefix", pubsub.DefaultChannelPrefix)
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local.base_path", "./recordings")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.use_path_style", true)
	v.SetDefault("playback.gateway", true)
	v.SetDefault("playback.access_mode", "proxy")
	v.SetDefault("playback.presign_expiry", 3600)
	v.SetDefault("playback.storage_prefix", "")
	v.SetDefault("playback.allow_upload", false)
	v.SetDefault("playback.viewer_ttl", 30*time.Minute)
	v.SetDefault("playback.reap_interval", time.Minute)
	v.SetDefault("probe.timeout", 10*time.Second)
	v.SetDefault("websocket.ping_interval", 30*time.Second)
	v.SetDefault("websocket.pong_wait", 60*time.Second)
	v.SetDefault("websocket.write_wait", 10*time.Second)
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// Bind environment variables
	v.BindEnv("server.port", "PORT")
	v.BindEnv("video.base_url", "VIDEO_BASE_URL")
	v.BindEnv("video.timezone", "VIDEO_TIMEZONE")
	v.BindEnv("cameras.source", "CAMERAS_SOURCE")
	v.BindEnv("cameras.api_base", "CAMERAS_API_BASE")
	v.BindEnv("cameras.device_id", "DEVICE_ID")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("events.driver", "EVENTS_DRIVER")
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.local.base_path", "STORAGE_LOCAL_BASE_PATH")
	v.BindEnv("storage.s3.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.s3.region", "S3_REGION")
	v.BindEnv("storage.s3.bucket", "S3_BUCKET")
	v.BindEnv("storage.s3.access_key_id", "S3_ACCESS_KEY_ID")
	v.BindEnv("storage.s3.secret_access_key", "S3_SECRET_ACCESS_KEY")
	v.BindEnv("storage.s3.public_url", "S3_PUBLIC_URL")
	v.BindEnv("playback.access_mode", "PLAYBACK_ACCESS_MODE")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// IsRedirectMode returns true if using redirect mode with S3 storage.
func (c *Config) IsRedirectMode() bool {
	return c.Playback.AccessMode == "redirect" && c.Storage.Type == "s3"
}
