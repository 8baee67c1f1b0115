package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/crowd-playback/internal/camera"
	"github.com/weiawesome/crowd-playback/internal/chunk"
	"github.com/weiawesome/crowd-playback/internal/config"
	"github.com/weiawesome/crowd-playback/internal/events"
	"github.com/weiawesome/crowd-playback/internal/grid"
	"github.com/weiawesome/crowd-playback/internal/handler"
	"github.com/weiawesome/crowd-playback/internal/hub"
	"github.com/weiawesome/crowd-playback/internal/service"
	"github.com/weiawesome/crowd-playback/pkg/database"
	pkglog "github.com/weiawesome/crowd-playback/pkg/log"
	"github.com/weiawesome/crowd-playback/pkg/pubsub"
	"github.com/weiawesome/crowd-playback/pkg/storage"
)

var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "crowd-playback",
	})
	logger := pkglog.L()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loc, err := cfg.Video.Location()
	if err != nil {
		logger.Fatal().Err(err).Str("timezone", cfg.Video.Timezone).Msg("invalid video timezone")
	}

	// Shared Redis connection, used by the camera cache and the event bus
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pubsub.NewRedisClient(ctx, cfg.Redis.RedisConfig)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		logger.Info().Str("address", cfg.Redis.Address).Msg("redis connected")
	}

	source, err := initCameraSource(cfg, redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize camera source")
	}

	// Event bus
	bus, err := pubsub.NewPubSub(cfg.Events, redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize event bus")
	}
	var publisher pubsub.Publisher
	var subscriber pubsub.Subscriber
	if bus != nil {
		defer bus.Close()
		publisher, subscriber = bus, bus
	}
	dispatcher := events.NewDispatcher(publisher, cfg.Events.ChannelPrefix)
	defer dispatcher.Close()

	selector := grid.NewSelector(source,
		grid.WithDefaults(cfg.Grid.DefaultCameras),
		grid.WithAggregate(cfg.Grid.AggregateCamera),
	)
	builder := chunk.NewBuilder(cfg.Video.BaseURL, cfg.Video.StreamPath, cfg.Video.RadiusHours)

	playbackSvc := service.NewPlaybackService(selector, builder, dispatcher, service.Options{
		DeviceID:     cfg.Cameras.DeviceID,
		SkipSeconds:  cfg.Video.SkipSeconds,
		Location:     loc,
		ProbeClient:  &http.Client{},
		ProbeTimeout: cfg.Probe.Timeout,
		ViewerTTL:    cfg.Playback.ViewerTTL,
	})
	defer playbackSvc.Close()
	go playbackSvc.RunReaper(ctx, cfg.Playback.ReapInterval)

	wsHub := hub.NewHub(cfg.WebSocket)
	defer wsHub.CloseAll()

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger, "/health", "/healthz"))
	r.Use(handler.CORS())

	handler.NewHealthHandler(version).RegisterRoutes(r)
	handler.NewViewerHandler(playbackSvc).RegisterRoutes(r)
	handler.NewCatalogHandler(selector, builder, loc, cfg.Cameras.DeviceID).RegisterRoutes(r)
	handler.NewEventsHandler(subscriber, cfg.Events.ChannelPrefix).RegisterRoutes(r)
	handler.NewWSHandler(wsHub, playbackSvc).RegisterRoutes(r)

	// Recording gateway
	if cfg.Playback.Gateway {
		store, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize storage")
		}
		provider := service.NewContentProvider(store, cfg.Playback, cfg.Storage.Type, loc)
		handler.NewStreamHandler(provider, builder.Path, cfg.Playback.AllowUpload).RegisterRoutes(r)
		logger.Info().
			Str("storage", cfg.Storage.Type).
			Bool("redirect", cfg.IsRedirectMode()).
			Str("path", builder.Path).
			Msg("recording gateway enabled")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logger.Info().
			Str("addr", addr).
			Str("video_base_url", cfg.Video.BaseURL).
			Int("radius_hours", builder.Radius).
			Str("cameras", cfg.Cameras.Source).
			Str("events", cfg.Events.Driver).
			Msg("crowd-playback starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down crowd-playback")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("crowd-playback stopped")
}

// initCameraSource builds the camera list source selected by configuration,
// wrapped in the Redis cache when enabled.
func initCameraSource(cfg *config.Config, redisClient *redis.Client) (camera.Source, error) {
	l := pkglog.L()

	var source camera.Source
	switch cfg.Cameras.Source {
	case "api":
		if cfg.Cameras.APIBase == "" {
			return nil, errors.New("cameras.api_base is required for the api source")
		}
		source = camera.NewAPISource(cfg.Cameras.APIBase, cfg.Cameras.Timeout)

	case "database":
		db, err := database.New(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := database.AutoMigrate(db, &camera.Model{}); err != nil {
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
		l.Info().Str("driver", cfg.Database.Driver).Msg("database migration completed")
		source = camera.NewGormSource(db)

	case "static", "":
		source = camera.NewStaticSource(cfg.Cameras.Static)

	default:
		return nil, fmt.Errorf("unsupported camera source: %s", cfg.Cameras.Source)
	}

	if cfg.Cameras.Cache.Enabled {
		if redisClient == nil {
			l.Warn().Msg("camera cache enabled but redis is disabled, serving uncached")
			return source, nil
		}
		source = camera.NewCachedSource(source, camera.NewRedisCache(redisClient, cfg.Cameras.Cache.KeyPrefix, cfg.Cameras.Cache.TTL))
	}
	return source, nil
}
