// Command catalog-proxy is a caching gateway in front of the catalog API.
// Responses are cached in Redis and outgoing requests share one rate limit
// budget across replicas.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RaY8118/anime-recommendation/internal/config"
	"github.com/RaY8118/anime-recommendation/pkg/cache"
	"github.com/RaY8118/anime-recommendation/pkg/catalog"
	"github.com/RaY8118/anime-recommendation/pkg/client"
	"github.com/RaY8118/anime-recommendation/pkg/logging"
	"github.com/RaY8118/anime-recommendation/pkg/pagination"
	"github.com/RaY8118/anime-recommendation/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	_, logFile, err := logging.Setup(cfg.LogConfig(os.Stderr))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}
	defer logFile.Close()
	logger := logging.NewLogger(logging.ComponentProxy)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
	}
	logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")

	manager, closeCache, err := newCache(cfg, redisClient)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Cache.Backend).Msg("Failed to open response cache")
	}
	defer closeCache()

	clientCfg := client.DefaultConfig(cfg.Catalog.BaseURL, cfg.Catalog.UserAgent)
	clientCfg.Timeout = cfg.Catalog.Timeout
	clientCfg.BreakerThreshold = cfg.Catalog.BreakerThreshold
	clientCfg.BreakerTimeout = cfg.Catalog.BreakerTimeout
	clientCfg.Cache = manager
	clientCfg.RateLimiter = ratelimit.NewTracker(ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		MaxWait:           cfg.RateLimit.MaxWait,
		ThrottleDelay:     cfg.RateLimit.ThrottleDelay,
		Redis:             redisClient,
	}, logger)

	catalogClient, err := client.New(clientCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create catalog client")
	}
	defer catalogClient.Close()

	if cfg.Browse.WarmChunks > 0 {
		go warm(catalogClient, cfg)
	}

	handler := newRouter(catalogClient, func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	}, routerConfig{
		DefaultPerPage:    cfg.Geometry().ChunkSize(),
		RequestsPerMinute: cfg.Proxy.RequestsPerMinute,
		RequestTimeout:    cfg.Proxy.RequestTimeout,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.Proxy.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().
			Str("addr", cfg.Proxy.Addr).
			Str("catalog", cfg.Catalog.BaseURL).
			Msg("Starting catalog proxy")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
	logger.Info().Msg("Catalog proxy stopped")
}

// newCache builds the response cache selected by cfg.Cache.Backend. A nil
// manager disables caching.
func newCache(cfg *config.Config, redisClient *redis.Client) (*cache.Manager, func(), error) {
	var backend cache.Backend
	closeFn := func() {}

	switch cfg.Cache.Backend {
	case "redis":
		backend = cache.NewRedisBackend(redisClient)
	case "badger":
		db, err := cache.OpenBadger(cfg.Cache.Dir)
		if err != nil {
			return nil, nil, err
		}
		backend = cache.NewBadgerBackend(db)
		closeFn = func() { db.Close() }
	default:
		return nil, closeFn, nil
	}

	manager := cache.NewManager(backend)
	manager.SetRevalidateWindow(cfg.Cache.RevalidateWindow)
	return manager, closeFn, nil
}

// warm prefetches the unfiltered listing so the first browse pages are
// served from cache.
func warm(c *client.Client, cfg *config.Config) {
	wcfg := pagination.DefaultWarmerConfig()
	wcfg.Geometry = cfg.Geometry()
	wcfg.MaxChunks = cfg.Browse.WarmChunks

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pages, err := pagination.NewWarmer(c, wcfg).Warm(ctx, catalog.FilterSet{})
	if err != nil {
		log.Warn().Err(err).Int("warmed", len(pages)).Msg("Cache warm-up incomplete")
	}
}
