// Command catalog-browse is a terminal browser for the anime catalog.
//
// Filters typed into the search bar are debounced before a fetch is issued,
// and pages are served from locally cached chunks where possible.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RaY8118/anime-recommendation/internal/config"
	"github.com/RaY8118/anime-recommendation/internal/tui"
	"github.com/RaY8118/anime-recommendation/pkg/browse"
	"github.com/RaY8118/anime-recommendation/pkg/cache"
	"github.com/RaY8118/anime-recommendation/pkg/catalog"
	"github.com/RaY8118/anime-recommendation/pkg/client"
	"github.com/RaY8118/anime-recommendation/pkg/logging"
	"github.com/RaY8118/anime-recommendation/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	genre := flag.String("genre", "", "initial genre filter")
	season := flag.String("season", "", "initial season filter (WINTER, SPRING, SUMMER, FALL)")
	query := flag.String("query", "", "initial title search")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	initial, err := initialFilters(*genre, *season, *query)
	if err != nil {
		return err
	}

	logCfg := cfg.LogConfig(nil)
	if logCfg.File == "" {
		logCfg.File = defaultLogPath()
	}
	_, logFile, err := logging.Setup(logCfg)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger := logging.NewLogger(logging.ComponentBrowseCmd)

	manager, closeCache, err := openCache(cfg)
	if err != nil {
		return err
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
	}, logger)

	catalogClient, err := client.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create catalog client: %w", err)
	}
	defer catalogClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Catalog.Timeout)
	genres, err := catalogClient.Genres(ctx)
	cancel()
	if err != nil {
		// The browser still works without the genre list; g just does nothing.
		logger.Warn().Err(err).Msg("Failed to load genres")
	}

	feed := tui.NewFeed()
	session, err := browse.New(catalogClient, cfg.Session(), feed.Publish)
	if err != nil {
		return err
	}

	logger.Info().
		Str("session", session.ID()).
		Str("catalog", cfg.Catalog.BaseURL).
		Stringer("filters", initial).
		Msg("Starting browse session")

	return tui.Run(session, feed, genres, initial)
}

// initialFilters builds the starting filter set from command-line flags.
func initialFilters(genre, season, query string) (catalog.FilterSet, error) {
	f := catalog.FilterSet{Genre: genre, SearchQuery: query}
	if season != "" {
		s, err := catalog.ParseSeason(season)
		if err != nil {
			return catalog.FilterSet{}, err
		}
		f.Season = s
	}
	f = f.Normalize()
	if err := f.Validate(); err != nil {
		return catalog.FilterSet{}, err
	}
	return f, nil
}

// openCache opens the configured response cache. A nil manager disables
// caching.
func openCache(cfg *config.Config) (*cache.Manager, func(), error) {
	var (
		backend cache.Backend
		closeFn = func() {}
	)

	switch cfg.Cache.Backend {
	case "badger":
		db, err := cache.OpenBadger(cfg.Cache.Dir)
		if err != nil {
			return nil, nil, err
		}
		backend = cache.NewBadgerBackend(db)
		closeFn = func() { db.Close() }
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		backend = cache.NewRedisBackend(rdb)
		closeFn = func() { rdb.Close() }
	default:
		return nil, closeFn, nil
	}

	manager := cache.NewManager(backend)
	manager.SetRevalidateWindow(cfg.Cache.RevalidateWindow)
	return manager, closeFn, nil
}

func defaultLogPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "anime-browse", "browse.log")
}
