package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RaY8118/anime-recommendation/pkg/catalog"
	"github.com/RaY8118/anime-recommendation/pkg/window"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// WarmerConfig holds cache warmer configuration.
type WarmerConfig struct {
	Geometry window.Geometry

	// MaxConcurrency is the maximum number of parallel chunk fetches.
	MaxConcurrency int

	// Timeout per chunk fetch.
	Timeout time.Duration

	// MaxChunks caps how many chunks are warmed (0 = all).
	MaxChunks int
}

// DefaultWarmerConfig returns conservative defaults for the public catalog.
func DefaultWarmerConfig() WarmerConfig {
	return WarmerConfig{
		Geometry:       DefaultConfig().Geometry,
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
	}
}

// Warmer fetches every chunk of a filter set up front so later browsing is
// served from the response cache.
type Warmer struct {
	fetcher ChunkFetcher
	config  WarmerConfig
}

// NewWarmer creates a Warmer.
func NewWarmer(fetcher ChunkFetcher, config WarmerConfig) *Warmer {
	if config.Geometry.DisplaySize <= 0 || config.Geometry.ChunksPerFetch <= 0 {
		config.Geometry = DefaultConfig().Geometry
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	return &Warmer{fetcher: fetcher, config: config}
}

// Warm fetches all chunks for filters and returns them keyed by chunk index.
// The first chunk is fetched alone to learn the total; the rest run in
// parallel. On failure the chunks fetched so far are returned with the
// error.
func (w *Warmer) Warm(ctx context.Context, filters catalog.FilterSet) (map[int]*catalog.Page, error) {
	start := time.Now()
	size := w.config.Geometry.ChunkSize()

	first, err := w.fetchOne(ctx, 1, size, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first chunk: %w", err)
	}

	totalChunks := window.TotalPages(first.Total, size)
	if w.config.MaxChunks > 0 && totalChunks > w.config.MaxChunks {
		totalChunks = w.config.MaxChunks
	}

	log.Info().
		Str("filters", filters.String()).
		Int("total", first.Total).
		Int("chunks", totalChunks).
		Msg("Warming catalog chunks")

	results := map[int]*catalog.Page{1: first}
	if totalChunks <= 1 {
		log.Info().
			Int("chunks", 1).
			Dur("duration", time.Since(start)).
			Msg("Warm complete (single chunk)")
		return results, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.config.MaxConcurrency)
	for chunk := 2; chunk <= totalChunks; chunk++ {
		chunk := chunk
		g.Go(func() error {
			page, err := w.fetchOne(gctx, chunk, size, filters)
			if err != nil {
				log.Warn().
					Err(err).
					Int("chunk", chunk).
					Msg("Chunk warm failed")
				return fmt.Errorf("chunk %d: %w", chunk, err)
			}
			mu.Lock()
			results[chunk] = page
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Warn().
			Err(err).
			Int("fetched_chunks", len(results)).
			Int("total_chunks", totalChunks).
			Msg("Warm failed - returning partial results")
		return results, fmt.Errorf("warm (partial data: %d/%d chunks): %w", len(results), totalChunks, err)
	}

	log.Info().
		Int("chunks", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Warm complete")
	return results, nil
}

func (w *Warmer) fetchOne(ctx context.Context, chunk, size int, filters catalog.FilterSet) (*catalog.Page, error) {
	ctx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	page, err := w.fetcher.FetchChunk(ctx, chunk, size, filters)
	if err == nil && page == nil {
		err = ErrNoPage
	}
	if err != nil {
		WarmedChunks.WithLabelValues("error").Inc()
		return nil, err
	}
	WarmedChunks.WithLabelValues("ok").Inc()
	return page, nil
}
