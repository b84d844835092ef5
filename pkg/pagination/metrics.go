package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Transitions counts reducer events that changed the state, by event.
	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_pagination_transitions_total",
			Help: "Total number of pagination state transitions",
		},
		[]string{"event"},
	)

	// StaleResponses counts chunk responses dropped because their target
	// was superseded.
	StaleResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_pagination_stale_responses_total",
			Help: "Total number of discarded stale chunk responses",
		},
	)

	// ChunkFetchDuration tracks chunk fetch latency by outcome.
	ChunkFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_pagination_chunk_fetch_duration_seconds",
			Help:    "Chunk fetch duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
		},
		[]string{"outcome"}, // "ok", "error"
	)

	// FetchErrors counts failed chunk fetches.
	FetchErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_pagination_fetch_errors_total",
			Help: "Total number of failed chunk fetches",
		},
	)

	// WarmedChunks counts chunks fetched by the Warmer by outcome.
	WarmedChunks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_pagination_warmed_chunks_total",
			Help: "Total number of chunks fetched by the cache warmer",
		},
		[]string{"outcome"},
	)
)
