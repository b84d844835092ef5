package pagination

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/RaY8118/anime-recommendation/pkg/catalog"
	"github.com/RaY8118/anime-recommendation/pkg/window"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ChunkFetcher loads one chunk of the filtered catalog. chunkIndex is
// 1-based and chunkSize is the server page size. Implementations must be
// safe for concurrent use.
type ChunkFetcher interface {
	FetchChunk(ctx context.Context, chunkIndex, chunkSize int, filters catalog.FilterSet) (*catalog.Page, error)
}

// ChunkFetcherFunc adapts a function to ChunkFetcher.
type ChunkFetcherFunc func(ctx context.Context, chunkIndex, chunkSize int, filters catalog.FilterSet) (*catalog.Page, error)

// FetchChunk calls f.
func (f ChunkFetcherFunc) FetchChunk(ctx context.Context, chunkIndex, chunkSize int, filters catalog.FilterSet) (*catalog.Page, error) {
	return f(ctx, chunkIndex, chunkSize, filters)
}

// Config holds controller configuration.
type Config struct {
	Geometry window.Geometry

	// FetchTimeout bounds a single chunk fetch.
	FetchTimeout time.Duration
}

// DefaultConfig returns the browse view defaults: 12 items per page and 3
// display pages per chunk.
func DefaultConfig() Config {
	return Config{
		Geometry:     window.Geometry{DisplaySize: 12, ChunksPerFetch: 3},
		FetchTimeout: 15 * time.Second,
	}
}

// Controller drives the pagination state machine for one browse session.
// It runs chunk fetches in the background and feeds their outcome back
// into Reduce. Responses whose target has been superseded are discarded.
type Controller struct {
	fetcher ChunkFetcher
	geom    window.Geometry
	timeout time.Duration
	logger  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	state   State
	started bool
	closed  bool
	version uint64

	notifyMu sync.Mutex
	notified uint64
	onChange func(View)
}

// NewController creates a Controller. Call Start to issue the first fetch.
func NewController(fetcher ChunkFetcher, cfg Config, logger zerolog.Logger) (*Controller, error) {
	if fetcher == nil {
		return nil, errors.New("pagination: nil chunk fetcher")
	}
	geom, err := window.NewGeometry(cfg.Geometry.DisplaySize, cfg.Geometry.ChunksPerFetch)
	if err != nil {
		return nil, err
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultConfig().FetchTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		fetcher: fetcher,
		geom:    geom,
		timeout: cfg.FetchTimeout,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// OnChange registers fn to receive the View after every state change.
// Views are delivered in transition order; a view superseded before
// delivery may be skipped. fn must not call back into the Controller
// synchronously.
func (c *Controller) OnChange(fn func(View)) {
	c.notifyMu.Lock()
	c.onChange = fn
	c.notifyMu.Unlock()
}

// Geometry returns the window geometry in use.
func (c *Controller) Geometry() window.Geometry {
	return c.geom
}

// Start resets the session to the first display page of filters and fetches
// the first chunk.
func (c *Controller) Start(filters catalog.FilterSet) {
	c.apply("start", func(State) Result {
		return Start(c.geom, filters)
	})
}

// OnFiltersStabilized applies a debounced filter snapshot. Unchanged
// filters are a no-op.
func (c *Controller) OnFiltersStabilized(filters catalog.FilterSet) {
	c.dispatch(FiltersStabilized{Filters: filters})
}

// Next moves one display page forward.
func (c *Controller) Next() {
	c.dispatch(NextPage{})
}

// Previous moves one display page back.
func (c *Controller) Previous() {
	c.dispatch(PreviousPage{})
}

// Retry re-issues a failed fetch.
func (c *Controller) Retry() {
	c.dispatch(Retry{})
}

// Dismiss abandons a failed fetch.
func (c *Controller) Dismiss() {
	c.dispatch(Dismiss{})
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View returns the current view.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.View(c.geom)
}

// Close cancels in-flight fetches and waits for them to return. Events
// received after Close are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

func (c *Controller) dispatch(ev Event) {
	c.apply(ev.eventName(), func(s State) Result {
		if !c.started {
			return Result{State: s}
		}
		return Reduce(c.geom, s, ev)
	})
}

func (c *Controller) apply(event string, step func(State) Result) {
	ver, view, ok := c.transition(event, step)
	if !ok {
		return
	}
	c.notify(ver, view)
}

func (c *Controller) transition(event string, step func(State) Result) (uint64, View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, View{}, false
	}

	res := step(c.state)
	if res.Stale {
		StaleResponses.Inc()
		c.logger.Debug().
			Str("event", event).
			Str("target_filters", res.State.Target.Filters.String()).
			Int("target_chunk", res.State.Target.ChunkIndex).
			Msg("Discarding stale chunk response")
		return 0, View{}, false
	}
	if !res.Changed {
		return 0, View{}, false
	}

	if event == "start" {
		c.started = true
	}
	c.state = res.State
	c.version++
	Transitions.WithLabelValues(event).Inc()

	if res.Clamped {
		c.logger.Warn().
			Int("chunk", c.state.ChunkIndex).
			Int("page", c.state.DisplayPage).
			Msg("Previous chunk shorter than expected, landing on its last populated page")
	}

	if res.Trimmed > 0 {
		c.logger.Warn().
			Int("chunk", c.state.ChunkIndex).
			Int("dropped", res.Trimmed).
			Msg("Chunk response larger than requested, extra items dropped")
	}

	if res.Fetch != nil {
		req := *res.Fetch
		req.ID = uuid.NewString()
		c.launch(req)
	}

	c.logger.Debug().
		Str("event", event).
		Str("phase", c.state.Phase.String()).
		Int("chunk", c.state.ChunkIndex).
		Int("page", c.state.DisplayPage).
		Msg("Pagination transition")

	return c.version, c.state.View(c.geom), true
}

// launch must be called with c.mu held.
func (c *Controller) launch(req FetchRequest) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(req)
	}()
}

func (c *Controller) run(req FetchRequest) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	page, err := c.fetcher.FetchChunk(ctx, req.ChunkIndex, req.ChunkSize, req.Filters)
	cancel()
	if err == nil && page == nil {
		err = ErrNoPage
	}

	if c.ctx.Err() != nil {
		return
	}

	if err != nil {
		ChunkFetchDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		FetchErrors.Inc()
		c.logger.Warn().
			Err(err).
			Str("request_id", req.ID).
			Int("chunk", req.ChunkIndex).
			Str("filters", req.Filters.String()).
			Msg("Chunk fetch failed")
		c.dispatch(ChunkFailed{Request: req, Err: &TransportError{ChunkIndex: req.ChunkIndex, Err: err}})
		return
	}

	ChunkFetchDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	c.logger.Debug().
		Str("request_id", req.ID).
		Int("chunk", req.ChunkIndex).
		Int("items", len(page.Results)).
		Int("total", page.Total).
		Dur("duration", time.Since(start)).
		Msg("Chunk fetched")
	c.dispatch(ChunkLoaded{Request: req, Items: page.Results, Total: page.Total})
}

func (c *Controller) notify(ver uint64, v View) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if ver <= c.notified {
		return
	}
	c.notified = ver
	if c.onChange != nil {
		c.onChange(v)
	}
}
