package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_rate_limit_remaining",
		Help: "Requests remaining in the current catalog API rate limit window",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_rate_limit_blocks_total",
		Help: "Total number of requests held back by an active cooldown",
	})

	rateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_rate_limit_throttles_total",
		Help: "Total number of requests throttled due to a low remaining budget",
	})

	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_rate_limit_wait_seconds",
		Help:    "Time spent waiting for the rate limiter",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	})
)

// ErrCooldownTooLong is returned by Wait when the active cooldown outlasts
// Config.MaxWait.
var ErrCooldownTooLong = errors.New("rate limit cooldown exceeds max wait")

// Config holds tracker configuration.
type Config struct {
	// RequestsPerSecond is the local token bucket rate.
	RequestsPerSecond float64

	// Burst is the token bucket size.
	Burst int

	// MaxWait caps how long Wait blocks on a cooldown before giving up.
	MaxWait time.Duration

	// ThrottleDelay is added before each request while the budget is low.
	ThrottleDelay time.Duration

	// Redis shares cooldowns between processes (optional).
	Redis *redis.Client
}

// DefaultConfig returns a conservative budget for the public catalog API.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 5,
		Burst:             10,
		MaxWait:           30 * time.Second,
		ThrottleDelay:     500 * time.Millisecond,
	}
}

// Tracker monitors catalog API rate limits and gates requests.
type Tracker struct {
	limiter *rate.Limiter
	redis   *redis.Client
	config  Config
	logger  zerolog.Logger

	mu    sync.Mutex
	local *State
}

// NewTracker creates a new rate limit tracker.
func NewTracker(cfg Config, logger zerolog.Logger) *Tracker {
	def := DefaultConfig()
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = def.MaxWait
	}
	if cfg.ThrottleDelay < 0 {
		cfg.ThrottleDelay = 0
	}

	return &Tracker{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		redis:   cfg.Redis,
		config:  cfg,
		logger:  logger,
		local:   UnknownState(),
	}
}

// GetState returns the current rate limit state. With Redis configured the
// shared state is read; otherwise the local one.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		s := *t.local
		s.UpdateHealth()
		return &s, nil
	}

	vals, err := t.redis.MGet(ctx,
		RedisKeyLimit, RedisKeyRemaining, RedisKeyResetAt, RedisKeyCooldownUntil, RedisKeyLastUpdate,
	).Result()
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}

	state := UnknownState()
	if vals[4] == nil {
		t.logger.Debug().Msg("No rate limit state in Redis, assuming healthy")
		return state, nil
	}

	state.Limit = intValue(vals[0], 0)
	state.Remaining = intValue(vals[1], -1)
	state.ResetAt = unixValue(vals[2])
	state.CooldownUntil = unixValue(vals[3])
	state.LastUpdate = unixValue(vals[4])
	state.UpdateHealth()

	return state, nil
}

// UpdateFromHeaders records the budget advertised by a response. A 429
// status or a Retry-After header starts a cooldown.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, status int, headers http.Header) error {
	now := time.Now()

	t.mu.Lock()
	state := *t.local
	t.mu.Unlock()

	seen := false
	if v := headers.Get("X-RateLimit-Limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse X-RateLimit-Limit header: %w", err)
		}
		state.Limit = limit
		seen = true
	}
	if v := headers.Get("X-RateLimit-Remaining"); v != "" {
		remaining, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse X-RateLimit-Remaining header: %w", err)
		}
		state.Remaining = remaining
		seen = true
	}
	if v := headers.Get("X-RateLimit-Reset"); v != "" {
		reset, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse X-RateLimit-Reset header: %w", err)
		}
		state.ResetAt = resetTime(now, reset)
		seen = true
	}

	retryAfter, hasRetryAfter := ParseRetryAfter(headers, now)
	if status == http.StatusTooManyRequests && !hasRetryAfter {
		retryAfter, hasRetryAfter = time.Second, true
	}
	if hasRetryAfter {
		state.CooldownUntil = now.Add(retryAfter)
		seen = true
	}

	if !seen {
		return nil
	}

	state.LastUpdate = now
	state.UpdateHealth()

	t.mu.Lock()
	t.local = &state
	t.mu.Unlock()

	if state.Remaining >= 0 {
		rateLimitRemaining.Set(float64(state.Remaining))
	}

	if t.redis != nil {
		pipe := t.redis.Pipeline()
		pipe.Set(ctx, RedisKeyLimit, state.Limit, 0)
		pipe.Set(ctx, RedisKeyRemaining, state.Remaining, 0)
		pipe.Set(ctx, RedisKeyResetAt, state.ResetAt.Unix(), 0)
		pipe.Set(ctx, RedisKeyCooldownUntil, state.CooldownUntil.Unix(), 0)
		pipe.Set(ctx, RedisKeyLastUpdate, state.LastUpdate.Unix(), 0)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("store rate limit state in redis: %w", err)
		}
	}

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Time("cooldown_until", state.CooldownUntil).
			Time("reset_at", state.ResetAt).
			Msg("Catalog rate limit exhausted - requests will wait")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Int("limit", state.Limit).
			Msg("Catalog rate limit low - requests will be throttled")
	default:
		t.logger.Debug().
			Int("remaining", state.Remaining).
			Bool("is_healthy", state.IsHealthy).
			Msg("Catalog rate limit state updated")
	}

	return nil
}

// Wait blocks until a request may be sent. It waits out an active cooldown
// (up to MaxWait), adds ThrottleDelay while the budget is low, and then
// takes a token from the local bucket.
func (t *Tracker) Wait(ctx context.Context) error {
	start := time.Now()
	defer func() {
		rateLimitWaitSeconds.Observe(time.Since(start).Seconds())
	}()

	state, err := t.GetState(ctx)
	if err != nil {
		// Shared state unreadable; fall back to the local bucket only.
		t.logger.Warn().Err(err).Msg("Rate limit state unavailable")
		state = UnknownState()
	}

	if state.NeedsCriticalBlock() {
		wait := state.TimeUntilReset()
		rateLimitBlocksTotal.Inc()
		if wait > t.config.MaxWait {
			return fmt.Errorf("%w: %s", ErrCooldownTooLong, wait.Round(time.Second))
		}
		t.logger.Warn().Dur("wait_duration", wait).Msg("Catalog rate limit cooldown - waiting")
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	} else if state.NeedsThrottling() && t.config.ThrottleDelay > 0 {
		rateLimitThrottlesTotal.Inc()
		if err := sleep(ctx, t.config.ThrottleDelay); err != nil {
			return err
		}
	}

	return t.limiter.Wait(ctx)
}

// ParseRetryAfter reads a Retry-After header given in seconds or as an
// HTTP date.
func ParseRetryAfter(headers http.Header, now time.Time) (time.Duration, bool) {
	v := headers.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(v); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// resetTime interprets X-RateLimit-Reset, which servers send either as a
// Unix timestamp or as seconds until reset.
func resetTime(now time.Time, v int64) time.Time {
	if v > now.Unix()/2 {
		return time.Unix(v, 0)
	}
	return now.Add(time.Duration(v) * time.Second)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func intValue(v any, def int) int {
	s, ok := v.(string)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func unixValue(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return time.Time{}
	}
	return time.Unix(n, 0)
}
