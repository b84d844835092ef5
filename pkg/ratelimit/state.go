// Package ratelimit gates catalog API requests. A local token bucket keeps
// the request rate under the configured budget, and the X-RateLimit-* and
// Retry-After headers returned by the API impose a cooldown that can be
// shared between processes through Redis.
package ratelimit

import (
	"time"
)

// Redis keys for shared rate limit state.
const (
	RedisKeyRemaining     = "catalog:rate_limit:remaining"
	RedisKeyLimit         = "catalog:rate_limit:limit"
	RedisKeyResetAt       = "catalog:rate_limit:reset_at"
	RedisKeyCooldownUntil = "catalog:rate_limit:cooldown_until"
	RedisKeyLastUpdate    = "catalog:rate_limit:last_update"
)

// Thresholds as a fraction of the advertised limit.
const (
	// WarningFraction applies throttling when the remaining budget drops
	// below this share of the limit.
	WarningFraction = 0.2

	// HealthyFraction marks the budget healthy at or above this share.
	HealthyFraction = 0.5
)

// State is the last rate limit budget advertised by the catalog API.
type State struct {
	// Limit is the request budget per window (X-RateLimit-Limit).
	Limit int `json:"limit"`

	// Remaining is the budget left in the window (X-RateLimit-Remaining).
	// -1 means unknown.
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets (X-RateLimit-Reset).
	ResetAt time.Time `json:"reset_at"`

	// CooldownUntil is set from Retry-After after a 429 response.
	CooldownUntil time.Time `json:"cooldown_until"`

	// LastUpdate is when this state was last updated.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when at least HealthyFraction of the budget remains.
	IsHealthy bool `json:"is_healthy"`
}

// UnknownState is the state before any response has been seen.
func UnknownState() *State {
	return &State{Remaining: -1, LastUpdate: time.Now(), IsHealthy: true}
}

// IsStale returns true if the state data is older than the given duration.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true while a cooldown is active or the window
// budget is exhausted and has not reset yet.
func (s *State) NeedsCriticalBlock() bool {
	now := time.Now()
	if now.Before(s.CooldownUntil) {
		return true
	}
	return s.Remaining == 0 && now.Before(s.ResetAt)
}

// NeedsThrottling returns true if the remaining budget is low but not
// exhausted.
func (s *State) NeedsThrottling() bool {
	if s.Limit <= 0 || s.Remaining < 0 || s.NeedsCriticalBlock() {
		return false
	}
	return float64(s.Remaining) < float64(s.Limit)*WarningFraction
}

// TimeUntilReset returns how long requests stay blocked. Returns 0 if
// nothing blocks them.
func (s *State) TimeUntilReset() time.Duration {
	if !s.NeedsCriticalBlock() {
		return 0
	}
	until := s.ResetAt
	if s.CooldownUntil.After(until) {
		until = s.CooldownUntil
	}
	d := time.Until(until)
	if d < 0 {
		return 0
	}
	return d
}

// UpdateHealth updates the IsHealthy field from Remaining and Limit.
func (s *State) UpdateHealth() {
	if s.Limit <= 0 || s.Remaining < 0 {
		s.IsHealthy = !s.NeedsCriticalBlock()
		return
	}
	s.IsHealthy = float64(s.Remaining) >= float64(s.Limit)*HealthyFraction && !s.NeedsCriticalBlock()
}
