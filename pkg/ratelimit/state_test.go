package ratelimit

import (
	"testing"
	"time"
)

func TestState_IsStale(t *testing.T) {
	tests := []struct {
		name     string
		state    *State
		maxAge   time.Duration
		expected bool
	}{
		{
			name:     "fresh state",
			state:    &State{LastUpdate: time.Now()},
			maxAge:   5 * time.Minute,
			expected: false,
		},
		{
			name:     "stale state",
			state:    &State{LastUpdate: time.Now().Add(-10 * time.Minute)},
			maxAge:   5 * time.Minute,
			expected: true,
		},
		{
			name:     "just under max age",
			state:    &State{LastUpdate: time.Now().Add(-4 * time.Minute)},
			maxAge:   5 * time.Minute,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsStale(tt.maxAge); got != tt.expected {
				t.Errorf("IsStale() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_NeedsCriticalBlock(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{
			name:     "unknown budget",
			state:    *UnknownState(),
			expected: false,
		},
		{
			name:     "active cooldown",
			state:    State{Limit: 90, Remaining: 40, CooldownUntil: now.Add(10 * time.Second)},
			expected: true,
		},
		{
			name:     "expired cooldown",
			state:    State{Limit: 90, Remaining: 40, CooldownUntil: now.Add(-time.Second)},
			expected: false,
		},
		{
			name:     "exhausted before reset",
			state:    State{Limit: 90, Remaining: 0, ResetAt: now.Add(30 * time.Second)},
			expected: true,
		},
		{
			name:     "exhausted after reset",
			state:    State{Limit: 90, Remaining: 0, ResetAt: now.Add(-time.Second)},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.NeedsCriticalBlock(); got != tt.expected {
				t.Errorf("NeedsCriticalBlock() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_NeedsThrottlingAndHealth(t *testing.T) {
	tests := []struct {
		name           string
		limit          int
		remaining      int
		expectThrottle bool
		expectHealthy  bool
	}{
		{"plenty left", 100, 80, false, true},
		{"at healthy threshold", 100, 50, false, true},
		{"below healthy", 100, 30, false, false},
		{"warning", 100, 15, true, false},
		{"last request", 100, 1, true, false},
		{"unknown limit", 0, 5, false, true},
		{"unknown remaining", 100, -1, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &State{Limit: tt.limit, Remaining: tt.remaining, ResetAt: time.Now().Add(time.Minute)}
			s.UpdateHealth()

			if got := s.NeedsThrottling(); got != tt.expectThrottle {
				t.Errorf("NeedsThrottling() = %v, want %v", got, tt.expectThrottle)
			}
			if s.IsHealthy != tt.expectHealthy {
				t.Errorf("IsHealthy = %v, want %v", s.IsHealthy, tt.expectHealthy)
			}
		})
	}
}

func TestState_TimeUntilReset(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		state   State
		wantMin time.Duration
		wantMax time.Duration
	}{
		{
			name:    "not blocked",
			state:   State{Limit: 90, Remaining: 50},
			wantMin: 0,
			wantMax: 0,
		},
		{
			name:    "cooldown",
			state:   State{CooldownUntil: now.Add(10 * time.Second)},
			wantMin: 9 * time.Second,
			wantMax: 11 * time.Second,
		},
		{
			name:    "later of cooldown and reset",
			state:   State{Remaining: 0, ResetAt: now.Add(30 * time.Second), CooldownUntil: now.Add(10 * time.Second)},
			wantMin: 29 * time.Second,
			wantMax: 31 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.state.TimeUntilReset()
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("TimeUntilReset() = %v, want between %v and %v", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}
