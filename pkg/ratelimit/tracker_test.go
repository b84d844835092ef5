package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

func TestUpdateFromHeaders_ValidHeaders(t *testing.T) {
	tests := []struct {
		name            string
		headers         http.Header
		status          int
		expectedRemain  int
		expectedHealthy bool
		expectBlock     bool
	}{
		{
			name:            "healthy state",
			headers:         http.Header{"X-Ratelimit-Limit": {"90"}, "X-Ratelimit-Remaining": {"80"}, "X-Ratelimit-Reset": {"60"}},
			status:          http.StatusOK,
			expectedRemain:  80,
			expectedHealthy: true,
		},
		{
			name:            "warning state",
			headers:         http.Header{"X-Ratelimit-Limit": {"90"}, "X-Ratelimit-Remaining": {"10"}, "X-Ratelimit-Reset": {"30"}},
			status:          http.StatusOK,
			expectedRemain:  10,
			expectedHealthy: false,
		},
		{
			name:            "exhausted",
			headers:         http.Header{"X-Ratelimit-Limit": {"90"}, "X-Ratelimit-Remaining": {"0"}, "X-Ratelimit-Reset": {"45"}},
			status:          http.StatusOK,
			expectedRemain:  0,
			expectedHealthy: false,
			expectBlock:     true,
		},
		{
			name:            "429 with retry-after",
			headers:         http.Header{"Retry-After": {"20"}},
			status:          http.StatusTooManyRequests,
			expectedRemain:  -1,
			expectedHealthy: false,
			expectBlock:     true,
		},
		{
			name:            "unix timestamp reset",
			headers:         http.Header{"X-Ratelimit-Limit": {"90"}, "X-Ratelimit-Remaining": {"0"}, "X-Ratelimit-Reset": {strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10)}},
			status:          http.StatusOK,
			expectedRemain:  0,
			expectedHealthy: false,
			expectBlock:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewTracker(Config{}, testLogger())

			if err := tracker.UpdateFromHeaders(context.Background(), tt.status, tt.headers); err != nil {
				t.Fatalf("UpdateFromHeaders failed: %v", err)
			}

			state, err := tracker.GetState(context.Background())
			if err != nil {
				t.Fatalf("GetState failed: %v", err)
			}
			if state.Remaining != tt.expectedRemain {
				t.Errorf("Remaining = %d, want %d", state.Remaining, tt.expectedRemain)
			}
			if state.IsHealthy != tt.expectedHealthy {
				t.Errorf("IsHealthy = %v, want %v", state.IsHealthy, tt.expectedHealthy)
			}
			if state.NeedsCriticalBlock() != tt.expectBlock {
				t.Errorf("NeedsCriticalBlock() = %v, want %v", state.NeedsCriticalBlock(), tt.expectBlock)
			}
			if tt.expectBlock && state.TimeUntilReset() > 2*time.Minute {
				t.Errorf("TimeUntilReset() = %v, implausibly long", state.TimeUntilReset())
			}
		})
	}
}

func TestUpdateFromHeaders_InvalidHeaders(t *testing.T) {
	tracker := NewTracker(Config{}, testLogger())

	tests := []struct {
		name        string
		headers     http.Header
		shouldError bool
	}{
		{"no rate limit headers", http.Header{"Content-Type": {"application/json"}}, false},
		{"invalid remaining", http.Header{"X-Ratelimit-Remaining": {"invalid"}}, true},
		{"invalid limit", http.Header{"X-Ratelimit-Limit": {"lots"}}, true},
		{"invalid reset", http.Header{"X-Ratelimit-Remaining": {"5"}, "X-Ratelimit-Reset": {"soon"}}, true},
		{"unparseable retry-after is ignored", http.Header{"Retry-After": {"whenever"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tracker.UpdateFromHeaders(context.Background(), http.StatusOK, tt.headers)
			if tt.shouldError && err == nil {
				t.Error("Expected error but got nil")
			}
			if !tt.shouldError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		value  string
		want   time.Duration
		wantOK bool
	}{
		{"seconds", "12", 12 * time.Second, true},
		{"http date", now.Add(30 * time.Second).UTC().Format(http.TimeFormat), 30 * time.Second, true},
		{"past date", now.Add(-time.Minute).UTC().Format(http.TimeFormat), 0, true},
		{"missing", "", 0, false},
		{"negative", "-5", 0, false},
		{"garbage", "later", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.value != "" {
				h.Set("Retry-After", tt.value)
			}
			got, ok := ParseRetryAfter(h, now)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if diff := got - tt.want; diff < -time.Second || diff > time.Second {
				t.Errorf("ParseRetryAfter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWait_Cooldown(t *testing.T) {
	tracker := NewTracker(Config{RequestsPerSecond: 1000, Burst: 10, MaxWait: time.Second}, testLogger())

	h := http.Header{"Retry-After": {"0"}}
	if err := tracker.UpdateFromHeaders(context.Background(), http.StatusTooManyRequests, h); err != nil {
		t.Fatalf("UpdateFromHeaders failed: %v", err)
	}
	if err := tracker.Wait(context.Background()); err != nil {
		t.Errorf("Wait after zero cooldown failed: %v", err)
	}

	h = http.Header{"Retry-After": {"120"}}
	if err := tracker.UpdateFromHeaders(context.Background(), http.StatusTooManyRequests, h); err != nil {
		t.Fatalf("UpdateFromHeaders failed: %v", err)
	}
	if err := tracker.Wait(context.Background()); !errors.Is(err, ErrCooldownTooLong) {
		t.Errorf("Wait = %v, want ErrCooldownTooLong", err)
	}
}

func TestWait_ContextCancelled(t *testing.T) {
	tracker := NewTracker(Config{RequestsPerSecond: 1000, Burst: 10, MaxWait: time.Minute}, testLogger())

	h := http.Header{"Retry-After": {"30"}}
	if err := tracker.UpdateFromHeaders(context.Background(), http.StatusTooManyRequests, h); err != nil {
		t.Fatalf("UpdateFromHeaders failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := tracker.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait = %v, want context.DeadlineExceeded", err)
	}
}

func TestWait_TokenBucket(t *testing.T) {
	tracker := NewTracker(Config{RequestsPerSecond: 20, Burst: 1}, testLogger())
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := tracker.Wait(ctx); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
	}
	// One token is available immediately; two more take ~50ms each.
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("3 requests at 20/s with burst 1 took %v, expected >= ~100ms", elapsed)
	}
}
