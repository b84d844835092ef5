//go:build integration

// Package integration runs browse sessions end to end against a mock
// catalog with a Redis-backed response cache.
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/RaY8118/anime-recommendation/internal/testutil"
	"github.com/RaY8118/anime-recommendation/pkg/browse"
	"github.com/RaY8118/anime-recommendation/pkg/cache"
	"github.com/RaY8118/anime-recommendation/pkg/catalog"
	"github.com/RaY8118/anime-recommendation/pkg/client"
	"github.com/RaY8118/anime-recommendation/pkg/pagination"
	"github.com/RaY8118/anime-recommendation/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	t.Cleanup(func() {
		redisClient.Close()
		container.Terminate(ctx)
	})
	return redisClient
}

// newSession wires a browse session to mock through a Redis-cached client.
func newSession(t *testing.T, redisClient *redis.Client, mock *testutil.MockCatalog, debounceDelay time.Duration) *browse.Session {
	t.Helper()

	cfg := client.DefaultConfig(mock.URL(), "anime-browse/integration")
	cfg.Cache = cache.NewManager(cache.NewRedisBackend(redisClient))
	cfg.RateLimiter = ratelimit.NewTracker(ratelimit.Config{
		RequestsPerSecond: 1000,
		Burst:             100,
		Redis:             redisClient,
	}, zerolog.Nop())
	cfg.Retry = func(client.ErrorClass) client.RetryConfig {
		return client.RetryConfig{MaxAttempts: 2, InitialBackoff: 10 * time.Millisecond, MaxBackoff: 20 * time.Millisecond, BackoffMultiplier: 2}
	}

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	bcfg := browse.DefaultConfig()
	bcfg.DebounceDelay = debounceDelay
	s, err := browse.New(c, bcfg, nil)
	if err != nil {
		t.Fatalf("browse.New failed: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

// waitFor polls the session view until cond holds.
func waitFor(t *testing.T, s *browse.Session, cond func(pagination.View) bool) pagination.View {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if v := s.View(); cond(v) {
			return v
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("view never matched, last = %+v", s.View())
	return pagination.View{}
}

func idleOn(page int) func(pagination.View) bool {
	return func(v pagination.View) bool {
		return v.Phase == pagination.PhaseIdle && !v.Loading && v.Page == page
	}
}

// TestBrowse_CrossesChunkBoundary pages past the first chunk and back; the
// return trip is served from the Redis cache.
func TestBrowse_CrossesChunkBoundary(t *testing.T) {
	redisClient := setupRedis(t)
	mock := testutil.NewMockCatalog(testutil.GenerateItems(50))
	defer mock.Close()

	s := newSession(t, redisClient, mock, 20*time.Millisecond)
	s.Start(catalog.FilterSet{})

	v := waitFor(t, s, idleOn(1))
	if v.TotalPages != 5 || v.Total != 50 {
		t.Errorf("Expected 5 pages of 50 titles, got %d of %d", v.TotalPages, v.Total)
	}
	if len(v.Items) != 12 || v.Items[0].ID != 1 {
		t.Errorf("Expected items 1..12 on page 1, got %d starting at %d", len(v.Items), v.Items[0].ID)
	}

	s.Next()
	waitFor(t, s, idleOn(2))
	s.Next()
	waitFor(t, s, idleOn(3))
	if got := mock.GetRequestCount(); got != 1 {
		t.Errorf("Pages 1-3 should share one chunk, got %d requests", got)
	}

	s.Next()
	v = waitFor(t, s, idleOn(4))
	if v.Items[0].ID != 37 {
		t.Errorf("Expected page 4 to start at id 37, got %d", v.Items[0].ID)
	}
	if got := mock.GetRequestCount(); got != 2 {
		t.Errorf("Expected chunk 2 fetch, got %d requests", got)
	}

	s.Next()
	v = waitFor(t, s, idleOn(5))
	if len(v.Items) != 2 || v.HasNext {
		t.Errorf("Expected 2 items on the last page with no next, got %d (next=%v)", len(v.Items), v.HasNext)
	}

	s.Previous()
	waitFor(t, s, idleOn(4))
	s.Previous()
	v = waitFor(t, s, idleOn(3))
	if v.Items[0].ID != 25 {
		t.Errorf("Expected page 3 to start at id 25, got %d", v.Items[0].ID)
	}
	if got := mock.GetRequestCount(); got != 2 {
		t.Errorf("Chunk 1 should come from cache, got %d requests", got)
	}
}

// TestBrowse_DebouncedSearch only fetches the last of a burst of edits.
func TestBrowse_DebouncedSearch(t *testing.T) {
	redisClient := setupRedis(t)
	mock := testutil.NewMockCatalog(testutil.GenerateItems(50))
	defer mock.Close()

	s := newSession(t, redisClient, mock, 80*time.Millisecond)
	s.Start(catalog.FilterSet{})
	waitFor(t, s, idleOn(1))

	for _, q := range []string{"s", "se", "ser", "series 04"} {
		s.SetFilters(catalog.FilterSet{SearchQuery: q})
		time.Sleep(10 * time.Millisecond)
	}

	v := waitFor(t, s, func(v pagination.View) bool {
		return v.Phase == pagination.PhaseIdle && !v.Loading && v.Filters.SearchQuery == "series 04"
	})
	if v.Total != 10 {
		t.Errorf("Expected 10 titles matching series 04x, got %d", v.Total)
	}
	if got := mock.GetRequestCount(); got != 2 {
		t.Errorf("Expected initial fetch plus one search, got %d requests", got)
	}
}

// TestBrowse_EmptyResult reports an empty listing with a search suggestion.
func TestBrowse_EmptyResult(t *testing.T) {
	redisClient := setupRedis(t)
	mock := testutil.NewMockCatalog(testutil.GenerateItems(20))
	defer mock.Close()

	s := newSession(t, redisClient, mock, 0)
	s.Start(catalog.FilterSet{SearchQuery: "no such title"})

	v := waitFor(t, s, func(v pagination.View) bool { return v.Phase == pagination.PhaseIdle && !v.Loading })
	if !v.Empty || v.Total != 0 {
		t.Errorf("Expected empty view, got total %d (empty=%v)", v.Total, v.Empty)
	}
	if v.SuggestQuery != "no such title" {
		t.Errorf("Expected suggestion for the query, got %q", v.SuggestQuery)
	}
}

// TestBrowse_RetryAfterFailure recovers from a failed fetch via Retry.
func TestBrowse_RetryAfterFailure(t *testing.T) {
	redisClient := setupRedis(t)
	mock := testutil.NewMockCatalog(testutil.GenerateItems(50))
	defer mock.Close()

	s := newSession(t, redisClient, mock, 0)
	s.Start(catalog.FilterSet{})
	waitFor(t, s, idleOn(1))

	for i := 0; i < 2; i++ {
		s.Next()
	}
	waitFor(t, s, idleOn(3))

	mock.FailNext(testutil.NewServerErrorResponse(), testutil.NewServerErrorResponse())
	s.Next()

	v := waitFor(t, s, func(v pagination.View) bool { return v.Phase == pagination.PhaseError })
	if v.Err == nil {
		t.Fatal("Expected an error in the view")
	}
	if v.Page != 3 || v.Items[0].ID != 25 {
		t.Errorf("Expected page 3 to stay visible, got page %d", v.Page)
	}

	s.Retry()
	v = waitFor(t, s, idleOn(4))
	if v.Items[0].ID != 37 {
		t.Errorf("Expected page 4 after retry, got first id %d", v.Items[0].ID)
	}
}
