//go:build integration

package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RaY8118/anime-recommendation/internal/testutil"
	"github.com/RaY8118/anime-recommendation/pkg/cache"
	"github.com/RaY8118/anime-recommendation/pkg/catalog"
	"github.com/RaY8118/anime-recommendation/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func newRedisClient(t *testing.T, mock *testutil.MockCatalog, redisClient *redis.Client) *Client {
	t.Helper()

	cfg := DefaultConfig(mock.URL(), "AnimeBrowse/1.0.0 (integration@test.com)")
	cfg.Cache = cache.NewManager(cache.NewRedisBackend(redisClient))
	cfg.Retry = fastPolicy
	cfg.RateLimiter = ratelimit.NewTracker(ratelimit.Config{
		RequestsPerSecond: 100,
		Burst:             10,
		MaxWait:           2 * time.Second,
		Redis:             redisClient,
	}, zerolog.Nop())

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestIntegration_FullRequestFlow(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	mock := testutil.NewMockCatalog(testutil.GenerateItems(80))
	defer mock.Close()
	mock.SetMaxAge(1)

	c := newRedisClient(t, mock, redisClient)
	ctx := context.Background()
	filters := catalog.FilterSet{Genre: "Action"}

	// Request 1: fetched and cached
	page, err := c.FetchChunk(ctx, 1, 36, filters)
	if err != nil {
		t.Fatalf("Request 1 failed: %v", err)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("After request 1: requests = %d, want 1", mock.GetRequestCount())
	}

	// Request 2: fresh hit, no network
	if _, err := c.FetchChunk(ctx, 1, 36, filters); err != nil {
		t.Fatalf("Request 2 failed: %v", err)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("After request 2: requests = %d, want 1", mock.GetRequestCount())
	}

	// Request 3: expired, revalidated with If-None-Match
	time.Sleep(1100 * time.Millisecond)
	again, err := c.FetchChunk(ctx, 1, 36, filters)
	if err != nil {
		t.Fatalf("Request 3 failed: %v", err)
	}
	if mock.GetConditionalCount() != 1 {
		t.Errorf("conditional requests = %d, want 1", mock.GetConditionalCount())
	}
	if again.Total != page.Total {
		t.Errorf("revalidated total = %d, want %d", again.Total, page.Total)
	}

	key := cache.Key{Endpoint: EndpointAnimes, Query: filters.Query(1, 36)}
	entry, err := c.GetCache().Get(ctx, key)
	if err != nil {
		t.Fatalf("Cache lookup failed: %v", err)
	}
	if entry.ETag == "" {
		t.Error("cached entry should carry the ETag")
	}
}

func TestIntegration_SharedCooldownBlocks(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	mock := testutil.NewMockCatalog(testutil.GenerateItems(10))
	defer mock.Close()

	ctx := context.Background()
	redisClient.Set(ctx, ratelimit.RedisKeyCooldownUntil, time.Now().Add(time.Minute).Unix(), 0)
	redisClient.Set(ctx, ratelimit.RedisKeyLastUpdate, time.Now().Unix(), 0)

	c := newRedisClient(t, mock, redisClient)

	_, err := c.FetchChunk(ctx, 1, 36, catalog.FilterSet{})
	if !errors.Is(err, ratelimit.ErrCooldownTooLong) {
		t.Fatalf("err = %v, want ErrCooldownTooLong", err)
	}
	if mock.GetRequestCount() != 0 {
		t.Errorf("requests = %d, want 0 while cooling down", mock.GetRequestCount())
	}
}

func TestIntegration_RateLimitSharesCooldown(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	mock := testutil.NewMockCatalog(testutil.GenerateItems(10))
	defer mock.Close()
	mock.FailNext(testutil.NewRateLimitResponse(1))

	c := newRedisClient(t, mock, redisClient)
	ctx := context.Background()

	start := time.Now()
	if _, err := c.FetchChunk(ctx, 1, 36, catalog.FilterSet{}); err != nil {
		t.Fatalf("FetchChunk failed: %v", err)
	}
	if time.Since(start) < time.Second {
		t.Errorf("retry did not wait out Retry-After, took %v", time.Since(start))
	}

	raw, err := redisClient.Get(ctx, ratelimit.RedisKeyCooldownUntil).Int64()
	if err != nil {
		t.Fatalf("cooldown not stored in redis: %v", err)
	}
	if raw == 0 {
		t.Error("cooldown_until should be set after a 429")
	}
}
