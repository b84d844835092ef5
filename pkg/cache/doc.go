// Package cache provides response caching for the catalog client with
// Redis or BadgerDB storage.
//
// The cache manager implements HTTP-aware caching with the following features:
//
// - Freshness from Cache-Control max-age or Expires (default five minutes)
// - ETag support for conditional requests (If-None-Match)
// - Last-Modified support (If-Modified-Since)
// - Expired entries kept for a revalidation window
// - Prometheus metrics for observability
// - Deterministic cache key generation
//
// # Basic Usage
//
//	// Shared cache in Redis
//	manager := cache.NewManager(cache.NewRedisBackend(redisClient))
//
//	// Or a local BadgerDB (empty dir = in-memory)
//	db, err := cache.OpenBadger("/var/cache/catalog")
//	manager := cache.NewManager(cache.NewBadgerBackend(db))
//
//	key := cache.Key{
//		Endpoint: "/animes",
//		Query:    url.Values{"genre": []string{"Action"}, "page": []string{"1"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the catalog API
//	}
//
// # Conditional Requests
//
//	entry, fresh, err := manager.Lookup(ctx, key)
//	if err == nil && !fresh && cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//		// a 304 response refreshes the entry via UpdateTTL
//	}
//
// # Metrics
//
//   - catalog_cache_hits_total{layer} - Fresh hits
//   - catalog_cache_misses_total - Misses (absent or expired)
//   - catalog_cache_writes_total{layer} - Stored entries
//   - catalog_cache_stored_bytes_total{layer} - Bytes written
//   - catalog_conditional_requests_total - Revalidation requests sent
//   - catalog_304_responses_total - Revalidation successes
//   - catalog_cache_errors_total{operation} - Backend errors
package cache
