package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// DefaultRevalidateWindow is how long an expired entry is retained so a
// conditional request can refresh it instead of refetching the body.
const DefaultRevalidateWindow = 10 * time.Minute

// Manager handles caching operations over a Backend.
type Manager struct {
	backend    Backend
	revalidate time.Duration
}

// NewManager creates a new cache manager.
func NewManager(backend Backend) *Manager {
	if backend == nil {
		panic("cache backend cannot be nil")
	}
	return &Manager{
		backend:    backend,
		revalidate: DefaultRevalidateWindow,
	}
}

// SetRevalidateWindow changes how long expired entries are retained.
func (m *Manager) SetRevalidateWindow(d time.Duration) {
	if d < 0 {
		d = 0
	}
	m.revalidate = d
}

// Backend returns the storage backend.
func (m *Manager) Backend() Backend {
	return m.backend
}

// Get retrieves a fresh cache entry by key.
// Returns ErrCacheMiss if the key doesn't exist or the entry is expired.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	entry, fresh, err := m.Lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if !fresh {
		return nil, ErrCacheMiss
	}
	return entry, nil
}

// Lookup retrieves a cache entry and reports whether it is still fresh.
// Expired entries inside the revalidation window are returned with fresh
// set to false. Returns ErrCacheMiss if the key doesn't exist.
func (m *Manager) Lookup(ctx context.Context, key Key) (*Entry, bool, error) {
	layer := m.backend.Name()

	data, err := m.backend.Get(ctx, key.String())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			CacheMisses.Inc()
			return nil, false, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, false, err
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		CacheMisses.Inc()
		return &entry, false, nil
	}

	CacheHits.WithLabelValues(layer).Inc()
	return &entry, true, nil
}

// Set stores a cache entry. The backend keeps it until Expires plus the
// revalidation window. Entries that are already expired are not stored.
func (m *Manager) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.backend.Set(ctx, key.String(), data, ttl+m.revalidate); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return err
	}

	CacheWrites.WithLabelValues(m.backend.Name()).Inc()
	CacheStoredBytes.WithLabelValues(m.backend.Name()).Add(float64(len(data)))

	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.backend.Delete(ctx, key.String()); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return err
	}
	return nil
}

// UpdateTTL updates the expiry of an existing entry, fresh or not.
// This is used when a 304 Not Modified response revalidates it.
func (m *Manager) UpdateTTL(ctx context.Context, key Key, newExpires time.Time) error {
	entry, _, err := m.Lookup(ctx, key)
	if err != nil {
		return err
	}

	entry.Expires = newExpires
	return m.Set(ctx, key, entry)
}
