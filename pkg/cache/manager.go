package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Manager encodes entries and keeps them in a Store.
type Manager struct {
	store Store
}

// NewManager creates a manager over store.
func NewManager(store Store) *Manager {
	if store == nil {
		panic("cache store cannot be nil")
	}
	return &Manager{store: store}
}

// Layer returns the underlying store's layer name.
func (m *Manager) Layer() string {
	return m.store.Layer()
}

// Get retrieves a cache entry by key.
// Returns ErrCacheMiss if the key doesn't exist or entry is expired.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	cacheKey := key.String()

	data, err := m.store.Get(ctx, cacheKey)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, err
	}

	// Numbers stay json.Number, as they were when first decoded from upstream.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var entry CacheEntry
	if err := dec.Decode(&entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		_ = m.store.Delete(ctx, cacheKey)
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(m.store.Layer()).Inc()
	return &entry, nil
}

// Set stores a cache entry until its Expires time. Expired entries are
// silently skipped.
func (m *Manager) Set(ctx context.Context, key CacheKey, entry *CacheEntry) error {
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

	if err := m.store.Set(ctx, key.String(), data, ttl); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return err
	}
	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	if err := m.store.Delete(ctx, key.String()); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return err
	}
	return nil
}
