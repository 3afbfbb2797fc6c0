package cache

import (
	"time"

	"github.com/odl-optics/remains-relay/pkg/pagination"
)

// CacheEntry is one cached fetch result.
type CacheEntry struct {
	// Records is the full accumulated result of the fetch
	Records []pagination.Record `json:"records"`

	// Columns is the upstream field order of Records
	Columns []string `json:"columns,omitempty"`

	// Expires is when the entry becomes stale
	Expires time.Time `json:"expires"`

	// CachedAt is when the entry was stored
	CachedAt time.Time `json:"cached_at"`
}

// NewEntry wraps records with an expiry ttl from now. Columns is left for
// the caller to set.
func NewEntry(records []pagination.Record, ttl time.Duration) *CacheEntry {
	now := time.Now()
	return &CacheEntry{
		Records:  records,
		Expires:  now.Add(ttl),
		CachedAt: now,
	}
}

// IsExpired returns true if the cache entry has expired.
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *CacheEntry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
