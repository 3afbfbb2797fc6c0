// Package cache keeps recent remains fetches so that repeated identical
// requests within a short window are answered without walking every upstream
// page again.
//
// Entries are stored as JSON bytes behind a Store, so callers always get a
// fresh copy of the records and can annotate them in place. Two stores exist:
//
//   - MemoryStore, backed by patrickmn/go-cache, for a single relay process
//   - RedisStore, backed by go-redis, shared between relay replicas
//
// # Basic Usage
//
//	manager := cache.NewManager(cache.NewMemoryStore(time.Minute))
//	fetcher := cache.NewCachingFetcher(paginated, manager, "odl", time.Minute)
//	result, err := fetcher.Fetch(ctx, pagination.Payload{Product: "LENS"})
//
// Only successful fetches are cached. A failing store never fails a request:
// the error is logged and the fetch goes upstream.
//
// # Metrics
//
//   - relay_cache_hits_total{layer} - cache hits by store
//   - relay_cache_misses_total - cache misses
//   - relay_cache_errors_total{operation} - store failures (get, set, delete)
package cache
