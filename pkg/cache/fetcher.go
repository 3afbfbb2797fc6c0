package cache

import (
	"context"
	"errors"
	"time"

	"github.com/odl-optics/remains-relay/pkg/pagination"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Fetcher returns every record for a payload together with the upstream
// field order.
type Fetcher interface {
	Fetch(ctx context.Context, payload pagination.Payload) (*pagination.Result, error)
}

// CachingFetcher serves repeated payloads from a Manager for ttl.
type CachingFetcher struct {
	next    Fetcher
	manager *Manager
	appName string
	ttl     time.Duration
	logger  zerolog.Logger
}

// NewCachingFetcher wraps next. appName scopes keys to one tenant.
func NewCachingFetcher(next Fetcher, manager *Manager, appName string, ttl time.Duration) *CachingFetcher {
	return &CachingFetcher{
		next:    next,
		manager: manager,
		appName: appName,
		ttl:     ttl,
		logger:  log.With().Str("component", "cache").Str("layer", manager.Layer()).Logger(),
	}
}

// FetchAll returns only the records of Fetch.
func (f *CachingFetcher) FetchAll(ctx context.Context, payload pagination.Payload) ([]pagination.Record, error) {
	result, err := f.Fetch(ctx, payload)
	if err != nil {
		return nil, err
	}
	return result.Records, nil
}

// Fetch implements Fetcher.
func (f *CachingFetcher) Fetch(ctx context.Context, payload pagination.Payload) (*pagination.Result, error) {
	if payload.Product == "" {
		return f.next.Fetch(ctx, payload)
	}

	key := KeyFor(f.appName, payload)

	entry, err := f.manager.Get(ctx, key)
	switch {
	case err == nil:
		f.logger.Debug().
			Str("key", key.String()).
			Int("records", len(entry.Records)).
			Dur("age", time.Since(entry.CachedAt)).
			Msg("Cache hit")
		records := entry.Records
		if records == nil {
			records = []pagination.Record{}
		}
		return &pagination.Result{Records: records, Columns: entry.Columns}, nil
	case errors.Is(err, ErrCacheMiss):
		f.logger.Debug().Str("key", key.String()).Msg("Cache miss")
	default:
		f.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache get error")
	}

	result, err := f.next.Fetch(ctx, payload)
	if err != nil {
		return nil, err
	}

	fresh := NewEntry(result.Records, f.ttl)
	fresh.Columns = result.Columns
	if err := f.manager.Set(ctx, key, fresh); err != nil {
		f.logger.Warn().Err(err).Str("key", key.String()).Msg("Failed to cache fetch result")
	}

	return result, nil
}
