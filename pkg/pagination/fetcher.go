package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrMissingProduct is returned before any request when Payload.Product is empty.
	ErrMissingProduct = errors.New("product is required")

	// ErrPageLimitExceeded is returned when Config.MaxPages requests were
	// made and none of them came back empty.
	ErrPageLimitExceeded = errors.New("pagination limit exceeded")
)

var (
	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_fetches_total",
		Help: "Total paginated fetches by result",
	}, []string{"result"})

	fetchPages = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_fetch_pages",
		Help:    "Upstream pages requested per fetch, including the final empty page",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 1000},
	})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_fetch_duration_seconds",
		Help:    "Wall time of a complete paginated fetch",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})
)

// Config holds fetcher configuration.
type Config struct {
	// MaxPages caps the number of page requests, the terminating empty page
	// included. A result of exactly MaxPages data pages therefore needs a cap
	// of MaxPages+1. 0 disables the cap.
	MaxPages int

	// PageTimeout bounds each page request. 0 leaves it to the HTTP client.
	PageTimeout time.Duration
}

// DefaultConfig returns a cap high enough for any real remains list.
func DefaultConfig() Config {
	return Config{
		MaxPages:    1000,
		PageTimeout: 0,
	}
}

// PageFetcher requests a single page of records.
type PageFetcher interface {
	FetchPage(ctx context.Context, payload Payload, page int) (Page, error)
}

// Fetcher accumulates all pages of a query.
type Fetcher struct {
	pages  PageFetcher
	config Config
	logger zerolog.Logger
}

// NewFetcher creates a fetcher over pages.
func NewFetcher(pages PageFetcher, config Config) *Fetcher {
	if config.MaxPages < 0 {
		config.MaxPages = 0
	}
	return &Fetcher{
		pages:  pages,
		config: config,
		logger: log.With().Str("component", "pagination").Logger(),
	}
}

// FetchAll requests pages 1, 2, 3... until one comes back empty and returns
// every record in order. The first failed page aborts the whole fetch and no
// partial result is returned.
func (f *Fetcher) FetchAll(ctx context.Context, payload Payload) ([]Record, error) {
	result, err := f.Fetch(ctx, payload)
	if err != nil {
		return nil, err
	}
	return result.Records, nil
}

// Fetch is FetchAll that also reports the upstream field order.
func (f *Fetcher) Fetch(ctx context.Context, payload Payload) (*Result, error) {
	if payload.Product == "" {
		return nil, ErrMissingProduct
	}

	start := time.Now()
	result := &Result{Records: make([]Record, 0)}
	seen := make(map[string]struct{})
	requested := 0

	defer func() {
		fetchPages.Observe(float64(requested))
		fetchDuration.Observe(time.Since(start).Seconds())
	}()

	for page := 1; ; page++ {
		if f.config.MaxPages > 0 && page > f.config.MaxPages {
			fetchesTotal.WithLabelValues("page_limit").Inc()
			f.logger.Warn().
				Str("product", payload.Product).
				Int("max_pages", f.config.MaxPages).
				Int("records", len(result.Records)).
				Msg("Page limit reached before an empty page")
			return nil, fmt.Errorf("%w: no empty page within %d requests", ErrPageLimitExceeded, f.config.MaxPages)
		}

		if err := ctx.Err(); err != nil {
			fetchesTotal.WithLabelValues("cancelled").Inc()
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		requested++
		batch, err := f.fetchPage(ctx, payload, page)
		if err != nil {
			fetchesTotal.WithLabelValues("error").Inc()
			f.logger.Warn().
				Err(err).
				Str("product", payload.Product).
				Int("page", page).
				Msg("Page fetch failed, aborting")
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		if len(batch.Records) == 0 {
			break
		}

		result.Records = append(result.Records, batch.Records...)
		result.addColumns(seen, batch.Keys)

		f.logger.Debug().
			Str("product", payload.Product).
			Int("page", page).
			Int("page_records", len(batch.Records)).
			Int("records", len(result.Records)).
			Msg("Page fetched")
	}

	fetchesTotal.WithLabelValues("ok").Inc()
	f.logger.Info().
		Str("product", payload.Product).
		Int("pages", requested).
		Int("records", len(result.Records)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return result, nil
}

func (f *Fetcher) fetchPage(ctx context.Context, payload Payload, page int) (Page, error) {
	if f.config.PageTimeout <= 0 {
		return f.pages.FetchPage(ctx, payload, page)
	}
	pageCtx, cancel := context.WithTimeout(ctx, f.config.PageTimeout)
	defer cancel()
	return f.pages.FetchPage(pageCtx, payload, page)
}
