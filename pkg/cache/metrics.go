package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer ("memory", "redis")
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_cache_hits_total",
			Help: "Total number of remains cache hits",
		},
		[]string{"layer"},
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_cache_misses_total",
			Help: "Total number of remains cache misses",
		},
	)

	// CacheErrors tracks store failures
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
