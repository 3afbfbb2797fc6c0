// Package ratelimit gates inbound relay requests per client with token
// buckets, so one caller cannot keep the relay walking upstream pages for
// everyone else.
package ratelimit

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var (
	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_rate_limit_blocks_total",
		Help: "Total number of inbound requests rejected by the rate limiter",
	})

	rateLimitClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_rate_limit_clients",
		Help: "Number of clients currently tracked by the rate limiter",
	})
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter stores a token bucket for each client key (usually the client IP).
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*client
	r       rate.Limit
	b       int
	now     func() time.Time
}

// New creates a limiter allowing perSecond requests with the given burst
// per client. perSecond <= 0 disables limiting.
func New(perSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	r := rate.Limit(perSecond)
	if perSecond <= 0 {
		r = rate.Inf
	}
	return &Limiter{
		clients: make(map[string]*client),
		r:       r,
		b:       burst,
		now:     time.Now,
	}
}

// Enabled reports whether the limiter ever rejects.
func (l *Limiter) Enabled() bool {
	return l.r != rate.Inf
}

// Allow reports whether one more request from key may proceed now.
func (l *Limiter) Allow(key string) bool {
	if !l.Enabled() {
		return true
	}

	l.mu.Lock()
	now := l.now()
	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.r, l.b)}
		l.clients[key] = c
		rateLimitClients.Set(float64(len(l.clients)))
	}
	c.lastSeen = now
	l.mu.Unlock()

	if !c.limiter.AllowN(now, 1) {
		rateLimitBlocksTotal.Inc()
		return false
	}
	return true
}

// Evict drops clients not seen for idle and returns how many were removed.
func (l *Limiter) Evict(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idle)
	removed := 0
	for key, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, key)
			removed++
		}
	}
	rateLimitClients.Set(float64(len(l.clients)))
	return removed
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
