// Package server assembles the relay from configuration and runs its HTTP
// server until the context is cancelled.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/odl-optics/remains-relay/internal/api"
	"github.com/odl-optics/remains-relay/internal/version"
	"github.com/odl-optics/remains-relay/pkg/cache"
	"github.com/odl-optics/remains-relay/pkg/client"
	"github.com/odl-optics/remains-relay/pkg/config"
	"github.com/odl-optics/remains-relay/pkg/departments"
	"github.com/odl-optics/remains-relay/pkg/logging"
	"github.com/odl-optics/remains-relay/pkg/pagination"
	"github.com/odl-optics/remains-relay/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	limiterEvictInterval = time.Minute
	limiterIdleTimeout   = 10 * time.Minute
	redisPingTimeout     = 5 * time.Second
)

// Server is the relay HTTP server.
type Server struct {
	httpServer      *http.Server
	limiter         *ratelimit.Limiter
	shutdownTimeout time.Duration
	cleanup         func() error
	logger          zerolog.Logger
}

// BuildFetcher wires the upstream client, the page loop and, when enabled,
// the result cache. The returned cleanup releases the cache backend.
func BuildFetcher(ctx context.Context, cfg *config.Config) (api.Fetcher, func() error, error) {
	logger := logging.NewLogger("server")
	noop := func() error { return nil }

	clientCfg := client.DefaultConfig(cfg.Upstream.AppName, cfg.Upstream.APIKey)
	clientCfg.BaseURL = cfg.Upstream.BaseURL
	clientCfg.Timeout = cfg.Upstream.Timeout
	clientCfg.UserAgent = version.UserAgent()

	upstream, err := client.New(clientCfg)
	if err != nil {
		return nil, noop, fmt.Errorf("create upstream client: %w", err)
	}

	fetcher := pagination.NewFetcher(upstream, pagination.Config{
		MaxPages:    cfg.Pagination.MaxPages,
		PageTimeout: cfg.Upstream.Timeout,
	})

	if cfg.Cache.TTL <= 0 {
		logger.Info().Msg("Result cache disabled")
		return fetcher, noop, nil
	}

	if cfg.Redis.Addr == "" {
		store := cache.NewMemoryStore(cfg.Cache.TTL * 2)
		logger.Info().Dur("ttl", cfg.Cache.TTL).Msg("Using in-memory result cache")
		return cache.NewCachingFetcher(fetcher, cache.NewManager(store), upstream.AppName(), cfg.Cache.TTL), noop, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, noop, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	logger.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.Cache.TTL).Msg("Using Redis result cache")

	manager := cache.NewManager(cache.NewRedisStore(redisClient))
	return cache.NewCachingFetcher(fetcher, manager, upstream.AppName(), cfg.Cache.TTL), redisClient.Close, nil
}

// New builds a Server from cfg. cfg must already be validated.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	logger := logging.NewLogger("server")

	fetcher, cleanup, err := BuildFetcher(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Server.Token == "" {
		logger.Warn().Msg("Server token is not configured; protected routes will answer 500")
	}

	if logging.ParseLevel(cfg.Logging.Level) > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	limiter := ratelimit.New(cfg.Server.RateLimitPerSec, cfg.Server.RateLimitBurst)
	router := api.NewRouter(api.NewHandler(fetcher, departments.Default()), api.Options{
		Token:   cfg.Server.Token,
		Limiter: limiter,
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  2 * time.Minute,
		},
		limiter:         limiter,
		shutdownTimeout: cfg.Server.ShutdownTimeout,
		cleanup:         cleanup,
		logger:          logger,
	}, nil
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("Starting relay server")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if s.limiter.Enabled() {
		go s.evictIdleClients(ctx)
	}

	select {
	case <-ctx.Done():
		s.logger.Info().Msg("Shutdown signal received")
	case err := <-errCh:
		_ = s.cleanup()
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if err := s.cleanup(); err != nil {
		s.logger.Error().Err(err).Msg("Cache cleanup error")
	}

	s.logger.Info().Msg("Server stopped")
	return nil
}

func (s *Server) evictIdleClients(ctx context.Context) {
	ticker := time.NewTicker(limiterEvictInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.limiter.Evict(limiterIdleTimeout); n > 0 {
				s.logger.Debug().Int("evicted", n).Msg("Evicted idle rate limit clients")
			}
		}
	}
}
