package api

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/odl-optics/remains-relay/pkg/metrics"
	"github.com/odl-optics/remains-relay/pkg/ratelimit"
	"github.com/rs/zerolog"
)

// TokenHeader carries the shared secret on protected routes.
const TokenHeader = "X-ODL-TOKEN"

// RequireToken rejects requests whose X-ODL-TOKEN does not match token.
// An empty token means the server was started without one, which fails
// closed with 500.
func RequireToken(token string) gin.HandlerFunc {
	expected := []byte(token)
	return func(c *gin.Context) {
		if len(expected) == 0 {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server token is not configured"})
			return
		}

		provided := c.GetHeader(TokenHeader)
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Next()
	}
}

// RateLimit answers 429 once a client IP exhausts its bucket.
func RateLimit(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}

// Metrics records every request in the relay_http_* metrics.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.RecordRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// RequestLogger logs one line per request.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		default:
			event = logger.Info()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Str("client_ip", c.ClientIP()).
			Dur("duration", time.Since(start)).
			Int("bytes", c.Writer.Size()).
			Msg("Request served")
	}
}
