package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/odl-optics/remains-relay/pkg/metrics"
	"github.com/odl-optics/remains-relay/pkg/ratelimit"
)

// Banner is served on GET /.
const Banner = "Itigris GPT Server is running"

// Options configures the router.
type Options struct {
	// Token is the shared secret expected in X-ODL-TOKEN. Empty rejects
	// every protected request with 500.
	Token string

	// Limiter gates protected routes per client IP. Nil disables limiting.
	Limiter *ratelimit.Limiter
}

// NewRouter creates and configures a new Gin router.
func NewRouter(handler *Handler, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(handler.logger), Metrics())

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, Banner)
	})
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	protected := r.Group("/")
	if opts.Limiter != nil && opts.Limiter.Enabled() {
		protected.Use(RateLimit(opts.Limiter))
	}
	protected.Use(RequireToken(opts.Token))
	{
		protected.GET("/departments", handler.GetDepartments)
		protected.GET("/inventory", handler.GetInventory)
		protected.POST("/inventory", handler.PostInventory)
	}

	return r
}
