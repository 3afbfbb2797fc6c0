package api

import (
	"context"

	"github.com/odl-optics/remains-relay/pkg/departments"
	"github.com/odl-optics/remains-relay/pkg/logging"
	"github.com/odl-optics/remains-relay/pkg/pagination"
	"github.com/rs/zerolog"
)

// Fetcher returns every record for a payload with the upstream field order.
// Satisfied by *pagination.Fetcher and *cache.CachingFetcher.
type Fetcher interface {
	Fetch(ctx context.Context, payload pagination.Payload) (*pagination.Result, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	fetcher     Fetcher
	departments *departments.Table
	logger      zerolog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(fetcher Fetcher, table *departments.Table) *Handler {
	if table == nil {
		table = departments.Default()
	}
	return &Handler{
		fetcher:     fetcher,
		departments: table,
		logger:      logging.NewLogger("api"),
	}
}
