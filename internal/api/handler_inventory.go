package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/odl-optics/remains-relay/pkg/client"
	"github.com/odl-optics/remains-relay/pkg/departments"
	"github.com/odl-optics/remains-relay/pkg/export"
	"github.com/odl-optics/remains-relay/pkg/pagination"
)

// Response formats.
const (
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

// InventoryRequest is the POST /inventory body.
type InventoryRequest struct {
	Product    string         `json:"product"`
	Department string         `json:"department,omitempty"`
	Filter     map[string]any `json:"filter,omitempty"`
	Format     string         `json:"format,omitempty"`
	Annotate   bool           `json:"annotate,omitempty"`
}

type inventoryQuery struct {
	payload  pagination.Payload
	format   string
	annotate bool
}

// PostInventory handles POST /inventory.
func (h *Handler) PostInventory(c *gin.Context) {
	var req InventoryRequest
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if req.Product == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Product is required"})
		return
	}

	q, ok := h.buildQuery(c, req.Product, req.Department, req.Format, FormatJSON)
	if !ok {
		return
	}
	q.payload.Filter = req.Filter
	q.annotate = req.Annotate

	h.serveInventory(c, q)
}

// GetInventory handles GET /inventory?category=&department=&format=.
// Results are always annotated and default to a spreadsheet.
func (h *Handler) GetInventory(c *gin.Context) {
	category := c.Query("category")
	if category == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Category is required"})
		return
	}

	q, ok := h.buildQuery(c, category, c.Query("department"), c.Query("format"), FormatXLSX)
	if !ok {
		return
	}
	q.annotate = true

	h.serveInventory(c, q)
}

// buildQuery resolves the department and format. It writes the 400
// response itself and reports false on bad input.
func (h *Handler) buildQuery(c *gin.Context, product, department, format, defaultFormat string) (inventoryQuery, bool) {
	q := inventoryQuery{payload: pagination.Payload{Product: product}}

	switch f := strings.ToLower(format); f {
	case "":
		q.format = defaultFormat
	case FormatJSON, FormatXLSX:
		q.format = f
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Unsupported format"})
		return q, false
	}

	if department != "" {
		id, err := h.departments.Lookup(department)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Unknown department"})
			return q, false
		}
		q.payload = q.payload.WithDepartment(id)
	}

	return q, true
}

func (h *Handler) serveInventory(c *gin.Context, q inventoryQuery) {
	result, err := h.fetcher.Fetch(c.Request.Context(), q.payload)
	if err != nil {
		h.writeFetchError(c, err)
		return
	}
	records := result.Records

	if q.annotate || q.format == FormatXLSX {
		export.Annotate(records, h.departments)
	}

	if q.format == FormatJSON {
		c.JSON(http.StatusOK, records)
		return
	}

	if len(records) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "No data found"})
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, records, result.Columns); err != nil {
		h.logger.Error().Err(err).Int("records", len(records)).Msg("Failed to build spreadsheet")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to build spreadsheet"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

// writeFetchError maps a fetch failure onto the response.
func (h *Handler) writeFetchError(c *gin.Context, err error) {
	if upErr, ok := client.AsUpstreamError(err); ok {
		status := upErr.StatusCode
		if status < http.StatusBadRequest || status > 599 {
			status = http.StatusBadGateway
		}
		c.AbortWithStatusJSON(status, gin.H{"error": upErr.Body, "status": upErr.StatusCode})
		return
	}

	switch {
	case errors.Is(err, pagination.ErrMissingProduct):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Product is required"})
	case errors.Is(err, departments.ErrUnknownDepartment):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Unknown department"})
	case errors.Is(err, pagination.ErrPageLimitExceeded):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "pagination limit exceeded"})
	default:
		h.logger.Error().Err(err).Msg("Upstream request failed")
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "upstream request failed"})
	}
}
